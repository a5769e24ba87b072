package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner trims old audit entries on a cron schedule.
type Pruner struct {
	service  *Service
	schedule string
	days     int
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewPruner creates a pruner that keeps the most recent `days` of entries.
func NewPruner(log *slog.Logger, service *Service, schedule string, days int) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		service:  service,
		schedule: schedule,
		days:     days,
		logger:   log.With(slog.String("service", "activity-pruner")),
	}
}

// Start schedules the prune job. A zero retention disables pruning.
func (p *Pruner) Start() error {
	if p.days <= 0 {
		p.logger.Info("activity retention disabled")
		return nil
	}
	p.cron = cron.New()
	_, err := p.cron.AddFunc(p.schedule, p.runOnce)
	if err != nil {
		return err
	}
	p.cron.Start()
	p.logger.Info("activity retention scheduled",
		slog.String("schedule", p.schedule),
		slog.Int("days", p.days))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (p *Pruner) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}

func (p *Pruner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := p.service.PruneOlderThan(ctx, p.days)
	if err != nil {
		p.logger.Error("prune run failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		p.logger.Info("pruned activity entries", slog.Int64("removed", removed))
	}
}
