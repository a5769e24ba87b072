package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/crypto/bcrypt"

	"github.com/atendohq/atendo/internal/activity"
	"github.com/atendohq/atendo/internal/config"
	"github.com/atendohq/atendo/internal/contacts"
	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/db"
	"github.com/atendohq/atendo/internal/directory"
	"github.com/atendohq/atendo/internal/gateway"
	"github.com/atendohq/atendo/internal/handlers"
	"github.com/atendohq/atendo/internal/hub"
	"github.com/atendohq/atendo/internal/logger"
	"github.com/atendohq/atendo/internal/media"
	"github.com/atendohq/atendo/internal/message"
	"github.com/atendohq/atendo/internal/routing"
	"github.com/atendohq/atendo/internal/server"
	"github.com/atendohq/atendo/internal/settings"
	"github.com/atendohq/atendo/internal/storage/localfs"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			directory.NewService,
			conversation.NewService,
			message.NewService,
			contacts.NewService,
			settings.NewService,
			activity.NewService,
			providePruner,
			provideMediaService,
			hub.New,
			provideGatewaySession,
			provideEngine,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideConversationsHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideFilesHandler),
			provideServerHandler(provideRealtimeHandler),
			provideServerHandler(provideDirectoryHandler),
			provideServerHandler(provideContactsHandler),
			provideServerHandler(provideDashboardHandler),
			provideServerHandler(provideActivityHandler),
			provideServerHandler(provideSettingsHandler),
			provideServerHandler(provideGatewayHandler),
			provideServer,
		),
		fx.Invoke(
			startGatewaySession,
			startActivityPruner,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.Postgres.AutoMigrate {
		if err := db.Migrate(cfg.Postgres); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideMediaService(log *slog.Logger, cfg config.Config) (*media.Service, error) {
	provider, err := localfs.New(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("init upload dir: %w", err)
	}
	limits := media.Limits{
		MaxBytes:          cfg.Uploads.MaxBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}
	return media.NewService(log, provider, limits), nil
}

func provideGatewaySession(log *slog.Logger, cfg config.Config, h *hub.Hub) *gateway.Session {
	client := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.SendTimeout())
	return gateway.NewSession(log, client, hub.NewGatewayBridge(h), gateway.SessionConfig{
		PollInterval: cfg.Gateway.StatusPollInterval(),
		BackoffMin:   cfg.Gateway.BackoffMin(),
		BackoffMax:   cfg.Gateway.BackoffMax(),
		MaxRetries:   cfg.Gateway.MaxReconnectRetries,
	})
}

func provideEngine(
	log *slog.Logger,
	conversations *conversation.Service,
	messages *message.Service,
	contactService *contacts.Service,
	dir *directory.Service,
	session *gateway.Session,
	h *hub.Hub,
) *routing.Service {
	return routing.NewService(log, conversations, messages, contactService, dir, session, h)
}

func providePruner(log *slog.Logger, service *activity.Service, cfg config.Config) *activity.Pruner {
	return activity.NewPruner(log, service, cfg.Retention.PruneSchedule, cfg.Retention.ActivityDays)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideAuthHandler(log *slog.Logger, dir *directory.Service, recorder *activity.Service, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, dir, recorder, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn)
}

func provideConversationsHandler(log *slog.Logger, engine *routing.Service, conversations *conversation.Service, messages *message.Service, contactService *contacts.Service, recorder *activity.Service) *handlers.ConversationsHandler {
	return handlers.NewConversationsHandler(log, engine, conversations, messages, contactService, recorder)
}

func provideWebhookHandler(log *slog.Logger, engine *routing.Service, cfg config.Config) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, engine, cfg.Gateway.WebhookSecret)
}

func provideFilesHandler(log *slog.Logger, mediaService *media.Service) *handlers.FilesHandler {
	return handlers.NewFilesHandler(log, mediaService)
}

func provideRealtimeHandler(log *slog.Logger, h *hub.Hub, cfg config.Config) *handlers.RealtimeHandler {
	return handlers.NewRealtimeHandler(log, h, cfg.Auth.JWTSecret)
}

func provideDirectoryHandler(log *slog.Logger, dir *directory.Service, recorder *activity.Service) *handlers.DirectoryHandler {
	return handlers.NewDirectoryHandler(log, dir, recorder)
}

func provideContactsHandler(log *slog.Logger, contactService *contacts.Service) *handlers.ContactsHandler {
	return handlers.NewContactsHandler(log, contactService)
}

func provideDashboardHandler(log *slog.Logger, conversations *conversation.Service, messages *message.Service, dir *directory.Service, session *gateway.Session) *handlers.DashboardHandler {
	return handlers.NewDashboardHandler(log, conversations, messages, dir, session)
}

func provideActivityHandler(log *slog.Logger, service *activity.Service) *handlers.ActivityHandler {
	return handlers.NewActivityHandler(log, service)
}

func provideSettingsHandler(log *slog.Logger, service *settings.Service, recorder *activity.Service) *handlers.SettingsHandler {
	return handlers.NewSettingsHandler(log, service, recorder)
}

func provideGatewayHandler(log *slog.Logger, session *gateway.Session) *handlers.GatewayHandler {
	return handlers.NewGatewayHandler(log, session)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Logger, params.Handlers)
}

func startGatewaySession(lc fx.Lifecycle, session *gateway.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				session.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func startActivityPruner(lc fx.Lifecycle, pruner *activity.Pruner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return pruner.Start() },
		OnStop:  func(context.Context) error { pruner.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, dir *directory.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ensureAdminAgent(ctx, log, dir, cfg); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// ensureAdminAgent bootstraps the first admin account from config when the
// agents table is empty, so a fresh install is immediately usable.
func ensureAdminAgent(ctx context.Context, log *slog.Logger, dir *directory.Service, cfg config.Config) error {
	count, err := dir.CountAgents(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	username := strings.TrimSpace(cfg.Admin.Username)
	password := strings.TrimSpace(cfg.Admin.Password)
	if username == "" || password == "" {
		return fmt.Errorf("admin username/password required in config.toml")
	}
	if password == "change-your-password-here" {
		log.Warn("admin password uses default placeholder; please update config.toml")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = dir.CreateAgent(ctx, directory.CreateAgentInput{
		Username: username,
		Name:     username,
		Email:    strings.TrimSpace(cfg.Admin.Email),
		Role:     directory.RoleAdmin,
	}, string(hashed))
	if err != nil {
		return fmt.Errorf("create admin agent: %w", err)
	}
	log.Info("admin agent created", slog.String("username", username))
	return nil
}
