package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/contacts"
	"github.com/atendohq/atendo/internal/conversation"
	"github.com/atendohq/atendo/internal/message"
	"github.com/atendohq/atendo/internal/routing"
)

type fakeIngestor struct {
	inputs []routing.IngestInput
}

func (f *fakeIngestor) Ingest(_ context.Context, input routing.IngestInput) (routing.IngestResult, error) {
	f.inputs = append(f.inputs, input)
	return routing.IngestResult{
		Contact:      contacts.Contact{ID: "contact-1", Phone: input.Phone},
		Conversation: conversation.Conversation{ID: "conv-1", Status: conversation.StatusPending},
		Message:      message.Message{ID: "msg-1", Content: input.Content},
	}, nil
}

func webhookContext(t *testing.T, body, secret string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook_internal", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{}
	h := NewWebhookHandler(nil, ingestor, "topsecret")

	for _, secret := range []string{"", "wrong"} {
		c, _ := webhookContext(t, `{"from":"5511999@c.us","body":"oi"}`, secret)
		err := h.Receive(c)
		if got := httpStatus(t, err); got != http.StatusUnauthorized {
			t.Fatalf("secret %q: status = %d, want 401", secret, got)
		}
	}
	if len(ingestor.inputs) != 0 {
		t.Fatal("ingest ran despite bad secret")
	}
}

func TestWebhookRejectsMissingContent(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(nil, &fakeIngestor{}, "topsecret")

	cases := []string{
		`{"body":"oi"}`,
		`{"from":"5511999@c.us"}`,
	}
	for _, body := range cases {
		c, _ := webhookContext(t, body, "topsecret")
		err := h.Receive(c)
		if got := httpStatus(t, err); got != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, got)
		}
	}
}

func TestWebhookIngestsInboundMessage(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{}
	h := NewWebhookHandler(nil, ingestor, "topsecret")

	c, rec := webhookContext(t, `{"from":"5511999999999@c.us","body":"Hi","author":"Maria"}`, "topsecret")
	if err := h.Receive(c); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if len(ingestor.inputs) != 1 {
		t.Fatalf("inputs = %+v", ingestor.inputs)
	}
	got := ingestor.inputs[0]
	if got.Phone != "5511999999999@c.us" || got.Content != "Hi" || got.Name != "Maria" {
		t.Fatalf("input = %+v", got)
	}
}
