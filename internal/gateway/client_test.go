package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSendWireFormat(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send-message" {
			t.Errorf("path = %q, want /send-message", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Send(context.Background(), SendRequest{
		Phone:   "5511999999999@c.us",
		Message: "Hi",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["to"] != "5511999999999@c.us" {
		t.Fatalf("to = %v", got["to"])
	}
	if got["text"] != "Hi" {
		t.Fatalf("text = %v", got["text"])
	}
	if _, ok := got["number"]; ok {
		t.Fatal("legacy field name on the wire")
	}
}

func TestClientSendErrorMapsToSendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Falha ao enviar mensagem"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Send(context.Background(), SendRequest{Phone: "5511999", Message: "oi"})
	if !errors.Is(err, ErrSendFailure) {
		t.Fatalf("err = %v, want ErrSendFailure", err)
	}
}
