package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	internalwebhook "github.com/foxseedlab/tsunagin/internal/webhook"
)

func samplePayload() internalwebhook.CallSummaryPayload {
	return internalwebhook.CallSummaryPayload{
		SchemaVersion:   internalwebhook.CallSummarySchemaVersion,
		CallID:          "call-1",
		Agent:           "alice",
		StartAt:         "2026-08-28T10:00:00Z",
		EndAt:           "2026-08-28T10:05:00Z",
		DurationSeconds: 300,
		Transcript:      "[mic]\nhello",
		Summary:         "short call",
	}
}

func TestSendCallSummary_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendCallSummary(context.Background(), samplePayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendCallSummary_Success(t *testing.T) {
	var got internalwebhook.CallSummaryPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendCallSummary(context.Background(), samplePayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.CallID != "call-1" || got.Summary != "short call" || got.DurationSeconds != 300 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendCallSummary_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendCallSummary(context.Background(), samplePayload()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
