package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandlers_Healthz(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Second)
	h := NewHealthHandlers(
		WithHealthBuildInfo(BuildInfo{Version: "1.2.3", CommitSHA: "abc123", Environment: "test", StartedAt: started}),
		WithHealthClock(func() time.Time { return now }),
	)

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload healthPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.Version != "1.2.3" || payload.Uptime != "1m30s" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Timestamp != "2024-01-01T00:01:30Z" {
		t.Fatalf("unexpected timestamp %s", payload.Timestamp)
	}
}

func TestHealthHandlers_ReadyzReportsFailedChecks(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("kvstore", func(context.Context) error { return nil }),
		WithReadinessCheck("pubsub", func(context.Context) error { return errors.New("topic missing") }),
	)

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var payload healthPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "degraded" || payload.Version != "dev" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Checks["kvstore"] != "ok" || payload.Checks["pubsub"] != "topic missing" {
		t.Fatalf("unexpected checks %+v", payload.Checks)
	}
}

func TestHealthHandlers_ReadyzWithoutChecks(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandlers().Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
