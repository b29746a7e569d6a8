package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func (f *appFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthOK(t *testing.T) {
	f := newAppFixture(t)
	f.app.DB = &stubPinger{}

	resp, body := f.get(t, "/v1/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", body["status"])
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	f := newAppFixture(t)
	f.app.DB = &stubPinger{err: errors.New("connection refused")}

	resp, body := f.get(t, "/v1/healthz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %v", body["status"])
	}
}
