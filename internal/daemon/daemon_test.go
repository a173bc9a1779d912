package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"rymbridge/internal/api"
	"rymbridge/internal/daemon"
	"rymbridge/internal/logging"
	"rymbridge/internal/testsupport"
)

func TestDaemonStartServesStatusAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected bound api address")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.MirrorEnabled {
		t.Fatal("mirror should be disabled in default test config")
	}

	d.Stop()
}

func TestDaemonSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("second daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}
