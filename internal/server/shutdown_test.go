package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func startGraceful(t *testing.T, gs *GracefulServer) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	return "http://" + ln.Addr().String(), cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestGracefulServer_ServeAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpServer := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})}
	gs := NewGracefulServer(httpServer, logger, testServerConfig())

	var order []string
	gs.RegisterShutdownHook("telemetry", func(ctx context.Context) error {
		order = append(order, "telemetry")
		return nil
	})
	gs.RegisterShutdownHook("cache", func(ctx context.Context) error {
		order = append(order, "cache")
		return nil
	})

	url, cancel, done := startGraceful(t, gs)

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Serve() returned %v", err)
	}

	if got := strings.Join(order, ","); got != "cache,telemetry" {
		t.Errorf("hook order = %q, want cache,telemetry", got)
	}
}

func TestGracefulServer_HookError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, logger, testServerConfig())

	flushErr := errors.New("flush failed")
	gs.RegisterShutdownHook("telemetry", func(ctx context.Context) error { return flushErr })

	_, cancel, done := startGraceful(t, gs)
	cancel()

	err := waitDone(t, done)
	if !errors.Is(err, flushErr) {
		t.Errorf("Serve() error = %v, want it to wrap %v", err, flushErr)
	}
	if err != nil && !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("error should name the hook, got %q", err)
	}
}
