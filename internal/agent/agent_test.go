package agent

import (
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/gcpreston/webcandy-client/internal/config"
	"github.com/gcpreston/webcandy-client/internal/core"
	"github.com/gcpreston/webcandy-client/internal/session"
)

// testConfig points every endpoint at a port nothing listens on.
func testConfig(t *testing.T, maxAttempts int) *config.Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	dir := t.TempDir()
	return &config.Config{
		Server:             config.ServerConfig{Host: "127.0.0.1", ProxyPort: port, AppPort: port},
		Renderer:           config.RendererConfig{Host: "127.0.0.1", Port: port, BinDir: dir},
		ClientName:         "test-client",
		NumLEDs:            8,
		MaxConnectAttempts: maxAttempts,
		PatternsDir:        filepath.Join(dir, "patterns"),
		SchedulesFile:      filepath.Join(dir, "schedules.json"),
	}
}

func TestRunReturnsWhenRetriesExhausted(t *testing.T) {
	a := New(testConfig(t, 1), "token")
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()

	select {
	case err := <-runErr:
		if !errors.Is(err, session.ErrRetriesExhausted) {
			t.Fatalf("Run returned %v, want retries-exhausted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the retry budget")
	}
	a.Shutdown()
}

func TestShutdownUnblocksBackoff(t *testing.T) {
	a := New(testConfig(t, 5), "token")
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run() }()

	// An invalid command must be dropped without killing the loop.
	a.commandChannel <- core.Command{Pattern: "no_such_pattern"}

	// Give the session time to burn its first attempt and enter backoff.
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		a.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown blocked")
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned %v after Shutdown, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}
