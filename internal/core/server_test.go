package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"payrelay/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		LogLevel:    "info",
		Security: config.SecurityConfig{
			CorsAllowedOrigins: "*",
		},
	}
}

func TestNewServer_Success(t *testing.T) {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.Router() == nil {
		t.Error("expected router to be initialized")
	}
	if s.Validator == nil {
		t.Error("expected validator to be initialized")
	}
	if s.Handler() == nil {
		t.Error("expected handler to be non-nil")
	}
}

func TestNewServer_NilConfig(t *testing.T) {
	_, err := NewServer(nil, testLogger())
	if err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewServer_NilLogger(t *testing.T) {
	_, err := NewServer(testConfig(), nil)
	if err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestServer_Shutdown(t *testing.T) {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}
