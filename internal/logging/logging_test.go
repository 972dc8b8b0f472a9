package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewDevMode(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)

	log.Debug("test debug")
	log.Info("test info")

	output := buf.String()
	if !strings.Contains(output, "test debug") {
		t.Error("expected debug message visible in dev mode")
	}
	if !strings.Contains(output, "test info") {
		t.Error("expected info message visible in dev mode")
	}
}

func TestNewProdMode(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Debug("hidden")
	log.Info("prod test", "k", "v")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be suppressed in prod mode")
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "prod test" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSetup(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	Setup(false)
	if slog.Default() == old {
		t.Error("expected default logger replaced")
	}
}

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	slog.SetDefault(New(&buf, true))
	return &buf
}

func serve(handler http.Handler, path string) {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestRequestLogger(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	serve(RequestLogger(inner), "/api/comments")

	output := buf.String()
	if output == "" {
		t.Fatal("expected log output")
	}
	if !strings.Contains(output, "GET") {
		t.Error("expected method in log")
	}
	if !strings.Contains(output, "/api/comments") {
		t.Error("expected path in log")
	}
}

func TestRequestLoggerSkipsQuietPaths(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/files/abc-photo.png", "/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			buf := captureDefault(t)
			serve(RequestLogger(inner), path)
			if buf.Len() > 0 {
				t.Errorf("expected no log for %s, got %q", path, buf.String())
			}
		})
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusCreated, "INFO"},
	}

	for _, tt := range tests {
		buf := captureDefault(t)
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		serve(RequestLogger(inner), "/api/comments")

		out := buf.String()
		if !strings.Contains(out, fmt.Sprintf("status=%d", tt.status)) || !strings.Contains(out, "level="+tt.level) {
			t.Errorf("status %d: log = %q, want level %s", tt.status, out, tt.level)
		}
	}
}
