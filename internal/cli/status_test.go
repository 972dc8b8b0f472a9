package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func status(t *testing.T) string {
	t.Helper()
	var out bytes.Buffer
	if err := runStatus(context.Background(), &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	return out.String()
}

func TestStatusNoAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_API_KEY", "")
	t.Setenv("CB_SERVER_URL", "http://localhost:9999")

	out := status(t)
	if !strings.Contains(out, "not configured") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusShortAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_API_KEY", "cb_ab")
	t.Setenv("CB_SERVER_URL", "http://127.0.0.1:1")

	// Should not panic with a short key
	out := status(t)
	if !strings.Contains(out, "cannot reach server") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusWithServer(t *testing.T) {
	srv := meServer(t, testKey)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_API_KEY", testKey)
	t.Setenv("CB_SERVER_URL", srv.URL)

	out := status(t)
	if !strings.Contains(out, "API Key: cb_ababa…") {
		t.Errorf("expected key prefix, got %q", out)
	}
	if !strings.Contains(out, "authenticated as Anna") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusWithInvalidKey(t *testing.T) {
	srv := meServer(t, testKey)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CB_API_KEY", "cb_badkey1234567890abcde")
	t.Setenv("CB_SERVER_URL", srv.URL)

	// Should not return error, just prints status
	out := status(t)
	if !strings.Contains(out, "invalid API key") {
		t.Errorf("output = %q", out)
	}
}
