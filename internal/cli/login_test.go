package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/commentbox/internal/user"
)

var testKey = "cb_" + strings.Repeat("ab", 32)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", testKey, false},
		{"empty key", "", true},
		{"missing prefix", strings.Repeat("ab", 32), true},
		{"wrong prefix", "sk_" + strings.Repeat("ab", 32), true},
		{"just prefix", "cb_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAPIKey(%q) err = %v, wantErr = %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func meServer(t *testing.T, key string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case r.Header.Get("Authorization") != "Bearer "+key:
			http.Error(w, `{"error":"invalid API key"}`, http.StatusUnauthorized)
		case r.URL.Path == "/api/me":
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(user.User{ID: "u1", DisplayName: "Anna"}); err != nil {
				http.Error(w, "encode error", http.StatusInternalServerError)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginSavesKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := meServer(t, testKey)

	var out bytes.Buffer
	if err := runLogin(context.Background(), strings.NewReader(testKey+"\n"), &out, srv.URL); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), "Logged in as Anna") {
		t.Errorf("output = %q", out.String())
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != testKey || cfg.ServerURL != srv.URL {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoginRejectsUnknownKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := meServer(t, testKey)

	other := "cb_" + strings.Repeat("cd", 32)
	var out bytes.Buffer
	if err := runLogin(context.Background(), strings.NewReader(other), &out, srv.URL); err == nil {
		t.Fatal("expected error for a key the server rejects")
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "" {
		t.Error("rejected key should not be saved")
	}
}

func TestLoginRejectsMalformedKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	if err := runLogin(context.Background(), strings.NewReader("nope\n"), &out, "http://127.0.0.1:1"); err == nil {
		t.Fatal("expected format error")
	}
}
