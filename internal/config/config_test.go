package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TOONSHARE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://toon.example.com/auth/google/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.BaseURL != "https://toon.example.com/" {
		t.Errorf("BaseURL = %q, want redirect origin", cfg.BaseURL)
	}
	if cfg.EngagementBackend != BackendMemory || cfg.SessionBackend != BackendMemory {
		t.Errorf("backends = %q/%q, want memory/memory", cfg.EngagementBackend, cfg.SessionBackend)
	}
	if cfg.SQLitePath != "shares.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.ThumbTTL != time.Hour || cfg.ThumbTimeout != 4*time.Second {
		t.Errorf("thumbnail defaults = %v/%v", cfg.ThumbTTL, cfg.ThumbTimeout)
	}
	if cfg.DefaultLang != "ko" {
		t.Errorf("DefaultLang = %q", cfg.DefaultLang)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TOONSHARE_BASE_URL", "https://share.example.org/app")
	t.Setenv("TOONSHARE_ENGAGEMENT_BACKEND", "Postgres")
	t.Setenv("TOONSHARE_ENGAGEMENT_DSN", "postgres://u:p@db/toon")
	t.Setenv("TOONSHARE_SESSION_BACKEND", "redis")
	t.Setenv("TOONSHARE_REDIS_ADDR", "localhost:6379")
	t.Setenv("TOONSHARE_SESSION_KEYS", "k1, 'k2'")
	t.Setenv("TOONSHARE_ALLOWED_CIDRS", "10.0.0.0/8, 127.0.0.1")

	cfg := Load()

	if cfg.BaseURL != "https://share.example.org/app" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.EngagementBackend != BackendPostgres || cfg.EngagementDSN == "" {
		t.Errorf("engagement = %q %q", cfg.EngagementBackend, cfg.EngagementDSN)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if len(cfg.SessionKeys) != 2 || cfg.SessionKeys[1] != "k2" {
		t.Errorf("SessionKeys = %v", cfg.SessionKeys)
	}
	if len(cfg.AllowedCIDRS) != 2 {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without dsn", env: map[string]string{"TOONSHARE_ENGAGEMENT_BACKEND": "postgres"}},
		{name: "redis without addr", env: map[string]string{"TOONSHARE_SESSION_BACKEND": "redis"}},
		{name: "unknown engagement backend", env: map[string]string{"TOONSHARE_ENGAGEMENT_BACKEND": "mysql"}},
		{name: "unknown session backend", env: map[string]string{"TOONSHARE_SESSION_BACKEND": "etcd"}},
		{name: "redis password required", env: map[string]string{
			"TOONSHARE_SESSION_BACKEND":         "redis",
			"TOONSHARE_REDIS_ADDR":              "localhost:6379",
			"TOONSHARE_REDIS_PASSWORD_REQUIRED": "true",
		}},
		{name: "missing client id", env: map[string]string{"GOOGLE_CLIENT_ID": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TOONSHARE_TEST_FROM_FILE=from-file\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("TOONSHARE_TEST_FROM_FILE") })

	loadEnvFile(path)
	if got := os.Getenv("TOONSHARE_TEST_FROM_FILE"); got != "from-file" {
		t.Errorf("env from file = %q", got)
	}

	// missing files are ignored
	loadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
}

func TestBaseFromRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://toon.example.com/auth/google/callback", want: "https://toon.example.com/"},
		{in: "http://localhost:8501/cb?x=1", want: "http://localhost:8501/"},
		{in: "not a url", want: "http://localhost:8080/"},
	}
	for _, tt := range tests {
		if got := baseFromRedirect(tt.in); got != tt.want {
			t.Errorf("baseFromRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		GoogleClientSecret: "secret",
		RedisPassword:      "pw",
		EngagementDSN:      "postgres://u:p@db",
		SessionKeys:        []string{"k1"},
	}
	r := cfg.Redacted()
	if r.GoogleClientSecret == "secret" || r.RedisPassword == "pw" || r.EngagementDSN == cfg.EngagementDSN || r.SessionKeys[0] == "k1" {
		t.Errorf("Redacted() leaked a secret: %+v", r)
	}
	if cfg.GoogleClientSecret != "secret" {
		t.Errorf("Redacted() modified the original")
	}
}
