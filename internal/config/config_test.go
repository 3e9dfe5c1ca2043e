package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setRequired puts the minimum viable configuration into the test
// environment.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("HTTP_ENDPOINT", "https://hooks.example.com/gatehook")
	t.Setenv("MESSAGE_GUILD", "user")
}

func TestLoadFromEnvOnly(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_TIMEOUT", "30")
	t.Setenv("MAX_ACTIONS", "2")
	t.Setenv("INSECURE_MODE", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "token-123" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.Endpoint != "https://hooks.example.com/gatehook" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.RequestTimeout != 30 {
		t.Errorf("RequestTimeout = %d, want 30", cfg.RequestTimeout)
	}
	if cfg.MaxActions != 2 {
		t.Errorf("MaxActions = %d, want 2", cfg.MaxActions)
	}
	if !cfg.Insecure {
		t.Error("Insecure = false, want true")
	}
	if cfg.ConnectTimeout != 10 {
		t.Errorf("ConnectTimeout = %d, want default 10", cfg.ConnectTimeout)
	}
	if cfg.MaxResponseBody != 131072 {
		t.Errorf("MaxResponseBody = %d, want default 131072", cfg.MaxResponseBody)
	}

	policies := cfg.FilterPolicies()
	if policies.MessageGuild == nil {
		t.Fatal("MessageGuild policy not built")
	}
	if !policies.MessageGuild.User || policies.MessageGuild.Bot {
		t.Errorf("MessageGuild = %+v, want user only", *policies.MessageGuild)
	}
	if policies.MessageDirect != nil {
		t.Error("MessageDirect built without its variable set")
	}
}

// TestPolicyUnsetVersusEmpty pins the distinction the policy table
// depends on: an unset variable disables the kind, a set-but-empty one
// enables it with the default allow-set.
func TestPolicyUnsetVersusEmpty(t *testing.T) {
	setRequired(t)
	t.Setenv("REACTION_ADD_GUILD", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	policies := cfg.FilterPolicies()

	if policies.ReactionAddGuild == nil {
		t.Fatal("set-but-empty REACTION_ADD_GUILD should enable the kind")
	}
	got := *policies.ReactionAddGuild
	if got.Self {
		t.Error("empty policy admits self")
	}
	if !got.User || !got.Bot || !got.Webhook || !got.System {
		t.Errorf("empty policy = %+v, want everyone but self", got)
	}

	if policies.ReactionAddDirect != nil {
		t.Error("unset REACTION_ADD_DIRECT should stay disabled")
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "gatehook.json")
	content := `{
	// endpoint for the local webhook worker
	endpoint: "http://127.0.0.1:8080/hook",
	max_actions: 3,
	events: {
		message_guild: "user,bot",
		ready: "",
	},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "http://127.0.0.1:8080/hook" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.MaxActions != 3 {
		t.Errorf("MaxActions = %d, want 3", cfg.MaxActions)
	}
	policies := cfg.FilterPolicies()
	if !policies.Ready {
		t.Error("ready not enabled from file")
	}
	if policies.MessageGuild == nil || !policies.MessageGuild.Bot {
		t.Errorf("MessageGuild = %v, want user,bot", policies.MessageGuild)
	}
}

// TestEnvOverridesFile verifies precedence: defaults, then file, then
// environment.
func TestEnvOverridesFile(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ENDPOINT", "https://env.example.com/hook")

	dir := t.TempDir()
	path := filepath.Join(dir, "gatehook.json")
	content := `{endpoint: "http://file.example.com/hook", http_timeout: 60}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "https://env.example.com/hook" {
		t.Errorf("Endpoint = %q, env should win over file", cfg.Endpoint)
	}
	if cfg.RequestTimeout != 60 {
		t.Errorf("RequestTimeout = %d, file should win over default", cfg.RequestTimeout)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantField string
	}{
		{
			name:      "missing token",
			env:       map[string]string{"HTTP_ENDPOINT": "https://x.example.com", "MESSAGE_GUILD": ""},
			wantField: "DISCORD_TOKEN",
		},
		{
			name:      "missing endpoint",
			env:       map[string]string{"DISCORD_TOKEN": "t", "MESSAGE_GUILD": ""},
			wantField: "HTTP_ENDPOINT",
		},
		{
			name: "bad endpoint scheme",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "ftp://x.example.com", "MESSAGE_GUILD": "",
			},
			wantField: "HTTP_ENDPOINT",
		},
		{
			name: "endpoint without host",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https:///hook", "MESSAGE_GUILD": "",
			},
			wantField: "HTTP_ENDPOINT",
		},
		{
			name: "unknown sender kind",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"MESSAGE_GUILD": "user,frog",
			},
			wantField: "MESSAGE_GUILD",
		},
		{
			name: "bad ready value",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"READY": "bogus",
			},
			wantField: "READY",
		},
		{
			name: "non-integer timeout",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"MESSAGE_GUILD": "", "HTTP_TIMEOUT": "soon",
			},
			wantField: "HTTP_TIMEOUT",
		},
		{
			name: "zero timeout",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"MESSAGE_GUILD": "", "HTTP_TIMEOUT": "0",
			},
			wantField: "HTTP_TIMEOUT",
		},
		{
			name: "negative action cap",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"MESSAGE_GUILD": "", "MAX_ACTIONS": "-1",
			},
			wantField: "MAX_ACTIONS",
		},
		{
			name: "bad trace protocol",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
				"MESSAGE_GUILD": "", "GATEHOOK_TRACE_PROTOCOL": "udp",
			},
			wantField: "GATEHOOK_TRACE_PROTOCOL",
		},
		{
			name: "no policies at all",
			env: map[string]string{
				"DISCORD_TOKEN": "t", "HTTP_ENDPOINT": "https://x.example.com",
			},
			wantField: "policies",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
			if err == nil {
				t.Fatal("Load succeeded, want ConfigError")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type %T, want *ConfigError: %v", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (error: %v)", cfgErr.Field, tt.wantField, err)
			}
		})
	}
}
