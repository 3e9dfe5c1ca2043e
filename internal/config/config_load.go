package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Load reads the optional JSON5 config file, applies environment
// overrides, and validates the result. A missing file is not an
// error; the environment alone can carry a complete configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps the environment onto the config. Plain
// variables override when non-empty; policy variables go through
// LookupEnv because a set-but-empty value is meaningful.
func (c *Config) applyEnvOverrides() error {
	var firstErr error

	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}
	envInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = &ConfigError{Field: key, Reason: "must be an integer", Err: err}
			}
			return
		}
		*dst = n
	}
	envPolicy := func(key string, dst **string) {
		if v, ok := os.LookupEnv(key); ok {
			value := v
			*dst = &value
		}
	}

	envStr("DISCORD_TOKEN", &c.Token)
	envStr("HTTP_ENDPOINT", &c.Endpoint)
	envBool("INSECURE_MODE", &c.Insecure)
	envInt("HTTP_TIMEOUT", &c.RequestTimeout)
	envInt("HTTP_CONNECT_TIMEOUT", &c.ConnectTimeout)
	envInt("MAX_RESPONSE_BODY_SIZE", &c.MaxResponseBody)
	envInt("MAX_ACTIONS", &c.MaxActions)
	envInt("GATEHOOK_REST_LOOKUP_RPS", &c.RestLookupRPS)
	envStr("GATEHOOK_METRICS_ADDR", &c.MetricsAddr)
	envStr("GATEHOOK_TRACE_ENDPOINT", &c.Trace.Endpoint)
	envStr("GATEHOOK_TRACE_PROTOCOL", &c.Trace.Protocol)
	envBool("GATEHOOK_TRACE_INSECURE", &c.Trace.Insecure)

	envPolicy("READY", &c.Events.Ready)
	envPolicy("RESUMED", &c.Events.Resumed)
	envPolicy("MESSAGE_DIRECT", &c.Events.MessageDirect)
	envPolicy("MESSAGE_GUILD", &c.Events.MessageGuild)
	envPolicy("MESSAGE_UPDATE_DIRECT", &c.Events.MessageUpdateDirect)
	envPolicy("MESSAGE_UPDATE_GUILD", &c.Events.MessageUpdateGuild)
	envPolicy("MESSAGE_DELETE_DIRECT", &c.Events.MessageDeleteDirect)
	envPolicy("MESSAGE_DELETE_GUILD", &c.Events.MessageDeleteGuild)
	envPolicy("MESSAGE_DELETE_BULK_GUILD", &c.Events.MessageDeleteBulkGuild)
	envPolicy("REACTION_ADD_DIRECT", &c.Events.ReactionAddDirect)
	envPolicy("REACTION_ADD_GUILD", &c.Events.ReactionAddGuild)
	envPolicy("REACTION_REMOVE_DIRECT", &c.Events.ReactionRemoveDirect)
	envPolicy("REACTION_REMOVE_GUILD", &c.Events.ReactionRemoveGuild)

	return firstErr
}
