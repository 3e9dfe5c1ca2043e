// Package config loads and validates the gatehook configuration from
// an optional JSON5 file and the process environment. The environment
// always wins, so a bare env-var deployment needs no file at all.
package config

import (
	"fmt"
	"net/url"

	"github.com/nextlevelbuilder/gatehook/internal/filter"
)

// ConfigError reports an invalid or missing configuration value.
// Configuration errors are fatal at startup; nothing revalidates after
// the process is up.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EventPolicies carries the raw policy string per event kind and
// context. Pointer fields distinguish unset (kind disabled, handler
// not registered) from set-to-empty (default allow-set).
type EventPolicies struct {
	Ready   *string `json:"ready,omitempty"`
	Resumed *string `json:"resumed,omitempty"`

	MessageDirect *string `json:"message_direct,omitempty"`
	MessageGuild  *string `json:"message_guild,omitempty"`

	MessageUpdateDirect *string `json:"message_update_direct,omitempty"`
	MessageUpdateGuild  *string `json:"message_update_guild,omitempty"`

	MessageDeleteDirect *string `json:"message_delete_direct,omitempty"`
	MessageDeleteGuild  *string `json:"message_delete_guild,omitempty"`

	MessageDeleteBulkGuild *string `json:"message_delete_bulk_guild,omitempty"`

	ReactionAddDirect *string `json:"reaction_add_direct,omitempty"`
	ReactionAddGuild  *string `json:"reaction_add_guild,omitempty"`

	ReactionRemoveDirect *string `json:"reaction_remove_direct,omitempty"`
	ReactionRemoveGuild  *string `json:"reaction_remove_guild,omitempty"`
}

// TraceConfig configures the optional OTLP trace exporter.
type TraceConfig struct {
	Endpoint string `json:"endpoint,omitempty"` // collector host:port; empty disables tracing
	Protocol string `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure bool   `json:"insecure,omitempty"`
}

// Config is the root configuration for the gatehook bridge.
type Config struct {
	// Token authenticates the gateway session.
	// From env DISCORD_TOKEN only (secret, never persisted).
	Token string `json:"-"`

	// Endpoint is the webhook base URL every event is POSTed to.
	Endpoint string `json:"endpoint"`

	// Insecure disables TLS certificate verification on the webhook
	// client. Local development only.
	Insecure bool `json:"insecure,omitempty"`

	RequestTimeout  int `json:"http_timeout,omitempty"`           // whole-request timeout, seconds
	ConnectTimeout  int `json:"http_connect_timeout,omitempty"`   // dial timeout, seconds
	MaxResponseBody int `json:"max_response_body_size,omitempty"` // response read cap, bytes
	MaxActions      int `json:"max_actions,omitempty"`            // executed actions per event

	// RestLookupRPS caps REST channel lookups on cache misses.
	RestLookupRPS int `json:"rest_lookup_rps,omitempty"`

	// MetricsAddr enables the diagnostics listener when set,
	// e.g. "127.0.0.1:9190".
	MetricsAddr string `json:"metrics_addr,omitempty"`

	Trace TraceConfig `json:"trace,omitempty"`

	Events EventPolicies `json:"events,omitempty"`

	policies filter.Policies
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		RequestTimeout:  300,
		ConnectTimeout:  10,
		MaxResponseBody: 131072,
		MaxActions:      5,
		RestLookupRPS:   5,
		Trace: TraceConfig{
			Protocol: "grpc",
		},
	}
}

// FilterPolicies returns the parsed policy table. Only meaningful
// after a successful Load.
func (c *Config) FilterPolicies() filter.Policies {
	return c.policies
}

// Validate checks every setting and builds the policy table,
// returning a *ConfigError for the first violation.
func (c *Config) Validate() error {
	if c.Token == "" {
		return &ConfigError{Field: "DISCORD_TOKEN", Reason: "required"}
	}
	if c.Endpoint == "" {
		return &ConfigError{Field: "HTTP_ENDPOINT", Reason: "required"}
	}
	parsed, err := url.Parse(c.Endpoint)
	if err != nil {
		return &ConfigError{Field: "HTTP_ENDPOINT", Reason: "not a valid URL", Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ConfigError{Field: "HTTP_ENDPOINT", Reason: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return &ConfigError{Field: "HTTP_ENDPOINT", Reason: "missing host"}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "HTTP_TIMEOUT", Reason: "must be a positive number of seconds"}
	}
	if c.ConnectTimeout <= 0 {
		return &ConfigError{Field: "HTTP_CONNECT_TIMEOUT", Reason: "must be a positive number of seconds"}
	}
	if c.MaxResponseBody <= 0 {
		return &ConfigError{Field: "MAX_RESPONSE_BODY_SIZE", Reason: "must be a positive number of bytes"}
	}
	if c.MaxActions < 0 {
		return &ConfigError{Field: "MAX_ACTIONS", Reason: "must not be negative"}
	}
	if c.RestLookupRPS <= 0 {
		return &ConfigError{Field: "GATEHOOK_REST_LOOKUP_RPS", Reason: "must be positive"}
	}
	switch c.Trace.Protocol {
	case "grpc", "http":
	default:
		return &ConfigError{Field: "GATEHOOK_TRACE_PROTOCOL", Reason: fmt.Sprintf("unknown protocol %q, use grpc or http", c.Trace.Protocol)}
	}

	policies, err := buildPolicies(c.Events)
	if err != nil {
		return err
	}
	if !policies.Any() {
		return &ConfigError{Field: "policies", Reason: "no event policy configured, nothing to bridge"}
	}
	c.policies = policies
	return nil
}

func buildPolicies(e EventPolicies) (filter.Policies, error) {
	var p filter.Policies

	// Ready and resumed carry no sender to filter; their value is
	// still parsed so typos fail at startup like everywhere else.
	enable := func(field string, raw *string, dst *bool) error {
		if raw == nil {
			return nil
		}
		if _, err := filter.ParsePolicy(*raw); err != nil {
			return &ConfigError{Field: field, Reason: err.Error()}
		}
		*dst = true
		return nil
	}
	parse := func(field string, raw *string, dst **filter.Policy) error {
		if raw == nil {
			return nil
		}
		policy, err := filter.ParsePolicy(*raw)
		if err != nil {
			return &ConfigError{Field: field, Reason: err.Error()}
		}
		*dst = &policy
		return nil
	}

	if err := enable("READY", e.Ready, &p.Ready); err != nil {
		return p, err
	}
	if err := enable("RESUMED", e.Resumed, &p.Resumed); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_DIRECT", e.MessageDirect, &p.MessageDirect); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_GUILD", e.MessageGuild, &p.MessageGuild); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_UPDATE_DIRECT", e.MessageUpdateDirect, &p.MessageUpdateDirect); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_UPDATE_GUILD", e.MessageUpdateGuild, &p.MessageUpdateGuild); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_DELETE_DIRECT", e.MessageDeleteDirect, &p.MessageDeleteDirect); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_DELETE_GUILD", e.MessageDeleteGuild, &p.MessageDeleteGuild); err != nil {
		return p, err
	}
	if err := parse("MESSAGE_DELETE_BULK_GUILD", e.MessageDeleteBulkGuild, &p.MessageDeleteBulkGuild); err != nil {
		return p, err
	}
	if err := parse("REACTION_ADD_DIRECT", e.ReactionAddDirect, &p.ReactionAddDirect); err != nil {
		return p, err
	}
	if err := parse("REACTION_ADD_GUILD", e.ReactionAddGuild, &p.ReactionAddGuild); err != nil {
		return p, err
	}
	if err := parse("REACTION_REMOVE_DIRECT", e.ReactionRemoveDirect, &p.ReactionRemoveDirect); err != nil {
		return p, err
	}
	if err := parse("REACTION_REMOVE_GUILD", e.ReactionRemoveGuild, &p.ReactionRemoveGuild); err != nil {
		return p, err
	}
	return p, nil
}
