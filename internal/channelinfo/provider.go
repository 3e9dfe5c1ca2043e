// Package channelinfo resolves channel metadata for payload
// enrichment: gateway state cache first, rate-limited REST fallback on
// a miss.
package channelinfo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/gatehook/internal/diag"
)

// Provider looks up channel metadata.
type Provider interface {
	// Channel returns a snapshot of the channel, or an error when
	// neither the cache nor REST produced one.
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)

	// IsThread reports whether the channel is a thread. Lookup
	// failures read as false.
	IsThread(ctx context.Context, channelID string) bool
}

// restClient is the slice of the session the fallback path needs.
type restClient interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// LookupError wraps a failed fallback lookup. Callers proceed without
// channel metadata; missing enrichment never blocks delivery.
type LookupError struct {
	ChannelID string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("channel lookup %s: %v", e.ChannelID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// StateProvider reads the gateway state cache and falls back to REST
// on misses. Fallback lookups are rate limited, and results are never
// written back; the gateway library owns its cache.
type StateProvider struct {
	state   *discordgo.State
	rest    restClient
	limiter *rate.Limiter
	metrics *diag.Metrics
}

// NewStateProvider builds a provider over the session's cache with
// the REST fallback capped at rps lookups per second.
func NewStateProvider(session *discordgo.Session, rps int, metrics *diag.Metrics) *StateProvider {
	return &StateProvider{
		state:   session.State,
		rest:    session,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		metrics: metrics,
	}
}

// Channel resolves channel metadata, cache first.
func (p *StateProvider) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch := p.fromState(channelID); ch != nil {
		p.metrics.RecordChannelLookup("cache")
		return ch, nil
	}

	slog.Debug("channel cache miss, falling back to rest", "channel_id", channelID)
	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.RecordChannelLookup("miss")
		return nil, &LookupError{ChannelID: channelID, Err: err}
	}
	ch, err := p.rest.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		p.metrics.RecordChannelLookup("miss")
		return nil, &LookupError{ChannelID: channelID, Err: err}
	}
	p.metrics.RecordChannelLookup("rest")
	return ch, nil
}

// fromState walks the cached guilds, checking channel and thread
// lists. The matching entry is copied while the read lock is held so
// the returned snapshot is detached from concurrent gateway updates.
func (p *StateProvider) fromState(channelID string) *discordgo.Channel {
	p.state.RLock()
	defer p.state.RUnlock()
	for _, guild := range p.state.Guilds {
		for _, ch := range guild.Channels {
			if ch.ID == channelID {
				snapshot := *ch
				return &snapshot
			}
		}
		for _, th := range guild.Threads {
			if th.ID == channelID {
				snapshot := *th
				return &snapshot
			}
		}
	}
	return nil
}

// IsThread reports whether the channel is an announcement, public, or
// private thread.
func (p *StateProvider) IsThread(ctx context.Context, channelID string) bool {
	ch, err := p.Channel(ctx, channelID)
	if err != nil {
		return false
	}
	return ch.IsThread()
}
