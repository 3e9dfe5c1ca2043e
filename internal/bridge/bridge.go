// Package bridge ties the gateway session to the webhook endpoint. For
// each inbound event it classifies the sender, tests the configured
// policy, enriches guild events with channel info, delivers the payload
// and hands any returned actions to the executor. The bridge owns no
// mutable state beyond the filter cell latched on the first ready.
package bridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/gatehook/internal/channelinfo"
	"github.com/nextlevelbuilder/gatehook/internal/diag"
	"github.com/nextlevelbuilder/gatehook/internal/executor"
	"github.com/nextlevelbuilder/gatehook/internal/filter"
	"github.com/nextlevelbuilder/gatehook/internal/webhook"
	"github.com/nextlevelbuilder/gatehook/pkg/hookwire"
)

// Bridge routes gateway events to the webhook and webhook actions back
// to the platform.
type Bridge struct {
	ctx      context.Context
	session  *discordgo.Session
	policies filter.Policies
	sender   *webhook.Sender
	channels channelinfo.Provider
	exec     *executor.Executor
	metrics  *diag.Metrics
	tracer   trace.Tracer

	// filters is written exactly once, on the first ready. Handlers
	// drop events until then because the bot identifier is unknown.
	filters atomic.Pointer[filterSet]
}

// New assembles a bridge over an unopened session. ctx bounds every
// delivery and REST call the bridge makes; cancel it to stop in-flight
// work during shutdown.
func New(ctx context.Context, session *discordgo.Session, policies filter.Policies, sender *webhook.Sender, channels channelinfo.Provider, exec *executor.Executor, metrics *diag.Metrics) *Bridge {
	return &Bridge{
		ctx:      ctx,
		session:  session,
		policies: policies,
		sender:   sender,
		channels: channels,
		exec:     exec,
		metrics:  metrics,
		tracer:   otel.Tracer("gatehook/bridge"),
	}
}

// Register wires handlers onto the session for the enabled event
// kinds. The ready handler is always registered; every other handler
// only when some policy turns its kind on.
func (b *Bridge) Register() {
	b.session.AddHandler(b.handleReady)
	if b.policies.Resumed {
		b.session.AddHandler(b.handleResumed)
	}
	if b.policies.MessageEnabled() {
		b.session.AddHandler(b.handleMessageCreate)
	}
	if b.policies.MessageUpdateEnabled() {
		b.session.AddHandler(b.handleMessageUpdate)
	}
	if b.policies.MessageDeleteEnabled() {
		b.session.AddHandler(b.handleMessageDelete)
	}
	if b.policies.MessageDeleteBulkGuild != nil {
		b.session.AddHandler(b.handleMessageDeleteBulk)
	}
	if b.policies.ReactionAddEnabled() {
		b.session.AddHandler(b.handleReactionAdd)
	}
	if b.policies.ReactionRemoveEnabled() {
		b.session.AddHandler(b.handleReactionRemove)
	}
}

// filterSet is the configured policies bound to the bot identifier,
// built once per process on the first ready. A nil field means that
// kind and context pair is disabled.
type filterSet struct {
	botID string

	messageDirect *filter.Filter
	messageGuild  *filter.Filter

	reactionAddDirect *filter.Filter
	reactionAddGuild  *filter.Filter

	reactionRemoveDirect *filter.Filter
	reactionRemoveGuild  *filter.Filter
}

func newFilterSet(p filter.Policies, botID string) *filterSet {
	bind := func(pol *filter.Policy) *filter.Filter {
		if pol == nil {
			return nil
		}
		f := pol.Bind(botID)
		return &f
	}
	return &filterSet{
		botID:                botID,
		messageDirect:        bind(p.MessageDirect),
		messageGuild:         bind(p.MessageGuild),
		reactionAddDirect:    bind(p.ReactionAddDirect),
		reactionAddGuild:     bind(p.ReactionAddGuild),
		reactionRemoveDirect: bind(p.ReactionRemoveDirect),
		reactionRemoveGuild:  bind(p.ReactionRemoveGuild),
	}
}

func (fs *filterSet) messageFilter(direct bool) *filter.Filter {
	if direct {
		return fs.messageDirect
	}
	return fs.messageGuild
}

func (fs *filterSet) reactionFilter(kind hookwire.Kind, direct bool) *filter.Filter {
	if kind == hookwire.KindReactionAdd {
		if direct {
			return fs.reactionAddDirect
		}
		return fs.reactionAddGuild
	}
	if direct {
		return fs.reactionRemoveDirect
	}
	return fs.reactionRemoveGuild
}

func (b *Bridge) startSpan(kind hookwire.Kind, deliveryID string) (context.Context, trace.Span) {
	return b.tracer.Start(b.ctx, "bridge.handle "+string(kind),
		trace.WithAttributes(
			attribute.String("gatehook.event_kind", string(kind)),
			attribute.String("gatehook.delivery_id", deliveryID),
		))
}

// lookupChannel resolves channel info for guild events. A failed
// lookup degrades the payload instead of dropping the event.
func (b *Bridge) lookupChannel(ctx context.Context, guildID, channelID, deliveryID string) *discordgo.Channel {
	if guildID == "" {
		return nil
	}
	ch, err := b.channels.Channel(ctx, channelID)
	if err != nil {
		slog.Info("channel lookup failed, sending without channel info",
			"channel_id", channelID,
			"delivery_id", deliveryID,
			"error", err)
		return nil
	}
	return ch
}

// deliverOnly sends a payload and discards any returned actions.
// Events without a target message cannot carry actions out.
func (b *Bridge) deliverOnly(ctx context.Context, payload *hookwire.Payload, deliveryID string) {
	b.sender.Deliver(ctx, payload, deliveryID)
}

// deliverAndExecute sends a payload and runs the actions that come
// back against the originating message.
func (b *Bridge) deliverAndExecute(ctx context.Context, payload *hookwire.Payload, deliveryID string, target executor.Target) {
	resp, err := b.sender.Deliver(ctx, payload, deliveryID)
	if err != nil || resp == nil || len(resp.Actions) == 0 {
		return
	}
	b.exec.Execute(ctx, target, resp.Actions)
}
