package bridge

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/gatehook/internal/executor"
	"github.com/nextlevelbuilder/gatehook/internal/filter"
	"github.com/nextlevelbuilder/gatehook/pkg/hookwire"
)

// handleReady latches the bot identifier into the filter cell. The
// cell is written once; later ready events from reconnects keep the
// original filters because the bot identity is stable for the session.
func (b *Bridge) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		slog.Error("ready event without a user, filters not initialized")
		return
	}
	fs := newFilterSet(b.policies, r.User.ID)
	if b.filters.CompareAndSwap(nil, fs) {
		slog.Info("discord session ready",
			"username", r.User.Username,
			"bot_id", r.User.ID,
			"guilds", len(r.Guilds),
			"session_id", r.SessionID)
	} else {
		slog.Debug("ready received again, keeping existing filters")
	}

	if !b.policies.Ready {
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindReady))
	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindReady, id)
	defer span.End()
	b.deliverOnly(ctx, hookwire.NewReadyPayload(r), id)
}

func (b *Bridge) handleResumed(s *discordgo.Session, r *discordgo.Resumed) {
	if b.filters.Load() == nil {
		slog.Debug("dropping event before ready", "kind", hookwire.KindResumed)
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindResumed))
	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindResumed, id)
	defer span.End()
	b.deliverOnly(ctx, hookwire.NewResumedPayload(r), id)
}

func (b *Bridge) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	fs := b.filters.Load()
	if fs == nil {
		slog.Debug("dropping event before ready", "kind", hookwire.KindMessage, "message_id", m.ID)
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindMessage))
	f := fs.messageFilter(m.GuildID == "")
	if f == nil {
		return
	}
	if !f.ShouldProcessMessage(m.Message) {
		sender := filter.ClassifyMessage(m.Message, fs.botID)
		b.metrics.RecordFiltered(string(hookwire.KindMessage), string(sender))
		slog.Debug("message filtered by sender policy",
			"sender", sender, "message_id", m.ID, "channel_id", m.ChannelID)
		return
	}

	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindMessage, id)
	defer span.End()
	payload := hookwire.NewMessagePayload(m.Message, b.lookupChannel(ctx, m.GuildID, m.ChannelID, id))
	b.deliverAndExecute(ctx, payload, id, executor.Target{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	})
}

// Update events are forwarded without sender filtering. The gateway
// only guarantees partial fields on edits, so there is often no author
// to classify.
func (b *Bridge) handleMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if b.filters.Load() == nil {
		slog.Debug("dropping event before ready", "kind", hookwire.KindMessageUpdate, "message_id", m.ID)
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindMessageUpdate))
	if !contextEnabled(m.GuildID == "", b.policies.MessageUpdateDirect, b.policies.MessageUpdateGuild) {
		return
	}
	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindMessageUpdate, id)
	defer span.End()
	b.deliverOnly(ctx, hookwire.NewMessageUpdatePayload(m.Message), id)
}

func (b *Bridge) handleMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if b.filters.Load() == nil {
		slog.Debug("dropping event before ready", "kind", hookwire.KindMessageDelete, "message_id", m.ID)
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindMessageDelete))
	if !contextEnabled(m.GuildID == "", b.policies.MessageDeleteDirect, b.policies.MessageDeleteGuild) {
		return
	}
	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindMessageDelete, id)
	defer span.End()
	b.deliverOnly(ctx, hookwire.NewMessageDeletePayload(m.ID, m.ChannelID, m.GuildID), id)
}

func (b *Bridge) handleMessageDeleteBulk(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	if b.filters.Load() == nil {
		slog.Debug("dropping event before ready", "kind", hookwire.KindMessageDeleteBulk, "channel_id", m.ChannelID)
		return
	}
	b.metrics.RecordEvent(string(hookwire.KindMessageDeleteBulk))
	id := uuid.NewString()
	ctx, span := b.startSpan(hookwire.KindMessageDeleteBulk, id)
	defer span.End()
	b.deliverOnly(ctx, hookwire.NewMessageDeleteBulkPayload(m.Messages, m.ChannelID, m.GuildID), id)
}

func (b *Bridge) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.handleReaction(hookwire.KindReactionAdd, r.MessageReaction, r.Member)
}

func (b *Bridge) handleReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.handleReaction(hookwire.KindReactionRemove, r.MessageReaction, nil)
}

func (b *Bridge) handleReaction(kind hookwire.Kind, r *discordgo.MessageReaction, member *discordgo.Member) {
	fs := b.filters.Load()
	if fs == nil {
		slog.Debug("dropping event before ready", "kind", kind, "message_id", r.MessageID)
		return
	}
	b.metrics.RecordEvent(string(kind))
	f := fs.reactionFilter(kind, r.GuildID == "")
	if f == nil {
		return
	}
	if !f.ShouldProcessReaction(r, member) {
		sender := filter.ClassifyReaction(r, member, fs.botID)
		b.metrics.RecordFiltered(string(kind), string(sender))
		slog.Debug("reaction filtered by sender policy",
			"kind", kind, "sender", sender, "message_id", r.MessageID)
		return
	}

	id := uuid.NewString()
	ctx, span := b.startSpan(kind, id)
	defer span.End()
	payload := hookwire.NewReactionPayload(kind, r, b.lookupChannel(ctx, r.GuildID, r.ChannelID, id))
	b.deliverAndExecute(ctx, payload, id, executor.Target{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
	})
}

// contextEnabled picks the direct or guild policy and reports whether
// that context is configured at all.
func contextEnabled(direct bool, directPolicy, guildPolicy *filter.Policy) bool {
	if direct {
		return directPolicy != nil
	}
	return guildPolicy != nil
}
