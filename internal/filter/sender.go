// Package filter classifies event senders and decides which events
// reach the webhook. Every filterable event is mapped to exactly one
// sender kind, then checked against the allow-set configured for its
// event kind and context.
package filter

import (
	"github.com/bwmarrin/discordgo"
)

// SenderKind partitions message authors into disjoint categories.
type SenderKind string

const (
	// SenderSelf is the bridge's own bot account.
	SenderSelf SenderKind = "self"

	// SenderWebhook is a platform webhook integration.
	SenderWebhook SenderKind = "webhook"

	// SenderSystem is a platform-generated system message.
	SenderSystem SenderKind = "system"

	// SenderBot is any other bot account.
	SenderBot SenderKind = "bot"

	// SenderUser is an ordinary human account.
	SenderUser SenderKind = "user"
)

// ClassifyMessage maps a message to its sender kind. Checks run in
// precedence order so every message lands in exactly one category:
// self, then webhook, then system, then bot, then user. Messages with
// no author object fall through the author checks.
func ClassifyMessage(m *discordgo.Message, botID string) SenderKind {
	if botID != "" && m.Author != nil && m.Author.ID == botID {
		return SenderSelf
	}
	if m.WebhookID != "" {
		return SenderWebhook
	}
	if m.Author != nil && m.Author.System {
		return SenderSystem
	}
	if m.Author != nil && m.Author.Bot {
		return SenderBot
	}
	return SenderUser
}

// ClassifyReaction maps a reaction to self, bot, or user. Reaction
// events carry only a user id; the bot flag comes from the member
// object guild adds include. Without one the reactor is assumed to be
// a user, since webhook and system senders cannot react.
func ClassifyReaction(r *discordgo.MessageReaction, member *discordgo.Member, botID string) SenderKind {
	if botID != "" && r.UserID == botID {
		return SenderSelf
	}
	if member != nil && member.User != nil && member.User.Bot {
		return SenderBot
	}
	return SenderUser
}
