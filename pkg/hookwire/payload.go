// Package hookwire defines the JSON contract between gatehook and the
// operator's webhook endpoint: the event payloads POSTed out and the
// action response expected back. Webhook implementations should code
// against this package.
package hookwire

import (
	"github.com/bwmarrin/discordgo"
)

// Kind identifies an event kind on the wire. It is the value of the
// handler query parameter on every delivery.
type Kind string

const (
	KindReady             Kind = "ready"
	KindResumed           Kind = "resumed"
	KindMessage           Kind = "message"
	KindMessageUpdate     Kind = "message_update"
	KindMessageDelete     Kind = "message_delete"
	KindMessageDeleteBulk Kind = "message_delete_bulk"
	KindReactionAdd       Kind = "reaction_add"
	KindReactionRemove    Kind = "reaction_remove"
)

// MessageDeleteInfo is the body of a message_delete payload. Deleted
// messages only carry identifiers; the content is gone by the time the
// event arrives.
type MessageDeleteInfo struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
}

// MessageDeleteBulkInfo is the body of a message_delete_bulk payload.
type MessageDeleteBulkInfo struct {
	IDs       []string `json:"ids"`
	ChannelID string   `json:"channel_id"`
	GuildID   string   `json:"guild_id,omitempty"`
}

// Payload is the JSON object POSTed to the webhook for one event.
// Exactly one of the kind fields is set; both reaction kinds share the
// reaction field and are told apart by the handler query parameter.
// Channel holds the enriched channel snapshot for guild-context
// message and reaction events when the lookup succeeded; it is omitted
// entirely otherwise, never null.
type Payload struct {
	Message           *discordgo.Message         `json:"message,omitempty"`
	MessageUpdate     *discordgo.Message         `json:"message_update,omitempty"`
	MessageDelete     *MessageDeleteInfo         `json:"message_delete,omitempty"`
	MessageDeleteBulk *MessageDeleteBulkInfo     `json:"message_delete_bulk,omitempty"`
	Reaction          *discordgo.MessageReaction `json:"reaction,omitempty"`
	Ready             *discordgo.Ready           `json:"ready,omitempty"`
	Resumed           *discordgo.Resumed         `json:"resumed,omitempty"`

	Channel *discordgo.Channel `json:"channel,omitempty"`

	kind Kind
}

// Kind returns the event kind tag for this payload.
func (p *Payload) Kind() Kind {
	return p.kind
}

// NewMessagePayload wraps a created message. channel may be nil.
func NewMessagePayload(msg *discordgo.Message, channel *discordgo.Channel) *Payload {
	return &Payload{kind: KindMessage, Message: msg, Channel: channel}
}

// NewMessageUpdatePayload wraps an edited message. Update events are
// partial by platform definition and are forwarded as delivered.
func NewMessageUpdatePayload(msg *discordgo.Message) *Payload {
	return &Payload{kind: KindMessageUpdate, MessageUpdate: msg}
}

// NewMessageDeletePayload wraps a single deletion.
func NewMessageDeletePayload(id, channelID, guildID string) *Payload {
	return &Payload{kind: KindMessageDelete, MessageDelete: &MessageDeleteInfo{
		ID:        id,
		ChannelID: channelID,
		GuildID:   guildID,
	}}
}

// NewMessageDeleteBulkPayload wraps a bulk deletion.
func NewMessageDeleteBulkPayload(ids []string, channelID, guildID string) *Payload {
	return &Payload{kind: KindMessageDeleteBulk, MessageDeleteBulk: &MessageDeleteBulkInfo{
		IDs:       ids,
		ChannelID: channelID,
		GuildID:   guildID,
	}}
}

// NewReactionPayload wraps a reaction add or remove. kind must be
// KindReactionAdd or KindReactionRemove; channel may be nil.
func NewReactionPayload(kind Kind, reaction *discordgo.MessageReaction, channel *discordgo.Channel) *Payload {
	return &Payload{kind: kind, Reaction: reaction, Channel: channel}
}

// NewReadyPayload wraps the gateway ready event, forwarded whole.
func NewReadyPayload(ready *discordgo.Ready) *Payload {
	return &Payload{kind: KindReady, Ready: ready}
}

// NewResumedPayload wraps the gateway resumed event.
func NewResumedPayload(resumed *discordgo.Resumed) *Payload {
	return &Payload{kind: KindResumed, Resumed: resumed}
}
