// Package executor runs webhook actions against the REST API, in
// order, one failure never stopping the rest.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/gatehook/internal/channelinfo"
	"github.com/nextlevelbuilder/gatehook/internal/diag"
	"github.com/nextlevelbuilder/gatehook/internal/text"
	"github.com/nextlevelbuilder/gatehook/pkg/hookwire"
)

// ErrThreadNotSupported rejects thread actions on direct messages;
// the platform only threads guild channels.
var ErrThreadNotSupported = errors.New("thread actions are not supported in direct messages")

// Discord error code for "a thread has already been created for this
// message".
const errCodeThreadAlreadyCreated = 160004

// REST is the slice of the session the executor calls. It is satisfied
// by *discordgo.Session.
type REST interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Target identifies the message an action set operates on. Content is
// the triggering message's text when the caller has it; thread naming
// falls back to a REST fetch without it.
type Target struct {
	MessageID string
	ChannelID string
	GuildID   string
	Content   string
}

// Executor applies webhook actions to their target.
type Executor struct {
	rest     REST
	channels channelinfo.Provider
	metrics  *diag.Metrics
}

// New builds an executor over the given REST client.
func New(rest REST, channels channelinfo.Provider, metrics *diag.Metrics) *Executor {
	return &Executor{rest: rest, channels: channels, metrics: metrics}
}

// Execute runs the actions in source order. Failures are logged with
// their index and the loop continues; a bad action never blocks the
// ones after it.
func (x *Executor) Execute(ctx context.Context, target Target, actions []hookwire.Action) {
	for i, action := range actions {
		var err error
		switch action.Type {
		case hookwire.ActionReply:
			err = x.reply(ctx, target, action)
		case hookwire.ActionReact:
			err = x.react(ctx, target, action)
		case hookwire.ActionThread:
			err = x.thread(ctx, target, action)
		default:
			slog.Warn("skipping unknown action type", "index", i, "type", action.Type)
			x.metrics.RecordAction(string(action.Type), "skipped")
			continue
		}
		if err != nil {
			slog.Error("webhook action failed",
				"index", i,
				"type", action.Type,
				"channel_id", target.ChannelID,
				"message_id", target.MessageID,
				"error", err)
			x.metrics.RecordAction(string(action.Type), "error")
			continue
		}
		x.metrics.RecordAction(string(action.Type), "ok")
	}
}

func (x *Executor) reply(ctx context.Context, t Target, a hookwire.Action) error {
	send := &discordgo.MessageSend{
		Content: text.Truncate(a.Content, text.MaxContentLength),
		Reference: &discordgo.MessageReference{
			MessageID: t.MessageID,
			ChannelID: t.ChannelID,
			GuildID:   t.GuildID,
		},
		// The empty Parse list suppresses content mentions; Mention
		// only controls the reply notification.
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: a.Mention},
	}
	if _, err := x.rest.ChannelMessageSendComplex(t.ChannelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (x *Executor) react(ctx context.Context, t Target, a hookwire.Action) error {
	// The wire form is already what the endpoint takes: a unicode
	// emoji, or name:id for custom emoji.
	if err := x.rest.MessageReactionAdd(t.ChannelID, t.MessageID, a.Emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction %q: %w", a.Emoji, err)
	}
	return nil
}

func (x *Executor) thread(ctx context.Context, t Target, a hookwire.Action) error {
	if t.GuildID == "" {
		return ErrThreadNotSupported
	}
	content := text.Truncate(a.Content, text.MaxContentLength)

	// Posting from inside a thread just continues that thread.
	if x.channels.IsThread(ctx, t.ChannelID) {
		if _, err := x.rest.ChannelMessageSendComplex(t.ChannelID, &discordgo.MessageSend{Content: content}, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send in current thread: %w", err)
		}
		return nil
	}

	name := a.Name
	if name != "" {
		name = text.TruncateName(name, text.MaxNameLength)
	} else {
		source := t.Content
		if source == "" {
			if msg, err := x.rest.ChannelMessage(t.ChannelID, t.MessageID, discordgo.WithContext(ctx)); err == nil {
				source = msg.Content
			}
		}
		name = text.DeriveThreadName(source)
	}

	duration := a.AutoArchiveDuration
	switch duration {
	case 60, 1440, 4320, 10080:
	case 0:
		duration = 1440
	default:
		slog.Warn("invalid thread auto archive duration, using 1440", "duration", duration)
		duration = 1440
	}

	thread, err := x.rest.MessageThreadStartComplex(t.ChannelID, t.MessageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: duration,
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isThreadExists(err) {
			return x.postToExistingThread(ctx, t, content)
		}
		return fmt.Errorf("create thread: %w", err)
	}

	if _, err := x.rest.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{Content: content}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send in new thread: %w", err)
	}
	return nil
}

// postToExistingThread recovers from a thread-already-exists rejection
// by fetching the message and posting into its thread.
func (x *Executor) postToExistingThread(ctx context.Context, t Target, content string) error {
	msg, err := x.rest.ChannelMessage(t.ChannelID, t.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch message with existing thread: %w", err)
	}
	if msg.Thread == nil {
		return fmt.Errorf("message %s reports an existing thread but carries none", t.MessageID)
	}
	slog.Debug("thread already exists, posting into it", "thread_id", msg.Thread.ID, "message_id", t.MessageID)
	if _, err := x.rest.ChannelMessageSendComplex(msg.Thread.ID, &discordgo.MessageSend{Content: content}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send in existing thread: %w", err)
	}
	return nil
}

func isThreadExists(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == errCodeThreadAlreadyCreated
	}
	return false
}
