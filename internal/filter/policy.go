package filter

import (
	"fmt"
	"strings"
)

// Policy is an allow-set over sender kinds for one event kind and
// context. The zero value allows nothing.
type Policy struct {
	Self    bool
	Webhook bool
	System  bool
	Bot     bool
	User    bool
}

// ParsePolicy interprets a policy variable value:
//
//	"all"        every sender kind, own messages included
//	""           every sender kind except self
//	"user,bot"   exactly the named kinds
//
// Unknown kind names are an error so misspellings fail at startup
// instead of silently dropping traffic.
func ParsePolicy(s string) (Policy, error) {
	switch strings.TrimSpace(s) {
	case "all":
		return Policy{Self: true, Webhook: true, System: true, Bot: true, User: true}, nil
	case "":
		return Policy{Webhook: true, System: true, Bot: true, User: true}, nil
	}

	var p Policy
	for _, part := range strings.Split(s, ",") {
		switch SenderKind(strings.TrimSpace(part)) {
		case SenderSelf:
			p.Self = true
		case SenderWebhook:
			p.Webhook = true
		case SenderSystem:
			p.System = true
		case SenderBot:
			p.Bot = true
		case SenderUser:
			p.User = true
		default:
			return Policy{}, fmt.Errorf("unknown sender kind %q", strings.TrimSpace(part))
		}
	}
	return p, nil
}

// Allows reports whether the policy admits the given sender kind.
func (p Policy) Allows(k SenderKind) bool {
	switch k {
	case SenderSelf:
		return p.Self
	case SenderWebhook:
		return p.Webhook
	case SenderSystem:
		return p.System
	case SenderBot:
		return p.Bot
	case SenderUser:
		return p.User
	}
	return false
}

// String renders the allow-set for logs.
func (p Policy) String() string {
	if p.Self && p.Webhook && p.System && p.Bot && p.User {
		return "all"
	}
	var kinds []string
	if p.Self {
		kinds = append(kinds, string(SenderSelf))
	}
	if p.Webhook {
		kinds = append(kinds, string(SenderWebhook))
	}
	if p.System {
		kinds = append(kinds, string(SenderSystem))
	}
	if p.Bot {
		kinds = append(kinds, string(SenderBot))
	}
	if p.User {
		kinds = append(kinds, string(SenderUser))
	}
	if len(kinds) == 0 {
		return "none"
	}
	return strings.Join(kinds, ",")
}

// Policies holds the configured policy per event kind and context. A
// nil entry means the kind/context pair is disabled and its handler is
// never registered. Ready and Resumed carry no sender identity, so
// presence alone enables them.
type Policies struct {
	Ready   bool
	Resumed bool

	MessageDirect *Policy
	MessageGuild  *Policy

	MessageUpdateDirect *Policy
	MessageUpdateGuild  *Policy

	MessageDeleteDirect *Policy
	MessageDeleteGuild  *Policy

	MessageDeleteBulkGuild *Policy

	ReactionAddDirect *Policy
	ReactionAddGuild  *Policy

	ReactionRemoveDirect *Policy
	ReactionRemoveGuild  *Policy
}

// MessageEnabled reports whether any message-create context is on.
func (p Policies) MessageEnabled() bool {
	return p.MessageDirect != nil || p.MessageGuild != nil
}

// MessageUpdateEnabled reports whether any message-update context is on.
func (p Policies) MessageUpdateEnabled() bool {
	return p.MessageUpdateDirect != nil || p.MessageUpdateGuild != nil
}

// MessageDeleteEnabled reports whether any message-delete context is on.
func (p Policies) MessageDeleteEnabled() bool {
	return p.MessageDeleteDirect != nil || p.MessageDeleteGuild != nil
}

// ReactionAddEnabled reports whether any reaction-add context is on.
func (p Policies) ReactionAddEnabled() bool {
	return p.ReactionAddDirect != nil || p.ReactionAddGuild != nil
}

// ReactionRemoveEnabled reports whether any reaction-remove context is on.
func (p Policies) ReactionRemoveEnabled() bool {
	return p.ReactionRemoveDirect != nil || p.ReactionRemoveGuild != nil
}

// Any reports whether at least one event kind is enabled.
func (p Policies) Any() bool {
	return p.Ready || p.Resumed ||
		p.MessageEnabled() || p.MessageUpdateEnabled() ||
		p.MessageDeleteEnabled() || p.MessageDeleteBulkGuild != nil ||
		p.ReactionAddEnabled() || p.ReactionRemoveEnabled()
}

// EnabledKinds lists the enabled event kinds for startup logging.
func (p Policies) EnabledKinds() []string {
	var kinds []string
	if p.Ready {
		kinds = append(kinds, "ready")
	}
	if p.Resumed {
		kinds = append(kinds, "resumed")
	}
	if p.MessageEnabled() {
		kinds = append(kinds, "message")
	}
	if p.MessageUpdateEnabled() {
		kinds = append(kinds, "message_update")
	}
	if p.MessageDeleteEnabled() {
		kinds = append(kinds, "message_delete")
	}
	if p.MessageDeleteBulkGuild != nil {
		kinds = append(kinds, "message_delete_bulk")
	}
	if p.ReactionAddEnabled() {
		kinds = append(kinds, "reaction_add")
	}
	if p.ReactionRemoveEnabled() {
		kinds = append(kinds, "reaction_remove")
	}
	return kinds
}
