package filter

import (
	"github.com/bwmarrin/discordgo"
)

// Filter is a policy bound to the bot's own identifier. The identifier
// only becomes known at the first ready event, so filters are built
// then, not at configuration time.
type Filter struct {
	policy Policy
	botID  string
}

// Bind attaches the bot identifier to the policy.
func (p Policy) Bind(botID string) Filter {
	return Filter{policy: p, botID: botID}
}

// ShouldProcessMessage reports whether the message passes the policy.
func (f Filter) ShouldProcessMessage(m *discordgo.Message) bool {
	return f.policy.Allows(ClassifyMessage(m, f.botID))
}

// ShouldProcessReaction reports whether the reaction passes the
// policy. member is the reactor's member object when the event carried
// one, nil otherwise.
func (f Filter) ShouldProcessReaction(r *discordgo.MessageReaction, member *discordgo.Member) bool {
	return f.policy.Allows(ClassifyReaction(r, member, f.botID))
}
