package bridge

import (
	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/gatehook/internal/filter"
)

// Intents derives the minimal gateway intent set for the configured
// event kinds. Message content is privileged and only requested when a
// message or message update policy needs it; the guilds intent rides
// along with guild messages so the channel cache gets populated.
func Intents(p filter.Policies) discordgo.Intent {
	var intents discordgo.Intent

	if p.MessageGuild != nil || p.MessageUpdateGuild != nil ||
		p.MessageDeleteGuild != nil || p.MessageDeleteBulkGuild != nil {
		intents |= discordgo.IntentGuildMessages
	}
	if p.MessageDirect != nil || p.MessageUpdateDirect != nil || p.MessageDeleteDirect != nil {
		intents |= discordgo.IntentDirectMessages
	}
	if p.ReactionAddGuild != nil || p.ReactionRemoveGuild != nil {
		intents |= discordgo.IntentGuildMessageReactions
	}
	if p.ReactionAddDirect != nil || p.ReactionRemoveDirect != nil {
		intents |= discordgo.IntentDirectMessageReactions
	}
	if p.MessageEnabled() || p.MessageUpdateEnabled() {
		intents |= discordgo.IntentMessageContent
	}
	if p.MessageGuild != nil {
		intents |= discordgo.IntentGuilds
	}
	return intents
}
