package gateway

import (
	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/tempo/internal/node"
)

// Adapter bridges the Discord gateway and the audio node session.
// Outbound, it moves the bot between voice channels on the session's
// behalf; inbound, it forwards the voice credential events the node
// needs to take over a guild's audio.
type Adapter struct {
	discord *discordgo.Session
}

func NewAdapter(discord *discordgo.Session) *Adapter {
	return &Adapter{discord: discord}
}

var _ node.VoiceConnector = (*Adapter)(nil)

// JoinVoiceChannel asks Discord to move the bot into a voice channel.
// Mute and deaf are left off; the node does the talking, not us.
func (a *Adapter) JoinVoiceChannel(guildID, channelID string) error {
	return a.discord.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

// LeaveVoiceChannel disconnects the bot from voice in the guild.
func (a *Adapter) LeaveVoiceChannel(guildID string) error {
	return a.discord.ChannelVoiceJoinManual(guildID, "", false, true)
}

// BindNode registers gateway handlers that forward voice state and
// voice server updates to the session. Call once before opening the
// Discord connection.
func (a *Adapter) BindNode(session *node.Session) {
	a.discord.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		session.HandleVoiceState(e.GuildID, e.UserID, e.SessionID, e.ChannelID)
	})
	a.discord.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceServerUpdate) {
		session.HandleVoiceServer(e.GuildID, e.Token, e.Endpoint)
	})
}

// UserVoiceChannel returns the voice channel the user currently sits
// in, or empty if they are not in voice.
func (a *Adapter) UserVoiceChannel(guildID, userID string) string {
	state, err := a.discord.State.VoiceState(guildID, userID)
	if err != nil || state == nil {
		return ""
	}
	return state.ChannelID
}
