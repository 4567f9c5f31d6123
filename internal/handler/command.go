package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var minVolume = 0.0

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Play a track, or queue it if something is already playing",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A URL or search terms",
				Required:    true,
			},
		},
	},
	{
		Name:        "skip",
		Description: "Skip to the next track in the queue",
	},
	{
		Name:        "pause",
		Description: "Pause playback",
	},
	{
		Name:        "resume",
		Description: "Resume paused playback",
	},
	{
		Name:        "stop",
		Description: "Stop playback and clear the queue",
	},
	{
		Name:        "seek",
		Description: "Seek within the current track",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "position",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A position like 90, 1:30, or 1:02:03",
				Required:    true,
			},
		},
	},
	{
		Name:        "volume",
		Description: "Set the playback volume and save it as this server's default",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "level",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "0 to 1000, where 100 is normal",
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    1000,
			},
		},
	},
	{
		Name:        "queue",
		Description: "Show the upcoming tracks",
	},
	{
		Name:        "shuffle",
		Description: "Shuffle the queue",
	},
	{
		Name:        "remove",
		Description: "Remove a track from the queue",
	},
	{
		Name:        "nowplaying",
		Description: "Show the current track and position",
	},
	{
		Name:        "leave",
		Description: "Stop playing and leave the voice channel",
	},
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
