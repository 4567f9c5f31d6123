package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/tempo/internal/track"
)

var emptyQueueResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "The queue is empty",
	},
}

var nothingPlayingResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "Nothing is playing",
	},
}

// FormatDuration renders milliseconds as m:ss or h:mm:ss. Streams
// have no meaningful duration and render as LIVE.
func FormatDuration(ms int64, isStream bool) string {
	if isStream {
		return "LIVE"
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func trackLine(t *track.Track) string {
	return fmt.Sprintf("**%s** by %s `[%s]`", t.Title, t.Author, FormatDuration(t.DurationMs, t.IsStream))
}

// BuildNowPlayingResponse renders the current track with its live
// position, or a placeholder when nothing is playing.
func BuildNowPlayingResponse(t *track.Track) *discordgo.InteractionResponse {
	if t == nil {
		return nothingPlayingResponse
	}

	content := fmt.Sprintf(
		"Now playing %s at `%s`",
		trackLine(t),
		FormatDuration(t.PositionMs, t.IsStream),
	)
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

// maxQueueLines caps the queue listing; Discord rejects messages over
// 2000 characters.
const maxQueueLines = 15

// BuildQueueResponse renders the queued tracks as a numbered list.
func BuildQueueResponse(tracks []*track.Track) *discordgo.InteractionResponse {
	if len(tracks) == 0 {
		return emptyQueueResponse
	}

	var b strings.Builder
	b.WriteString("**Up next:**\n")
	for i, t := range tracks {
		if i == maxQueueLines {
			fmt.Fprintf(&b, "...and %d more\n", len(tracks)-maxQueueLines)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, trackLine(t))
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: b.String(),
		},
	}
}

var queueRemoveMinValues = 1

const ComponentIDQueueRemoveSelect = "queue_remove_select"

// BuildQueueRemoveMenu renders a select menu of queued tracks keyed by
// descriptor hash. The instance ID routes the follow-up interaction
// back to the flow that created the menu.
func BuildQueueRemoveMenu(tracks []*track.Track, instanceID string) *discordgo.InteractionResponse {
	if len(tracks) == 0 {
		return emptyQueueResponse
	}

	var options []discordgo.SelectMenuOption
	for _, t := range tracks {
		if len(options) == 25 {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label: t.Title,
			Value: t.Hash,
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    ComponentIDQueueRemoveSelect + ":" + instanceID,
		Placeholder: "Select a track to remove",
		MinValues:   &queueRemoveMinValues,
		MaxValues:   1,
		Options:     options,
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			menu,
		},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose a track to remove:",
			Components: []discordgo.MessageComponent{
				row,
			},
		},
	}
}

// BuildMessageResponse wraps plain text in an interaction response.
func BuildMessageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

// BuildErrorResponse renders a user-facing failure ephemerally so it
// does not clutter the channel.
func BuildErrorResponse(message string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
