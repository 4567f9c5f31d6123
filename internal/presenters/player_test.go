package presenters_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/tempo/internal/presenters"
	"github.com/glizzus/tempo/internal/track"
	"github.com/google/go-cmp/cmp"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		ms       int64
		isStream bool
		want     string
	}{
		{name: "zero", ms: 0, want: "0:00"},
		{name: "under a minute", ms: 42000, want: "0:42"},
		{name: "minutes", ms: 212000, want: "3:32"},
		{name: "over an hour", ms: 3723000, want: "1:02:03"},
		{name: "stream", ms: 0, isStream: true, want: "LIVE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.FormatDuration(tt.ms, tt.isStream)
			if got != tt.want {
				t.Errorf("FormatDuration(%d, %v) = %q, want %q", tt.ms, tt.isStream, got, tt.want)
			}
		})
	}
}

func TestBuildNowPlayingResponse(t *testing.T) {
	tests := []struct {
		name  string
		input *track.Track
		want  *discordgo.InteractionResponse
	}{
		{
			name:  "nothing playing",
			input: nil,
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "Nothing is playing",
				},
			},
		},
		{
			name: "playing a track",
			input: &track.Track{
				Title:      "Never Gonna Give You Up",
				Author:     "Rick Astley",
				DurationMs: 212000,
				PositionMs: 42000,
			},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "Now playing **Never Gonna Give You Up** by Rick Astley `[3:32]` at `0:42`",
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.BuildNowPlayingResponse(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildNowPlayingResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildQueueRemoveMenu(t *testing.T) {
	tests := []struct {
		name  string
		input []*track.Track
		want  *discordgo.InteractionResponse
	}{
		{
			name:  "empty queue",
			input: nil,
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "The queue is empty",
				},
			},
		},
		{
			name: "queued tracks",
			input: []*track.Track{
				{Hash: "hash-1", Title: "Track One"},
				{Hash: "hash-2", Title: "Track Two"},
			},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "Choose a track to remove:",
					Components: []discordgo.MessageComponent{
						discordgo.ActionsRow{
							Components: []discordgo.MessageComponent{
								discordgo.SelectMenu{
									CustomID:    "queue_remove_select:flow-1",
									Placeholder: "Select a track to remove",
									MinValues:   &[]int{1}[0],
									MaxValues:   1,
									Options: []discordgo.SelectMenuOption{
										{Label: "Track One", Value: "hash-1"},
										{Label: "Track Two", Value: "hash-2"},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.BuildQueueRemoveMenu(tt.input, "flow-1")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildQueueRemoveMenu() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
