package handler

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/tempo/internal/node"
	"github.com/glizzus/tempo/internal/presenters"
	"github.com/glizzus/tempo/internal/track"
	"github.com/glizzus/tempo/internal/util"
)

// NewQueueRemoveFlow builds the two-step remove interaction: a select
// menu of queued tracks, then removal of whichever one was picked.
func NewQueueRemoveFlow(session *node.Session) *Flow {
	return &Flow{
		ID: "queue_remove",
		Root: &Node{
			ID: "queue_remove_menu",
			Matcher: func(i *discordgo.InteractionCreate) bool {
				if i.Type != discordgo.InteractionApplicationCommand {
					return false
				}
				return i.ApplicationCommandData().Name == "remove"
			},
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
				var tracks []*track.Track
				if p, ok := session.Player(i.GuildID); ok {
					tracks = p.Queue().Snapshot()
				}
				return s.InteractionRespond(i.Interaction, presenters.BuildQueueRemoveMenu(tracks, ctx.InstanceID))
			},
			Next: []*Node{
				{
					ID: "queue_remove_pick",
					Matcher: func(i *discordgo.InteractionCreate) bool {
						if i.Type != discordgo.InteractionMessageComponent {
							return false
						}
						return strings.HasPrefix(i.MessageComponentData().CustomID, presenters.ComponentIDQueueRemoveSelect)
					},
					Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
						values := i.MessageComponentData().Values
						if len(values) == 0 {
							return s.InteractionRespond(i.Interaction, presenters.BuildErrorResponse("Nothing was selected"))
						}
						hash := values[0]

						p, ok := session.Player(i.GuildID)
						if !ok {
							return s.InteractionRespond(i.Interaction, presenters.BuildErrorResponse("Nothing is playing here"))
						}

						picked, found := util.FindFirst(p.Queue().Snapshot(), func(t *track.Track) bool {
							return t.Hash == hash
						})
						if !found {
							return s.InteractionRespond(i.Interaction, presenters.BuildErrorResponse("That track is no longer in the queue"))
						}

						p.Queue().Remove(picked)
						return s.InteractionRespond(i.Interaction, presenters.BuildMessageResponse("Removed **"+picked.Title+"** from the queue"))
					},
				},
			},
		},
	}
}
