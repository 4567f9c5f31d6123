package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"log/slog"

	"github.com/glizzus/tempo/internal/node"
	"github.com/glizzus/tempo/internal/player"
	"github.com/glizzus/tempo/internal/presenters"
	"github.com/glizzus/tempo/internal/repository"
	"github.com/glizzus/tempo/internal/track"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)

// DiscordSession is the slice of discordgo.Session handlers need to
// answer interactions. Tests substitute it.
type DiscordSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// VoiceChannelResolver reports which voice channel a user occupies.
type VoiceChannelResolver interface {
	UserVoiceChannel(guildID, userID string) string
}

type PlayRequest struct {
	Query string
}

func CommandToPlayRequest(options []*discordgo.ApplicationCommandInteractionDataOption) (*PlayRequest, error) {
	var query string
	for _, option := range options {
		if option.Name == "query" {
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for query option")
			}
			query = option.StringValue()
		}
	}

	if query == "" {
		return nil, fmt.Errorf("query option is required")
	}

	return &PlayRequest{Query: query}, nil
}

// ParsePosition converts a user-entered position into milliseconds.
// Accepts plain seconds ("90"), m:ss ("1:30"), and h:mm:ss ("1:02:03").
func ParsePosition(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", s)
	}

	var totalSeconds int64
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		totalSeconds = totalSeconds*60 + n
	}
	return totalSeconds * 1000, nil
}

// queryToIdentifier passes URLs through untouched and turns anything
// else into a YouTube search for the node to resolve.
func queryToIdentifier(query string) string {
	if strings.Contains(query, "://") {
		return query
	}
	return "ytsearch:" + query
}

// userMessage translates internal errors into something worth showing
// in the channel.
func userMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	var notInVoice *NotInVoiceError
	if errors.As(err, &notInVoice) {
		return "Join a voice channel first"
	}
	var stateErr *player.InvalidStateError
	if errors.As(err, &stateErr) {
		return fmt.Sprintf("Can't %s right now", stateErr.Op)
	}
	var rangeErr *player.OutOfRangeError
	if errors.As(err, &rangeErr) {
		return fmt.Sprintf("%s must be between %g and %g", rangeErr.Field, rangeErr.Min, rangeErr.Max)
	}
	if errors.Is(err, player.ErrQueueEmpty) {
		return "The queue is empty"
	}
	if errors.Is(err, player.ErrNoTrack) {
		return "Nothing is playing"
	}
	if errors.Is(err, player.ErrDisposed) {
		return "The player was shut down; use /play to start again"
	}
	return "Something went wrong"
}

func MakeInteractionCreateHandler(
	session *node.Session,
	prefs repository.PreferencesStore,
	resolver VoiceChannelResolver,
	flows *FlowManager,
) InteractionCreateHandler {

	respond := func(s DiscordSession, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
		if err := s.InteractionRespond(i.Interaction, resp); err != nil {
			slog.Error("Failed to respond to interaction", "error", err)
		}
	}

	respondError := func(s DiscordSession, i *discordgo.InteractionCreate, err error) {
		slog.Warn("Command failed", "guildID", i.GuildID, "error", err)
		respond(s, i, presenters.BuildErrorResponse(userMessage(err)))
	}

	handlePlay := func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
		request, err := CommandToPlayRequest(i.ApplicationCommandData().Options)
		if err != nil {
			return err
		}

		if i.Member == nil {
			return &UserError{Message: "Use this in a server, not a DM"}
		}
		userID := i.Member.User.ID
		channelID := resolver.UserVoiceChannel(i.GuildID, userID)
		if channelID == "" {
			return &NotInVoiceError{UserID: userID}
		}

		p, err := session.Join(ctx, i.GuildID, channelID)
		if err != nil {
			return err
		}

		result, err := session.LoadTracks(ctx, queryToIdentifier(request.Query))
		if err != nil {
			return err
		}

		switch result.LoadType {
		case node.LoadTypeNoMatch:
			return &UserError{Message: "No tracks found for that query"}
		case node.LoadTypeFailed:
			message := "The node could not load that"
			if result.Exception != nil {
				message = result.Exception.Message
			}
			return &UserError{Message: message}
		}

		loaded := result.Tracks
		if result.LoadType != node.LoadTypePlaylist && len(loaded) > 1 {
			loaded = loaded[:1]
		}
		if len(loaded) == 0 {
			return &UserError{Message: "No tracks found for that query"}
		}

		tracks := make([]*track.Track, 0, len(loaded))
		for _, lt := range loaded {
			t, err := track.Decode(lt.Hash)
			if err != nil {
				return fmt.Errorf("failed to decode track descriptor: %w", err)
			}
			tracks = append(tracks, t)
		}

		busy := p.State() == player.StatePlaying || p.State() == player.StatePaused
		if busy {
			if err := p.Queue().EnqueueAll(tracks...); err != nil {
				return err
			}
			if len(tracks) == 1 {
				respond(s, i, presenters.BuildMessageResponse("Queued **"+tracks[0].Title+"**"))
			} else {
				respond(s, i, presenters.BuildMessageResponse(fmt.Sprintf("Queued %d tracks", len(tracks))))
			}
			return nil
		}

		guildPrefs, err := prefs.Get(ctx, i.GuildID)
		if err != nil {
			slog.Warn("Failed to load guild preferences", "guildID", i.GuildID, "error", err)
			guildPrefs = repository.DefaultPreferences(i.GuildID)
		}

		first := tracks[0]
		if err := p.Play(ctx, first, player.PlayOptions{Volume: &guildPrefs.DefaultVolume}); err != nil {
			return err
		}
		if err := p.Queue().EnqueueAll(tracks[1:]...); err != nil {
			return err
		}

		respond(s, i, presenters.BuildMessageResponse("Playing "+first.Title))
		return nil
	}

	handleVolume := func(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
		options := i.ApplicationCommandData().Options
		if len(options) == 0 {
			return "", fmt.Errorf("level option is required")
		}
		level := int(options[0].IntValue())

		if p, ok := session.Player(i.GuildID); ok {
			if err := p.SetVolume(ctx, level); err != nil {
				return "", err
			}
		}

		guildPrefs, err := prefs.Get(ctx, i.GuildID)
		if err != nil {
			return "", fmt.Errorf("failed to load guild preferences: %w", err)
		}
		guildPrefs.DefaultVolume = level
		if err := prefs.Save(ctx, guildPrefs); err != nil {
			return "", fmt.Errorf("failed to save guild preferences: %w", err)
		}

		return fmt.Sprintf("Volume set to %d", level), nil
	}

	requirePlayer := func(i *discordgo.InteractionCreate) (*player.Player, error) {
		p, ok := session.Player(i.GuildID)
		if !ok {
			return nil, &UserError{Message: "Nothing is playing here"}
		}
		return p, nil
	}

	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if err := flows.Router(s, i); err != nil {
			slog.Error("Flow router failed", "error", err)
			return
		}
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}

		ctx := context.Background()
		command := i.ApplicationCommandData()
		switch command.Name {
		case "play":
			if err := handlePlay(ctx, s, i); err != nil {
				respondError(s, i, err)
			}
		case "skip":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			previous, next, err := p.Skip(ctx, 0)
			if err != nil {
				respondError(s, i, err)
				return
			}
			message := "Skipped"
			if previous != nil {
				message = "Skipped **" + previous.Title + "**"
			}
			if next != nil {
				message += ", now playing **" + next.Title + "**"
			}
			respond(s, i, presenters.BuildMessageResponse(message))
		case "pause":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			if err := p.Pause(ctx); err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse("Paused"))
		case "resume":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			if err := p.Resume(ctx); err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse("Resumed"))
		case "stop":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			p.Queue().Clear()
			if err := p.Stop(ctx); err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse("Stopped and cleared the queue"))
		case "seek":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			options := command.Options
			if len(options) == 0 {
				respondError(s, i, &UserError{Message: "Give me a position like 1:30"})
				return
			}
			positionMs, err := ParsePosition(options[0].StringValue())
			if err != nil {
				respondError(s, i, &UserError{Message: "Give me a position like 1:30"})
				return
			}
			if err := p.Seek(ctx, positionMs); err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse("Seeked to "+presenters.FormatDuration(positionMs, false)))
		case "volume":
			message, err := handleVolume(ctx, i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse(message))
		case "queue":
			var tracks []*track.Track
			if p, ok := session.Player(i.GuildID); ok {
				tracks = p.Queue().Snapshot()
			}
			respond(s, i, presenters.BuildQueueResponse(tracks))
		case "shuffle":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			p.Queue().Shuffle()
			respond(s, i, presenters.BuildMessageResponse("Shuffled the queue"))
		case "nowplaying":
			p, err := requirePlayer(i)
			if err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildNowPlayingResponse(p.Track()))
		case "leave":
			if err := session.Leave(ctx, i.GuildID); err != nil {
				respondError(s, i, err)
				return
			}
			respond(s, i, presenters.BuildMessageResponse("Goodbye"))
		}
	}
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
}

func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.AddHandler(handlers.Ready)
	s.AddHandler(handlers.InteractionCreate)
	s.Identify.Intents |= discordgo.IntentGuildVoiceStates

	return s, nil
}
