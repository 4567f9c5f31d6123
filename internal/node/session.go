package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/glizzus/tempo/internal/player"
	"github.com/glizzus/tempo/internal/protocol"
	"github.com/glizzus/tempo/internal/track"
	"github.com/glizzus/tempo/internal/voice"
)

// connection is the slice of Conn the session needs. Tests substitute it.
type connection interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, payload any) error
	Close() error
}

// VoiceConnector is the session's handle on the host platform's gateway.
// The session asks it to move the bot in and out of voice channels; the
// resulting voice-state and voice-server events flow back in through
// HandleVoiceState and HandleVoiceServer.
type VoiceConnector interface {
	JoinVoiceChannel(guildID, channelID string) error
	LeaveVoiceChannel(guildID string) error
}

type SessionConfig struct {
	// WebSocketURL and RestURL address the node's two surfaces.
	WebSocketURL string
	RestURL      string
	// Authorization is the node password, sent on both surfaces.
	Authorization string
	// UserID is the bot's own user ID. Identifies the client to the
	// node and filters voice-state updates for other users.
	UserID string
	Shards int
	// ResumeKey, when set, is configured on the node after every
	// connect so a dropped control connection can pick up buffered
	// events within ResumeTimeout seconds.
	ResumeKey     string
	ResumeTimeout int

	ReconnectBaseDelay   time.Duration
	ReconnectMaxAttempts int
}

// Session is the single public facade over the node: it owns the
// connection, the per-guild players, and the voice credential
// coordinator, and it fans every inbound message out to the right place.
type Session struct {
	cfg       SessionConfig
	conn      connection
	rest      *RestClient
	players   *player.Registry
	connector VoiceConnector
	voices    *voice.Coordinator

	statsMu    sync.Mutex
	stats      protocol.StatsEvent
	statsKnown bool

	listeners listenerSet
}

func NewSession(cfg SessionConfig, connector VoiceConnector) *Session {
	s := &Session{
		cfg:       cfg,
		rest:      NewRestClient(cfg.RestURL, cfg.Authorization),
		players:   player.NewRegistry(),
		connector: connector,
	}
	s.voices = voice.NewCoordinator(cfg.UserID, s.sendVoiceUpdate)

	headers := http.Header{}
	headers.Set("Authorization", cfg.Authorization)
	headers.Set("User-Id", cfg.UserID)
	headers.Set("Num-Shards", strconv.Itoa(max(cfg.Shards, 1)))
	if cfg.ResumeKey != "" {
		headers.Set("Resume-Key", cfg.ResumeKey)
	}

	s.conn = NewConn(ConnConfig{
		URL:         cfg.WebSocketURL,
		Headers:     headers,
		BaseDelay:   cfg.ReconnectBaseDelay,
		MaxAttempts: cfg.ReconnectMaxAttempts,
	}, ConnHandlers{
		Message:   s.dispatch,
		Open:      s.handleOpen,
		Closed:    s.handleClosed,
		Exhausted: s.handleExhausted,
	})

	return s
}

// Connect opens the control connection to the node.
func (s *Session) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// Close disposes every player and tears down the control connection.
func (s *Session) Close(ctx context.Context) error {
	for _, p := range s.players.All() {
		if err := p.Dispose(ctx); err != nil {
			slog.Warn("failed to dispose player on close", "guildID", p.GuildID(), "error", err)
		}
		s.players.Remove(p.GuildID())
	}
	return s.conn.Close()
}

// Send queues a payload for ordered delivery to the node.
// It satisfies player.Sender.
func (s *Session) Send(ctx context.Context, payload any) error {
	return s.conn.Send(ctx, payload)
}

var _ player.Sender = (*Session)(nil)

// Join returns the guild's player, connecting the bot to the voice
// channel and creating the player first if needed.
func (s *Session) Join(ctx context.Context, guildID, channelID string) (*player.Player, error) {
	if p, ok := s.players.Get(guildID); ok {
		return p, nil
	}

	if err := s.connector.JoinVoiceChannel(guildID, channelID); err != nil {
		return nil, fmt.Errorf("failed to join voice channel %s: %w", channelID, err)
	}

	// Losing a creation race is fine: the registered player wins.
	p, _ := s.players.GetOrCreate(guildID, func() *player.Player {
		return player.New(guildID, channelID, s)
	})
	return p, nil
}

// Leave disposes the guild's player and disconnects the bot from voice.
func (s *Session) Leave(ctx context.Context, guildID string) error {
	if p, ok := s.players.Get(guildID); ok {
		if err := p.Dispose(ctx); err != nil {
			slog.Warn("failed to dispose player on leave", "guildID", guildID, "error", err)
		}
		s.players.Remove(guildID)
	}
	s.voices.Forget(guildID)

	if err := s.connector.LeaveVoiceChannel(guildID); err != nil {
		return fmt.Errorf("failed to leave voice channel in guild %s: %w", guildID, err)
	}
	return nil
}

// Player returns the guild's player, if one exists.
func (s *Session) Player(guildID string) (*player.Player, bool) {
	return s.players.Get(guildID)
}

// Players returns a snapshot of all active players.
func (s *Session) Players() []*player.Player {
	return s.players.All()
}

// LoadTracks queries the node's REST surface for playable tracks.
func (s *Session) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	return s.rest.LoadTracks(ctx, identifier)
}

// Stats returns the most recent node stats, if any have arrived yet.
func (s *Session) Stats() (protocol.StatsEvent, bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats, s.statsKnown
}

// HandleVoiceState forwards a host-platform voice state update.
// An empty channelID means the bot left voice; buffered credentials
// for the guild are discarded.
func (s *Session) HandleVoiceState(guildID, userID, sessionID, channelID string) {
	if userID == s.cfg.UserID && channelID == "" {
		s.voices.Forget(guildID)
		return
	}
	s.voices.OnVoiceState(guildID, userID, sessionID)
}

// HandleVoiceServer forwards a host-platform voice server update.
func (s *Session) HandleVoiceServer(guildID, token, endpoint string) {
	s.voices.OnVoiceServer(guildID, token, endpoint)
}

func (s *Session) sendVoiceUpdate(payload protocol.VoiceUpdatePayload) {
	if err := s.conn.Send(context.Background(), payload); err != nil {
		slog.Warn("failed to send voice update", "guildID", payload.GuildID, "error", err)
	}
}

func (s *Session) handleOpen(reconnected bool) {
	slog.Info("node connection open", "reconnected", reconnected)
	if s.cfg.ResumeKey == "" {
		return
	}
	timeout := s.cfg.ResumeTimeout
	if timeout <= 0 {
		timeout = 60
	}
	payload := protocol.NewConfigureResume(s.cfg.ResumeKey, timeout)
	if err := s.conn.Send(context.Background(), payload); err != nil {
		slog.Warn("failed to configure resuming", "error", err)
	}
}

func (s *Session) handleClosed(err error) {
	slog.Warn("node connection closed", "error", err)
}

func (s *Session) handleExhausted() {
	s.listeners.emitExhausted()
}

// dispatch classifies one inbound message by its op discriminator and
// routes it. Malformed or unrecognized messages are logged and dropped;
// nothing arriving over the wire may take the dispatch loop down.
func (s *Session) dispatch(data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		slog.Warn("dropping undecodable message", "error", err)
		return
	}

	switch env.Op {
	case protocol.OpStats:
		s.handleStats(data)
	case protocol.OpPlayerUpdate:
		s.handlePlayerUpdate(data)
	case protocol.OpEvent:
		s.handleEvent(data)
	default:
		slog.Warn("dropping message with unknown op", "op", env.Op)
	}
}

func (s *Session) handleStats(data []byte) {
	var stats protocol.StatsEvent
	if err := json.Unmarshal(data, &stats); err != nil {
		slog.Warn("dropping malformed stats message", "error", err)
		return
	}

	s.statsMu.Lock()
	s.stats = stats
	s.statsKnown = true
	s.statsMu.Unlock()

	s.listeners.emitStats(stats)
}

func (s *Session) handlePlayerUpdate(data []byte) {
	var update protocol.PlayerUpdateEvent
	if err := json.Unmarshal(data, &update); err != nil {
		slog.Warn("dropping malformed player update", "error", err)
		return
	}

	// The guild may have left between the node sending this and us
	// reading it; that is not an error.
	p, ok := s.players.Get(update.GuildID)
	if !ok {
		return
	}

	p.ApplyUpdate(update.State.Time, update.State.Position)
	s.listeners.emitPlayerUpdate(p)
}

func (s *Session) handleEvent(data []byte) {
	var event protocol.TrackEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Warn("dropping malformed event message", "error", err)
		return
	}

	p, ok := s.players.Get(event.GuildID)
	if !ok {
		return
	}

	var t *track.Track
	if event.Track != "" {
		decoded, err := track.Decode(event.Track)
		if err != nil {
			slog.Warn("dropping event with undecodable track descriptor",
				"type", event.Type, "guildID", event.GuildID, "error", err)
			return
		}
		t = decoded
	}

	switch event.Type {
	case protocol.TypeTrackStart:
		p.ApplyTrackStart(t)
		s.listeners.emitTrackStart(p, t)
	case protocol.TypeTrackEnd:
		p.ApplyTrackEnd()
		s.listeners.emitTrackEnd(p, t, event.Reason)
	case protocol.TypeTrackException:
		s.listeners.emitTrackException(p, t, event.Error)
	case protocol.TypeTrackStuck:
		s.listeners.emitTrackStuck(p, t, event.ThresholdMs)
	case protocol.TypeWebSocketClosed:
		s.listeners.emitSocketClosed(p, event.Code, event.Reason, event.ByRemote)
	default:
		slog.Warn("dropping event with unknown type", "type", event.Type)
	}
}
