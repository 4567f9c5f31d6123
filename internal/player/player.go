// Package player holds the per-guild playback state machine and the
// registry that maps guilds to players.
//
// A player's state mirrors what the node reports. Commands update it
// optimistically so callers see the effect immediately, and inbound
// events correct it afterwards; the node is always the source of truth.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/glizzus/tempo/internal/protocol"
	"github.com/glizzus/tempo/internal/queue"
	"github.com/glizzus/tempo/internal/track"
)

// State is the player's locally mirrored playback state.
type State int

const (
	StateNone State = iota
	StatePlaying
	StatePaused
	StateStopped
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

const (
	DefaultVolume = 100
	MinVolume     = 0
	MaxVolume     = 1000

	minBand = 0
	maxBand = 14
	minGain = -0.25
	maxGain = 1.0
)

// Sender is the player's handle on the control connection.
// Payloads given to a single Sender are delivered to the node in call order.
type Sender interface {
	Send(ctx context.Context, payload any) error
}

// Player drives playback for one guild's voice session.
type Player struct {
	guildID   string
	channelID string
	sender    Sender

	mu         sync.Mutex
	track      *track.Track
	volume     int
	state      State
	lastUpdate time.Time
	disposed   bool
	queue      *queue.Queue
}

// New creates a player bound to a guild and the session's send capability.
func New(guildID, channelID string, sender Sender) *Player {
	return &Player{
		guildID:   guildID,
		channelID: channelID,
		sender:    sender,
		volume:    DefaultVolume,
		state:     StateNone,
		queue:     queue.New(),
	}
}

func (p *Player) GuildID() string   { return p.guildID }
func (p *Player) ChannelID() string { return p.channelID }
func (p *Player) Queue() *queue.Queue {
	return p.queue
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Track() *track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// LastUpdate reports when the node last sent a position report.
func (p *Player) LastUpdate() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUpdate
}

// PlayOptions tune a Play command. The zero value plays from the
// beginning at the player's current volume. Volume is a pointer so
// that an explicit 0 (muted) is distinct from leaving it unset.
type PlayOptions struct {
	StartMs   int64
	EndMs     int64
	NoReplace bool
	Volume    *int
	Pause     bool
}

// Play sends a play command for the given track and optimistically
// records it as current. Whether a NoReplace play while something is
// already playing gets ignored or queued is the node's call; the
// subsequent TrackStart/TrackEnd events settle the real state.
func (p *Player) Play(ctx context.Context, t *track.Track, opts PlayOptions) error {
	if t == nil {
		return queue.ErrNilTrack
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	volume := p.volume
	if opts.Volume != nil {
		if *opts.Volume < MinVolume || *opts.Volume > MaxVolume {
			p.mu.Unlock()
			return &OutOfRangeError{Field: "volume", Value: float64(*opts.Volume), Min: MinVolume, Max: MaxVolume}
		}
		volume = *opts.Volume
	}
	p.mu.Unlock()

	payload := protocol.NewPlay(p.guildID, t.Hash, opts.StartMs, opts.EndMs, opts.NoReplace, volume, opts.Pause)
	if err := p.sender.Send(ctx, payload); err != nil {
		return err
	}

	p.mu.Lock()
	p.track = t
	p.volume = volume
	if opts.Pause {
		p.state = StatePaused
	} else {
		p.state = StatePlaying
	}
	p.mu.Unlock()
	return nil
}

// Stop halts playback without destroying the player.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	p.mu.Unlock()

	if err := p.sender.Send(ctx, protocol.NewStop(p.guildID)); err != nil {
		return err
	}

	p.mu.Lock()
	p.state = StateStopped
	p.track = nil
	p.mu.Unlock()
	return nil
}

// Pause suspends playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.setPaused(ctx, true)
}

// Resume continues a paused player. If no track is set the player
// settles in Stopped rather than Playing.
func (p *Player) Resume(ctx context.Context) error {
	return p.setPaused(ctx, false)
}

func (p *Player) setPaused(ctx context.Context, pause bool) error {
	op := "resume"
	if pause {
		op = "pause"
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	switch p.state {
	case StatePlaying, StatePaused, StateNone:
	default:
		state := p.state
		p.mu.Unlock()
		return &InvalidStateError{Op: op, State: state}
	}
	p.mu.Unlock()

	if err := p.sender.Send(ctx, protocol.NewPause(p.guildID, pause)); err != nil {
		return err
	}

	p.mu.Lock()
	switch {
	case pause:
		p.state = StatePaused
	case p.track != nil:
		p.state = StatePlaying
	default:
		p.state = StateStopped
	}
	p.mu.Unlock()
	return nil
}

// Skip plays the next queued track, optionally after a delay.
// It returns the track that was playing and the one now playing.
func (p *Player) Skip(ctx context.Context, delay time.Duration) (previous, next *track.Track, err error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, nil, ErrDisposed
	}
	previous = p.track
	p.mu.Unlock()

	next, ok := p.queue.TryDequeue()
	if !ok {
		return nil, nil, ErrQueueEmpty
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if err := p.Play(ctx, next, PlayOptions{}); err != nil {
		return nil, nil, err
	}
	return previous, next, nil
}

// Seek moves the playback position of the current track.
func (p *Player) Seek(ctx context.Context, positionMs int64) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if p.state != StatePlaying && p.state != StatePaused {
		state := p.state
		p.mu.Unlock()
		return &InvalidStateError{Op: "seek", State: state}
	}
	if p.track == nil {
		p.mu.Unlock()
		return ErrNoTrack
	}
	duration := p.track.DurationMs
	p.mu.Unlock()

	if positionMs < 0 || positionMs > duration {
		return &OutOfRangeError{Field: "position", Value: float64(positionMs), Min: 0, Max: float64(duration)}
	}

	return p.sender.Send(ctx, protocol.NewSeek(p.guildID, positionMs))
}

// SetVolume adjusts the player volume on the node.
func (p *Player) SetVolume(ctx context.Context, volume int) error {
	if volume < MinVolume || volume > MaxVolume {
		return &OutOfRangeError{Field: "volume", Value: float64(volume), Min: MinVolume, Max: MaxVolume}
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	p.mu.Unlock()

	if err := p.sender.Send(ctx, protocol.NewVolume(p.guildID, volume)); err != nil {
		return err
	}

	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	return nil
}

// Equalize adjusts the node's gain bands for this guild.
func (p *Player) Equalize(ctx context.Context, bands ...protocol.EqualizerBand) error {
	for _, b := range bands {
		if b.Band < minBand || b.Band > maxBand {
			return &OutOfRangeError{Field: "band", Value: float64(b.Band), Min: minBand, Max: maxBand}
		}
		if b.Gain < minGain || b.Gain > maxGain {
			return &OutOfRangeError{Field: "gain", Value: b.Gain, Min: minGain, Max: maxGain}
		}
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	p.mu.Unlock()

	return p.sender.Send(ctx, protocol.NewEqualizer(p.guildID, bands))
}

// Dispose stops playback and destroys the node-side player. It is
// idempotent; only the first call sends anything.
func (p *Player) Dispose(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	p.state = StateDisposed
	p.track = nil
	p.mu.Unlock()

	p.queue.Clear()

	if err := p.sender.Send(ctx, protocol.NewStop(p.guildID)); err != nil {
		return err
	}
	return p.sender.Send(ctx, protocol.NewDestroy(p.guildID))
}

// ApplyUpdate records a node position report against the current track.
func (p *Player) ApplyUpdate(timeMs, positionMs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUpdate = time.UnixMilli(timeMs)
	if p.track != nil {
		p.track.PositionMs = positionMs
	}
}

// ApplyTrackStart corrects the local mirror when the node reports a
// track actually starting.
func (p *Player) ApplyTrackStart(t *track.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	if t != nil {
		p.track = t
	}
	if p.state != StatePaused {
		p.state = StatePlaying
	}
}

// ApplyTrackEnd clears the current track when the node reports it ended.
func (p *Player) ApplyTrackEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.track = nil
	p.state = StateStopped
}
