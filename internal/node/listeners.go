package node

import (
	"log/slog"
	"sync"

	"github.com/glizzus/tempo/internal/player"
	"github.com/glizzus/tempo/internal/protocol"
	"github.com/glizzus/tempo/internal/track"
)

// listenerSet fans events out to registered subscribers. Every
// subscriber is invoked for every event it registered for; a panicking
// subscriber is logged and isolated from the rest.
type listenerSet struct {
	mu             sync.RWMutex
	stats          []func(protocol.StatsEvent)
	playerUpdate   []func(*player.Player)
	trackStart     []func(*player.Player, *track.Track)
	trackEnd       []func(*player.Player, *track.Track, string)
	trackException []func(*player.Player, *track.Track, string)
	trackStuck     []func(*player.Player, *track.Track, int64)
	socketClosed   []func(*player.Player, int, string, bool)
	exhausted      []func()
}

// OnStats subscribes to node stats reports.
func (s *Session) OnStats(fn func(protocol.StatsEvent)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.stats = append(s.listeners.stats, fn)
}

// OnPlayerUpdate subscribes to per-player position reports.
func (s *Session) OnPlayerUpdate(fn func(*player.Player)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.playerUpdate = append(s.listeners.playerUpdate, fn)
}

// OnTrackStart subscribes to track start events.
func (s *Session) OnTrackStart(fn func(*player.Player, *track.Track)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.trackStart = append(s.listeners.trackStart, fn)
}

// OnTrackEnd subscribes to track end events with the node's end reason.
func (s *Session) OnTrackEnd(fn func(*player.Player, *track.Track, string)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.trackEnd = append(s.listeners.trackEnd, fn)
}

// OnTrackException subscribes to playback failures reported by the node.
func (s *Session) OnTrackException(fn func(*player.Player, *track.Track, string)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.trackException = append(s.listeners.trackException, fn)
}

// OnTrackStuck subscribes to stuck-track reports.
func (s *Session) OnTrackStuck(fn func(*player.Player, *track.Track, int64)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.trackStuck = append(s.listeners.trackStuck, fn)
}

// OnSocketClosed subscribes to the node's reports of its own voice
// websocket closing for a guild.
func (s *Session) OnSocketClosed(fn func(p *player.Player, code int, reason string, byRemote bool)) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.socketClosed = append(s.listeners.socketClosed, fn)
}

// OnReconnectExhausted subscribes to the terminal reconnect failure.
// It fires at most once; afterwards the session stays disconnected
// until Connect is called again.
func (s *Session) OnReconnectExhausted(fn func()) {
	s.listeners.mu.Lock()
	defer s.listeners.mu.Unlock()
	s.listeners.exhausted = append(s.listeners.exhausted, fn)
}

func safeInvoke(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked", "event", event, "panic", r)
		}
	}()
	fn()
}

func (l *listenerSet) emitStats(stats protocol.StatsEvent) {
	l.mu.RLock()
	subscribers := l.stats
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("stats", func() { fn(stats) })
	}
}

func (l *listenerSet) emitPlayerUpdate(p *player.Player) {
	l.mu.RLock()
	subscribers := l.playerUpdate
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("playerUpdate", func() { fn(p) })
	}
}

func (l *listenerSet) emitTrackStart(p *player.Player, t *track.Track) {
	l.mu.RLock()
	subscribers := l.trackStart
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("trackStart", func() { fn(p, t) })
	}
}

func (l *listenerSet) emitTrackEnd(p *player.Player, t *track.Track, reason string) {
	l.mu.RLock()
	subscribers := l.trackEnd
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("trackEnd", func() { fn(p, t, reason) })
	}
}

func (l *listenerSet) emitTrackException(p *player.Player, t *track.Track, message string) {
	l.mu.RLock()
	subscribers := l.trackException
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("trackException", func() { fn(p, t, message) })
	}
}

func (l *listenerSet) emitTrackStuck(p *player.Player, t *track.Track, thresholdMs int64) {
	l.mu.RLock()
	subscribers := l.trackStuck
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("trackStuck", func() { fn(p, t, thresholdMs) })
	}
}

func (l *listenerSet) emitSocketClosed(p *player.Player, code int, reason string, byRemote bool) {
	l.mu.RLock()
	subscribers := l.socketClosed
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("socketClosed", func() { fn(p, code, reason, byRemote) })
	}
}

func (l *listenerSet) emitExhausted() {
	l.mu.RLock()
	subscribers := l.exhausted
	l.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("reconnectExhausted", fn)
	}
}
