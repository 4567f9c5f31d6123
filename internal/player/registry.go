package player

import "sync"

// Registry maps guild IDs to players for one node session.
// Each session owns its own registry; there is no process-wide state.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// GetOrCreate returns the guild's player, creating it with create when
// absent. When two callers race, the first registration wins and both
// get the same player; created reports whether this call built it.
func (r *Registry) GetOrCreate(guildID string, create func() *Player) (p *Player, created bool) {
	r.mu.RLock()
	p, ok := r.players[guildID]
	r.mu.RUnlock()
	if ok {
		return p, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[guildID]; ok {
		return p, false
	}
	p = create()
	r.players[guildID] = p
	return p, true
}

// Get returns the guild's player, if any.
func (r *Registry) Get(guildID string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[guildID]
	return p, ok
}

// Remove forgets the guild's player. It does not dispose it.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, guildID)
}

// All returns a snapshot of every registered player.
func (r *Registry) All() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

// Len reports the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
