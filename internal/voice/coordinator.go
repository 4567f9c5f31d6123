// Package voice assembles voice credentials out of the two host-platform
// events that carry them.
//
// Discord delivers the session ID (voice state update) and the token plus
// endpoint (voice server update) as independent events in no particular
// order. The node needs all three in a single voiceUpdate payload, so the
// coordinator buffers whichever half arrives first, per guild.
package voice

import (
	"sync"

	"github.com/glizzus/tempo/internal/protocol"
)

// credential is the partially assembled state for one guild.
type credential struct {
	sessionID string
	token     string
	endpoint  string
}

func (c *credential) serverKnown() bool {
	return c.token != "" && c.endpoint != ""
}

// Coordinator merges voice-state and voice-server events per guild.
// Emit is invoked with a complete voiceUpdate payload whenever a pairing
// completes; the session forwards it to the node.
type Coordinator struct {
	botUserID string
	emit      func(protocol.VoiceUpdatePayload)

	mu          sync.Mutex
	credentials map[string]*credential
}

func NewCoordinator(botUserID string, emit func(protocol.VoiceUpdatePayload)) *Coordinator {
	return &Coordinator{
		botUserID:   botUserID,
		emit:        emit,
		credentials: make(map[string]*credential),
	}
}

// OnVoiceState records the session ID from a voice state update.
// Updates for users other than the bot itself are ignored. If server
// credentials were buffered waiting on this session ID, the pairing
// completes now.
func (c *Coordinator) OnVoiceState(guildID, userID, sessionID string) {
	if userID != c.botUserID {
		return
	}

	c.mu.Lock()
	cred := c.credential(guildID)
	changed := cred.sessionID != sessionID
	cred.sessionID = sessionID
	complete := changed && sessionID != "" && cred.serverKnown()
	payload := protocol.NewVoiceUpdate(guildID, cred.sessionID, cred.token, cred.endpoint)
	c.mu.Unlock()

	if complete {
		c.emit(payload)
	}
}

// OnVoiceServer records the token and endpoint from a voice server
// update. If the session ID is already known the pairing completes
// immediately; the cached session ID is reused across server updates,
// which Discord sends again on region changes.
func (c *Coordinator) OnVoiceServer(guildID, token, endpoint string) {
	c.mu.Lock()
	cred := c.credential(guildID)
	cred.token = token
	cred.endpoint = endpoint
	complete := cred.sessionID != "" && cred.serverKnown()
	payload := protocol.NewVoiceUpdate(guildID, cred.sessionID, cred.token, cred.endpoint)
	c.mu.Unlock()

	if complete {
		c.emit(payload)
	}
}

// Forget drops any buffered credential state for the guild.
// Called when the bot leaves the guild's voice channel.
func (c *Coordinator) Forget(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, guildID)
}

func (c *Coordinator) credential(guildID string) *credential {
	cred, ok := c.credentials[guildID]
	if !ok {
		cred = &credential{}
		c.credentials[guildID] = cred
	}
	return cred
}
