package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound op discriminators.
const (
	OpStats        = "stats"
	OpPlayerUpdate = "playerUpdate"
	OpEvent        = "event"
)

// Nested type discriminators for op "event".
const (
	TypeTrackStart      = "TrackStartEvent"
	TypeTrackEnd        = "TrackEndEvent"
	TypeTrackException  = "TrackExceptionEvent"
	TypeTrackStuck      = "TrackStuckEvent"
	TypeWebSocketClosed = "WebSocketClosedEvent"
)

// Envelope is the minimal shape read first to classify a received message.
type Envelope struct {
	Op string `json:"op"`
}

// StatsEvent is the node's periodic health report. It is the only
// inbound message not scoped to a guild.
type StatsEvent struct {
	Op             string      `json:"op"`
	Players        int         `json:"players"`
	PlayingPlayers int         `json:"playingPlayers"`
	Uptime         int64       `json:"uptime"`
	Memory         MemoryStats `json:"memory"`
	CPU            CPUStats    `json:"cpu"`
	FrameStats     *FrameStats `json:"frameStats,omitempty"`
}

type MemoryStats struct {
	Free       int64 `json:"free"`
	Used       int64 `json:"used"`
	Allocated  int64 `json:"allocated"`
	Reservable int64 `json:"reservable"`
}

type CPUStats struct {
	Cores      int     `json:"cores"`
	SystemLoad float64 `json:"systemLoad"`
	NodeLoad   float64 `json:"lavalinkLoad"`
}

type FrameStats struct {
	Sent    int `json:"sent"`
	Nulled  int `json:"nulled"`
	Deficit int `json:"deficit"`
}

// PlayerUpdateEvent reports the node-side playback position for one guild.
type PlayerUpdateEvent struct {
	Op      string            `json:"op"`
	GuildID string            `json:"guildId"`
	State   PlayerUpdateState `json:"state"`
}

type PlayerUpdateState struct {
	Time     int64 `json:"time"`
	Position int64 `json:"position"`
}

// TrackEvent is the flattened shape of every op "event" message.
// Which fields are meaningful depends on Type.
type TrackEvent struct {
	Op          string `json:"op"`
	Type        string `json:"type"`
	GuildID     string `json:"guildId"`
	Track       string `json:"track,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
	ThresholdMs int64  `json:"thresholdMs,omitempty"`
	Code        int    `json:"code,omitempty"`
	ByRemote    bool   `json:"byRemote,omitempty"`
}

// Track end reasons the node reports. MayStartNext reports whether the
// reason permits the client to start the next queued track.
const (
	EndReasonFinished   = "FINISHED"
	EndReasonLoadFailed = "LOAD_FAILED"
	EndReasonStopped    = "STOPPED"
	EndReasonReplaced   = "REPLACED"
	EndReasonCleanup    = "CLEANUP"
)

func MayStartNext(reason string) bool {
	return reason == EndReasonFinished || reason == EndReasonLoadFailed
}

// DecodeEnvelope reads only the op discriminator from a raw message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode message envelope: %w", err)
	}
	return env, nil
}
