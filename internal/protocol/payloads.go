// Package protocol defines the wire messages exchanged with the audio node.
//
// Outbound payloads are commands tagged by an "op" field; inbound events
// arrive as envelopes discriminated first by "op" and, for op "event",
// by a nested "type" field.
package protocol

// Operation names for outbound payloads.
const (
	OpPlay            = "play"
	OpStop            = "stop"
	OpPause           = "pause"
	OpSeek            = "seek"
	OpVolume          = "volume"
	OpEqualizer       = "equalizer"
	OpDestroy         = "destroy"
	OpVoiceUpdate     = "voiceUpdate"
	OpConfigureResume = "configureResuming"
)

type PlayPayload struct {
	Op        string `json:"op"`
	GuildID   string `json:"guildId"`
	Track     string `json:"track"`
	StartTime int64  `json:"startTime,omitempty"`
	EndTime   int64  `json:"endTime,omitempty"`
	NoReplace bool   `json:"noReplace,omitempty"`
	Volume    int    `json:"volume"`
	Pause     bool   `json:"pause"`
}

type StopPayload struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
}

type PausePayload struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
	Pause   bool   `json:"pause"`
}

type SeekPayload struct {
	Op       string `json:"op"`
	GuildID  string `json:"guildId"`
	Position int64  `json:"position"`
}

type VolumePayload struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
	Volume  int    `json:"volume"`
}

// EqualizerBand adjusts one of the node's fifteen gain bands.
// Band is 0-14; Gain is -0.25 (mute) through 1.0 (doubled).
type EqualizerBand struct {
	Band int     `json:"band"`
	Gain float64 `json:"gain"`
}

type EqualizerPayload struct {
	Op      string          `json:"op"`
	GuildID string          `json:"guildId"`
	Bands   []EqualizerBand `json:"bands"`
}

type DestroyPayload struct {
	Op      string `json:"op"`
	GuildID string `json:"guildId"`
}

// VoiceUpdatePayload carries the assembled voice credential for a guild.
// The node cannot open a media session until it has all three parts.
type VoiceUpdatePayload struct {
	Op        string           `json:"op"`
	GuildID   string           `json:"guildId"`
	SessionID string           `json:"sessionId"`
	Event     VoiceServerEvent `json:"event"`
}

type VoiceServerEvent struct {
	Token    string `json:"token"`
	Endpoint string `json:"endpoint"`
}

// ConfigureResumePayload asks the node to buffer events for the given
// key for Timeout seconds if the control connection drops.
type ConfigureResumePayload struct {
	Op      string `json:"op"`
	Key     string `json:"key"`
	Timeout int    `json:"timeout"`
}

func NewPlay(guildID, trackHash string, startTime, endTime int64, noReplace bool, volume int, pause bool) PlayPayload {
	return PlayPayload{
		Op:        OpPlay,
		GuildID:   guildID,
		Track:     trackHash,
		StartTime: startTime,
		EndTime:   endTime,
		NoReplace: noReplace,
		Volume:    volume,
		Pause:     pause,
	}
}

func NewStop(guildID string) StopPayload {
	return StopPayload{Op: OpStop, GuildID: guildID}
}

func NewPause(guildID string, pause bool) PausePayload {
	return PausePayload{Op: OpPause, GuildID: guildID, Pause: pause}
}

func NewSeek(guildID string, positionMs int64) SeekPayload {
	return SeekPayload{Op: OpSeek, GuildID: guildID, Position: positionMs}
}

func NewVolume(guildID string, volume int) VolumePayload {
	return VolumePayload{Op: OpVolume, GuildID: guildID, Volume: volume}
}

func NewEqualizer(guildID string, bands []EqualizerBand) EqualizerPayload {
	return EqualizerPayload{Op: OpEqualizer, GuildID: guildID, Bands: bands}
}

func NewDestroy(guildID string) DestroyPayload {
	return DestroyPayload{Op: OpDestroy, GuildID: guildID}
}

func NewVoiceUpdate(guildID, sessionID, token, endpoint string) VoiceUpdatePayload {
	return VoiceUpdatePayload{
		Op:        OpVoiceUpdate,
		GuildID:   guildID,
		SessionID: sessionID,
		Event: VoiceServerEvent{
			Token:    token,
			Endpoint: endpoint,
		},
	}
}

func NewConfigureResume(key string, timeoutSeconds int) ConfigureResumePayload {
	return ConfigureResumePayload{Op: OpConfigureResume, Key: key, Timeout: timeoutSeconds}
}
