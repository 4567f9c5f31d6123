package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/glizzus/tempo/internal/protocol"
)

// The node is strict about these two shapes, so they are pinned here.
// The rest of the payloads are plain flat objects and are covered by use.

func TestVoiceUpdateWireShape(t *testing.T) {
	payload := protocol.NewVoiceUpdate("81384788765712384", "sess-1", "tok-1", "us-west.example.com")

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	want := `{"op":"voiceUpdate","guildId":"81384788765712384","sessionId":"sess-1","event":{"token":"tok-1","endpoint":"us-west.example.com"}}`
	if string(data) != want {
		t.Errorf("voiceUpdate wire shape:\n got %s\nwant %s", data, want)
	}
}

func TestPlayWireShape(t *testing.T) {
	payload := protocol.NewPlay("81384788765712384", "QAAAfw==", 5000, 0, true, 80, false)

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	want := `{"op":"play","guildId":"81384788765712384","track":"QAAAfw==","startTime":5000,"noReplace":true,"volume":80,"pause":false}`
	if string(data) != want {
		t.Errorf("play wire shape:\n got %s\nwant %s", data, want)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := protocol.DecodeEnvelope([]byte(`{"op":"playerUpdate","guildId":"1","state":{"time":1,"position":2}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope() returned error: %v", err)
	}
	if env.Op != protocol.OpPlayerUpdate {
		t.Errorf("env.Op = %q, want %q", env.Op, protocol.OpPlayerUpdate)
	}

	if _, err := protocol.DecodeEnvelope([]byte("not json")); err == nil {
		t.Error("DecodeEnvelope() expected error for malformed input")
	}
}

func TestMayStartNext(t *testing.T) {
	tests := []struct {
		reason string
		want   bool
	}{
		{protocol.EndReasonFinished, true},
		{protocol.EndReasonLoadFailed, true},
		{protocol.EndReasonStopped, false},
		{protocol.EndReasonReplaced, false},
		{protocol.EndReasonCleanup, false},
	}
	for _, tt := range tests {
		if got := protocol.MayStartNext(tt.reason); got != tt.want {
			t.Errorf("MayStartNext(%q) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}
