package voice_test

import (
	"testing"

	"github.com/glizzus/tempo/internal/protocol"
	"github.com/glizzus/tempo/internal/voice"
	"github.com/google/go-cmp/cmp"
)

const botID = "bot-user"

func collector() (*[]protocol.VoiceUpdatePayload, func(protocol.VoiceUpdatePayload)) {
	var emitted []protocol.VoiceUpdatePayload
	return &emitted, func(p protocol.VoiceUpdatePayload) {
		emitted = append(emitted, p)
	}
}

func TestPairingOrderIndependent(t *testing.T) {
	want := []protocol.VoiceUpdatePayload{
		protocol.NewVoiceUpdate("guild-1", "sess-1", "tok-1", "endpoint-1"),
	}

	t.Run("server then state", func(t *testing.T) {
		emitted, emit := collector()
		c := voice.NewCoordinator(botID, emit)

		c.OnVoiceServer("guild-1", "tok-1", "endpoint-1")
		if len(*emitted) != 0 {
			t.Fatal("emitted before session ID was known")
		}
		c.OnVoiceState("guild-1", botID, "sess-1")

		if diff := cmp.Diff(want, *emitted); diff != "" {
			t.Errorf("emitted payloads mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("state then server", func(t *testing.T) {
		emitted, emit := collector()
		c := voice.NewCoordinator(botID, emit)

		c.OnVoiceState("guild-1", botID, "sess-1")
		if len(*emitted) != 0 {
			t.Fatal("emitted before server credentials were known")
		}
		c.OnVoiceServer("guild-1", "tok-1", "endpoint-1")

		if diff := cmp.Diff(want, *emitted); diff != "" {
			t.Errorf("emitted payloads mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestOtherUsersIgnored(t *testing.T) {
	emitted, emit := collector()
	c := voice.NewCoordinator(botID, emit)

	c.OnVoiceServer("guild-1", "tok-1", "endpoint-1")
	c.OnVoiceState("guild-1", "someone-else", "their-session")

	if len(*emitted) != 0 {
		t.Errorf("emitted %d payloads for a non-bot voice state, want 0", len(*emitted))
	}
}

func TestServerRefreshReusesSessionID(t *testing.T) {
	emitted, emit := collector()
	c := voice.NewCoordinator(botID, emit)

	c.OnVoiceState("guild-1", botID, "sess-1")
	c.OnVoiceServer("guild-1", "tok-1", "endpoint-us")
	// Region change: Discord sends a fresh voice server update only.
	c.OnVoiceServer("guild-1", "tok-2", "endpoint-eu")

	want := []protocol.VoiceUpdatePayload{
		protocol.NewVoiceUpdate("guild-1", "sess-1", "tok-1", "endpoint-us"),
		protocol.NewVoiceUpdate("guild-1", "sess-1", "tok-2", "endpoint-eu"),
	}
	if diff := cmp.Diff(want, *emitted); diff != "" {
		t.Errorf("emitted payloads mismatch (-want +got):\n%s", diff)
	}
}

func TestGuildsAreIsolated(t *testing.T) {
	emitted, emit := collector()
	c := voice.NewCoordinator(botID, emit)

	c.OnVoiceServer("guild-1", "tok-1", "endpoint-1")
	c.OnVoiceState("guild-2", botID, "sess-2")

	if len(*emitted) != 0 {
		t.Errorf("emitted %d payloads across mismatched guilds, want 0", len(*emitted))
	}
}

func TestForget(t *testing.T) {
	emitted, emit := collector()
	c := voice.NewCoordinator(botID, emit)

	c.OnVoiceServer("guild-1", "tok-1", "endpoint-1")
	c.Forget("guild-1")
	c.OnVoiceState("guild-1", botID, "sess-1")

	if len(*emitted) != 0 {
		t.Errorf("emitted %d payloads after Forget, want 0", len(*emitted))
	}
}
