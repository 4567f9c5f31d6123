package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/tempo/internal/config"
	"github.com/glizzus/tempo/internal/datalayer"
	"github.com/glizzus/tempo/internal/gateway"
	"github.com/glizzus/tempo/internal/generator"
	"github.com/glizzus/tempo/internal/handler"
	"github.com/glizzus/tempo/internal/node"
	"github.com/glizzus/tempo/internal/player"
	"github.com/glizzus/tempo/internal/protocol"
	"github.com/glizzus/tempo/internal/repository"
	"github.com/glizzus/tempo/internal/track"
)

var uuidGenerator = generator.UUIDV4Generator{}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	ctx := context.Background()

	postgresConfig, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load postgres config: %w", err)
	}

	pool, err := datalayer.NewPostgresPool(ctx, postgresConfig.DSN())
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}

	nodeConfig, err := config.NewNodeConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load node config: %w", err)
	}

	prefs := repository.NewPostgresPreferencesRepository(pool)

	// The interaction handler needs the node session, which needs the
	// gateway adapter, which needs the Discord session. Break the
	// cycle with a late-bound handler; nothing fires before Open.
	var interactionHandler handler.InteractionCreateHandler
	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
		InteractionCreate: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			interactionHandler(s, i)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	adapter := gateway.NewAdapter(session)

	resumeKey := nodeConfig.ResumeKey
	if resumeKey == "" {
		resumeKey, err = uuidGenerator.Next()
		if err != nil {
			return fmt.Errorf("failed to generate resume key: %w", err)
		}
	}

	nodeSession := node.NewSession(node.SessionConfig{
		WebSocketURL:         nodeConfig.WebSocketURL(),
		RestURL:              nodeConfig.RestURL(),
		Authorization:        nodeConfig.Password,
		UserID:               discordConfig.ClientID,
		Shards:               nodeConfig.Shards,
		ResumeKey:            resumeKey,
		ResumeTimeout:        nodeConfig.ResumeTimeoutSeconds,
		ReconnectBaseDelay:   nodeConfig.ReconnectBaseDelay,
		ReconnectMaxAttempts: nodeConfig.ReconnectMaxAttempts,
	}, adapter)
	adapter.BindNode(nodeSession)

	nodeSession.OnTrackEnd(func(p *player.Player, t *track.Track, reason string) {
		if !protocol.MayStartNext(reason) {
			return
		}
		next, ok := p.Queue().TryDequeue()
		if !ok {
			return
		}
		if err := p.Play(context.Background(), next, player.PlayOptions{}); err != nil {
			slog.Error("failed to start next track", "guildID", p.GuildID(), "error", err)
		}
	})
	nodeSession.OnTrackException(func(p *player.Player, t *track.Track, message string) {
		slog.Warn("track failed", "guildID", p.GuildID(), "message", message)
	})
	nodeSession.OnReconnectExhausted(func() {
		slog.Error("gave up reconnecting to the audio node")
	})

	flows := handler.NewFlowManager(nil)
	flows.RegisterFlow(handler.PingFlow)
	flows.RegisterFlow(handler.NewQueueRemoveFlow(nodeSession))

	interactionHandler = handler.MakeInteractionCreateHandler(nodeSession, prefs, adapter, flows)

	if err := nodeSession.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to audio node: %w", err)
	}
	defer func() {
		if err := nodeSession.Close(ctx); err != nil {
			slog.Warn("failed to close node session", "error", err)
		}
	}()

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	guildID := discordConfig.GuildID
	if discordConfig.RunBotGlobally {
		guildID = ""
	}
	if err := handler.EstablishCommands(session, guildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
