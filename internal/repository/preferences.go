package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuildPreferences holds per-guild playback settings that survive
// restarts. Volume is applied to the guild's player when it is created.
type GuildPreferences struct {
	GuildID        string
	DefaultVolume  int
	AnnounceTracks bool
}

// DefaultPreferences are used for guilds that never saved any.
func DefaultPreferences(guildID string) GuildPreferences {
	return GuildPreferences{
		GuildID:        guildID,
		DefaultVolume:  100,
		AnnounceTracks: true,
	}
}

type PreferencesStore interface {
	Get(ctx context.Context, guildID string) (GuildPreferences, error)
	Save(ctx context.Context, prefs GuildPreferences) error
}

type PostgresPreferencesRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPreferencesRepository(db *pgxpool.Pool) *PostgresPreferencesRepository {
	return &PostgresPreferencesRepository{db: db}
}

// Get returns the guild's saved preferences, or the defaults if the
// guild never saved any.
func (r *PostgresPreferencesRepository) Get(ctx context.Context, guildID string) (GuildPreferences, error) {
	const query = `
	SELECT guild_id, default_volume, announce_tracks
	FROM guild_preferences
	WHERE guild_id = $1
	`

	var prefs GuildPreferences
	row := r.db.QueryRow(ctx, query, guildID)
	if err := row.Scan(&prefs.GuildID, &prefs.DefaultVolume, &prefs.AnnounceTracks); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPreferences(guildID), nil
		}
		return GuildPreferences{}, fmt.Errorf("failed to query guild preferences: %w", err)
	}
	return prefs, nil
}

func (r *PostgresPreferencesRepository) Save(ctx context.Context, prefs GuildPreferences) error {
	const query = `
	INSERT INTO guild_preferences (guild_id, default_volume, announce_tracks)
	VALUES ($1, $2, $3)
	ON CONFLICT (guild_id) DO UPDATE SET
		default_volume = EXCLUDED.default_volume,
		announce_tracks = EXCLUDED.announce_tracks,
		updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query, prefs.GuildID, prefs.DefaultVolume, prefs.AnnounceTracks)
	if err != nil {
		return fmt.Errorf("failed to save guild preferences: %w", err)
	}
	return nil
}

var _ PreferencesStore = (*PostgresPreferencesRepository)(nil)
