package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/glizzus/tempo/internal/config"
	"github.com/glizzus/tempo/internal/datalayer"
	"github.com/glizzus/tempo/internal/node"
	"github.com/glizzus/tempo/internal/presenters"
	"github.com/glizzus/tempo/internal/repository"
	"github.com/glizzus/tempo/internal/track"
	"github.com/urfave/cli/v2"
)

func newRestClient() (*node.RestClient, error) {
	nodeConfig, err := config.NewNodeConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return node.NewRestClient(nodeConfig.RestURL(), nodeConfig.Password), nil
}

func newPreferencesRepo(ctx context.Context) (*repository.PostgresPreferencesRepository, error) {
	postgresConfig, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pool, err := datalayer.NewPostgresPool(ctx, postgresConfig.DSN())
	if err != nil {
		return nil, err
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		return nil, err
	}
	return repository.NewPostgresPreferencesRepository(pool), nil
}

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "tempo-cli",
		Description: "A development CLI tool for poking the audio node and database without Discord",
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "Decode a base64 track descriptor and print its fields",
				ArgsUsage: "<descriptor>",
				Action: func(c *cli.Context) error {
					hash := c.Args().First()
					if hash == "" {
						return cli.Exit("Please provide a track descriptor", 1)
					}

					t, err := track.Decode(hash)
					if err != nil {
						return cli.Exit("Failed to decode descriptor: "+err.Error(), 1)
					}

					fmt.Printf("Title:    %s\n", t.Title)
					fmt.Printf("Author:   %s\n", t.Author)
					fmt.Printf("ID:       %s\n", t.ID)
					fmt.Printf("Duration: %s\n", presenters.FormatDuration(t.DurationMs, t.IsStream))
					fmt.Printf("Stream:   %v\n", t.IsStream)
					if t.URL != "" {
						fmt.Printf("URL:      %s\n", t.URL)
					}
					return nil
				},
			},
			{
				Name:  "search",
				Usage: "Resolve a query against the audio node",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Usage:    "A URL or search terms",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					client, err := newRestClient()
					if err != nil {
						return cli.Exit("Failed to load node config: "+err.Error(), 1)
					}

					result, err := client.LoadTracks(c.Context, c.String("query"))
					if err != nil {
						return cli.Exit("Failed to load tracks: "+err.Error(), 1)
					}

					log.Printf("Load type: %s", result.LoadType)
					for _, lt := range result.Tracks {
						log.Printf("%s by %s [%s]", lt.Info.Title, lt.Info.Author, presenters.FormatDuration(lt.Info.Length, lt.Info.IsStream))
					}
					return nil
				},
			},
			{
				Name:  "prefs",
				Usage: "Inspect and change guild preferences",
				Subcommands: []*cli.Command{
					{
						Name:  "get",
						Usage: "Print a guild's preferences",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "guild-id",
								Usage:    "ID of the guild",
								Required: true,
							},
						},
						Action: func(c *cli.Context) error {
							repo, err := newPreferencesRepo(c.Context)
							if err != nil {
								return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
							}

							prefs, err := repo.Get(c.Context, c.String("guild-id"))
							if err != nil {
								return cli.Exit("Failed to get preferences: "+err.Error(), 1)
							}

							log.Printf("%+v", prefs)
							return nil
						},
					},
					{
						Name:      "set-volume",
						Usage:     "Set a guild's default volume",
						ArgsUsage: "<volume>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "guild-id",
								Usage:    "ID of the guild",
								Required: true,
							},
						},
						Action: func(c *cli.Context) error {
							volume, err := strconv.Atoi(c.Args().First())
							if err != nil {
								return cli.Exit("Invalid volume: "+c.Args().First(), 1)
							}

							repo, err := newPreferencesRepo(c.Context)
							if err != nil {
								return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
							}

							prefs, err := repo.Get(c.Context, c.String("guild-id"))
							if err != nil {
								return cli.Exit("Failed to get preferences: "+err.Error(), 1)
							}

							prefs.DefaultVolume = volume
							if err := repo.Save(c.Context, prefs); err != nil {
								return cli.Exit("Failed to save preferences: "+err.Error(), 1)
							}

							log.Println("Preferences updated.")
							return nil
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
