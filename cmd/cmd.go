// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

// App returns the root command. Configuration is loaded by [Runner.before] ahead of every subcommand.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:      "isthis",
		Usage:     "Build \"Is This <Artist>\" playlists from an artist's most popular Spotify tracks",
		Version:   "0.1.0",
		Writer:    r.output,
		ErrWriter: r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (.toml, .yaml or .yml)",
				Value:   "config.toml",
				Sources: cli.EnvVars("ISTHIS_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with SPOTIFY_ID and SPOTIFY_SECRET",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides log.level",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

// pipelineFlags are shared by every command that builds a playlist.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "tracks",
			Aliases: []string{"n"},
			Usage:   "Number of tracks in the playlist (default pipeline.default_tracks)",
		},
		&cli.BoolFlag{
			Name:  "private",
			Usage: "Create a private playlist",
		},
		&cli.BoolFlag{
			Name:  "dedupe",
			Usage: "Drop tracks listed on more than one album",
		},
		&cli.IntFlag{
			Name:  "max-album-pages",
			Usage: "Album listing pages to read, 0 for all",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Catalog requests in flight",
		},
		&cli.FloatFlag{
			Name:  "rate-limit",
			Usage: "Catalog requests per second, 0 for unlimited",
		},
		&cli.StringFlag{
			Name:  "unknown-artist",
			Usage: "Behaviour when the artist is credited nowhere (fail, sentinel)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Rank tracks without creating a playlist",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the ranking to a file",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Format for --output (json, csv, markdown, txt); inferred from the extension when empty",
		},
	}
}

// createCommand builds a playlist for an artist given by ID, URI or URL.
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an \"Is This\" playlist for an artist",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "artist",
				Aliases:  []string{"a"},
				Usage:    "Artist ID, spotify:artist: URI or open.spotify.com URL",
				Required: true,
			},
		}, pipelineFlags()...),
		Action: r.Create,
	}
}

// searchCommand resolves a free-text query to an artist before building the playlist.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for an artist, pick one and create its playlist",
		ArgsUsage: "<query>",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of candidates (default search.limit)",
			},
			&cli.StringFlag{
				Name:  "rank-by",
				Usage: "Candidate order (followers, popularity, relevance)",
			},
			&cli.IntFlag{
				Name:    "select",
				Aliases: []string{"s"},
				Usage:   "Pick candidate N (1-based) without prompting",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Only list candidates",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Pick the artist in an interactive terminal UI",
			},
		}, pipelineFlags()...),
		Action: r.Search,
	}
}

// authCommand runs the Spotify authorization code flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize isthis with Spotify and save the tokens",
		Action: r.SpotifyAuth,
	}
}

// setupCommand writes an example configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write an example configuration file to --config",
		Action: r.Setup,
	}
}
