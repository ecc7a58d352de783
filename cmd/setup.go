package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/desertthunder/isthis/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// before loads configuration and applies the environment and log level ahead of every command.
//
// A config injected through [RunnerOpts] is used as is; otherwise the --config file is read when it exists.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		configPath := cmd.String("config")
		config, err := r.loadConfig(configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = configPath
	}

	if err := r.config.ApplyEnv(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Log.Level
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)
	return ctx, nil
}

func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidConfig, path, err)
	}
	r.logger.Debug("loaded config", "path", path)
	return config, nil
}

// Setup writes the example configuration to the --config path.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Create an app at https://developer.spotify.com/dashboard with redirect URI %s\n", r.config.Credentials.Spotify.RedirectURI)
	r.writePlain("2. Set client_id and client_secret in %s (or SPOTIFY_ID and SPOTIFY_SECRET in .env)\n", path)
	r.writePlain("3. Run 'isthis auth', then 'isthis search \"artist name\"'\n")
	return nil
}

// options translates configuration and command flags into [tasks.Options].
func (r *Runner) options(cmd *cli.Command) (tasks.Options, error) {
	opts := tasks.DefaultOptions()
	if err := r.config.Validate(); err != nil {
		return opts, err
	}

	p := r.config.Pipeline
	if r.config.User.Market != "" {
		opts.Market = r.config.User.Market
	}
	opts.IncludeGroups = p.IncludeGroups
	opts.MaxAlbumPages = p.MaxAlbumPages
	opts.DedupeTracks = p.DedupeTracks
	opts.UnknownArtist = tasks.UnknownArtistPolicy(p.UnknownArtist)
	opts.BatchSize = p.BatchSize
	opts.Concurrency = p.Concurrency
	opts.RateLimit = p.RateLimit
	opts.Public = p.Public
	if p.Description != "" {
		opts.Description = p.Description
	}

	rankBy, err := tasks.ParseRankStrategy(r.config.Search.RankBy)
	if err != nil {
		return opts, err
	}
	opts.RankBy = rankBy

	if cmd.IsSet("max-album-pages") {
		if opts.MaxAlbumPages = cmd.Int("max-album-pages"); opts.MaxAlbumPages < 0 {
			return opts, fmt.Errorf("%w: --max-album-pages must be >= 0", shared.ErrInvalidArgument)
		}
	}
	if cmd.IsSet("concurrency") {
		if opts.Concurrency = cmd.Int("concurrency"); opts.Concurrency < 1 {
			return opts, fmt.Errorf("%w: --concurrency must be >= 1", shared.ErrInvalidArgument)
		}
	}
	if cmd.IsSet("rate-limit") {
		if opts.RateLimit = cmd.Float("rate-limit"); opts.RateLimit < 0 {
			return opts, fmt.Errorf("%w: --rate-limit must be >= 0", shared.ErrInvalidArgument)
		}
	}
	if cmd.IsSet("unknown-artist") {
		switch policy := tasks.UnknownArtistPolicy(cmd.String("unknown-artist")); policy {
		case tasks.UnknownArtistFail, tasks.UnknownArtistSentinel:
			opts.UnknownArtist = policy
		default:
			return opts, fmt.Errorf("%w: --unknown-artist must be fail or sentinel, got %q", shared.ErrInvalidArgument, policy)
		}
	}
	if cmd.IsSet("rank-by") {
		if opts.RankBy, err = tasks.ParseRankStrategy(cmd.String("rank-by")); err != nil {
			return opts, err
		}
	}
	if cmd.IsSet("dedupe") {
		opts.DedupeTracks = cmd.Bool("dedupe")
	}
	if cmd.Bool("private") {
		opts.Public = false
	}
	return opts, nil
}

// trackCount returns --tracks, falling back to pipeline.default_tracks.
//
// Config files are decoded over the embedded defaults, so an absent key keeps 30 and an explicit 0
// creates an empty playlist.
func (r *Runner) trackCount(cmd *cli.Command) int {
	if cmd.IsSet("tracks") {
		return cmd.Int("tracks")
	}
	return r.config.Pipeline.DefaultTracks
}

// searchLimit returns --limit, falling back to search.limit.
func (r *Runner) searchLimit(cmd *cli.Command) int {
	if cmd.IsSet("limit") {
		return cmd.Int("limit")
	}
	return r.config.Search.Limit
}

// spotify returns the catalog, building and authenticating a [services.SpotifyService] on first use.
//
// Without a saved token the service is returned unauthenticated; the first request then fails with
// [shared.ErrNotAuthenticated] and [Runner.handleSpotifyAuthError] runs the authorization flow.
func (r *Runner) spotify(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := r.config.Credentials.Spotify
	if !creds.HasCredentials() {
		return nil, fmt.Errorf("%w: set client_id and client_secret in %s or %s and %s in .env",
			shared.ErrMissingCredentials, r.configPath, shared.EnvClientID, shared.EnvClientSecret)
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", r.configPath)
	})

	if token := creds.Token(); token != nil {
		if err := svc.OAuthenticate(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to authenticate with saved token: %w", err)
		}
	}

	r.catalog = svc
	return svc, nil
}
