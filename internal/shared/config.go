package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the configuration file.
const (
	EnvClientID     = "SPOTIFY_ID"
	EnvClientSecret = "SPOTIFY_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvUsername     = "ISTHIS_USERNAME"
	EnvMarket       = "ISTHIS_MARKET"
)

// Config represents the application configuration loaded from a TOML (or YAML) file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials" yaml:"credentials"`
	User        UserConfig        `toml:"user" yaml:"user"`
	Pipeline    PipelineConfig    `toml:"pipeline" yaml:"pipeline"`
	Search      SearchConfig      `toml:"search" yaml:"search"`
	Server      ServerConfig      `toml:"server" yaml:"server"`
	Log         LogConfig         `toml:"log" yaml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify" yaml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the most recent OAuth2 token.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" yaml:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri" yaml:"redirect_uri"`
	AccessToken  string `toml:"access_token" yaml:"access_token"`
	RefreshToken string `toml:"refresh_token" yaml:"refresh_token"`
	TokenType    string `toml:"token_type" yaml:"token_type"`
	Expiry       string `toml:"expiry" yaml:"expiry"` // RFC 3339
}

// UserConfig identifies the playlist owner and the catalog market.
type UserConfig struct {
	Username string `toml:"username" yaml:"username"`
	Market   string `toml:"market" yaml:"market"`
}

// PipelineConfig tunes artist discovery, ranking and playlist assembly.
type PipelineConfig struct {
	MaxAlbumPages int      `toml:"max_album_pages" yaml:"max_album_pages"`
	IncludeGroups []string `toml:"include_groups" yaml:"include_groups"`
	DedupeTracks  bool     `toml:"dedupe_tracks" yaml:"dedupe_tracks"`
	UnknownArtist string   `toml:"unknown_artist" yaml:"unknown_artist"`
	BatchSize     int      `toml:"batch_size" yaml:"batch_size"`
	Concurrency   int      `toml:"concurrency" yaml:"concurrency"`
	RateLimit     float64  `toml:"rate_limit" yaml:"rate_limit"`
	DefaultTracks int      `toml:"default_tracks" yaml:"default_tracks"`
	Public        bool     `toml:"public" yaml:"public"`
	Description   string   `toml:"description" yaml:"description"`
}

// SearchConfig controls interactive artist search.
type SearchConfig struct {
	Limit  int    `toml:"limit" yaml:"limit"`
	RankBy string `toml:"rank_by" yaml:"rank_by"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

var (
	unknownArtistPolicies = []string{"fail", "sentinel"}
	rankStrategies        = []string{"followers", "popularity", "relevance"}
	albumGroups           = []string{"album", "single", "appears_on", "compilation"}
)

// LoadConfig reads and parses a configuration file from the specified path.
//
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes config to path, encoding by file extension.
func SaveConfig(path string, config *Config) error {
	var data []byte
	if isYAML(path) {
		out, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = out
	} else {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(config); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = []byte(sb.String())
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file from dotenvPath when it exists and overrides credentials and user settings from the environment.
func (c *Config) ApplyEnv(dotenvPath string) error {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return fmt.Errorf("failed to load %s: %w", dotenvPath, err)
			}
		}
	}

	for env, target := range map[string]*string{
		EnvClientID:     &c.Credentials.Spotify.ClientID,
		EnvClientSecret: &c.Credentials.Spotify.ClientSecret,
		EnvRedirectURI:  &c.Credentials.Spotify.RedirectURI,
		EnvUsername:     &c.User.Username,
		EnvMarket:       &c.User.Market,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
	return nil
}

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.MaxAlbumPages < 0 {
		return fmt.Errorf("%w: pipeline.max_album_pages must be >= 0, got %d", ErrInvalidConfig, p.MaxAlbumPages)
	}
	if p.BatchSize < 1 || p.BatchSize > 50 {
		return fmt.Errorf("%w: pipeline.batch_size must be between 1 and 50, got %d", ErrInvalidConfig, p.BatchSize)
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("%w: pipeline.concurrency must be >= 1, got %d", ErrInvalidConfig, p.Concurrency)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("%w: pipeline.rate_limit must be >= 0", ErrInvalidConfig)
	}
	if p.DefaultTracks < 0 {
		return fmt.Errorf("%w: pipeline.default_tracks must be >= 0, got %d", ErrInvalidConfig, p.DefaultTracks)
	}
	if !slices.Contains(unknownArtistPolicies, p.UnknownArtist) {
		return fmt.Errorf("%w: pipeline.unknown_artist must be one of %v, got %q", ErrInvalidConfig, unknownArtistPolicies, p.UnknownArtist)
	}
	for _, g := range p.IncludeGroups {
		if !slices.Contains(albumGroups, g) {
			return fmt.Errorf("%w: unknown album group %q", ErrInvalidConfig, g)
		}
	}
	if c.Search.Limit < 1 || c.Search.Limit > 50 {
		return fmt.Errorf("%w: search.limit must be between 1 and 50, got %d", ErrInvalidConfig, c.Search.Limit)
	}
	if !slices.Contains(rankStrategies, c.Search.RankBy) {
		return fmt.Errorf("%w: search.rank_by must be one of %v, got %q", ErrInvalidConfig, rankStrategies, c.Search.RankBy)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Map returns the Spotify credentials in the form expected by the Spotify service constructor.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Placeholders shipped in the example configuration.
const (
	placeholderClientID     = "your_spotify_client_id"
	placeholderClientSecret = "your_spotify_client_secret"
)

// HasCredentials reports whether the client ID and secret are set to something other than the example placeholders.
func (s SpotifyConfig) HasCredentials() bool {
	id, secret := strings.TrimSpace(s.ClientID), strings.TrimSpace(s.ClientSecret)
	return id != "" && secret != "" && id != placeholderClientID && secret != placeholderClientSecret
}

// Token rebuilds the stored [oauth2.Token], or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
	}
	if s.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
			token.Expiry = expiry
		}
	}
	return token
}

// Update stores token in the configuration. An empty refresh token keeps the previous one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = ""
	if !token.Expiry.IsZero() {
		s.Expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
