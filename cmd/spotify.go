package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/isthis/internal/server"
	"github.com/desertthunder/isthis/internal/services"
	"github.com/desertthunder/isthis/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// oauthTimeout bounds how long the callback server waits for the browser.
const oauthTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if !creds.HasCredentials() {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	spotifyService, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: isthis search \"artist name\"\n")

	return nil
}

// SpotifyReauth performs the full OAuth2 flow again and installs the new token on srv.
func (r *Runner) SpotifyReauth(ctx context.Context, srv services.OAuthService) error {
	token, err := r.doOAuth(ctx, srv, "reauthorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	if err := srv.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("✓ Reauthorization successful")
	r.writePlain("✓ New tokens saved to %s\n", r.configPath)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	callback := server.NewCallbackServer(server.NewCallbackHandler(oauthSrv.GetOAuthConfig(), state), r.logger)
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	if err := callback.Start(addr); err != nil {
		return nil, err
	}
	r.logger.Infof("started OAuth server for %s at %v", prefix, callback.Addr())

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err, "url", authURL)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", oauthTimeout)

	token, err := callback.Wait(ctx, oauthTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// handleSpotifyAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
//
// Reports true when reauthorization was attempted; the error is then the reauthorization failure, if any.
// A partially populated playlist is never retried, since a retry would create a second playlist.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) && !errors.Is(err, shared.ErrNotAuthenticated) {
		return false, err
	}
	if errors.Is(err, shared.ErrPlaylistPopulate) {
		return false, err
	}

	oauthSrv, ok := r.catalog.(services.OAuthService)
	if !ok {
		return true, fmt.Errorf("catalog does not support reauthorization: %w", err)
	}

	r.writePlainln("⚠ Spotify authorization required. Starting reauthorization...")

	if reauthErr := r.SpotifyReauth(ctx, oauthSrv); reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...")
	return true, nil
}
