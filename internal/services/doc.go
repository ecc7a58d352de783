// Package services defines the [Catalog] interface over the remote music catalog and implements it for Spotify.
//
// # Catalog Interface
//
// The pipeline in package tasks only consumes [Catalog]. All methods return typed values from package models;
// raw API response shapes never leave this package.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token.
// A callback registered with [SpotifyService.SetTokenRefreshCallback] receives every new token so the CLI can persist it.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Catalog for OAuth providers.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : HTTP 401, reauthorization needed
//   - [shared.ErrAPIRequest] : any other non-2xx response or transport failure
//
// # Limits
//
// Batched track reads accept at most [MaxBatchSize] identifiers and playlist adds at most [MaxAddSize].
// Listings page at [MaxPageSize]. Requests exceeding a limit fail before any HTTP call is made.
package services
