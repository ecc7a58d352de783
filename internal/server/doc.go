// Package server runs the short-lived local HTTP server that completes the Spotify authorization code flow.
//
// # OAuth Callback Handler
//
// [CallbackHandler] serves the redirect URI registered with Spotify. It validates the state parameter
// (CSRF protection), exchanges the authorization code for tokens and delivers exactly one
// [OAuthResult]. Later callbacks are rejected.
//
// # Router
//
// [Router] wraps [http.ServeMux] with method filtering and a [Middleware] stack. The first middleware
// added runs outermost. [Logging] and [Recover] report through charmbracelet/log.
//
// # Lifecycle
//
// [CallbackServer] binds the listener before returning so port conflicts surface immediately, waits
// for the callback with a timeout, and shuts down once a token (or an error) arrives.
package server
