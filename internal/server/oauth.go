package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/isthis/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultCallbackPath is served when the redirect URI carries no path.
const DefaultCallbackPath = "/callback"

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// CallbackHandler handles the OAuth2 redirect of the authorization code flow.
// Implements the [Handler] interface for registration with a [Router].
type CallbackHandler struct {
	config  *oauth2.Config
	state   string
	path    string
	results chan OAuthResult
	once    sync.Once

	mu   sync.Mutex
	seen bool
}

// NewCallbackHandler creates a handler serving the path of config.RedirectURL.
// The state token should be cryptographically random; see [shared.GenerateState].
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:  config,
		state:   state,
		path:    CallbackPath(config.RedirectURL),
		results: make(chan OAuthResult, 1),
	}
}

// CallbackPath extracts the path component of a redirect URI.
func CallbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultCallbackPath
	}
	return u.Path
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates the state, exchanges the code and delivers the result.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.seen {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.seen = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.deliver(OAuthResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.deliver(OAuthResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.deliver(OAuthResult{Err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.deliver(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	successPage.Execute(w, nil)
}

// deliver publishes the first result and closes the channel.
func (h *CallbackHandler) deliver(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one [OAuthResult], after which the channel is closed.
func (h *CallbackHandler) Result() <-chan OAuthResult {
	return h.results
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>isthis: authorized</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
           display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
    h1 { color: #1DB954; }
  </style>
</head>
<body>
  <div>
    <h1>Authorized</h1>
    <p>isthis can now create playlists on your behalf. Return to the terminal.</p>
  </div>
</body>
</html>
`))
