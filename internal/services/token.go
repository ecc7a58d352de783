package services

import (
	"sync"

	"golang.org/x/oauth2"
)

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every token whose access token differs from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

// Token implements [oauth2.TokenSource].
func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.notify(token)
	}
	return token, nil
}

// notify runs the callback, containing any panic so a failed save never breaks a request.
func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	defer func() { _ = recover() }()
	r.callback(token)
}
