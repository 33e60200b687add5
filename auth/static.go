package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// StaticProvider serves a fixed session, e.g. one built from command line flags.
type StaticProvider struct {
	sync.RWMutex
	session *Session
}

func NewStaticProvider(s *Session) *StaticProvider {
	return &StaticProvider{session: s}
}

func (p *StaticProvider) Current(ctx context.Context) (*Session, error) {
	p.RLock()
	defer p.RUnlock()
	if p.session == nil || p.session.Identity.Email == "" {
		return nil, ErrUnauthenticated
	}
	cp := *p.session
	return &cp, nil
}

// Logout drops the session; later calls to Current fail.
func (p *StaticProvider) Logout() {
	p.Lock()
	p.session = nil
	p.Unlock()
}

// StaticVerifier accepts tokens from a fixed token -> email table.
// With an empty table any non-empty token is accepted.
type StaticVerifier struct {
	Tokens map[string]string
}

func (v *StaticVerifier) Verify(r *http.Request) (string, error) {
	token := BearerToken(r)
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrUnauthenticated)
	}
	if len(v.Tokens) == 0 {
		return "", nil
	}
	email, ok := v.Tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown token", ErrUnauthenticated)
	}
	return email, nil
}
