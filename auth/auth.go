package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	pb "github.com/mqy/minichat/proto"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Session is the active identity with its bearer token.
type Session struct {
	Identity pb.Identity
	Token    string
}

// Provider supplies the current session. The real provider lives outside this module.
type Provider interface {
	// Current returns the active session, or ErrUnauthenticated.
	Current(ctx context.Context) (*Session, error)
}

// Verifier authenticates relay API requests.
type Verifier interface {
	// Verify authenticates the request bearer token, return the caller email if known.
	Verify(r *http.Request) (string, error)
}

// BearerToken extracts the token from the `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
