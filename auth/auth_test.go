package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pb "github.com/mqy/minichat/proto"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/messages", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", BearerToken(r))

	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(r))
}

func TestStaticVerifier(t *testing.T) {
	v := &StaticVerifier{Tokens: map[string]string{"t1": "shop1@x.com"}}

	r := httptest.NewRequest("GET", "/", nil)
	_, err := v.Verify(r)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	r.Header.Set("Authorization", "Bearer t2")
	_, err = v.Verify(r)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	r.Header.Set("Authorization", "Bearer t1")
	email, err := v.Verify(r)
	assert.NoError(t, err)
	assert.Equal(t, "shop1@x.com", email)

	open := &StaticVerifier{}
	_, err = open.Verify(r)
	assert.NoError(t, err)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(&Session{Identity: pb.Identity{Email: "shop1@x.com", Role: pb.RoleAdmin}, Token: "t"})
	s, err := p.Current(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "shop1@x.com", s.Identity.Email)

	p.Logout()
	_, err = p.Current(context.Background())
	assert.Equal(t, ErrUnauthenticated, err)
}
