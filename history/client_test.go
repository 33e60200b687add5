package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
)

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "shop1@x.com", r.URL.Query().Get("from"))
		assert.Equal(t, "root@x.com", r.URL.Query().Get("to"))
		json.NewEncoder(w).Encode([]*pb.Message{
			{From: "root@x.com", To: "shop1@x.com", Body: "Hi", SentAt: "2024-01-01T10:00:00.000Z"},
			{From: "root@x.com", To: "root@x.com", Body: "invalid"},
		})
	})
	mux.HandleFunc("/v1/superadmin-email", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1","email":"root@x.com"}`))
	})
	mux.HandleFunc("/v1/get-admin-users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"2","email":"shop1@x.com","name":"Shop 1"},{"id":"3","email":""}]`))
	})
	mux.HandleFunc("/broken/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	})
	mux.HandleFunc("/mixed/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"from":"root@x.com","to":"shop1@x.com","body":"Hi","sentAt":"2024-01-01T10:00:00.000Z"},
			{"from":"shop1@x.com","to":"root@x.com","body":"epoch","sentAt":1704103200000},
			{"from":"shop1@x.com","to":"root@x.com","body":42,"sentAt":"2024-01-01T10:02:00.000Z"},
			{"from":"shop1@x.com","to":"root@x.com","body":"odd","sentAt":{"at":1}}
		]`))
	})
	mux.HandleFunc("/down/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadHistory(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/", nil)

	msgs, err := c.LoadHistory(context.Background(), "shop1@x.com", "root@x.com", "good")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi", msgs[0].Body)
}

func TestLoadHistoryDropsBadElements(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/mixed", nil)

	msgs, err := c.LoadHistory(context.Background(), "shop1@x.com", "root@x.com", "good")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hi", msgs[0].Body)
	assert.Equal(t, "epoch", msgs[1].Body)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", msgs[1].SentAt)
	assert.Equal(t, "odd", msgs[2].Body)
	_, ok := msgs[2].Time()
	assert.False(t, ok)
}

func TestLoadHistoryAuthError(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL, srv.Client())

	_, err := c.LoadHistory(context.Background(), "shop1@x.com", "root@x.com", "")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 0, authErr.StatusCode)

	_, err = c.LoadHistory(context.Background(), "shop1@x.com", "root@x.com", "bad")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestLoadHistoryNetworkError(t *testing.T) {
	srv := newServer(t)
	var netErr *NetworkError

	_, err := NewClient(srv.URL+"/down", nil).LoadHistory(context.Background(), "a@x.com", "b@x.com", "good")
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)

	_, err = NewClient(srv.URL+"/broken", nil).LoadHistory(context.Background(), "a@x.com", "b@x.com", "good")
	require.True(t, errors.As(err, &netErr))

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = NewClient(closed.URL, nil).LoadHistory(context.Background(), "a@x.com", "b@x.com", "good")
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 0, netErr.StatusCode)
}

func TestPeerDiscovery(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL, nil)

	root, err := c.SuperadminEmail(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &pb.Identity{Id: "1", Email: "root@x.com", Role: pb.RoleSuperadmin}, root)

	admins, err := c.AdminUsers(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, []pb.Identity{{Id: "2", Email: "shop1@x.com", Name: "Shop 1", Role: pb.RoleAdmin}}, admins)
}
