package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/minichat/history"
	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/store"
)

func newAPIRelay(t *testing.T) (string, *store.MemoryMessageStore) {
	dir, err := ParseDirectory("root@x.com", "shop1@x.com, shop2@x.com",
		"tok-root=root@x.com,tok-shop1=shop1@x.com,tok-shop2=shop2@x.com")
	require.NoError(t, err)

	messages := store.NewMemoryMessageStore()
	ctx := context.Background()
	require.NoError(t, messages.Save(ctx, &pb.Message{Id: "1", From: "root@x.com", To: "shop1@x.com", Body: "Hi", SentAt: "2024-01-01T10:00:00.000Z"}))
	require.NoError(t, messages.Save(ctx, &pb.Message{Id: "2", From: "root@x.com", To: "shop2@x.com", Body: "Yo", SentAt: "2024-01-01T10:00:00.000Z"}))

	_, srv := newTestRelay(t, Conf{Directory: dir, Store: messages})
	return srv.URL, messages
}

func TestHistoryEndpoint(t *testing.T) {
	url, _ := newAPIRelay(t)
	c := history.NewClient(url, nil)
	ctx := context.Background()

	msgs, err := c.LoadHistory(ctx, "shop1@x.com", "root@x.com", "tok-shop1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi", msgs[0].Body)

	// the superadmin reads any of its conversations.
	msgs, err = c.LoadHistory(ctx, "root@x.com", "shop2@x.com", "tok-root")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	var authErr *history.AuthError
	_, err = c.LoadHistory(ctx, "shop1@x.com", "root@x.com", "nope")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	_, err = c.LoadHistory(ctx, "shop1@x.com", "root@x.com", "tok-shop2")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)

	msgs, err = c.LoadHistory(ctx, "shop1@x.com", "shop2@x.com", "tok-shop1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistoryEndpointRaw(t *testing.T) {
	url, _ := newAPIRelay(t)

	resp, err := http.Get(url + "/v1/messages?from=shop1@x.com&to=root@x.com")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, url+"/v1/messages?from=shop1@x.com", nil)
	req.Header.Set("Authorization", "Bearer tok-shop1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, url+"/v1/messages?from=shop1@x.com&to=shop2@x.com", nil)
	req.Header.Set("Authorization", "Bearer tok-shop1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `[]`, string(body))
}

func TestPeerDiscoveryEndpoints(t *testing.T) {
	url, _ := newAPIRelay(t)
	c := history.NewClient(url, nil)
	ctx := context.Background()

	root, err := c.SuperadminEmail(ctx, "tok-shop1")
	require.NoError(t, err)
	assert.Equal(t, &pb.Identity{Id: "1", Email: "root@x.com", Role: pb.RoleSuperadmin}, root)

	admins, err := c.AdminUsers(ctx, "tok-root")
	require.NoError(t, err)
	assert.Equal(t, []pb.Identity{
		{Id: "2", Email: "shop1@x.com", Role: pb.RoleAdmin},
		{Id: "3", Email: "shop2@x.com", Role: pb.RoleAdmin},
	}, admins)

	// listing admins needs no token.
	resp, err := http.Get(url + "/v1/get-admin-users")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(url + "/v1/superadmin-email")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
