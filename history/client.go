package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"

	pb "github.com/mqy/minichat/proto"
)

const (
	messagesPath        = "/v1/messages"
	superadminEmailPath = "/v1/superadmin-email"
	adminUsersPath      = "/v1/get-admin-users"

	// response bodies larger than this are rejected.
	maxBodyBytes = 8 << 20
)

// AuthError means the bearer token is missing or was rejected.
type AuthError struct {
	Endpoint   string
	StatusCode int // 0 when no request was sent
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: missing bearer token", e.Endpoint)
	}
	return fmt.Sprintf("%s: unauthorized, status %d", e.Endpoint, e.StatusCode)
}

// NetworkError means the call failed in transport, or the server answered with an unusable response.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client calls the history and peer discovery endpoints. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client of the API at baseURL. A nil httpClient uses a client with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// LoadHistory fetches the transcript between self and peer, in arbitrary order.
func (c *Client) LoadHistory(ctx context.Context, self, peer, token string) ([]*pb.Message, error) {
	q := url.Values{}
	q.Set("from", self)
	q.Set("to", peer)

	// decoded one by one: a bad element is dropped, not the whole transcript.
	var raws []json.RawMessage
	if err := c.get(ctx, messagesPath, q, token, &raws); err != nil {
		return nil, err
	}

	out := make([]*pb.Message, 0, len(raws))
	for _, raw := range raws {
		var m pb.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			glog.Errorf("history: drop message %s: %v", raw, err)
			continue
		}
		if err := pb.ValidateMessage(&m); err != nil {
			glog.Errorf("history: drop message: %v", err)
			continue
		}
		out = append(out, &m)
	}
	glog.V(5).Infof("history: loaded %d messages between %s and %s", len(out), self, peer)
	return out, nil
}

// SuperadminEmail discovers the superadmin, the only peer of an admin.
func (c *Client) SuperadminEmail(ctx context.Context, token string) (*pb.Identity, error) {
	var id pb.Identity
	if err := c.get(ctx, superadminEmailPath, nil, token, &id); err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, &NetworkError{Endpoint: superadminEmailPath, Err: fmt.Errorf("empty superadmin email")}
	}
	id.Role = pb.RoleSuperadmin
	return &id, nil
}

// AdminUsers lists the admins, the peers of the superadmin.
func (c *Client) AdminUsers(ctx context.Context, token string) ([]pb.Identity, error) {
	var ids []pb.Identity
	if err := c.get(ctx, adminUsersPath, nil, token, &ids); err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id.Email == "" {
			continue
		}
		id.Role = pb.RoleAdmin
		out = append(out, id)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, token string, out interface{}) error {
	if token == "" {
		return &AuthError{Endpoint: path}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Endpoint: path, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &NetworkError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %v", err)}
	}
	return nil
}
