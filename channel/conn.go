package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the channel uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a connection to the relay.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials the relay with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewBearerDialer dials with an `Authorization: Bearer <token>` header.
func NewBearerDialer(token string) *WebsocketDialer {
	return &WebsocketDialer{Header: http.Header{"Authorization": []string{"Bearer " + token}}}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		}
	}
	conn, _, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// link is one live connection with its outbound queue.
type link struct {
	conn  Conn
	sendC chan []byte
	doneC chan struct{}
	once  sync.Once

	// email announced on this connection, guarded by the Channel lock.
	registered string
}

func newLink(conn Conn, buffer int) *link {
	return &link{
		conn:  conn,
		sendC: make(chan []byte, buffer),
		doneC: make(chan struct{}),
	}
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.doneC)
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		l.conn.Close()
	})
}

// enqueue never blocks.
func (l *link) enqueue(frame []byte) error {
	select {
	case <-l.doneC:
		return ErrNotConnected
	default:
	}
	select {
	case l.sendC <- frame:
		return nil
	case <-l.doneC:
		return ErrNotConnected
	default:
		return ErrSendBufferFull
	}
}
