package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	pb "github.com/mqy/minichat/proto"
)

type CloseCause int

const (
	ReadError  CloseCause = 1
	WriteError CloseCause = 2
	PingError  CloseCause = 3
	ServerStop CloseCause = 4
	SlowReader CloseCause = 5
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 3 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 20 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 25 * time.Second

	// websocket max frame size to read.
	readLimit = 16 * 1024

	dataChanSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the relay is a development server, any origin may connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn is one client connection. It is registered once the client sends `register`.
type Conn struct {
	sync.Mutex

	id      string
	ip      string
	email   string
	hub     *Hub
	ws      *websocket.Conn
	limiter *rate.Limiter

	// caller is the email bound to the bearer token, empty when tokens are not bound.
	caller string

	dataChan chan []byte
	closing  bool
}

func (c *Conn) String() string {
	return fmt.Sprintf("conn{id: %s, ip: %s, email: %s}", c.id, c.ip, c.Email())
}

func (c *Conn) Email() string {
	c.Lock()
	defer c.Unlock()
	return c.email
}

func (c *Conn) setEmail(email string) (old string) {
	c.Lock()
	old, c.email = c.email, email
	c.Unlock()
	return old
}

func (c *Conn) close(cause CloseCause) {
	c.Lock()
	if c.closing {
		c.Unlock()
		return
	}
	c.closing = true
	close(c.dataChan)
	c.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
	c.ws.Close()

	glog.V(5).Infof("relay: %s closed, cause: %d", c, cause)
	if cause != ServerStop {
		c.hub.delConn(c)
	}
}

// send queues a frame. A peer that does not drain its queue is disconnected.
func (c *Conn) send(frame []byte) {
	c.Lock()
	if c.closing {
		c.Unlock()
		return
	}
	select {
	case c.dataChan <- frame:
		c.Unlock()
		return
	default:
	}
	c.Unlock()

	glog.Errorf("relay: %s: send queue full, closing", c)
	go c.close(SlowReader)
}

func (c *Conn) recvLoop() {
	defer func() { glog.V(5).Infof("relay: recvLoop(): exited, %s", c) }()

	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, frame, err := c.ws.ReadMessage()
		if err != nil {
			glog.V(2).Infof("relay: recvLoop(): read error: %v, %s", err, c)
			c.close(ReadError)
			return
		}
		glog.V(5).Infof("relay: recvLoop(): incoming frame: %s", frame)

		if msgType != websocket.TextMessage {
			glog.Errorf("relay: recvLoop(): unexpected message type: %d", msgType)
			droppedFrames.WithLabelValues("binary").Inc()
			continue
		}
		if !c.limiter.Allow() {
			droppedFrames.WithLabelValues("rate_limited").Inc()
			continue
		}
		c.handle(frame)
	}
}

// handle dispatches one client frame. Bad frames are dropped, the connection stays open.
func (c *Conn) handle(frame []byte) {
	var env pb.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		glog.Errorf("relay: %s: bad frame: %v", c, err)
		droppedFrames.WithLabelValues("malformed").Inc()
		return
	}
	inFrames.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case pb.EventRegister:
		var req pb.RegisterReq
		if err := json.Unmarshal(env.Data, &req); err != nil || req.UserId == "" {
			glog.Errorf("relay: %s: bad register: %s", c, env.Data)
			droppedFrames.WithLabelValues("malformed").Inc()
			return
		}
		if c.caller != "" && c.caller != req.UserId {
			glog.Errorf("relay: %s: token of %s cannot register %s", c, c.caller, req.UserId)
			droppedFrames.WithLabelValues("unauthorized").Inc()
			return
		}
		c.hub.register(c, req.UserId)
	case pb.EventSendMessage:
		var m pb.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			droppedFrames.WithLabelValues("malformed").Inc()
			return
		}
		if err := c.checkSender(m.From); err != nil {
			glog.Errorf("relay: %s: drop message: %v", c, err)
			droppedFrames.WithLabelValues("unauthorized").Inc()
			return
		}
		if err := pb.ValidateMessage(&m); err != nil {
			glog.Errorf("relay: %s: drop message: %v", c, err)
			droppedFrames.WithLabelValues("malformed").Inc()
			return
		}
		if len(m.Body) > c.hub.conf.MaxMsgBytes {
			glog.Errorf("relay: %s: drop message: body exceeds %d bytes", c, c.hub.conf.MaxMsgBytes)
			droppedFrames.WithLabelValues("too_large").Inc()
			return
		}
		c.hub.route(&m)
	case pb.EventTyping:
		var sig pb.TypingSignal
		if err := json.Unmarshal(env.Data, &sig); err != nil || pb.ValidateTyping(&sig) != nil {
			droppedFrames.WithLabelValues("malformed").Inc()
			return
		}
		if err := c.checkSender(sig.From); err != nil {
			droppedFrames.WithLabelValues("unauthorized").Inc()
			return
		}
		c.hub.forwardTyping(&sig)
	default:
		glog.Errorf("relay: %s: unsupported event %q", c, env.Event)
		droppedFrames.WithLabelValues("unsupported").Inc()
	}
}

func (c *Conn) checkSender(from string) error {
	email := c.Email()
	if email == "" {
		return fmt.Errorf("not registered")
	}
	if from != email {
		return fmt.Errorf("from %s does not match registered %s", from, email)
	}
	return nil
}

func (c *Conn) sendLoop() {
	pingTicker := time.NewTicker(pingPeriod)
	defer func() {
		pingTicker.Stop()
		glog.V(5).Infof("relay: sendLoop(): exited, %s", c)
	}()

	for {
		select {
		case frame, ok := <-c.dataChan:
			if !ok { // chan was closed
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				glog.Errorf("relay: sendLoop(): write error: %v, %s", err, c)
				go c.close(WriteError)
				return
			}
		case <-pingTicker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				glog.Errorf("relay: sendLoop(): ping error: %v, %s", err, c)
				go c.close(PingError)
				return
			}
		}
	}
}
