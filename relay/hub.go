package relay

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pborman/uuid"
	"golang.org/x/time/rate"

	pb "github.com/mqy/minichat/proto"
)

// Hub serves the live channel: it binds emails to connections, routes messages and typing
// signals to the connections of the recipient, and broadcasts presence.
type Hub struct {
	conf     *Conf
	conns    *ConnStore
	archiver *archiver

	wg sync.WaitGroup
}

// NewHub creates a `Hub`. Zero fields of conf get defaults.
func NewHub(conf Conf) *Hub {
	conf.setDefaults()
	h := &Hub{
		conf:  &conf,
		conns: newConnStore(),
	}
	if conf.Archive != nil {
		h.archiver = newArchiver(conf.Archive, conf.MaxMsgBytes)
	}
	return h
}

// Run runs the background loops until ctx is done, then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	glog.Infof("relay: hub is running")

	if h.archiver != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.archiver.run(ctx)
		}()
	}
	if h.conf.TTLDays > 0 {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.deleteLoop(ctx)
		}()
	}

	<-ctx.Done()

	glog.Infof("relay: close connections ...")
	h.conns.close()
	h.wg.Wait()
	glog.Infof("relay: hub stopped")
}

// ServeHTTP upgrades a websocket request from a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, err := h.conf.Verifier.Verify(r)
	if err != nil {
		glog.V(2).Infof("relay: ServeHTTP(): %v, remote: %s", err, getRemoteIP(r))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	// If the upgrade fails, then Upgrade replies to the client with an HTTP error response.
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("relay: ServeHTTP(): upgrade error: %v", err)
		return
	}

	c := &Conn{
		id:       strings.ReplaceAll(uuid.New(), "-", ""),
		ip:       getRemoteIP(r),
		caller:   caller,
		hub:      h,
		ws:       ws,
		limiter:  rate.NewLimiter(h.conf.RateLimit, h.conf.RateBurst),
		dataChan: make(chan []byte, dataChanSize),
	}
	h.conns.add(c)
	connsGauge.Inc()
	glog.V(5).Infof("relay: new %s", c)

	go c.recvLoop()
	go c.sendLoop()
}

func (h *Hub) delConn(c *Conn) {
	if !h.conns.del(c.id) {
		return
	}
	connsGauge.Dec()
	if c.Email() != "" {
		h.broadcastPresence()
	}
}

// register binds email to c and broadcasts the new presence snapshot.
func (h *Hub) register(c *Conn, email string) {
	if old := c.setEmail(email); old != "" && old != email {
		glog.Infof("relay: %s re-registered, was %s", c, old)
	}
	glog.V(2).Infof("relay: registered %s", c)
	h.broadcastPresence()
}

func (h *Hub) broadcastPresence() {
	online := h.conns.online()
	frame, err := pb.Encode(pb.EventOnlineUsers, online)
	if err != nil {
		glog.Errorf("relay: encode presence: %v", err)
		return
	}
	for _, c := range h.conns.all() {
		c.send(frame)
	}
	outFrames.WithLabelValues(pb.EventOnlineUsers).Inc()
}

// route stores, archives and delivers m to the recipient. The sender does not get it back.
func (h *Hub) route(m *pb.Message) {
	if m.SentAt == "" {
		m.SentAt = pb.FormatSentAt(time.Now())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := h.conf.Store.Save(ctx, m); err != nil {
		glog.Errorf("relay: save message %s -> %s error: %v", m.From, m.To, err)
	}
	cancel()

	if h.archiver != nil {
		h.archiver.archive(m)
	}

	frame, err := pb.Encode(pb.EventReceiveMessage, m)
	if err != nil {
		glog.Errorf("relay: encode message: %v", err)
		return
	}
	targets := h.conns.getByEmail(m.To)
	for _, c := range targets {
		c.send(frame)
	}
	routedMessages.WithLabelValues(delivery(len(targets))).Inc()
	glog.V(5).Infof("relay: routed %s -> %s to %d connections", m.From, m.To, len(targets))
}

func (h *Hub) forwardTyping(sig *pb.TypingSignal) {
	frame, err := pb.Encode(pb.EventTyping, sig)
	if err != nil {
		return
	}
	for _, c := range h.conns.getByEmail(sig.To) {
		c.send(frame)
	}
	outFrames.WithLabelValues(pb.EventTyping).Inc()
}

// deleteLoop deletes outdated messages.
func (h *Hub) deleteLoop(ctx context.Context) {
	glog.Info("relay: delete loop enter")

	ticker := time.NewTicker(h.conf.CleanInterval)
	defer func() {
		ticker.Stop()
		glog.Info("relay: delete loop exit")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			n, err := h.conf.Store.DeleteOutdated(ctx, h.conf.TTLDays)
			if err == nil {
				glog.Infof("relay: deleted %d outdated messages, took %s", n, time.Since(start))
			} else {
				glog.Errorf("relay: delete outdated messages error: %v", err)
			}
		}
	}
}

// Online returns the registered emails.
func (h *Hub) Online() []string {
	return h.conns.online()
}

func delivery(n int) string {
	if n == 0 {
		return "offline"
	}
	return "delivered"
}

func getRemoteIP(r *http.Request) string {
	ip := r.Header.Get("X-REAL-IP")
	if ip == "" {
		if ips := r.Header.Get("X-FORWARDED-FOR"); ips != "" {
			for _, x := range strings.Split(ips, ",") {
				if x = strings.TrimSpace(x); x != "" {
					ip = x
				}
			}
		}
	}
	if ip == "" {
		ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	}
	return ip
}
