package relay

import (
	"sort"
	"sync"
)

// memory store of the live connections of this relay.
type ConnStore struct {
	sync.RWMutex
	conns map[string]*Conn
}

func newConnStore() *ConnStore {
	return &ConnStore{conns: make(map[string]*Conn)}
}

func (cs *ConnStore) add(c *Conn) {
	cs.Lock()
	cs.conns[c.id] = c
	cs.Unlock()
}

func (cs *ConnStore) del(id string) bool {
	cs.Lock()
	defer cs.Unlock()
	if _, ok := cs.conns[id]; ok {
		delete(cs.conns, id)
		return true
	}
	return false
}

func (cs *ConnStore) getByEmail(email string) []*Conn {
	cs.RLock()
	defer cs.RUnlock()

	var out []*Conn
	for _, c := range cs.conns {
		if c.Email() == email {
			out = append(out, c)
		}
	}
	return out
}

func (cs *ConnStore) all() []*Conn {
	cs.RLock()
	defer cs.RUnlock()
	out := make([]*Conn, 0, len(cs.conns))
	for _, c := range cs.conns {
		out = append(out, c)
	}
	return out
}

// online returns the sorted, de-duplicated emails of registered connections.
func (cs *ConnStore) online() []string {
	cs.RLock()
	set := make(map[string]struct{}, len(cs.conns))
	for _, c := range cs.conns {
		if email := c.Email(); email != "" {
			set[email] = struct{}{}
		}
	}
	cs.RUnlock()

	out := make([]string, 0, len(set))
	for email := range set {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

func (cs *ConnStore) close() {
	for _, c := range cs.all() {
		c.close(ServerStop)
	}
}
