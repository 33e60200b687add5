package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"

	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/store"
)

// PeerState is one row of the peer list.
type PeerState struct {
	Identity pb.Identity
	Online   bool
	Unread   int
	Selected bool
}

// Registry tracks online peers and unread counters for the superadmin peer list.
// Unread counters are persisted on every mutation; the online set is never persisted.
type Registry struct {
	sync.RWMutex

	store    store.IUnreadStore
	online   map[string]struct{}
	unread   map[string]int
	selected string

	// version counts mutations; saved is the version last written, guarded by saveMu.
	saveMu  sync.Mutex
	version uint64
	saved   uint64

	listeners []func()
}

// New loads the saved counters from s.
func New(s store.IUnreadStore) (*Registry, error) {
	counts, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("registry: %v", err)
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	return &Registry{
		store:  s,
		online: make(map[string]struct{}),
		unread: counts,
	}, nil
}

// OnChange registers fn to be called after any change, without the lock held.
func (r *Registry) OnChange(fn func()) {
	r.Lock()
	r.listeners = append(r.listeners, fn)
	r.Unlock()
}

func (r *Registry) notify() {
	r.RLock()
	listeners := append([]func(){}, r.listeners...)
	r.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnPresenceUpdate replaces the online set.
func (r *Registry) OnPresenceUpdate(online pb.PresenceSnapshot) {
	set := make(map[string]struct{}, len(online))
	for _, email := range online {
		set[email] = struct{}{}
	}
	r.Lock()
	r.online = set
	r.Unlock()
	r.notify()
}

// OnInboundMessage counts m as unread unless its sender is the selected peer.
func (r *Registry) OnInboundMessage(m *pb.Message) {
	if m == nil || m.From == "" {
		return
	}
	r.Lock()
	if m.From == r.selected {
		r.Unlock()
		return
	}
	r.unread[m.From]++
	version, snapshot := r.snapshot()
	r.Unlock()

	r.persist(version, snapshot)
	r.notify()
}

// SelectPeer selects email and resets its unread counter.
func (r *Registry) SelectPeer(email string) {
	r.Lock()
	r.selected = email
	_, had := r.unread[email]
	delete(r.unread, email)
	var version uint64
	var snapshot map[string]int
	if had {
		version, snapshot = r.snapshot()
	}
	r.Unlock()

	if had {
		r.persist(version, snapshot)
	}
	r.notify()
}

// ClearSelection deselects the current peer, e.g. when its conversation is closed.
func (r *Registry) ClearSelection() {
	r.Lock()
	r.selected = ""
	r.Unlock()
	r.notify()
}

// snapshot must be called with the lock held.
func (r *Registry) snapshot() (uint64, map[string]int) {
	r.version++
	out := make(map[string]int, len(r.unread))
	for k, v := range r.unread {
		out[k] = v
	}
	return r.version, out
}

// persist saves counts unless a later snapshot was already saved.
func (r *Registry) persist(version uint64, counts map[string]int) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	if version <= r.saved {
		return
	}
	r.saved = version
	if err := r.store.Save(counts); err != nil {
		// Keep the in-memory counters, the next mutation retries.
		glog.Errorf("registry: save unread counts error: %v", err)
	}
}

func (r *Registry) Unread(email string) int {
	r.RLock()
	defer r.RUnlock()
	return r.unread[email]
}

func (r *Registry) IsOnline(email string) bool {
	r.RLock()
	defer r.RUnlock()
	_, ok := r.online[email]
	return ok
}

func (r *Registry) Selected() string {
	r.RLock()
	defer r.RUnlock()
	return r.selected
}

// Online returns the sorted online set.
func (r *Registry) Online() []string {
	r.RLock()
	out := make([]string, 0, len(r.online))
	for email := range r.online {
		out = append(out, email)
	}
	r.RUnlock()
	sort.Strings(out)
	return out
}

// Peers decorates a discovered peer list with presence and unread state, keeping the list order.
func (r *Registry) Peers(peers []pb.Identity) []PeerState {
	r.RLock()
	defer r.RUnlock()
	out := make([]PeerState, 0, len(peers))
	for _, p := range peers {
		_, online := r.online[p.Email]
		out = append(out, PeerState{
			Identity: p,
			Online:   online,
			Unread:   r.unread[p.Email],
			Selected: p.Email == r.selected,
		})
	}
	return out
}
