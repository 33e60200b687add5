package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/store"
)

func TestUnreadIncrementAndReset(t *testing.T) {
	s := store.NewMemoryUnreadStore()
	r, err := New(s)
	require.NoError(t, err)

	r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com", Body: "1"})
	r.OnInboundMessage(&pb.Message{From: "b@x.com", To: "root@x.com", Body: "1"})
	r.OnInboundMessage(&pb.Message{From: "b@x.com", To: "root@x.com", Body: "2"})
	assert.Equal(t, 1, r.Unread("a@x.com"))
	assert.Equal(t, 2, r.Unread("b@x.com"))

	r.SelectPeer("a@x.com")
	assert.Equal(t, 0, r.Unread("a@x.com"))
	assert.Equal(t, 2, r.Unread("b@x.com"))

	// selected peer messages are already read.
	r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com", Body: "2"})
	assert.Equal(t, 0, r.Unread("a@x.com"))

	saved, _ := s.Load()
	assert.Equal(t, map[string]int{"b@x.com": 2}, saved)
}

func TestUnreadSurvivesReload(t *testing.T) {
	s := store.NewMemoryUnreadStore()
	r, err := New(s)
	require.NoError(t, err)
	r.OnPresenceUpdate(pb.PresenceSnapshot{"a@x.com"})
	r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com"})

	r2, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, 1, r2.Unread("a@x.com"))
	assert.False(t, r2.IsOnline("a@x.com"), "online set is not persisted")
}

func TestPresenceReplaces(t *testing.T) {
	r, err := New(store.NewMemoryUnreadStore())
	require.NoError(t, err)

	r.OnPresenceUpdate(pb.PresenceSnapshot{"b@x.com", "a@x.com"})
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, r.Online())

	r.OnPresenceUpdate(pb.PresenceSnapshot{"c@x.com"})
	assert.False(t, r.IsOnline("a@x.com"))
	assert.True(t, r.IsOnline("c@x.com"))
}

func TestPeers(t *testing.T) {
	r, err := New(store.NewMemoryUnreadStore())
	require.NoError(t, err)
	r.OnPresenceUpdate(pb.PresenceSnapshot{"b@x.com"})
	r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com"})
	r.SelectPeer("b@x.com")

	peers := r.Peers([]pb.Identity{{Email: "a@x.com"}, {Email: "b@x.com"}})
	assert.Equal(t, []PeerState{
		{Identity: pb.Identity{Email: "a@x.com"}, Unread: 1},
		{Identity: pb.Identity{Email: "b@x.com"}, Online: true, Selected: true},
	}, peers)

	r.ClearSelection()
	assert.Equal(t, "", r.Selected())
}

type failingStore struct {
	store.MemoryUnreadStore
}

func (s *failingStore) Save(map[string]int) error {
	return errors.New("disk full")
}

func TestSaveErrorKeepsState(t *testing.T) {
	r, err := New(&failingStore{})
	require.NoError(t, err)

	var changes int
	r.OnChange(func() { changes++ })
	r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com"})
	assert.Equal(t, 1, r.Unread("a@x.com"))
	assert.Equal(t, 1, changes)
}

// slowStore blocks the first Save until release is closed.
type slowStore struct {
	store.MemoryUnreadStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Save(counts map[string]int) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryUnreadStore.Save(counts)
}

func TestConcurrentSavesKeepLatest(t *testing.T) {
	s := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	r, err := New(s)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.OnInboundMessage(&pb.Message{From: "a@x.com", To: "root@x.com"})
	}()
	<-s.entered

	go func() {
		defer wg.Done()
		r.SelectPeer("a@x.com")
	}()
	require.Eventually(t, func() bool { return r.Selected() == "a@x.com" }, time.Second, time.Millisecond)
	close(s.release)
	wg.Wait()

	assert.Equal(t, 0, r.Unread("a@x.com"))
	saved, _ := s.Load()
	assert.Equal(t, map[string]int{}, saved)

	r2, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, 0, r2.Unread("a@x.com"))
}
