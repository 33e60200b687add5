package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltUnreadStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unread.db")

	s, err := OpenBoltUnreadStore(path)
	require.NoError(t, err)

	counts, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, s.Save(map[string]int{"a@x.com": 3, "b@x.com": 0}))
	require.NoError(t, s.Save(map[string]int{"a@x.com": 4, "c@x.com": 1}))
	require.NoError(t, s.Close())

	// survives a reopen, whole map rewritten.
	s, err = OpenBoltUnreadStore(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a@x.com": 4, "c@x.com": 1}, counts)
}

func TestMemoryUnreadStore(t *testing.T) {
	s := NewMemoryUnreadStore()
	in := map[string]int{"a@x.com": 1}
	require.NoError(t, s.Save(in))
	in["a@x.com"] = 7

	counts, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a@x.com": 1}, counts)
	assert.Equal(t, 1, s.Saves())
}
