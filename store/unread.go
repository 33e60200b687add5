package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DefaultUnreadBucket is the namespace holding the unread counters.
	DefaultUnreadBucket = "minichat"
	// DefaultUnreadKey is the key of the counter map inside the bucket.
	DefaultUnreadKey = "unread_counts"
)

// BoltUnreadStore keeps the unread counters as one JSON map in a bbolt file.
type BoltUnreadStore struct {
	db     *bbolt.DB
	bucket []byte
	key    []byte
}

// OpenBoltUnreadStore opens (or creates) the bbolt file at path.
func OpenBoltUnreadStore(path string) (*BoltUnreadStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open unread db `%s`: %v", path, err)
	}
	s := &BoltUnreadStore{
		db:     db,
		bucket: []byte(DefaultUnreadBucket),
		key:    []byte(DefaultUnreadKey),
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %v", err)
	}
	return s, nil
}

func (s *BoltUnreadStore) Load() (map[string]int, error) {
	var counts map[string]int
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(s.key)
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &counts)
	}); err != nil {
		return nil, fmt.Errorf("load unread counts: %v", err)
	}
	return sanitizeCounts(counts), nil
}

func (s *BoltUnreadStore) Save(counts map[string]int) error {
	value, err := json.Marshal(sanitizeCounts(counts))
	if err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put(s.key, value)
	}); err != nil {
		return fmt.Errorf("save unread counts: %v", err)
	}
	return nil
}

func (s *BoltUnreadStore) Close() error {
	return s.db.Close()
}

// MemoryUnreadStore keeps the counters in memory, for tests and clients without a data dir.
type MemoryUnreadStore struct {
	sync.Mutex
	counts map[string]int
	saves  int
}

func NewMemoryUnreadStore() *MemoryUnreadStore {
	return &MemoryUnreadStore{counts: make(map[string]int)}
}

func (s *MemoryUnreadStore) Load() (map[string]int, error) {
	s.Lock()
	defer s.Unlock()
	return sanitizeCounts(s.counts), nil
}

func (s *MemoryUnreadStore) Save(counts map[string]int) error {
	s.Lock()
	defer s.Unlock()
	s.counts = sanitizeCounts(counts)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryUnreadStore) Saves() int {
	s.Lock()
	defer s.Unlock()
	return s.saves
}
