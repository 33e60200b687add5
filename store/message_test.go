package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
)

func TestMemoryMessageStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMessageStore()

	require.NoError(t, s.Save(ctx, &pb.Message{Id: "1", From: "a@x.com", To: "b@x.com", Body: "hi"}))
	require.NoError(t, s.Save(ctx, &pb.Message{Id: "1", From: "a@x.com", To: "b@x.com", Body: "hi"}))
	require.NoError(t, s.Save(ctx, &pb.Message{Id: "2", From: "b@x.com", To: "a@x.com", Body: "yo"}))
	require.NoError(t, s.Save(ctx, &pb.Message{Id: "3", From: "c@x.com", To: "a@x.com", Body: "other"}))

	msgs, err := s.Between(ctx, "b@x.com", "a@x.com")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, "yo", msgs[1].Body)
}

func TestMemoryMessageStoreDeleteOutdated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMessageStore()

	now := time.Now()
	s.now = func() time.Time { return now.AddDate(0, 0, -40) }
	require.NoError(t, s.Save(ctx, &pb.Message{Id: "old", From: "a@x.com", To: "b@x.com"}))
	s.now = func() time.Time { return now }
	require.NoError(t, s.Save(ctx, &pb.Message{Id: "new", From: "a@x.com", To: "b@x.com"}))

	n, err := s.DeleteOutdated(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)

	msgs, _ := s.Between(ctx, "a@x.com", "b@x.com")
	require.Len(t, msgs, 1)
	assert.Equal(t, "new", msgs[0].Id)
}
