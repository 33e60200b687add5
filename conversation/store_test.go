package conversation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
)

const (
	shop  = "shop1@x.com"
	root  = "root@x.com"
	other = "shop2@x.com"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func msgAt(from, to string, sec int, body string) *pb.Message {
	return &pb.Message{From: from, To: to, Body: body, SentAt: pb.FormatSentAt(t0.Add(time.Duration(sec) * time.Second))}
}

func bodies(msgs []*pb.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestAppendLiveIdempotent(t *testing.T) {
	s := NewStore(shop, root)
	s.Initialize(nil)

	m := msgAt(shop, root, 1, "hello")
	assert.True(t, s.AppendLive(m))
	assert.False(t, s.AppendLive(m))

	cp := *m
	assert.False(t, s.AppendLive(&cp), "structural duplicate")
	assert.Equal(t, 1, s.Len())
}

func TestAppendLiveIds(t *testing.T) {
	s := NewStore(shop, root)
	s.Initialize(nil)

	a := msgAt(shop, root, 1, "ok")
	a.Id = "id-1"
	b := msgAt(shop, root, 1, "ok")
	b.Id = "id-2"
	assert.True(t, s.AppendLive(a))
	assert.True(t, s.AppendLive(b), "same content, different ids")

	echo := msgAt(shop, root, 1, "ok")
	echo.Id = "id-1"
	assert.False(t, s.AppendLive(echo))

	// history copy without an id is equal to any structural match.
	bare := msgAt(shop, root, 1, "ok")
	assert.False(t, s.AppendLive(bare))
	assert.Equal(t, 2, s.Len())
}

func TestOutOfOrderInsert(t *testing.T) {
	s := NewStore(shop, root)
	s.Initialize([]*pb.Message{msgAt(root, shop, 30, "c"), msgAt(root, shop, 10, "a")})
	assert.Equal(t, []string{"a", "c"}, bodies(s.Messages()))

	s.AppendLive(msgAt(shop, root, 20, "b"))
	assert.Equal(t, []string{"a", "b", "c"}, bodies(s.Messages()))

	// ties keep insertion order.
	s.AppendLive(msgAt(shop, root, 20, "b2"))
	assert.Equal(t, []string{"a", "b", "b2", "c"}, bodies(s.Messages()))
}

func TestLiveBeforeInitializeIsQueued(t *testing.T) {
	s := NewStore(shop, root)
	assert.True(t, s.AppendLive(msgAt(root, shop, 20, "20")))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Initialized())

	s.Initialize([]*pb.Message{msgAt(root, shop, 10, "10"), msgAt(root, shop, 30, "30")})
	assert.Equal(t, []string{"10", "20", "30"}, bodies(s.Messages()))
}

func TestQueuedDuplicateOfHistory(t *testing.T) {
	s := NewStore(shop, root)
	s.AppendLive(msgAt(root, shop, 10, "10"))
	s.Initialize([]*pb.Message{msgAt(root, shop, 10, "10")})
	assert.Equal(t, 1, s.Len())
}

func TestPeerPairIsolation(t *testing.T) {
	s := NewStore(root, shop)
	s.Initialize([]*pb.Message{msgAt(root, other, 1, "foreign"), msgAt(root, shop, 2, "mine")})
	assert.False(t, s.AppendLive(msgAt(other, root, 3, "foreign live")))
	assert.True(t, s.AppendLive(msgAt(shop, root, 4, "mine live")))
	assert.Equal(t, []string{"mine", "mine live"}, bodies(s.Messages()))
	assert.Equal(t, KeyOf(shop, root), s.Key())
}

func TestGroupedByDay(t *testing.T) {
	s := NewStore(shop, root)
	day := 24 * 60 * 60
	var history []*pb.Message
	for _, sec := range []int{2*day + 5, 10, day + 1, 20, 2 * day, day + 30} {
		history = append(history, msgAt(shop, root, sec, ""))
	}
	rand.Shuffle(len(history), func(i, j int) { history[i], history[j] = history[j], history[i] })
	s.Initialize(history)

	days := s.GroupedByDay(time.UTC).All()
	require.Len(t, days, 3)
	for i, d := range days {
		if i > 0 {
			assert.True(t, days[i-1].Date.Before(d.Date))
		}
		for j := 1; j < len(d.Messages); j++ {
			prev, _ := d.Messages[j-1].Time()
			cur, _ := d.Messages[j].Time()
			assert.True(t, prev.Before(cur))
		}
	}
	assert.Len(t, days[0].Messages, 2)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), days[1].Date)
}

func TestGroupedByDaySkipsInvalid(t *testing.T) {
	s := NewStore(shop, root)
	bad := &pb.Message{From: shop, To: root, Body: "bad", SentAt: "not a date"}
	s.Initialize([]*pb.Message{bad, msgAt(shop, root, 1, "good")})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"good", "bad"}, bodies(s.Messages()))

	days := s.GroupedByDay(time.UTC).All()
	require.Len(t, days, 1)
	assert.Equal(t, []string{"good"}, bodies(days[0].Messages))
}

func TestGroupedByDayEmptyAndRestartable(t *testing.T) {
	s := NewStore(shop, root)
	s.Initialize(nil)
	assert.Empty(t, s.GroupedByDay(nil).All())

	s.AppendLive(msgAt(shop, root, 1, "x"))
	v := s.GroupedByDay(time.UTC)
	assert.Len(t, v.All(), 1)
	assert.Len(t, v.All(), 1)

	// the view is a snapshot.
	s.AppendLive(msgAt(shop, root, 2*24*3600, "y"))
	assert.Len(t, v.All(), 1)
	assert.Len(t, s.GroupedByDay(time.UTC).All(), 2)
}

func TestOnChange(t *testing.T) {
	s := NewStore(shop, root)
	var n int
	s.OnChange(func() { n++ })
	s.AppendLive(msgAt(shop, root, 1, "queued"))
	assert.Equal(t, 0, n)
	s.Initialize(nil)
	assert.Equal(t, 1, n)
	m := msgAt(shop, root, 2, "x")
	s.AppendLive(m)
	s.AppendLive(m)
	assert.Equal(t, 2, n)
}
