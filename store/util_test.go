package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayBefore(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 4, 5, 0, time.Local)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local), dayBefore(now, 0))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local), dayBefore(now, 9))
}

func TestSanitizeCounts(t *testing.T) {
	out := sanitizeCounts(map[string]int{"a@x.com": 2, "b@x.com": 0, "c@x.com": -1, "": 3})
	assert.Equal(t, map[string]int{"a@x.com": 2}, out)
}
