package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestDeduper(ttl time.Duration, max int) (*Deduper, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := New(ttl, max)
	d.now = c.now
	return d, c
}

func TestShouldProcess_DropsWithinTTL(t *testing.T) {
	d, c := newTestDeduper(time.Minute, 10)

	assert.True(t, d.ShouldProcessPayload([]byte(`{"device_id":"p1"}`)))
	assert.False(t, d.ShouldProcessPayload([]byte(`{"device_id":"p1"}`)))
	assert.True(t, d.ShouldProcessPayload([]byte(`{"device_id":"p2"}`)))

	c.t = c.t.Add(time.Minute)
	assert.True(t, d.ShouldProcessPayload([]byte(`{"device_id":"p1"}`)), "expired entries are processed again")
}

func TestShouldProcess_EmptyID(t *testing.T) {
	d, _ := newTestDeduper(time.Minute, 10)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
	assert.Zero(t, d.Len())
}

func TestShouldProcess_Cap(t *testing.T) {
	d, c := newTestDeduper(time.Hour, 2)
	d.ShouldProcess("a")
	c.t = c.t.Add(time.Second)
	d.ShouldProcess("b")
	c.t = c.t.Add(time.Second)
	d.ShouldProcess("c")

	assert.Equal(t, 2, d.Len())
	assert.True(t, d.ShouldProcess("a"), "oldest id was evicted")
	assert.False(t, d.ShouldProcess("c"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key([]byte("x")), Key([]byte("x")))
	assert.NotEqual(t, Key([]byte("x")), Key([]byte("y")))
	assert.Len(t, Key(nil), 64)
}
