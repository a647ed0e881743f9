package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 7, 22, 13, 0, 0, 0, time.UTC)
	c := NewManual(start)
	assert.Equal(t, start, c.Now())

	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
