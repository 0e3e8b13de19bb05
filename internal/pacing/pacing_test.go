package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("none")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	m, err = ParseMode("per-completion")
	require.NoError(t, err)
	assert.Equal(t, ModePerCompletion, m)

	_, err = ParseMode("adaptive")
	assert.Error(t, err)
}

func TestRandomDelayWithinRange(t *testing.T) {
	r := NewRandomDelay(500*time.Millisecond, 1500*time.Millisecond)

	for i := 0; i < 200; i++ {
		d := r.Delay()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestRandomDelaySwapsInvertedRange(t *testing.T) {
	r := NewRandomDelay(4*time.Second, 2*time.Second)

	d := r.Delay()
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.LessOrEqual(t, d, 4*time.Second)
}

func TestRandomDelayFixed(t *testing.T) {
	r := NewRandomDelay(time.Millisecond, time.Millisecond)
	assert.Equal(t, time.Millisecond, r.Delay())
}

func TestRandomDelayWaitHonoursContext(t *testing.T) {
	r := NewRandomDelay(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := r.Wait(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRandomDelayZeroReturnsImmediately(t *testing.T) {
	r := NewRandomDelay(0, 0)
	assert.NoError(t, r.Wait(context.Background()))
}

func TestNew(t *testing.T) {
	p, err := New(ModeNone, time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.IsType(t, None{}, p)
	assert.NoError(t, p.Wait(context.Background()))

	p, err = New(ModePerCompletion, 10*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	assert.IsType(t, &RandomDelay{}, p)

	_, err = New(ModePerCompletion, -time.Second, time.Second)
	assert.Error(t, err)

	_, err = New("bogus", 0, 0)
	assert.Error(t, err)
}
