package pacing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

type Mode string

const (
	ModeNone          Mode = "none"
	ModePerCompletion Mode = "per-completion"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModePerCompletion:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown pacing mode %q (want %q or %q)", s, ModeNone, ModePerCompletion)
	}
}

// Pacer pauses the caller between units of work.
type Pacer interface {
	Wait(ctx context.Context) error
}

// None never pauses.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}

// RandomDelay sleeps for a uniformly random duration in [min, max] on every
// Wait. It keeps no history; each call is independent.
type RandomDelay struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
}

func NewRandomDelay(minDelay, maxDelay time.Duration) *RandomDelay {
	if maxDelay < minDelay {
		minDelay, maxDelay = maxDelay, minDelay
	}
	return &RandomDelay{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RandomDelay) Wait(ctx context.Context) error {
	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay draws the next pause.
func (r *RandomDelay) Delay() time.Duration {
	if r.minDelay == r.maxDelay {
		return r.minDelay
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(r.rng.Int63n(int64(delta)+1))
}

// New builds the pacer for mode. ModeNone ignores the range.
func New(mode Mode, minDelay, maxDelay time.Duration) (Pacer, error) {
	switch mode {
	case ModeNone:
		return None{}, nil
	case ModePerCompletion:
		if minDelay < 0 || maxDelay < 0 {
			return nil, fmt.Errorf("pacing delays must not be negative")
		}
		return NewRandomDelay(minDelay, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown pacing mode %q", mode)
	}
}
