// Package ratelimit holds fixed-window attempt counters.  A Store counts
// hits per key inside a window that starts with the first hit and resets
// once it elapses.  The in-memory store serves a single instance; the
// Redis store can be shared between instances.
package ratelimit

import (
	"context"
	"time"
)

// Hit is the state of a key after recording one attempt.
type Hit struct {
	Count   int       // attempts in the current window, including this one
	ResetAt time.Time // when the current window ends
}

// Store records attempts per key.  Implementations must make Hit atomic
// for concurrent callers using the same key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Hit, error)
}
