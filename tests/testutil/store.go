package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/checklist/internal/repository"
	"github.com/nhle/checklist/internal/store"
)

// NewTestStore creates a Store over an in-memory SQLite backend with all
// migrations applied and synchronous flushing. It automatically closes the
// store when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	b, err := store.NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("creating test backend: %v", err)
	}

	s, err := store.Open(context.Background(), b, store.Options{})
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(context.Background()); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestRepository creates a Repository over NewTestStore. Extra options
// are applied after the defaults.
func NewTestRepository(t *testing.T, opts ...repository.Option) *repository.Repository {
	t.Helper()
	return repository.New(NewTestStore(t), opts...)
}

// Clock is a manually advanced time source.
type Clock struct {
	now atomic.Int64
}

// NewClock returns a Clock set to start.
func NewClock(start time.Time) *Clock {
	c := &Clock{}
	c.now.Store(start.UnixNano())
	return c
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	return time.Unix(0, c.now.Load())
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

// SequentialIDs returns an id allocator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
