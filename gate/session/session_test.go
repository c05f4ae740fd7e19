package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNewSessionBatchIsKnown(t *testing.T) {
	s := New(7, "flow", "ru", []string{"a", "b"}, t0)
	assert.Equal(t, StageOne, s.Stage)
	assert.Equal(t, []string{"a", "b"}, s.Batch)
	assert.True(t, s.IsKnown("a"))
	assert.True(t, s.IsKnown("b"))
	assert.False(t, s.IsKnown("c"))
}

func TestAdvance(t *testing.T) {
	s := New(7, "flow", "ru", []string{"a", "b"}, t0)

	assert.False(t, s.Advance([]string{"c", "a"}, t0.Add(time.Minute)))
	assert.Equal(t, StageOne, s.Stage)
	assert.Equal(t, []string{"a", "b"}, s.Batch)
	assert.False(t, s.IsKnown("c"))

	require.True(t, s.Advance([]string{"c", "d"}, t0.Add(time.Minute)))
	assert.Equal(t, StageTwo, s.Stage)
	assert.Equal(t, []string{"c", "d"}, s.Batch)
	assert.Len(t, s.Known, 4)
	assert.Equal(t, t0.Add(time.Minute), s.UpdatedAt)

	assert.False(t, s.Advance([]string{"e"}, t0), "stage two cannot advance")
}

func TestStageValid(t *testing.T) {
	assert.False(t, StageNone.Valid())
	assert.True(t, StageOne.Valid())
	assert.True(t, StageTwo.Valid())
	assert.False(t, Stage(3).Valid())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryOptions{})
	s := New(1, "f", "en", []string{"a"}, t0)
	store.Put(ctx, s)

	s.Batch[0] = "mutated"
	s.Known["x"] = struct{}{}

	got, ok := store.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got.Batch)
	assert.False(t, got.IsKnown("x"))

	got.Stage = StageTwo
	again, _ := store.Get(ctx, 1)
	assert.Equal(t, StageOne, again.Stage)
}

func TestMemoryStoreDeleteAndLen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryOptions{})
	store.Put(ctx, New(1, "f1", "", nil, t0))
	store.Put(ctx, New(2, "f2", "", nil, t0))
	store.Put(ctx, nil)
	assert.Equal(t, 2, store.Len())

	store.Delete(ctx, 1)
	store.Delete(ctx, 99)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(ctx, 1)
	assert.False(t, ok)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	now := t0
	store := NewMemoryStore(MemoryOptions{TTL: time.Minute, Now: func() time.Time { return now }})
	store.Put(ctx, New(1, "f1", "", nil, t0))
	store.Put(ctx, New(2, "f2", "", nil, t0.Add(50*time.Second)))

	now = t0.Add(90 * time.Second)
	_, ok := store.Get(ctx, 1)
	assert.False(t, ok, "idle session expires on read")
	assert.Equal(t, 1, store.Len())

	now = t0.Add(3 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func TestMemoryStoreNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := t0
	store := NewMemoryStore(MemoryOptions{Now: func() time.Time { return now }})
	store.Put(ctx, New(1, "f1", "", nil, t0))
	now = t0.Add(24 * 365 * time.Hour)
	_, ok := store.Get(ctx, 1)
	assert.True(t, ok)
	assert.Zero(t, store.Sweep())
}

func TestJanitorSweeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	now := t0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := NewMemoryStore(MemoryOptions{TTL: time.Second, Now: clock})
	store.Put(ctx, New(1, "f1", "", nil, t0))

	mu.Lock()
	now = t0.Add(time.Hour)
	mu.Unlock()

	store.StartJanitor(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryOptions{})
	var wg sync.WaitGroup
	for i := int64(0); i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Put(ctx, New(id, "f", "", []string{"a"}, t0))
			if s, ok := store.Get(ctx, id); ok {
				s.Advance([]string{"b"}, t0)
			}
			store.Delete(ctx, id)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, store.Len())
}

func TestAdvanceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("advance succeeds iff the new batch avoids the known set", prop.ForAll(
		func(first, second []string) bool {
			s := New(1, "f", "", first, t0)
			overlap := false
			for _, sig := range second {
				if s.IsKnown(sig) {
					overlap = true
				}
			}
			before := s.Clone()
			ok := s.Advance(second, t0.Add(time.Second))
			if overlap {
				return !ok && s.Stage == StageOne && len(s.Known) == len(before.Known)
			}
			if !ok || s.Stage != StageTwo {
				return false
			}
			for _, sig := range s.Batch {
				if !s.IsKnown(sig) {
					return false
				}
			}
			for sig := range before.Known {
				if !s.IsKnown(sig) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func TestTouchOnlyMovesForward(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(1, "f", "en", []string{"a"}, t0)

	s.Touch(t0.Add(time.Minute))
	assert.Equal(t, t0.Add(time.Minute), s.UpdatedAt)
	s.Touch(t0)
	assert.Equal(t, t0.Add(time.Minute), s.UpdatedAt)
	assert.Equal(t, t0, s.StartedAt)
}
