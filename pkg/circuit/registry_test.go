package circuit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry(Config{})

	b1 := r.GetOrCreate("payments", nil)
	b2 := r.GetOrCreate("payments", nil)
	assert.Same(t, b1, b2)

	b3 := r.GetOrCreate("billing", nil)
	assert.NotSame(t, b1, b3)
}

func TestRegistry_ConfigHonoredOnFirstCreationOnly(t *testing.T) {
	r := NewRegistry(Config{})

	first := r.GetOrCreate("payments", &Config{FailureThreshold: 7})
	assert.Equal(t, 7, first.Status().Config.FailureThreshold)

	// a different config for the same name is ignored
	second := r.GetOrCreate("payments", &Config{FailureThreshold: 42})
	assert.Same(t, first, second)
	assert.Equal(t, 7, second.Status().Config.FailureThreshold)
}

func TestRegistry_DefaultsApply(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 9})

	b := r.GetOrCreate("payments", nil)
	assert.Equal(t, 9, b.Status().Config.FailureThreshold)
}

func TestRegistry_ConcurrentFirstCallersShareBreaker(t *testing.T) {
	r := NewRegistry(Config{})

	var wg sync.WaitGroup
	results := make([]*Breaker, 100)
	for i := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = r.GetOrCreate("shared", nil)
		}(i)
	}
	wg.Wait()

	for _, b := range results {
		assert.Same(t, results[0], b)
	}
	assert.Equal(t, []string{"shared"}, r.Names())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(Config{})

	_, ok := r.Get("missing")
	assert.False(t, ok)

	created := r.GetOrCreate("payments", nil)
	found, ok := r.Get("payments")
	require.True(t, ok)
	assert.Same(t, created, found)
}

func TestRegistry_Statuses(t *testing.T) {
	r := NewRegistry(Config{})
	r.GetOrCreate("zeta", nil)
	r.GetOrCreate("alpha", nil)

	statuses := r.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "alpha", statuses[0].Name)
	assert.Equal(t, "zeta", statuses[1].Name)
}

func TestRegistry_ResetAll(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1})

	a := r.GetOrCreate("a", nil)
	b := r.GetOrCreate("b", nil)
	require.Error(t, a.Execute(context.Background(), fail))
	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, StateOpen, b.State())

	r.ResetAll()
	assert.Equal(t, StateClosed, a.State())
	assert.Equal(t, StateClosed, b.State())
}

func TestRegistry_OptionsApplyToCreatedBreakers(t *testing.T) {
	clock := newTestClock()
	var transitions int
	r := NewRegistry(Config{FailureThreshold: 1, Timeout: time.Minute},
		WithClock(clock.Now),
		WithStateChange(func(name string, from, to State) { transitions++ }),
	)

	b := r.GetOrCreate("payments", nil)
	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, 1, transitions)

	clock.Advance(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())
}
