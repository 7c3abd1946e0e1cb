package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceSkipsWhenTickAlreadyInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	tick := func(ctx context.Context) (Stats, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return Stats{Processed: 1}, nil
	}

	r := NewRunner("test", time.Hour, tick, zerolog.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.RunOnce(context.Background())
	}()

	<-started
	stats, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tick already in progress", stats.Message)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestRunOnceAllowsSequentialTicks(t *testing.T) {
	t.Parallel()

	var calls int
	tick := func(ctx context.Context) (Stats, error) {
		calls++
		return Stats{Processed: calls}, nil
	}
	r := NewRunner("test", time.Hour, tick, zerolog.Nop())

	first, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Processed)
}
