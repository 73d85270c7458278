package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SourceLanguage: "auto",
		TargetLanguage: "en",
		AudioEncoding:  "LINEAR16",
		SampleRate:     16000,
	}
}

func TestRegistry_Exclusivity(t *testing.T) {
	r := NewRegistry(RegistryConfig{}, nil)

	first, err := r.Create("user-1", TierFree, testConfig())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = r.Create("user-1", TierFree, testConfig())
	require.ErrorIs(t, err, ErrSessionExists)

	// The original session must survive the rejected duplicate.
	got, ok := r.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
}

func TestRegistry_ConcurrentCreateSingleWinner(t *testing.T) {
	r := NewRegistry(RegistryConfig{}, nil)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Create("user-1", TierBasic, testConfig())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrSessionExists)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	r := NewRegistry(RegistryConfig{}, nil)

	_, err := r.Create("user-1", TierFree, testConfig())
	require.NoError(t, err)

	r.Remove("user-1")
	r.Remove("user-1")
	r.Remove("never-existed")

	_, ok := r.Get("user-1")
	assert.False(t, ok)
}

func TestRegistry_SweepKeepsRecentlyActive(t *testing.T) {
	r := NewRegistry(RegistryConfig{IdleTimeout: time.Minute}, nil)

	idle, err := r.Create("idle-user", TierFree, testConfig())
	require.NoError(t, err)
	active, err := r.Create("active-user", TierFree, testConfig())
	require.NoError(t, err)

	notified := false
	idle.SetIdleCallback(func() { notified = true })

	sweepAt := time.Now().Add(90 * time.Second)
	active.Touch(sweepAt.Add(-10 * time.Second))

	evicted := r.SweepOnce(sweepAt)
	assert.Equal(t, 1, evicted)
	assert.True(t, notified)

	_, ok := r.Get("idle-user")
	assert.False(t, ok)
	_, ok = r.Get("active-user")
	assert.True(t, ok)
}

func TestRegistry_StopWithoutStart(t *testing.T) {
	r := NewRegistry(RegistryConfig{}, nil)

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked with no running sweep")
	}
}

func TestRegistry_StartStop(t *testing.T) {
	r := NewRegistry(RegistryConfig{SweepInterval: 10 * time.Millisecond}, nil)
	r.Start(context.Background())

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not halt the sweep")
	}
}

func TestSession_TouchMonotonic(t *testing.T) {
	r := NewRegistry(RegistryConfig{}, nil)
	s, err := r.Create("user-1", TierFree, testConfig())
	require.NoError(t, err)

	later := time.Now().Add(time.Minute)
	s.Touch(later)
	s.Touch(later.Add(-30 * time.Second))

	assert.Equal(t, later, s.LastActivity())
}

func TestSession_SegmentCap(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxSegments: 2}, nil)
	s, err := r.Create("user-1", TierFree, testConfig())
	require.NoError(t, err)

	require.NoError(t, s.RecordSegment())
	require.NoError(t, s.RecordSegment())
	require.ErrorIs(t, s.RecordSegment(), ErrSegmentLimit)
	assert.Equal(t, 2, s.SegmentsReceived())
}
