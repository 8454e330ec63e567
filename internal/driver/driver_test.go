package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

func sampleTimes() map[string]string {
	return map[string]string{
		"Fajr": "05:51", "Dhuhr": "12:27", "Asr": "15:21", "Maghrib": "17:40", "Isha": "19:04",
	}
}

// recorder collects updates from a driver.
type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func TestNew_StartsIdle(t *testing.T) {
	d := New()
	assert.Equal(t, Idle, d.State())
	assert.Equal(t, DefaultInterval, d.Interval())

	_, ok := d.Last()
	assert.False(t, ok)

	_, published := d.Evaluate()
	assert.False(t, published, "idle driver must not publish")
}

func TestSetBoundaries_ActivatesAndPublishes(t *testing.T) {
	now := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	d := New(WithClock(FixedClock{T: now}))
	rec := &recorder{}
	d.Subscribe(rec.record)

	require.NoError(t, d.SetBoundaries(sampleTimes()))
	assert.Equal(t, Active, d.State())

	u, ok := d.Evaluate()
	require.True(t, ok)
	require.NoError(t, u.Err)
	assert.Equal(t, window.Dhuhr, u.Reading.ActiveIndex)
	assert.InDelta(t, 100*93.0/174.0, u.Reading.FillPercentage, 1e-9)

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, u, got[0])

	last, ok := d.Last()
	require.True(t, ok)
	assert.Equal(t, u.Reading, last)
}

func TestSetBoundaries_MalformedKeepsLastGoodReading(t *testing.T) {
	now := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	clock := now
	d := New(WithClock(FuncClock(func() time.Time { return clock })))
	rec := &recorder{}
	d.Subscribe(rec.record)

	require.NoError(t, d.SetBoundaries(sampleTimes()))
	good, _ := d.Evaluate()
	require.NoError(t, good.Err)

	bad := sampleTimes()
	bad["Asr"] = "11:00"
	err := d.SetBoundaries(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, window.ErrMalformedBoundaries))
	assert.Equal(t, Active, d.State())

	clock = now.Add(30 * time.Minute)
	u, ok := d.Evaluate()
	require.True(t, ok)
	require.Error(t, u.Err)
	assert.True(t, u.HasReading)
	assert.Equal(t, good.Reading, u.Reading, "reading must not advance on bad data")

	last, _ := d.Last()
	assert.Equal(t, good.Reading, last)

	// Corrected data clears the error.
	require.NoError(t, d.SetBoundaries(sampleTimes()))
	assert.NoError(t, d.Err())
	u, _ = d.Evaluate()
	require.NoError(t, u.Err)
	assert.Greater(t, u.Reading.FillPercentage, good.Reading.FillPercentage)
}

func TestSetBoundaries_MalformedWhileIdle(t *testing.T) {
	d := New(WithClock(FixedClock{T: time.Now()}))
	rec := &recorder{}
	d.Subscribe(rec.record)

	require.Error(t, d.SetBoundaries(map[string]string{"Fajr": "05:00"}))
	assert.Equal(t, Idle, d.State())

	u, ok := d.Evaluate()
	require.True(t, ok)
	assert.Error(t, u.Err)
	assert.False(t, u.HasReading)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	base := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	calls := 0
	clock := FuncClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	})

	d := New(WithClock(clock), WithInterval(5*time.Millisecond))
	d.SetBoundarySet(mustSet(t))

	updates := make(chan Update, 64)
	d.Subscribe(func(u Update) {
		select {
		case updates <- u:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	var prev float64
	for i := 0; i < 3; i++ {
		select {
		case u := <-updates:
			require.NoError(t, u.Err)
			assert.GreaterOrEqual(t, u.Reading.FillPercentage, prev)
			prev = u.Reading.FillPercentage
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for update")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "active", Active.String())
}

func mustSet(t *testing.T) window.BoundarySet {
	t.Helper()
	set, err := window.ParseBoundarySet(sampleTimes())
	require.NoError(t, err)
	return set
}
