package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/testutil"
)

func TestDocstepIntervalHint(t *testing.T) {
	tests := []struct {
		name    string
		runtime string
		ms      float64
	}{
		{"milliseconds", `{"docstepAdvance":{"kind":"timer","amount":250,"unit":"ms"}}`, 250},
		{"seconds", `{"docstepAdvance":{"kind":"timer","amount":2,"unit":"s"}}`, 2000},
		{"minutes", `{"docstepAdvance":{"kind":"timer","amount":0.5,"unit":"m"}}`, 30000},
		{"beats default tempo", `{"docstepAdvance":{"kind":"timer","amount":1,"unit":"beats"}}`, 1000},
		{"beats with tempo", `{"docstepAdvance":{"kind":"timer","amount":2,"unit":"beats"},"tempo":120}`, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.Document(t, `{"runtime":`+tt.runtime+`}`)
			hint := DocstepIntervalHint(doc, nil)
			require.NotNil(t, hint.MS, hint.Reason)
			assert.InDelta(t, tt.ms, *hint.MS, 1e-9)
			assert.NotEmpty(t, hint.Reason)
		})
	}
}

func TestDocstepIntervalHintManual(t *testing.T) {
	hint := DocstepIntervalHint(testutil.Growth(t), nil)
	assert.Nil(t, hint.MS)
	assert.Equal(t, "document declares no timer-based docstep advance", hint.Reason)

	_, ok := hint.Duration()
	assert.False(t, ok)

	bad := testutil.Document(t, `{"runtime":{"docstepAdvance":{"kind":"timer","amount":1,"unit":"fortnights"}}}`)
	assert.Nil(t, DocstepIntervalHint(bad, nil).MS)
}

func TestDocstepIntervalHintTempoParam(t *testing.T) {
	doc := testutil.Document(t, `{
	  "state":{"params":[{"name":"tempo","init":240}]},
	  "runtime":{"docstepAdvance":{"kind":"timer","amount":1,"unit":"beats"},"tempo":60}}`)
	s, err := InitRuntimeState(doc, 0)
	require.NoError(t, err)

	hint := DocstepIntervalHint(doc, s)
	require.NotNil(t, hint.MS)
	assert.InDelta(t, 250.0, *hint.MS, 1e-9)
}

func TestRuntimeManualClock(t *testing.T) {
	rt, err := New(testutil.Growth(t), WithSeed(7))
	require.NoError(t, err)

	assert.Equal(t, Options{Seed: 7, Clock: ClockManual}, rt.Options())
	assert.ErrorIs(t, rt.Start(context.Background()), ErrManualClock)

	rt.Step()
	rt.Step()
	assert.Equal(t, int64(2), rt.Docstep())
	assert.Equal(t, int64(2), rt.State().Docstep)

	require.NoError(t, rt.Reset())
	assert.Equal(t, int64(0), rt.Docstep())
}

func TestRuntimeNewPropagatesInitError(t *testing.T) {
	_, err := New(testutil.MissingGrid(t))
	require.Error(t, err)
	assert.True(t, IsInitError(err))
}

func TestRuntimeTimerClock(t *testing.T) {
	mt := testutil.NewManualTicker()
	steps := make(chan Snapshot, 4)

	rt, err := New(testutil.Showcase(t),
		WithClock(ClockTimer),
		WithTicker(func(d time.Duration) Ticker { return mt.Bind(d) }),
		WithOnStep(func(s Snapshot) { steps <- s }))
	require.NoError(t, err)

	require.NoError(t, rt.Start(context.Background()))
	require.NoError(t, rt.Start(context.Background()), "second Start is a no-op")
	assert.True(t, rt.Running())
	assert.Equal(t, time.Second, mt.Interval())

	require.True(t, mt.Tick(time.Second))
	assert.Equal(t, int64(1), (<-steps).Docstep)
	require.True(t, mt.Tick(time.Second))
	assert.Equal(t, int64(2), (<-steps).Docstep)

	rt.Stop()
	rt.Stop()
	assert.False(t, rt.Running())
	assert.True(t, mt.Stopped())
	assert.False(t, mt.Tick(20*time.Millisecond), "no consumer after Stop")
	assert.Equal(t, int64(2), rt.Docstep())
}

func TestRuntimeTimerWithoutHint(t *testing.T) {
	rt, err := New(testutil.Growth(t), WithClock(ClockTimer))
	require.NoError(t, err)
	assert.ErrorIs(t, rt.Start(context.Background()), ErrNoInterval)
	assert.False(t, rt.Running())
}

func TestRuntimeTimerStopsOnContextCancel(t *testing.T) {
	mt := testutil.NewManualTicker()
	rt, err := New(testutil.Showcase(t),
		WithClock(ClockTimer),
		WithTicker(func(d time.Duration) Ticker { return mt.Bind(d) }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rt.Start(ctx))
	cancel()

	assert.Eventually(t, mt.Stopped, time.Second, 5*time.Millisecond)
	rt.Stop()
}

func TestRuntimeTimerRestartsAfterContextCancel(t *testing.T) {
	mt := testutil.NewManualTicker()
	steps := make(chan Snapshot, 4)
	rt, err := New(testutil.Showcase(t),
		WithClock(ClockTimer),
		WithTicker(func(d time.Duration) Ticker { return mt.Bind(d) }),
		WithOnStep(func(s Snapshot) { steps <- s }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rt.Start(ctx))
	cancel()
	assert.Eventually(t, func() bool { return !rt.Running() }, time.Second, 5*time.Millisecond)

	require.NoError(t, rt.Start(context.Background()))
	assert.True(t, rt.Running())
	require.True(t, mt.Tick(time.Second))
	assert.Equal(t, int64(1), (<-steps).Docstep)

	rt.Stop()
	assert.False(t, rt.Running())
}

func TestRuntimeSingleWriter(t *testing.T) {
	rt, err := New(testutil.Growth(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				rt.Step()
				rt.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(200), rt.Docstep())
}
