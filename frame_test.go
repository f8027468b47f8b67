package dieselvk

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSlotCycle(t *testing.T) {
	f := &FrameSlot{Index: 1}
	for _, s := range []FrameState{FrameAcquiring, FrameRecording, FrameSubmitted, FramePresenting, FrameIdle} {
		require.NoError(t, f.Transition(s))
		assert.Equal(t, s, f.State())
	}
	require.NoError(t, f.Transition(FrameAcquiring))
	require.NoError(t, f.Transition(FrameIdle), "out-of-date acquire")
}

func TestFrameSlotIllegalTransitions(t *testing.T) {
	tests := []struct {
		from, to FrameState
	}{
		{FrameIdle, FrameRecording},
		{FrameIdle, FrameIdle},
		{FrameAcquiring, FrameSubmitted},
		{FrameRecording, FrameIdle},
		{FrameRecording, FramePresenting},
		{FrameSubmitted, FrameIdle},
		{FramePresenting, FrameAcquiring},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			f := &FrameSlot{state: tt.from}
			err := f.Transition(tt.to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFrameState))
			assert.Equal(t, tt.from, f.State())
		})
	}
}

func TestFrameStateString(t *testing.T) {
	assert.Equal(t, "presenting", FramePresenting.String())
	assert.Equal(t, "FrameState(9)", FrameState(9).String())
}

func TestNewFrameSlot(t *testing.T) {
	d := newFakeDevice(newFakeWindow(1, 1))
	slot, err := newFrameSlot(d, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, slot.Index)
	assert.True(t, slot.InFlight.(*fakeFence).signaled)
	assert.Equal(t, 3, d.gpu.totalLive())

	slot.Destroy()
	slot.Destroy()
	assert.Zero(t, d.gpu.totalLive())
	assert.Empty(t, d.gpu.violations)
}

func TestNewFrameSlotFailure(t *testing.T) {
	d := newFakeDevice(newFakeWindow(1, 1))
	d.gpu.fail["fence"] = 1
	slot, err := newFrameSlot(d, 0)
	require.Error(t, err)
	assert.Nil(t, slot)
	assert.Zero(t, d.gpu.totalLive())
}
