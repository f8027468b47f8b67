package dieselvk

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// FrameState is the position of a frame slot in the acquire, record, submit,
// present cycle.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
	FramePresenting
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquiring:
		return "acquiring"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

// next lists the legal successors of each state. Acquiring may fall back to
// Idle when the surface went out of date.
var next = map[FrameState][]FrameState{
	FrameIdle:       {FrameAcquiring},
	FrameAcquiring:  {FrameRecording, FrameIdle},
	FrameRecording:  {FrameSubmitted},
	FrameSubmitted:  {FramePresenting},
	FramePresenting: {FrameIdle},
}

// FrameSlot is one frame in flight. It owns the image-available and
// render-finished semaphores and the in-flight fence. Its command buffer is
// the renderer's buffer with the same index.
type FrameSlot struct {
	Index          int
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence

	state FrameState
}

func newFrameSlot(d Device, index int) (slot *FrameSlot, err error) {
	slot = &FrameSlot{Index: index}
	defer func() {
		if err != nil {
			slot.Destroy()
			slot = nil
		}
	}()
	if slot.ImageAvailable, err = d.CreateSemaphore(); err != nil {
		return slot, errors.Wrapf(err, "frame %d: image-available semaphore", index)
	}
	if slot.RenderFinished, err = d.CreateSemaphore(); err != nil {
		return slot, errors.Wrapf(err, "frame %d: render-finished semaphore", index)
	}
	// Signalled so the first wait on a fresh slot returns at once.
	if slot.InFlight, err = d.CreateFence(true); err != nil {
		return slot, errors.Wrapf(err, "frame %d: in-flight fence", index)
	}
	return slot, nil
}

func (f *FrameSlot) State() FrameState {
	return f.state
}

// Transition moves the slot to s or returns ErrFrameState.
func (f *FrameSlot) Transition(s FrameState) error {
	for _, ok := range next[f.state] {
		if ok == s {
			f.state = s
			return nil
		}
	}
	return errors.Wrapf(ErrFrameState, "frame %d: %s -> %s", f.Index, f.state, s)
}

func (f *FrameSlot) Destroy() {
	if f.InFlight != nil {
		f.InFlight.Destroy()
		f.InFlight = nil
	}
	if f.RenderFinished != nil {
		f.RenderFinished.Destroy()
		f.RenderFinished = nil
	}
	if f.ImageAvailable != nil {
		f.ImageAvailable.Destroy()
		f.ImageAvailable = nil
	}
	f.state = FrameIdle
}
