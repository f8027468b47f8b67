package dieselvk

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// RecordFunc fills the frame's command buffer. It must begin and end the
// render pass through the Frame and must not submit or present. An error
// is fatal to the renderer: the acquired image cannot be handed back to the
// presentation engine, so no further frames are drawn.
type RecordFunc func(f *Frame) error

// Frame is what a RecordFunc records against. The command buffer is already
// begun and is ended by the renderer after the callback returns.
type Frame struct {
	Slot        int
	ImageIndex  uint32
	Command     CommandBuffer
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      vk.Extent2D
	ClearValues []vk.ClearValue
}

func (f *Frame) BeginRenderPass() {
	f.Command.BeginRenderPass(f.RenderPass, f.Framebuffer, f.Extent, f.ClearValues)
}

func (f *Frame) EndRenderPass() {
	f.Command.EndRenderPass()
}

type RenderStats struct {
	Presented int
	// Skipped counts frames dropped because acquire found the surface out of date.
	Skipped  int
	Rebuilds int
	Extent   vk.Extent2D
}

// Renderer drives the frame loop over a SwapChain. It owns one command
// buffer per frame slot; those survive swapchain rebuilds.
type Renderer struct {
	device    Device
	swapchain *SwapChain
	window    Window

	commands       []CommandBuffer
	current        int
	rebuildPending bool
	clear          []vk.ClearValue
	failed         error

	stats      RenderStats
	frameStats *FrameStats
	lastFrame  time.Time
	now        func() time.Time
	observers  []func(vk.Extent2D)
}

// NewRenderer expects an initialised swapchain.
func NewRenderer(device Device, swapchain *SwapChain, window Window) (*Renderer, error) {
	commands, err := device.AllocateCommandBuffers(swapchain.FramesInFlight())
	if err != nil {
		return nil, errors.Wrap(err, "allocate frame command buffers")
	}
	r := &Renderer{
		device:     device,
		swapchain:  swapchain,
		window:     window,
		commands:   commands,
		frameStats: NewFrameStats(),
		now:        time.Now,
	}
	r.SetClearValues([4]float32{0, 0, 0, 1}, 1, 0)
	r.stats.Extent = swapchain.Extent()
	return r, nil
}

func (r *Renderer) SetClearValues(color [4]float32, depth float32, stencil uint32) {
	r.clear = []vk.ClearValue{
		vk.NewClearValue(color[:]),
		vk.NewClearDepthStencil(depth, stencil),
	}
}

// OnRebuild registers fn to run after every swapchain rebuild.
func (r *Renderer) OnRebuild(fn func(extent vk.Extent2D)) {
	r.observers = append(r.observers, fn)
}

// DrawFrame runs one acquire, record, submit, present cycle on the current
// slot. An out-of-date acquire rebuilds the swapchain and skips the frame.
// A suboptimal acquire still draws; the rebuild then runs after present,
// as it does for an out-of-date or suboptimal present and for a window
// resize. The cursor advances after every present.
//
// Any error leaves a frame slot mid-cycle and stops the renderer; later
// calls return the same error. Destroy and swapchain cleanup still work.
func (r *Renderer) DrawFrame(record RecordFunc) error {
	if r.failed != nil {
		return errors.Wrap(r.failed, "frame loop stopped")
	}
	if err := r.drawFrame(record); err != nil {
		r.failed = err
		return err
	}
	return nil
}

func (r *Renderer) drawFrame(record RecordFunc) error {
	slot := r.current
	image, status, err := r.swapchain.AcquireNextImage(slot)
	if err != nil {
		return err
	}
	switch status {
	case StatusOutOfDate:
		r.stats.Skipped++
		return r.Recreate()
	case StatusSuboptimal:
		r.rebuildPending = true
	}

	f := r.swapchain.Slot(slot)
	if err := r.beginRecording(f); err != nil {
		return err
	}
	cmd := r.commands[slot]
	if err := cmd.Reset(); err != nil {
		return errors.Wrapf(err, "reset frame %d commands", slot)
	}
	if err := cmd.Begin(); err != nil {
		return errors.Wrapf(err, "begin frame %d commands", slot)
	}
	frame := &Frame{
		Slot:        slot,
		ImageIndex:  image,
		Command:     cmd,
		RenderPass:  r.swapchain.RenderPass(),
		Framebuffer: r.swapchain.Framebuffer(image),
		Extent:      r.swapchain.Extent(),
		ClearValues: r.clear,
	}
	if err := record(frame); err != nil {
		return errors.Wrapf(err, "record frame %d", slot)
	}
	if err := cmd.End(); err != nil {
		return errors.Wrapf(err, "end frame %d commands", slot)
	}

	if err := f.Transition(FrameSubmitted); err != nil {
		return err
	}
	// The fence was observed signalled inside AcquireNextImage. Resetting it
	// only once work is certain to be submitted keeps a failed record from
	// leaving the slot unwaitable.
	if err := f.InFlight.Reset(); err != nil {
		return errors.Wrapf(err, "reset frame %d fence", slot)
	}
	err = r.device.Submit(SubmitInfo{
		Command: cmd,
		Wait:    f.ImageAvailable,
		Signal:  f.RenderFinished,
		Fence:   f.InFlight,
	})
	if err != nil {
		return errors.Wrapf(err, "submit frame %d", slot)
	}

	status, err = r.swapchain.Present(slot, image)
	if err != nil {
		return err
	}
	r.stats.Presented++
	r.tick()

	resized := r.window.WasResized()
	if resized {
		r.window.ResetResized()
	}
	if status != StatusOK || r.rebuildPending || resized {
		if err := r.Recreate(); err != nil {
			return err
		}
	}
	r.current = (r.current + 1) % len(r.commands)
	return nil
}

func (r *Renderer) beginRecording(f *FrameSlot) error {
	for i := 0; i < r.swapchain.FramesInFlight(); i++ {
		if other := r.swapchain.Slot(i); other != f && other.State() == FrameRecording {
			return errors.Wrapf(ErrFrameState, "frame %d is still recording", i)
		}
	}
	return f.Transition(FrameRecording)
}

func (r *Renderer) tick() {
	t := r.now()
	if !r.lastFrame.IsZero() {
		r.frameStats.Record(t.Sub(r.lastFrame))
	}
	r.lastFrame = t
}

// Recreate rebuilds the swapchain against the current window size. While
// the window is minimised it blocks on window events. If the window is
// closed meanwhile the rebuild is left pending and Recreate returns nil.
func (r *Renderer) Recreate() error {
	w, h := r.window.FramebufferSize()
	for w == 0 || h == 0 {
		if r.window.ShouldClose() {
			r.rebuildPending = true
			return nil
		}
		r.window.WaitEvents()
		w, h = r.window.FramebufferSize()
	}

	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait idle before rebuild")
	}
	r.swapchain.Cleanup()
	if err := r.swapchain.Init(); err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}
	r.rebuildPending = false
	r.stats.Rebuilds++
	r.stats.Extent = r.swapchain.Extent()
	// Frame timing across a stall is meaningless.
	r.lastFrame = time.Time{}

	Logger().Info("swapchain rebuilt",
		"width", r.stats.Extent.Width,
		"height", r.stats.Extent.Height,
		"generation", r.swapchain.Generation())
	for _, fn := range r.observers {
		fn(r.stats.Extent)
	}
	return nil
}

// CurrentFrame is the slot the next DrawFrame will use.
func (r *Renderer) CurrentFrame() int { return r.current }

func (r *Renderer) Stats() RenderStats { return r.stats }

func (r *Renderer) FrameStats() *FrameStats { return r.frameStats }

// RebuildPending reports whether a rebuild was requested but has not run.
func (r *Renderer) RebuildPending() bool { return r.rebuildPending }

// Err is the error that stopped the frame loop, if any.
func (r *Renderer) Err() error { return r.failed }

// Destroy frees the frame command buffers. The device must be idle.
func (r *Renderer) Destroy() {
	if r.commands != nil {
		r.device.FreeCommandBuffers(r.commands)
		r.commands = nil
	}
}
