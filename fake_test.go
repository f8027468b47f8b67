package dieselvk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// fakeGPU is an in-memory GPU timeline. Submitted work completes only when
// its fence is waited on or the device is drained, so the amount of work in
// flight is as large as the host allows.
type fakeGPU struct {
	events     []string
	live       map[string]int
	created    map[string]int
	fail       map[string]int
	violations []string

	pending     []*fakeFence
	inFlight    int
	maxInFlight int
	submits     int
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		live:    make(map[string]int),
		created: make(map[string]int),
		fail:    make(map[string]int),
	}
}

func (g *fakeGPU) create(kind string) error {
	g.created[kind]++
	if n, ok := g.fail[kind]; ok && n == g.created[kind] {
		return NewError(vk.ErrorOutOfDeviceMemory)
	}
	g.live[kind]++
	g.events = append(g.events, "create "+kind)
	return nil
}

func (g *fakeGPU) destroy(kind string) {
	g.live[kind]--
	if g.live[kind] < 0 {
		g.violate("double destroy of %s", kind)
	}
	g.events = append(g.events, "destroy "+kind)
}

func (g *fakeGPU) violate(format string, args ...any) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) totalLive() int {
	n := 0
	for _, c := range g.live {
		n += c
	}
	return n
}

func (g *fakeGPU) complete(f *fakeFence) {
	for i, p := range g.pending {
		if p == f {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
	f.pending = false
	f.signaled = true
	g.inFlight--
}

// kinds filters events by prefix and strips it.
func (g *fakeGPU) kinds(prefix string) []string {
	var out []string
	for _, e := range g.events {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

type fakeSemaphore struct {
	gpu      *fakeGPU
	signaled bool
	dead     bool
}

func (s *fakeSemaphore) Raw() vk.Semaphore { return vk.Semaphore(vk.NullHandle) }

func (s *fakeSemaphore) Destroy() {
	if s.dead {
		s.gpu.violate("semaphore destroyed twice")
		return
	}
	s.dead = true
	s.gpu.destroy("semaphore")
}

type fakeFence struct {
	gpu      *fakeGPU
	signaled bool
	pending  bool
	dead     bool
}

func (f *fakeFence) Raw() vk.Fence { return vk.Fence(vk.NullHandle) }

func (f *fakeFence) Wait() error {
	switch {
	case f.pending:
		f.gpu.complete(f)
	case !f.signaled:
		f.gpu.violate("wait on a fence nothing will signal")
		return NewError(vk.Timeout)
	}
	return nil
}

func (f *fakeFence) Reset() error {
	if f.pending {
		f.gpu.violate("fence reset while its work is in flight")
	}
	f.signaled = false
	return nil
}

func (f *fakeFence) Destroy() {
	if f.pending {
		f.gpu.violate("fence destroyed while its work is in flight")
	}
	f.dead = true
	f.gpu.destroy("fence")
}

type fakeCommandBuffer struct {
	gpu       *fakeGPU
	recording bool
	ended     bool
	inUse     *fakeFence
	passes    int
	open      bool
	copies    []func()
}

func (c *fakeCommandBuffer) Raw() vk.CommandBuffer { return nil }

func (c *fakeCommandBuffer) Reset() error {
	if c.inUse != nil && c.inUse.pending {
		c.gpu.violate("command buffer reset while executing")
	}
	c.recording, c.ended, c.open = false, false, false
	c.copies = nil
	return nil
}

func (c *fakeCommandBuffer) Begin() error {
	if c.recording {
		c.gpu.violate("begin on a recording command buffer")
	}
	c.recording, c.ended = true, false
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.recording || c.open {
		c.gpu.violate("end with recording=%v, render pass open=%v", c.recording, c.open)
	}
	c.recording, c.ended = false, true
	return nil
}

func (c *fakeCommandBuffer) BeginRenderPass(pass RenderPass, fb Framebuffer, area vk.Extent2D, clear []vk.ClearValue) {
	if !c.recording || c.open {
		c.gpu.violate("render pass begun outside recording")
	}
	if f, ok := fb.(*fakeFramebuffer); ok && f.extent != area {
		c.gpu.violate("render area %v does not match framebuffer %v", area, f.extent)
	}
	c.open = true
	c.passes++
}

func (c *fakeCommandBuffer) EndRenderPass() {
	if !c.open {
		c.gpu.violate("render pass ended without begin")
	}
	c.open = false
}

// CopyBuffer runs when the command buffer is submitted.
func (c *fakeCommandBuffer) CopyBuffer(src, dst Buffer, size uint64) {
	if !c.recording || c.open {
		c.gpu.violate("buffer copy outside recording or inside a render pass")
	}
	from, to := src.(*fakeBuffer), dst.(*fakeBuffer)
	if size > from.Size() || size > to.Size() {
		c.gpu.violate("copy of %d bytes between %d and %d byte buffers", size, from.Size(), to.Size())
		return
	}
	c.copies = append(c.copies, func() {
		if from.dead || to.dead {
			c.gpu.violate("buffer copy touches a destroyed buffer")
		}
		copy(to.data[:size], from.data[:size])
	})
}

type fakeResource struct {
	gpu  *fakeGPU
	kind string
	dead bool
}

func (r *fakeResource) Destroy() {
	if r.dead {
		r.gpu.violate("%s destroyed twice", r.kind)
		return
	}
	r.dead = true
	r.gpu.destroy(r.kind)
}

type fakeImage struct {
	fakeResource
	owned bool
}

func (i *fakeImage) Raw() vk.Image { return vk.Image(vk.NullHandle) }

func (i *fakeImage) Destroy() {
	if i.owned {
		i.fakeResource.Destroy()
	}
}

type fakeImageView struct{ fakeResource }

func (v *fakeImageView) Raw() vk.ImageView { return vk.ImageView(vk.NullHandle) }

type fakeRenderPass struct {
	fakeResource
	info RenderPassInfo
}

func (r *fakeRenderPass) Raw() vk.RenderPass { return vk.RenderPass(vk.NullHandle) }

type fakeFramebuffer struct {
	fakeResource
	attachments int
	extent      vk.Extent2D
}

func (f *fakeFramebuffer) Raw() vk.Framebuffer { return vk.Framebuffer(vk.NullHandle) }

type fakeBuffer struct {
	fakeResource
	data []byte
}

func (b *fakeBuffer) Raw() vk.Buffer { return vk.Buffer(vk.NullHandle) }
func (b *fakeBuffer) Size() uint64   { return uint64(len(b.data)) }

func (b *fakeBuffer) Upload(data []byte) error {
	copy(b.data, data)
	return nil
}

type fakeSwapchain struct {
	fakeResource
	dev    *fakeDevice
	info   SwapchainInfo
	images []Image
	next   uint32
}

func (s *fakeSwapchain) Images() []Image { return s.images }

func (s *fakeSwapchain) AcquireNextImage(signal Semaphore) (uint32, Status, error) {
	status := s.dev.pop(&s.dev.acquire)
	if status == StatusOutOfDate {
		return 0, status, nil
	}
	sem := signal.(*fakeSemaphore)
	if sem.signaled {
		s.dev.gpu.violate("acquire signals a semaphore that is already signalled")
	}
	sem.signaled = true
	index := s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	return index, status, nil
}

func (s *fakeSwapchain) Present(wait Semaphore, index uint32) (Status, error) {
	sem := wait.(*fakeSemaphore)
	if !sem.signaled {
		s.dev.gpu.violate("present waits on an unsignalled semaphore")
	}
	sem.signaled = false
	if int(index) >= len(s.images) {
		s.dev.gpu.violate("present of image %d out of %d", index, len(s.images))
	}
	s.dev.presents++
	return s.dev.pop(&s.dev.present), nil
}

// fakeDevice reports a surface whose current extent follows the window.
type fakeDevice struct {
	gpu    *fakeGPU
	window *fakeWindow

	formats      []vk.SurfaceFormat
	modes        []vk.PresentMode
	caps         SurfaceCapabilities
	families     QueueFamilyIndices
	samples      vk.SampleCountFlagBits
	depthFormats map[vk.Format]bool

	acquire    []Status
	present    []Status
	submitErr  error
	swapchain  *fakeSwapchain
	presents   int
	waitIdles  int
	singleTime int
	destroyed  bool
	lastSubmit SubmitInfo
}

func newFakeDevice(window *fakeWindow) *fakeDevice {
	return &fakeDevice{
		gpu:     newFakeGPU(),
		window:  window,
		formats: []vk.SurfaceFormat{PreferredSurfaceFormat},
		modes:   []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		caps: SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           8,
			MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
			SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
			CurrentTransform:        vk.SurfaceTransformIdentityBit,
			SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		},
		samples:      vk.SampleCount1Bit,
		depthFormats: map[vk.Format]bool{vk.FormatD32Sfloat: true},
	}
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) pop(script *[]Status) Status {
	if len(*script) == 0 {
		return StatusOK
	}
	s := (*script)[0]
	*script = (*script)[1:]
	return s
}

func (d *fakeDevice) SurfaceSupport() (SurfaceSupport, error) {
	caps := d.caps
	w, h := d.window.FramebufferSize()
	caps.CurrentExtent = vk.Extent2D{Width: uint32(w), Height: uint32(h)}
	return SurfaceSupport{Capabilities: caps, Formats: d.formats, PresentModes: d.modes}, nil
}

func (d *fakeDevice) QueueFamilies() QueueFamilyIndices            { return d.families }
func (d *fakeDevice) MaxUsableSampleCount() vk.SampleCountFlagBits { return d.samples }

func (d *fakeDevice) FormatProperties(format vk.Format) FormatProperties {
	if d.depthFormats[format] {
		return FormatProperties{
			OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
		}
	}
	return FormatProperties{}
}

func (d *fakeDevice) CreateSwapchain(info SwapchainInfo) (Swapchain, error) {
	if err := d.gpu.create("swapchain"); err != nil {
		return nil, err
	}
	s := &fakeSwapchain{fakeResource: fakeResource{gpu: d.gpu, kind: "swapchain"}, dev: d, info: info}
	for i := uint32(0); i < info.ImageCount; i++ {
		s.images = append(s.images, &fakeImage{fakeResource: fakeResource{gpu: d.gpu, kind: "image"}})
	}
	d.swapchain = s
	return s, nil
}

func (d *fakeDevice) CreateImage(info ImageInfo) (Image, error) {
	if err := d.gpu.create("image"); err != nil {
		return nil, err
	}
	return &fakeImage{fakeResource: fakeResource{gpu: d.gpu, kind: "image"}, owned: true}, nil
}

func (d *fakeDevice) CreateImageView(Image, vk.Format, vk.ImageAspectFlags) (ImageView, error) {
	if err := d.gpu.create("view"); err != nil {
		return nil, err
	}
	return &fakeImageView{fakeResource{gpu: d.gpu, kind: "view"}}, nil
}

func (d *fakeDevice) CreateBuffer(size uint64, _ vk.BufferUsageFlags, _ vk.MemoryPropertyFlags) (Buffer, error) {
	if err := d.gpu.create("buffer"); err != nil {
		return nil, err
	}
	return &fakeBuffer{fakeResource: fakeResource{gpu: d.gpu, kind: "buffer"}, data: make([]byte, size)}, nil
}

func (d *fakeDevice) CreateRenderPass(info RenderPassInfo) (RenderPass, error) {
	if err := d.gpu.create("renderpass"); err != nil {
		return nil, err
	}
	return &fakeRenderPass{fakeResource: fakeResource{gpu: d.gpu, kind: "renderpass"}, info: info}, nil
}

func (d *fakeDevice) CreateFramebuffer(pass RenderPass, attachments []ImageView, extent vk.Extent2D) (Framebuffer, error) {
	if pass == nil {
		d.gpu.violate("framebuffer created before its render pass")
	}
	if err := d.gpu.create("framebuffer"); err != nil {
		return nil, err
	}
	return &fakeFramebuffer{
		fakeResource: fakeResource{gpu: d.gpu, kind: "framebuffer"},
		attachments:  len(attachments),
		extent:       extent,
	}, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	if err := d.gpu.create("semaphore"); err != nil {
		return nil, err
	}
	return &fakeSemaphore{gpu: d.gpu}, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	if err := d.gpu.create("fence"); err != nil {
		return nil, err
	}
	return &fakeFence{gpu: d.gpu, signaled: signaled}, nil
}

func (d *fakeDevice) AllocateCommandBuffers(count int) ([]CommandBuffer, error) {
	out := make([]CommandBuffer, count)
	for i := range out {
		if err := d.gpu.create("cmd"); err != nil {
			return nil, err
		}
		out[i] = &fakeCommandBuffer{gpu: d.gpu}
	}
	return out, nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers []CommandBuffer) {
	for _, b := range buffers {
		if c := b.(*fakeCommandBuffer); c.inUse != nil && c.inUse.pending {
			d.gpu.violate("command buffer freed while executing")
		}
		d.gpu.destroy("cmd")
	}
}

func (d *fakeDevice) Submit(info SubmitInfo) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.lastSubmit = info
	cmd := info.Command.(*fakeCommandBuffer)
	if !cmd.ended {
		d.gpu.violate("submit of a command buffer that was not ended")
	}
	if info.Wait != nil {
		sem := info.Wait.(*fakeSemaphore)
		if !sem.signaled {
			d.gpu.violate("submit waits on an unsignalled semaphore")
		}
		sem.signaled = false
	}
	if info.Signal != nil {
		sem := info.Signal.(*fakeSemaphore)
		if sem.signaled {
			d.gpu.violate("submit signals a semaphore that is already signalled")
		}
		sem.signaled = true
	}
	d.gpu.submits++
	for _, run := range cmd.copies {
		run()
	}
	cmd.copies = nil
	if info.Fence == nil {
		return nil
	}
	f := info.Fence.(*fakeFence)
	if f.signaled || f.pending {
		d.gpu.violate("submit with a fence that was not reset")
	}
	f.pending = true
	cmd.inUse = f
	d.gpu.pending = append(d.gpu.pending, f)
	d.gpu.inFlight++
	d.gpu.maxInFlight = max(d.gpu.maxInFlight, d.gpu.inFlight)
	return nil
}

func (d *fakeDevice) BeginSingleTimeCommands() (CommandBuffer, error) {
	cmds, err := d.AllocateCommandBuffers(1)
	if err != nil {
		return nil, err
	}
	return cmds[0], cmds[0].Begin()
}

func (d *fakeDevice) EndSingleTimeCommands(cmd CommandBuffer) error {
	defer d.FreeCommandBuffers([]CommandBuffer{cmd})
	if err := cmd.End(); err != nil {
		return err
	}
	if err := d.Submit(SubmitInfo{Command: cmd}); err != nil {
		return err
	}
	// Waited on: the queue is idle before the buffer is freed.
	d.singleTime++
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdles++
	for len(d.gpu.pending) > 0 {
		d.gpu.complete(d.gpu.pending[0])
	}
	return nil
}

func (d *fakeDevice) Destroy() {
	if d.destroyed {
		d.gpu.violate("device destroyed twice")
	}
	d.destroyed = true
}

// fakeWindow scripts the sizes that WaitEvents reveals. With nothing left
// to reveal, WaitEvents eventually closes the window so a broken loop
// terminates.
type fakeWindow struct {
	w, h       int
	resized    bool
	sizes      [][2]int
	waits      int
	polls      int
	closeAfter int
	closed     bool
}

func newFakeWindow(w, h int) *fakeWindow {
	return &fakeWindow{w: w, h: h}
}

func (w *fakeWindow) FramebufferSize() (int, int) { return w.w, w.h }
func (w *fakeWindow) WasResized() bool            { return w.resized }
func (w *fakeWindow) ResetResized()               { w.resized = false }
func (w *fakeWindow) PollEvents()                 { w.polls++ }

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 0 {
		w.w, w.h = w.sizes[0][0], w.sizes[0][1]
		w.sizes = w.sizes[1:]
		return
	}
	if w.waits > 100 {
		w.closed = true
	}
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closed || (w.closeAfter > 0 && w.polls >= w.closeAfter)
}

func (w *fakeWindow) resize(width, height int) {
	w.w, w.h = width, height
	w.resized = true
}
