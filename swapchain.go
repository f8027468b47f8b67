package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ExtentSource reports the window framebuffer size in pixels.
type ExtentSource interface {
	FramebufferSize() (width, height int)
}

type SwapChainOptions struct {
	// FramesInFlight is the number of frame slots. Zero means the default.
	FramesInFlight int
	// PresentModes is the preference order; FIFO is the fallback.
	PresentModes []vk.PresentMode
	// MaxSamples caps the MSAA sample count. Zero means the device maximum.
	MaxSamples vk.SampleCountFlagBits
}

// SwapChain owns the presentable image set and everything sized to it: the
// image views, the multisampled colour target, the depth target, the render
// pass, one framebuffer per image and the frame slots. The whole bundle is
// created by Init and destroyed by Cleanup; it is never resized in place.
type SwapChain struct {
	device Device
	window ExtentSource
	opts   SwapChainOptions

	swapchain    Swapchain
	images       []Image
	views        []ImageView
	colorImage   Image
	colorView    ImageView
	depthImage   Image
	depthView    ImageView
	renderPass   RenderPass
	framebuffers []Framebuffer
	slots        []*FrameSlot

	format      vk.SurfaceFormat
	extent      vk.Extent2D
	presentMode vk.PresentMode
	samples     vk.SampleCountFlagBits
	depthFormat vk.Format
	generation  int
}

// NewSwapChain does not touch the GPU; call Init.
func NewSwapChain(device Device, window ExtentSource, opts SwapChainOptions) *SwapChain {
	if opts.FramesInFlight <= 0 {
		opts.FramesInFlight = DefaultFramesInFlight
	}
	if len(opts.PresentModes) == 0 {
		opts.PresentModes = []vk.PresentMode{vk.PresentModeMailbox}
	}
	return &SwapChain{device: device, window: window, opts: opts}
}

// Init builds the image set against the current surface state and window
// size. On failure everything created so far is released.
func (s *SwapChain) Init() (err error) {
	if s.swapchain != nil {
		return errors.New("swapchain already initialised")
	}
	defer func() {
		if err != nil {
			s.Cleanup()
		}
	}()

	support, err := s.device.SurfaceSupport()
	if err != nil {
		return errors.Wrap(err, "query surface support")
	}
	if len(support.Formats) == 0 {
		return ErrNoSurfaceFormat
	}
	caps := support.Capabilities
	width, height := s.window.FramebufferSize()

	s.format = ChooseSurfaceFormat(support.Formats)
	s.presentMode = ChoosePresentMode(support.PresentModes, s.opts.PresentModes)
	s.extent = ChooseExtent(caps, width, height)
	if s.extent.Width == 0 || s.extent.Height == 0 {
		return errors.Newf("cannot build a %dx%d swapchain", s.extent.Width, s.extent.Height)
	}
	sharing, families := ChooseSharing(s.device.QueueFamilies())

	s.swapchain, err = s.device.CreateSwapchain(SwapchainInfo{
		ImageCount:     ChooseImageCount(caps),
		Format:         s.format,
		Extent:         s.extent,
		PresentMode:    s.presentMode,
		Sharing:        sharing,
		QueueFamilies:  families,
		PreTransform:   ChoosePreTransform(caps),
		CompositeAlpha: ChooseCompositeAlpha(caps.SupportedCompositeAlpha),
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	s.images = s.swapchain.Images()
	for i, img := range s.images {
		view, err := s.device.CreateImageView(img, s.format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return errors.Wrapf(err, "swapchain image view %d", i)
		}
		s.views = append(s.views, view)
	}

	s.samples = ClampSampleCount(s.device.MaxUsableSampleCount(), s.opts.MaxSamples)
	if s.samples > vk.SampleCount1Bit {
		if err := s.createColorTarget(); err != nil {
			return err
		}
	}
	if err := s.createDepthTarget(); err != nil {
		return err
	}

	s.renderPass, err = s.device.CreateRenderPass(RenderPassInfo{
		ColorFormat: s.format.Format,
		DepthFormat: s.depthFormat,
		Samples:     s.samples,
	})
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	for i, view := range s.views {
		attachments := []ImageView{view, s.depthView}
		if s.colorView != nil {
			attachments = []ImageView{s.colorView, s.depthView, view}
		}
		fb, err := s.device.CreateFramebuffer(s.renderPass, attachments, s.extent)
		if err != nil {
			return errors.Wrapf(err, "framebuffer %d", i)
		}
		s.framebuffers = append(s.framebuffers, fb)
	}

	for i := 0; i < s.opts.FramesInFlight; i++ {
		slot, err := newFrameSlot(s.device, i)
		if err != nil {
			return err
		}
		s.slots = append(s.slots, slot)
	}

	s.generation++
	Logger().Debug("swapchain initialised",
		"generation", s.generation,
		"width", s.extent.Width,
		"height", s.extent.Height,
		"images", len(s.images),
		"format", s.format.Format,
		"present_mode", presentModeName(s.presentMode),
		"samples", s.samples,
		"depth_format", s.depthFormat,
		"frames_in_flight", len(s.slots))
	return nil
}

func (s *SwapChain) createColorTarget() (err error) {
	s.colorImage, err = s.device.CreateImage(ImageInfo{
		Extent:     s.extent,
		Format:     s.format.Format,
		Samples:    s.samples,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit | vk.ImageUsageColorAttachmentBit),
		Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return errors.Wrap(err, "create colour target")
	}
	s.colorView, err = s.device.CreateImageView(s.colorImage, s.format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	return errors.Wrap(err, "create colour target view")
}

func (s *SwapChain) createDepthTarget() (err error) {
	if s.depthFormat, err = FindDepthFormat(s.device); err != nil {
		return err
	}
	s.depthImage, err = s.device.CreateImage(ImageInfo{
		Extent:     s.extent,
		Format:     s.depthFormat,
		Samples:    s.samples,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return errors.Wrap(err, "create depth target")
	}
	s.depthView, err = s.device.CreateImageView(s.depthImage, s.depthFormat, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	return errors.Wrap(err, "create depth target view")
}

// Cleanup destroys the bundle in reverse creation order. It is safe on a
// partially built or already cleaned swapchain.
func (s *SwapChain) Cleanup() {
	for _, slot := range s.slots {
		slot.Destroy()
	}
	s.slots = nil
	for _, fb := range s.framebuffers {
		fb.Destroy()
	}
	s.framebuffers = nil
	if s.renderPass != nil {
		s.renderPass.Destroy()
		s.renderPass = nil
	}
	if s.depthView != nil {
		s.depthView.Destroy()
		s.depthView = nil
	}
	if s.depthImage != nil {
		s.depthImage.Destroy()
		s.depthImage = nil
	}
	if s.colorView != nil {
		s.colorView.Destroy()
		s.colorView = nil
	}
	if s.colorImage != nil {
		s.colorImage.Destroy()
		s.colorImage = nil
	}
	for _, view := range s.views {
		view.Destroy()
	}
	s.views = nil
	s.images = nil
	if s.swapchain != nil {
		s.swapchain.Destroy()
		s.swapchain = nil
	}
}

// AcquireNextImage blocks on the slot's fence, then asks the presentation
// engine for the next image, signalling the slot's image-available semaphore.
// An out-of-date surface returns the slot to idle.
func (s *SwapChain) AcquireNextImage(slot int) (uint32, Status, error) {
	f, err := s.slot(slot)
	if err != nil {
		return 0, StatusOK, err
	}
	if err := f.Transition(FrameAcquiring); err != nil {
		return 0, StatusOK, err
	}
	if err := f.InFlight.Wait(); err != nil {
		return 0, StatusOK, errors.Wrapf(err, "wait frame %d fence", slot)
	}
	index, status, err := s.swapchain.AcquireNextImage(f.ImageAvailable)
	if err != nil {
		return 0, status, errors.Wrap(err, "acquire next image")
	}
	if status == StatusOutOfDate {
		return 0, status, f.Transition(FrameIdle)
	}
	return index, status, nil
}

// Present queues image for display once the slot's render-finished
// semaphore fires. The slot is idle again when Present returns.
func (s *SwapChain) Present(slot int, image uint32) (Status, error) {
	f, err := s.slot(slot)
	if err != nil {
		return StatusOK, err
	}
	if err := f.Transition(FramePresenting); err != nil {
		return StatusOK, err
	}
	status, err := s.swapchain.Present(f.RenderFinished, image)
	if err != nil {
		return status, errors.Wrap(err, "present")
	}
	return status, f.Transition(FrameIdle)
}

func (s *SwapChain) slot(i int) (*FrameSlot, error) {
	if i < 0 || i >= len(s.slots) {
		return nil, errors.Newf("frame slot %d out of range [0,%d)", i, len(s.slots))
	}
	return s.slots[i], nil
}

func (s *SwapChain) ImageCount() int                      { return len(s.images) }
func (s *SwapChain) Format() vk.SurfaceFormat             { return s.format }
func (s *SwapChain) Extent() vk.Extent2D                  { return s.extent }
func (s *SwapChain) PresentMode() vk.PresentMode          { return s.presentMode }
func (s *SwapChain) Samples() vk.SampleCountFlagBits      { return s.samples }
func (s *SwapChain) DepthFormat() vk.Format               { return s.depthFormat }
func (s *SwapChain) RenderPass() RenderPass               { return s.renderPass }
func (s *SwapChain) Framebuffer(image uint32) Framebuffer { return s.framebuffers[image] }
func (s *SwapChain) Slot(i int) *FrameSlot                { return s.slots[i] }

// FramesInFlight is the configured slot count; it does not change on rebuild.
func (s *SwapChain) FramesInFlight() int { return s.opts.FramesInFlight }

// Generation counts successful Init calls.
func (s *SwapChain) Generation() int { return s.generation }
