package dieselvk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Status is the outcome of an acquire or present call that the frame loop
// treats as normal control flow rather than as an error.
type Status int

const (
	StatusOK Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusFromResult maps acquire/present results. Anything other than
// success, suboptimal or out-of-date is a driver fault.
func StatusFromResult(ret vk.Result) (Status, error) {
	switch ret {
	case vk.Success:
		return StatusOK, nil
	case vk.Suboptimal:
		return StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return StatusOutOfDate, nil
	}
	return StatusOK, NewError(ret)
}

// Device is the logical GPU connection consumed by the swapchain and the
// frame loop. CoreDevice implements it over vulkan-go.
type Device interface {
	SurfaceSupport() (SurfaceSupport, error)
	QueueFamilies() QueueFamilyIndices
	MaxUsableSampleCount() vk.SampleCountFlagBits
	FormatProperties(format vk.Format) FormatProperties

	CreateSwapchain(info SwapchainInfo) (Swapchain, error)
	CreateImage(info ImageInfo) (Image, error)
	CreateImageView(image Image, format vk.Format, aspect vk.ImageAspectFlags) (ImageView, error)
	CreateBuffer(size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (Buffer, error)
	CreateRenderPass(info RenderPassInfo) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, attachments []ImageView, extent vk.Extent2D) (Framebuffer, error)
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)
	Submit(info SubmitInfo) error
	BeginSingleTimeCommands() (CommandBuffer, error)
	EndSingleTimeCommands(cmd CommandBuffer) error

	// WaitIdle drains every queue. Only the rebuild and shutdown paths call it.
	WaitIdle() error
	Destroy()
}

// Swapchain is the presentation engine's chain of images.
type Swapchain interface {
	// Images are owned by the swapchain; their Destroy is a no-op.
	Images() []Image
	AcquireNextImage(signal Semaphore) (uint32, Status, error)
	Present(wait Semaphore, index uint32) (Status, error)
	Destroy()
}

type Image interface {
	Raw() vk.Image
	Destroy()
}

type ImageView interface {
	Raw() vk.ImageView
	Destroy()
}

type Buffer interface {
	Raw() vk.Buffer
	Size() uint64
	// Upload copies data to the start of a host-visible buffer.
	Upload(data []byte) error
	Destroy()
}

type RenderPass interface {
	Raw() vk.RenderPass
	Destroy()
}

type Framebuffer interface {
	Raw() vk.Framebuffer
	Destroy()
}

type Semaphore interface {
	Raw() vk.Semaphore
	Destroy()
}

// Fence is a GPU to CPU completion signal. Wait blocks without a timeout.
type Fence interface {
	Raw() vk.Fence
	Wait() error
	Reset() error
	Destroy()
}

type CommandBuffer interface {
	Raw() vk.CommandBuffer
	Reset() error
	Begin() error
	End() error
	BeginRenderPass(pass RenderPass, fb Framebuffer, area vk.Extent2D, clear []vk.ClearValue)
	EndRenderPass()
	// CopyBuffer records a copy of the first size bytes of src into dst.
	CopyBuffer(src, dst Buffer, size uint64)
}

type SurfaceCapabilities struct {
	MinImageCount           uint32
	MaxImageCount           uint32
	CurrentExtent           vk.Extent2D
	MinImageExtent          vk.Extent2D
	MaxImageExtent          vk.Extent2D
	SupportedTransforms     vk.SurfaceTransformFlags
	CurrentTransform        vk.SurfaceTransformFlagBits
	SupportedCompositeAlpha vk.CompositeAlphaFlags
}

// SurfaceSupport is a fresh snapshot of what the window surface accepts.
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
}

// Shared reports whether one family serves graphics and present.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

type SwapchainInfo struct {
	ImageCount     uint32
	Format         vk.SurfaceFormat
	Extent         vk.Extent2D
	PresentMode    vk.PresentMode
	Sharing        vk.SharingMode
	QueueFamilies  []uint32
	PreTransform   vk.SurfaceTransformFlagBits
	CompositeAlpha vk.CompositeAlphaFlagBits
}

type ImageInfo struct {
	Extent     vk.Extent2D
	Format     vk.Format
	Samples    vk.SampleCountFlagBits
	Tiling     vk.ImageTiling
	Usage      vk.ImageUsageFlags
	Properties vk.MemoryPropertyFlags
}

// RenderPassInfo describes the colour, depth and optional resolve
// attachments. A resolve attachment exists when Samples is above one.
type RenderPassInfo struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
}

func (r RenderPassInfo) Resolve() bool {
	return r.Samples > vk.SampleCount1Bit
}

// SubmitInfo is a single command buffer submission gated on Wait at the
// colour attachment output stage.
type SubmitInfo struct {
	Command CommandBuffer
	Wait    Semaphore
	Signal  Semaphore
	Fence   Fence
}

type FormatProperties struct {
	LinearTilingFeatures  vk.FormatFeatureFlags
	OptimalTilingFeatures vk.FormatFeatureFlags
}
