package dieselvk

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// Application is what the engine draws. Record is called once per frame
// with the slot's command buffer already begun.
type Application interface {
	Record(f *Frame) error

	// DECORATORS:
	// ApplicationUpdater
	// ApplicationRebuildObserver
	// ApplicationVulkanLayers
	// ApplicationDeviceExtensions
}

// ApplicationUpdater runs before every frame with the time since the last one.
type ApplicationUpdater interface {
	Update(dt time.Duration) error
}

// ApplicationRebuildObserver is told the new extent after each swapchain
// rebuild, before the next frame is recorded.
type ApplicationRebuildObserver interface {
	Rebuilt(extent vk.Extent2D)
}

// ApplicationVulkanLayers overrides the configured validation layers.
type ApplicationVulkanLayers interface {
	VulkanLayers() []string
}

type ApplicationDeviceExtensions interface {
	VulkanDeviceExtensions() []string
}

var (
	DefaultVulkanAPIVersion = vk.Version(vk.MakeVersion(1, 0, 0))
)

// ClearApplication records an empty render pass, so the frame shows only
// the clear colour.
type ClearApplication struct{}

func (ClearApplication) Record(f *Frame) error {
	f.BeginRenderPass()
	f.EndRenderPass()
	return nil
}
