package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// vkSwapchain presents on the device's present queue. Its images belong to
// the presentation engine and go away with the swapchain.
type vkSwapchain struct {
	device  vk.Device
	present vk.Queue
	handle  vk.Swapchain
	images  []Image
}

func (d *CoreDevice) CreateSwapchain(info SwapchainInfo) (Swapchain, error) {
	s := &vkSwapchain{device: d.handle, present: d.present}
	ret := vk.CreateSwapchain(d.handle, &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               d.surface,
		MinImageCount:         info.ImageCount,
		ImageFormat:           info.Format.Format,
		ImageColorSpace:       info.Format.ColorSpace,
		ImageExtent:           info.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      info.Sharing,
		QueueFamilyIndexCount: uint32(len(info.QueueFamilies)),
		PQueueFamilyIndices:   info.QueueFamilies,
		PreTransform:          info.PreTransform,
		CompositeAlpha:        info.CompositeAlpha,
		PresentMode:           info.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}, nil, &s.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	var count uint32
	if err := NewError(vk.GetSwapchainImages(d.handle, s.handle, &count, nil)); err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "swapchain image count")
	}
	handles := make([]vk.Image, count)
	if err := NewError(vk.GetSwapchainImages(d.handle, s.handle, &count, handles)); err != nil {
		s.Destroy()
		return nil, errors.Wrap(err, "swapchain images")
	}
	s.images = make([]Image, count)
	for i, h := range handles {
		s.images[i] = &vkImage{device: d.handle, handle: h}
	}
	return s, nil
}

func (s *vkSwapchain) Images() []Image { return s.images }

func (s *vkSwapchain) AcquireNextImage(signal Semaphore) (uint32, Status, error) {
	var index uint32
	ret := vk.AcquireNextImage(s.device, s.handle, vk.MaxUint64, signal.Raw(), vk.Fence(vk.NullHandle), &index)
	status, err := StatusFromResult(ret)
	if err != nil {
		return 0, status, errors.Wrap(err, "acquire next image")
	}
	return index, status, nil
}

func (s *vkSwapchain) Present(wait Semaphore, index uint32) (Status, error) {
	ret := vk.QueuePresent(s.present, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Raw()},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{index},
	})
	status, err := StatusFromResult(ret)
	if err != nil {
		return status, errors.Wrap(err, "queue present")
	}
	return status, nil
}

func (s *vkSwapchain) Destroy() {
	if s.device == nil {
		return
	}
	vk.DestroySwapchain(s.device, s.handle, nil)
	s.images = nil
	s.device = nil
}
