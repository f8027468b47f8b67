package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type vkSemaphore struct {
	device vk.Device
	handle vk.Semaphore
}

func (s *vkSemaphore) Raw() vk.Semaphore { return s.handle }

func (s *vkSemaphore) Destroy() {
	if s.device == nil {
		return
	}
	vk.DestroySemaphore(s.device, s.handle, nil)
	s.device = nil
}

// vkFence waits without a timeout; a lost device surfaces as an error from
// Wait rather than a hang.
type vkFence struct {
	device vk.Device
	handle vk.Fence
}

func (f *vkFence) Raw() vk.Fence { return f.handle }

func (f *vkFence) Wait() error {
	ret := vk.WaitForFences(f.device, 1, []vk.Fence{f.handle}, vk.True, vk.MaxUint64)
	return errors.Wrap(NewError(ret), "wait for fence")
}

func (f *vkFence) Reset() error {
	return errors.Wrap(NewError(vk.ResetFences(f.device, 1, []vk.Fence{f.handle})), "reset fence")
}

func (f *vkFence) Destroy() {
	if f.device == nil {
		return
	}
	vk.DestroyFence(f.device, f.handle, nil)
	f.device = nil
}

func (d *CoreDevice) CreateSemaphore() (Semaphore, error) {
	s := &vkSemaphore{device: d.handle}
	ret := vk.CreateSemaphore(d.handle, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create semaphore")
	}
	return s, nil
}

// CreateFence creates a fence, optionally already signalled so the first
// wait on a fresh frame slot returns at once.
func (d *CoreDevice) CreateFence(signaled bool) (Fence, error) {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &vkFence{device: d.handle}
	ret := vk.CreateFence(d.handle, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &f.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create fence")
	}
	return f, nil
}
