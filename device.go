package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type DeviceOptions struct {
	// Extensions are required device extensions; the swapchain extension is
	// always added.
	Extensions []string
}

// CoreDevice is the logical device with its graphics and present queues and
// one resettable command pool on the graphics family. It must outlive every
// object it creates.
type CoreDevice struct {
	gpu      vk.PhysicalDevice
	name     string
	surface  vk.Surface
	handle   vk.Device
	families QueueFamilyIndices
	graphics vk.Queue
	present  vk.Queue
	pool     vk.CommandPool

	memory  vk.PhysicalDeviceMemoryProperties
	samples vk.SampleCountFlagBits
}

var _ Device = (*CoreDevice)(nil)

func NewCoreDevice(instance *CoreInstance, surface vk.Surface, opts DeviceOptions) (d *CoreDevice, err error) {
	defer checkErr(&err)

	extensions := append(append([]string(nil), DefaultDeviceExtensions...), opts.Extensions...)
	pick, err := pickPhysicalDevice(instance.Handle(), surface, safeStrings(extensions))
	if err != nil {
		return nil, err
	}
	d = &CoreDevice{
		gpu:      pick.gpu,
		name:     pick.name,
		surface:  surface,
		families: pick.queues,
	}

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.gpu, &props)
	props.Deref()
	props.Limits.Deref()
	d.samples = MaxSampleCount(props.Limits.FramebufferColorSampleCounts & props.Limits.FramebufferDepthSampleCounts)
	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &d.memory)
	d.memory.Deref()

	queueInfos := queueCreateInfos(d.families)
	layers := instance.Layers()
	ret := vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}, nil, &d.handle)
	orPanic(NewError(ret))

	vk.GetDeviceQueue(d.handle, d.families.Graphics, 0, &d.graphics)
	vk.GetDeviceQueue(d.handle, d.families.Present, 0, &d.present)

	ret = vk.CreateCommandPool(d.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.families.Graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &d.pool)
	orPanic(NewError(ret), func() {
		vk.DestroyDevice(d.handle, nil)
	})

	Logger().Info("device ready",
		"device", d.name,
		"graphics_family", d.families.Graphics,
		"present_family", d.families.Present,
		"max_samples", d.samples)
	return d, nil
}

func (d *CoreDevice) Handle() vk.Device                            { return d.handle }
func (d *CoreDevice) Name() string                                 { return d.name }
func (d *CoreDevice) QueueFamilies() QueueFamilyIndices            { return d.families }
func (d *CoreDevice) MaxUsableSampleCount() vk.SampleCountFlagBits { return d.samples }

func (d *CoreDevice) SurfaceSupport() (SurfaceSupport, error) {
	return querySurfaceSupport(d.gpu, d.surface)
}

func (d *CoreDevice) FormatProperties(format vk.Format) FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.gpu, format, &props)
	props.Deref()
	return FormatProperties{
		LinearTilingFeatures:  props.LinearTilingFeatures,
		OptimalTilingFeatures: props.OptimalTilingFeatures,
	}
}

// Submit queues one command buffer on the graphics queue. The wait happens
// at the colour attachment output stage.
func (d *CoreDevice) Submit(info SubmitInfo) error {
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{info.Command.Raw()},
	}
	if info.Wait != nil {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{info.Wait.Raw()}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if info.Signal != nil {
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{info.Signal.Raw()}
	}
	fence := vk.Fence(vk.NullHandle)
	if info.Fence != nil {
		fence = info.Fence.Raw()
	}
	return NewError(vk.QueueSubmit(d.graphics, 1, []vk.SubmitInfo{submit}, fence))
}

func (d *CoreDevice) WaitIdle() error {
	return errors.Wrap(NewError(vk.DeviceWaitIdle(d.handle)), "device wait idle")
}

// Destroy releases the command pool and then the device. The surface and
// instance belong to the caller.
func (d *CoreDevice) Destroy() {
	if d.handle == nil {
		return
	}
	if d.pool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(d.handle, d.pool, nil)
		d.pool = vk.CommandPool(vk.NullHandle)
	}
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
}
