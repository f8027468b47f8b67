package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// gpuCandidate is a physical device that passed every suitability check.
type gpuCandidate struct {
	gpu    vk.PhysicalDevice
	queues QueueFamilyIndices
	score  int
	name   string
}

// deviceScore ranks device types; discrete GPUs win.
func deviceScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 200
	}
	return 100
}

// pickPhysicalDevice returns the best GPU that has complete queue families,
// the required extensions, a usable surface and sampler anisotropy.
func pickPhysicalDevice(instance vk.Instance, surface vk.Surface, extensions []string) (best gpuCandidate, err error) {
	defer checkErr(&err)

	var count uint32
	orPanic(NewError(vk.EnumeratePhysicalDevices(instance, &count, nil)))
	if count == 0 {
		return best, errors.Wrap(ErrNoDevice, "no vulkan devices")
	}
	gpus := make([]vk.PhysicalDevice, count)
	orPanic(NewError(vk.EnumeratePhysicalDevices(instance, &count, gpus)))

	best.score = -1
	for _, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		name := vk.ToString(props.DeviceName[:])

		reject := func(reason string) {
			Logger().Debug("skipping device", "device", name, "reason", reason)
		}
		queues, ok := FindQueueFamilies(queryQueueFamilies(gpu, surface))
		if !ok {
			reject("no graphics and present queue families")
			continue
		}
		if !hasDeviceExtensions(gpu, extensions) {
			reject("missing device extensions")
			continue
		}
		support, err := querySurfaceSupport(gpu, surface)
		if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			reject("surface not usable")
			continue
		}
		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(gpu, &features)
		features.Deref()
		if features.SamplerAnisotropy != vk.True {
			reject("no sampler anisotropy")
			continue
		}
		if score := deviceScore(props.DeviceType); score > best.score {
			best = gpuCandidate{gpu: gpu, queues: queues, score: score, name: name}
		}
	}
	if best.score < 0 {
		return best, ErrNoDevice
	}
	return best, nil
}

// querySurfaceSupport snapshots capabilities, formats and present modes.
func querySurfaceSupport(gpu vk.PhysicalDevice, surface vk.Surface) (s SurfaceSupport, err error) {
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return s, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	s.Capabilities = SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           caps.CurrentExtent,
		MinImageExtent:          caps.MinImageExtent,
		MaxImageExtent:          caps.MaxImageExtent,
		SupportedTransforms:     caps.SupportedTransforms,
		CurrentTransform:        caps.CurrentTransform,
		SupportedCompositeAlpha: caps.SupportedCompositeAlpha,
	}

	var formatCount uint32
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)); err != nil {
		return s, err
	}
	if formatCount > 0 {
		s.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, s.Formats)); err != nil {
			return s, err
		}
		for i := range s.Formats {
			s.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)); err != nil {
		return s, err
	}
	if modeCount > 0 {
		s.PresentModes = make([]vk.PresentMode, modeCount)
		if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, s.PresentModes)); err != nil {
			return s, err
		}
	}
	return s, nil
}
