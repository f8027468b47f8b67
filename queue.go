package dieselvk

import vk "github.com/vulkan-go/vulkan"

// QueueFamily is what family selection needs to know about one queue family.
type QueueFamily struct {
	Flags      vk.QueueFlags
	QueueCount uint32
	Present    bool
}

// queryQueueFamilies lists the GPU's queue families with surface support.
func queryQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) []QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	families := make([]QueueFamily, count)
	for i := range props {
		props[i].Deref()
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &present)
		families[i] = QueueFamily{
			Flags:      props[i].QueueFlags,
			QueueCount: props[i].QueueCount,
			Present:    present.B(),
		}
	}
	return families
}

// FindQueueFamilies prefers one family that does graphics and present.
// Failing that it pairs the first graphics family with the first present
// family. ok is false when either is missing.
func FindQueueFamilies(families []QueueFamily) (q QueueFamilyIndices, ok bool) {
	graphics, present := -1, -1
	for i, f := range families {
		if f.QueueCount == 0 {
			continue
		}
		isGraphics := f.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if isGraphics && f.Present {
			return QueueFamilyIndices{Graphics: uint32(i), Present: uint32(i)}, true
		}
		if isGraphics && graphics < 0 {
			graphics = i
		}
		if f.Present && present < 0 {
			present = i
		}
	}
	if graphics < 0 || present < 0 {
		return q, false
	}
	return QueueFamilyIndices{Graphics: uint32(graphics), Present: uint32(present)}, true
}

// queueCreateInfos requests one queue per distinct family.
func queueCreateInfos(q QueueFamilyIndices) []vk.DeviceQueueCreateInfo {
	families := []uint32{q.Graphics}
	if !q.Shared() {
		families = append(families, q.Present)
	}
	infos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}
	return infos
}
