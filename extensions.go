package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultDeviceExtensions are required of every candidate GPU.
var DefaultDeviceExtensions = []string{"VK_KHR_swapchain"}

// DefaultValidationLayers is used when validation is on and no layers are named.
var DefaultValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	orPanic(NewError(ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	orPanic(NewError(ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	orPanic(NewError(ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	orPanic(NewError(ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	orPanic(NewError(ret))
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	orPanic(NewError(ret))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

// requireLayers fails with ErrValidationLayers unless every requested layer
// is in available.
func requireLayers(available, requested []string) ([]string, error) {
	layers, missing := checkExisting(available, requested)
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrValidationLayers, "missing %v", missing)
	}
	return layers, nil
}

func hasDeviceExtensions(gpu vk.PhysicalDevice, required []string) bool {
	actual, err := DeviceExtensions(gpu)
	if err != nil {
		return false
	}
	_, missing := checkExisting(actual, required)
	return len(missing) == 0
}
