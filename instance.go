package dieselvk

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type InstanceOptions struct {
	AppName    string
	APIVersion vk.Version
	// Extensions are the instance extensions the window system needs.
	Extensions []string
	// Validation turns on Layers and the debug report callback. Missing
	// layers fail instance creation.
	Validation bool
	Layers     []string
}

// CoreInstance is the vulkan instance plus its optional debug callback.
type CoreInstance struct {
	handle        vk.Instance
	debugCallback vk.DebugReportCallback
	layers        []string
}

func NewInstance(opts InstanceOptions) (inst *CoreInstance, err error) {
	defer checkErr(&err)

	available, err := InstanceExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	required := opts.Extensions
	if opts.Validation {
		required = append(append([]string(nil), required...), "VK_EXT_debug_report")
	}
	extensions, missing := checkExisting(available, safeStrings(required))
	if len(missing) > 0 {
		Logger().Warn("missing instance extensions", "extensions", missing)
	}

	var layers []string
	if opts.Validation {
		wanted := opts.Layers
		if len(wanted) == 0 {
			wanted = DefaultValidationLayers
		}
		have, err := ValidationLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate validation layers")
		}
		if layers, err = requireLayers(have, safeStrings(wanted)); err != nil {
			return nil, err
		}
	}
	inst = &CoreInstance{layers: layers}
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(apiVersion(opts.APIVersion)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(opts.AppName),
			PEngineName:        safeString("dieselvk"),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &inst.handle)
	orPanic(NewError(ret))
	orPanic(vk.InitInstance(inst.handle), func() {
		vk.DestroyInstance(inst.handle, nil)
	})

	if opts.Validation {
		ret := vk.CreateDebugReportCallback(inst.handle, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReport,
		}, nil, &inst.debugCallback)
		orPanic(NewError(ret), func() {
			vk.DestroyInstance(inst.handle, nil)
		})
		Logger().Info("validation enabled", "layers", layers)
	}
	return inst, nil
}

// apiVersion defaults an unset version to Vulkan 1.0.
func apiVersion(v vk.Version) vk.Version {
	if v == 0 {
		return DefaultVulkanAPIVersion
	}
	return v
}

func (i *CoreInstance) Handle() vk.Instance { return i.handle }

// Layers are the enabled validation layers; devices enable the same set.
func (i *CoreInstance) Layers() []string { return i.layers }

func (i *CoreInstance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.handle, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	if i.handle != nil {
		vk.DestroyInstance(i.handle, nil)
		i.handle = nil
	}
}

// debugLevel maps a debug report flag set onto a log level.
func debugLevel(flags vk.DebugReportFlags) slog.Level {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	Logger().Log(context.Background(), debugLevel(flags), pMessage,
		"layer", pLayerPrefix,
		"code", messageCode,
		"object_type", objectType)
	return vk.Bool32(vk.False)
}
