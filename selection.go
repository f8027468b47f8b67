package dieselvk

import vk "github.com/vulkan-go/vulkan"

// PreferredSurfaceFormat is the 8-bit sRGB BGRA format with the non-linear
// sRGB colour space. It is SRGB rather than the common UNORM default so that
// shader output in linear space is encoded for display by the hardware.
var PreferredSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Srgb,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

// DepthFormatCandidates are scanned in order by FindDepthFormat.
var DepthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// ChooseSurfaceFormat never fails. A single UNDEFINED entry means the surface
// accepts anything, in which case the preferred format is used. Without the
// preferred pair the first reported format wins.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 0 {
		return PreferredSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return PreferredSurfaceFormat
	}
	for _, f := range formats {
		if f.Format == PreferredSurfaceFormat.Format && f.ColorSpace == PreferredSurfaceFormat.ColorSpace {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode returns the first preferred mode the surface offers, else
// FIFO which every presentation engine supports.
func ChoosePresentMode(available []vk.PresentMode, preferred []vk.PresentMode) vk.PresentMode {
	for _, want := range preferred {
		for _, have := range available {
			if want == have {
				return want
			}
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it reports the
// undefined sentinel, in which case the window size is clamped into range.
func ChooseExtent(caps SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(uint32(max(width, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(max(height, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image above the minimum. A zero maximum
// means the surface sets no upper bound.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseSharing picks exclusive ownership when one queue family does both
// graphics and present, else concurrent across exactly those two families.
func ChooseSharing(q QueueFamilyIndices) (vk.SharingMode, []uint32) {
	if q.Shared() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{q.Graphics, q.Present}
}

func ChooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, bit := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func ChoosePreTransform(caps SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

// FindSupportedFormat returns the first candidate whose tiling carries every
// requested feature bit.
func FindSupportedFormat(d Device, candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, bool) {
	for _, format := range candidates {
		props := d.FormatProperties(format)
		switch {
		case tiling == vk.ImageTilingLinear && props.LinearTilingFeatures&features == features:
			return format, true
		case tiling == vk.ImageTilingOptimal && props.OptimalTilingFeatures&features == features:
			return format, true
		}
	}
	return vk.FormatUndefined, false
}

func FindDepthFormat(d Device) (vk.Format, error) {
	format, ok := FindSupportedFormat(d, DepthFormatCandidates, vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
	if !ok {
		return vk.FormatUndefined, ErrNoDepthFormat
	}
	return format, nil
}

func HasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

// MaxSampleCount returns the highest single sample count bit set in counts.
func MaxSampleCount(counts vk.SampleCountFlags) vk.SampleCountFlagBits {
	for _, bit := range []vk.SampleCountFlagBits{
		vk.SampleCount64Bit,
		vk.SampleCount32Bit,
		vk.SampleCount16Bit,
		vk.SampleCount8Bit,
		vk.SampleCount4Bit,
		vk.SampleCount2Bit,
	} {
		if counts&vk.SampleCountFlags(bit) != 0 {
			return bit
		}
	}
	return vk.SampleCount1Bit
}

// ClampSampleCount limits the device maximum to a configured cap.
func ClampSampleCount(deviceMax, limit vk.SampleCountFlagBits) vk.SampleCountFlagBits {
	if limit == 0 || deviceMax <= limit {
		return deviceMax
	}
	return limit
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}
