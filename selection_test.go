package dieselvk

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	tests := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"empty", nil, PreferredSurfaceFormat},
		{"undefined means any", []vk.SurfaceFormat{{Format: vk.FormatUndefined}}, PreferredSurfaceFormat},
		{"preferred present", []vk.SurfaceFormat{unorm, PreferredSurfaceFormat}, PreferredSurfaceFormat},
		{"fallback to first", []vk.SurfaceFormat{unorm, {Format: vk.FormatB8g8r8a8Unorm}}, unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseSurfaceFormat(tt.formats))
		})
	}
}

func TestPreferredSurfaceFormatIsSRGB(t *testing.T) {
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, PreferredSurfaceFormat.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, PreferredSurfaceFormat.ColorSpace)
	bgraUnorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	assert.Equal(t, PreferredSurfaceFormat, ChooseSurfaceFormat([]vk.SurfaceFormat{bgraUnorm, PreferredSurfaceFormat}))
}

func TestChoosePresentMode(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}
	assert.Equal(t, vk.PresentModeImmediate,
		ChoosePresentMode(available, []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}))
	assert.Equal(t, vk.PresentModeFifo,
		ChoosePresentMode(available, []vk.PresentMode{vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, ChoosePresentMode(nil, nil))
}

func TestChooseExtent(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 1920, Height: 1080},
		MinImageExtent: vk.Extent2D{Width: 16, Height: 16},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 2048},
	}
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 1080}, ChooseExtent(caps, 10, 10))

	caps.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, ChooseExtent(caps, 800, 600))
	assert.Equal(t, vk.Extent2D{Width: 2048, Height: 16}, ChooseExtent(caps, 4000, 2))
	assert.Equal(t, vk.Extent2D{Width: 16, Height: 16}, ChooseExtent(caps, -5, 0))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), ChooseImageCount(SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), ChooseImageCount(SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
	assert.Equal(t, uint32(5), ChooseImageCount(SurfaceCapabilities{MinImageCount: 4}))
}

func TestChooseSharing(t *testing.T) {
	mode, families := ChooseSharing(QueueFamilyIndices{Graphics: 1, Present: 1})
	assert.Equal(t, vk.SharingModeExclusive, mode)
	assert.Nil(t, families)

	mode, families = ChooseSharing(QueueFamilyIndices{Graphics: 0, Present: 3})
	assert.Equal(t, vk.SharingModeConcurrent, mode)
	assert.Equal(t, []uint32{0, 3}, families)
}

func TestChooseCompositeAlphaAndTransform(t *testing.T) {
	assert.Equal(t, vk.CompositeAlphaPreMultipliedBit,
		ChooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaPreMultipliedBit|vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, ChooseCompositeAlpha(0))

	caps := SurfaceCapabilities{
		SupportedTransforms: vk.SurfaceTransformFlags(vk.SurfaceTransformRotate90Bit),
		CurrentTransform:    vk.SurfaceTransformRotate90Bit,
	}
	assert.Equal(t, vk.SurfaceTransformRotate90Bit, ChoosePreTransform(caps))
	caps.SupportedTransforms |= vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit)
	assert.Equal(t, vk.SurfaceTransformIdentityBit, ChoosePreTransform(caps))
}

func TestFindDepthFormat(t *testing.T) {
	d := newFakeDevice(newFakeWindow(1, 1))
	d.depthFormats = map[vk.Format]bool{vk.FormatD24UnormS8Uint: true, vk.FormatD32SfloatS8Uint: true}
	format, err := FindDepthFormat(d)
	assert.NoError(t, err)
	assert.Equal(t, vk.FormatD32SfloatS8Uint, format)
	assert.True(t, HasStencilComponent(format))
	assert.False(t, HasStencilComponent(vk.FormatD32Sfloat))

	_, ok := FindSupportedFormat(d, DepthFormatCandidates, vk.ImageTilingLinear,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
	assert.False(t, ok, "only optimal tiling is supported")

	d.depthFormats = nil
	_, err = FindDepthFormat(d)
	assert.True(t, errors.Is(err, ErrNoDepthFormat))
	assert.True(t, IsPrecondition(err))
}

func TestSampleCounts(t *testing.T) {
	counts := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	assert.Equal(t, vk.SampleCount8Bit, MaxSampleCount(counts))
	assert.Equal(t, vk.SampleCount1Bit, MaxSampleCount(vk.SampleCountFlags(vk.SampleCount1Bit)))
	assert.Equal(t, vk.SampleCount1Bit, MaxSampleCount(0))

	assert.Equal(t, vk.SampleCount8Bit, ClampSampleCount(vk.SampleCount8Bit, 0))
	assert.Equal(t, vk.SampleCount4Bit, ClampSampleCount(vk.SampleCount8Bit, vk.SampleCount4Bit))
	assert.Equal(t, vk.SampleCount2Bit, ClampSampleCount(vk.SampleCount2Bit, vk.SampleCount64Bit))
}
