package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// vkImage owns an image and, unless it belongs to a swapchain, its memory.
type vkImage struct {
	device vk.Device
	handle vk.Image
	memory vk.DeviceMemory
	owned  bool
}

func (i *vkImage) Raw() vk.Image { return i.handle }

func (i *vkImage) Destroy() {
	if !i.owned || i.device == nil {
		return
	}
	vk.DestroyImage(i.device, i.handle, nil)
	vk.FreeMemory(i.device, i.memory, nil)
	i.device = nil
}

type vkImageView struct {
	device vk.Device
	handle vk.ImageView
}

func (v *vkImageView) Raw() vk.ImageView { return v.handle }

func (v *vkImageView) Destroy() {
	if v.device == nil {
		return
	}
	vk.DestroyImageView(v.device, v.handle, nil)
	v.device = nil
}

// CreateImage creates a 2D single-mip image and binds fresh memory with the
// requested properties.
func (d *CoreDevice) CreateImage(info ImageInfo) (Image, error) {
	img := &vkImage{device: d.handle, owned: true}
	ret := vk.CreateImage(d.handle, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        info.Format,
		Extent:        vk.Extent3D{Width: info.Extent.Width, Height: info.Extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       info.Samples,
		Tiling:        info.Tiling,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create image")
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, img.handle, &reqs)
	reqs.Deref()
	memory, err := d.allocateMemory(reqs, info.Properties)
	if err != nil {
		vk.DestroyImage(d.handle, img.handle, nil)
		return nil, errors.Wrap(err, "image memory")
	}
	img.memory = memory
	if err := NewError(vk.BindImageMemory(d.handle, img.handle, img.memory, 0)); err != nil {
		vk.DestroyImage(d.handle, img.handle, nil)
		vk.FreeMemory(d.handle, img.memory, nil)
		return nil, errors.Wrap(err, "bind image memory")
	}
	return img, nil
}

func (d *CoreDevice) CreateImageView(image Image, format vk.Format, aspect vk.ImageAspectFlags) (ImageView, error) {
	view := &vkImageView{device: d.handle}
	ret := vk.CreateImageView(d.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Raw(),
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create image view")
	}
	return view, nil
}
