package dieselvk

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// vkBuffer owns a buffer and its memory; Destroy frees both.
type vkBuffer struct {
	device vk.Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

func (b *vkBuffer) Raw() vk.Buffer { return b.handle }
func (b *vkBuffer) Size() uint64   { return b.size }

func (b *vkBuffer) Destroy() {
	if b.device == nil {
		return
	}
	vk.DestroyBuffer(b.device, b.handle, nil)
	vk.FreeMemory(b.device, b.memory, nil)
	b.device = nil
}

// Upload copies data to the start of a host-visible buffer.
func (b *vkBuffer) Upload(data []byte) error {
	if uint64(len(data)) > b.size {
		return errors.Newf("upload of %d bytes into %d byte buffer", len(data), b.size)
	}
	var ptr unsafe.Pointer
	if err := NewError(vk.MapMemory(b.device, b.memory, 0, vk.DeviceSize(len(data)), 0, &ptr)); err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	n := vk.Memcopy(ptr, data)
	vk.UnmapMemory(b.device, b.memory)
	if n != len(data) {
		return errors.Newf("copied %d of %d bytes", n, len(data))
	}
	return nil
}

func (d *CoreDevice) CreateBuffer(size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (Buffer, error) {
	buf := &vkBuffer{device: d.handle, size: size}
	ret := vk.CreateBuffer(d.handle, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, buf.handle, &reqs)
	reqs.Deref()
	memory, err := d.allocateMemory(reqs, properties)
	if err != nil {
		vk.DestroyBuffer(d.handle, buf.handle, nil)
		return nil, errors.Wrap(err, "buffer memory")
	}
	buf.memory = memory
	if err := NewError(vk.BindBufferMemory(d.handle, buf.handle, buf.memory, 0)); err != nil {
		vk.DestroyBuffer(d.handle, buf.handle, nil)
		vk.FreeMemory(d.handle, buf.memory, nil)
		return nil, errors.Wrap(err, "bind buffer memory")
	}
	return buf, nil
}

func (d *CoreDevice) allocateMemory(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	types := make([]vk.MemoryPropertyFlags, d.memory.MemoryTypeCount)
	for i := range types {
		t := d.memory.MemoryTypes[i]
		t.Deref()
		types[i] = t.PropertyFlags
	}
	index, err := findMemoryType(types, reqs.MemoryTypeBits, properties)
	if err != nil {
		return vk.DeviceMemory(vk.NullHandle), err
	}
	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(d.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}, nil, &memory)
	return memory, NewError(ret)
}

// findMemoryType returns the first memory type allowed by typeBits whose
// flags include every requested property.
func findMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if typeBits&(1<<uint(i)) != 0 && flags&properties == properties {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrAllocation, "type bits %#x, properties %#x", typeBits, uint32(properties))
}
