package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// vkCommandBuffer is a primary command buffer from the device pool.
type vkCommandBuffer struct {
	handle vk.CommandBuffer
	flags  vk.CommandBufferUsageFlags
}

func (c *vkCommandBuffer) Raw() vk.CommandBuffer { return c.handle }

func (c *vkCommandBuffer) Reset() error {
	return NewError(vk.ResetCommandBuffer(c.handle, 0))
}

func (c *vkCommandBuffer) Begin() error {
	return NewError(vk.BeginCommandBuffer(c.handle, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: c.flags,
	}))
}

func (c *vkCommandBuffer) End() error {
	return NewError(vk.EndCommandBuffer(c.handle))
}

func (c *vkCommandBuffer) BeginRenderPass(pass RenderPass, fb Framebuffer, area vk.Extent2D, clear []vk.ClearValue) {
	vk.CmdBeginRenderPass(c.handle, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      pass.Raw(),
		Framebuffer:     fb.Raw(),
		RenderArea:      vk.Rect2D{Extent: area},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)
}

func (c *vkCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
}

func (c *vkCommandBuffer) CopyBuffer(src, dst Buffer, size uint64) {
	vk.CmdCopyBuffer(c.handle, src.Raw(), dst.Raw(), 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(size),
	}})
}

func (d *CoreDevice) AllocateCommandBuffers(count int) ([]CommandBuffer, error) {
	return d.allocate(count, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
}

func (d *CoreDevice) allocate(count int, flags vk.CommandBufferUsageFlags) ([]CommandBuffer, error) {
	handles := make([]vk.CommandBuffer, count)
	ret := vk.AllocateCommandBuffers(d.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, handles)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrapf(err, "allocate %d command buffers", count)
	}
	out := make([]CommandBuffer, count)
	for i, h := range handles {
		out[i] = &vkCommandBuffer{handle: h, flags: flags}
	}
	return out, nil
}

func (d *CoreDevice) FreeCommandBuffers(buffers []CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vk.CommandBuffer, len(buffers))
	for i, b := range buffers {
		handles[i] = b.Raw()
	}
	vk.FreeCommandBuffers(d.handle, d.pool, uint32(len(handles)), handles)
}

// BeginSingleTimeCommands returns a begun transient command buffer for
// one-off transfer or layout work. Finish it with EndSingleTimeCommands.
func (d *CoreDevice) BeginSingleTimeCommands() (CommandBuffer, error) {
	cmds, err := d.allocate(1, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
	if err != nil {
		return nil, err
	}
	if err := cmds[0].Begin(); err != nil {
		d.FreeCommandBuffers(cmds)
		return nil, errors.Wrap(err, "begin single-time commands")
	}
	return cmds[0], nil
}

// EndSingleTimeCommands submits cmd, waits for the graphics queue to drain
// and frees the buffer.
func (d *CoreDevice) EndSingleTimeCommands(cmd CommandBuffer) error {
	defer d.FreeCommandBuffers([]CommandBuffer{cmd})
	if err := cmd.End(); err != nil {
		return errors.Wrap(err, "end single-time commands")
	}
	if err := d.Submit(SubmitInfo{Command: cmd}); err != nil {
		return errors.Wrap(err, "submit single-time commands")
	}
	return errors.Wrap(NewError(vk.QueueWaitIdle(d.graphics)), "wait single-time commands")
}
