package dieselvk

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type vkRenderPass struct {
	device vk.Device
	handle vk.RenderPass
}

func (r *vkRenderPass) Raw() vk.RenderPass { return r.handle }

func (r *vkRenderPass) Destroy() {
	if r.device == nil {
		return
	}
	vk.DestroyRenderPass(r.device, r.handle, nil)
	r.device = nil
}

type vkFramebuffer struct {
	device vk.Device
	handle vk.Framebuffer
}

func (f *vkFramebuffer) Raw() vk.Framebuffer { return f.handle }

func (f *vkFramebuffer) Destroy() {
	if f.device == nil {
		return
	}
	vk.DestroyFramebuffer(f.device, f.handle, nil)
	f.device = nil
}

// renderPassAttachments lays out colour (0), depth (1) and, when
// multisampling, the single-sample resolve target (2) that is presented.
func renderPassAttachments(info RenderPassInfo) []vk.AttachmentDescription {
	samples := info.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	colorFinal := vk.ImageLayoutPresentSrc
	colorStore := vk.AttachmentStoreOpStore
	if info.Resolve() {
		colorFinal = vk.ImageLayoutColorAttachmentOptimal
		colorStore = vk.AttachmentStoreOpDontCare
	}
	// The stencil clear value only applies when the depth format has one.
	stencilLoad := vk.AttachmentLoadOpDontCare
	if HasStencilComponent(info.DepthFormat) {
		stencilLoad = vk.AttachmentLoadOpClear
	}
	attachments := []vk.AttachmentDescription{
		{
			Format:         info.ColorFormat,
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        colorStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    colorFinal,
		},
		{
			Format:         info.DepthFormat,
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  stencilLoad,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	if info.Resolve() {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         info.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
	}
	return attachments
}

func (d *CoreDevice) CreateRenderPass(info RenderPassInfo) (RenderPass, error) {
	attachments := renderPassAttachments(info)

	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: &depthRef,
	}
	if info.Resolve() {
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}}

	pass := &vkRenderPass{device: d.handle}
	ret := vk.CreateRenderPass(d.handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &pass.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}
	return pass, nil
}

func (d *CoreDevice) CreateFramebuffer(pass RenderPass, attachments []ImageView, extent vk.Extent2D) (Framebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		views[i] = a.Raw()
	}
	fb := &vkFramebuffer{device: d.handle}
	ret := vk.CreateFramebuffer(d.handle, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.Raw(),
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}, nil, &fb.handle)
	if err := NewError(ret); err != nil {
		return nil, errors.Wrap(err, "create framebuffer")
	}
	return fb, nil
}
