package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// VulkanRenderpass is a single subpass render pass built for one rendering
// scope. Attachments start and end in the layout the graph put them in, so
// the render pass itself never transitions anything.
type VulkanRenderpass struct {
	Name        string
	Handle      vk.RenderPass
	Area        math.Extents2D
	ClearValues []vk.ClearValue
	Views       []vk.ImageView
}

func attachmentImage(tex gpu.Texture) (*VulkanImage, error) {
	img, ok := tex.(*VulkanImage)
	if !ok {
		return nil, fmt.Errorf("attachment %T: %w", tex, ErrForeignObject)
	}
	return img, nil
}

func RenderpassCreate(context *VulkanContext, info gpu.RenderingInfo) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{Name: info.Name, Area: info.Area}

	var attachmentDescriptions []vk.AttachmentDescription
	var colorReferences []vk.AttachmentReference

	for _, color := range info.Colors {
		img, err := attachmentImage(color.Texture)
		if err != nil {
			return nil, err
		}
		layout := imageLayout(color.Layout)
		colorReferences = append(colorReferences, vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     layout,
		})
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         vkFormat(img.desc.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(color.Load),
			StoreOp:        storeOp(color.Store),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  layout,
			FinalLayout:    layout,
		})
		var clear vk.ClearValue
		c := color.Clear.Elements()
		clear.SetColor(c[:])
		outRenderpass.ClearValues = append(outRenderpass.ClearValues, clear)
		outRenderpass.Views = append(outRenderpass.Views, img.View)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorReferences)),
		PColorAttachments:    colorReferences,
	}

	if depth := info.Depth; depth != nil {
		img, err := attachmentImage(depth.Texture)
		if err != nil {
			return nil, err
		}
		layout := imageLayout(depth.Layout)
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     layout,
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         vkFormat(img.desc.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(depth.Load),
			StoreOp:        storeOp(depth.Store),
			StencilLoadOp:  loadOp(depth.StencilLoad),
			StencilStoreOp: storeOp(depth.StencilStore),
			InitialLayout:  layout,
			FinalLayout:    layout,
		})
		var clear vk.ClearValue
		clear.SetDepthStencil(depth.ClearDepth, depth.ClearStencil)
		outRenderpass.ClearValues = append(outRenderpass.ClearValues, clear)
		outRenderpass.Views = append(outRenderpass.Views, img.View)
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		err := fmt.Errorf("failed to create render pass %q: %s", info.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: vr.Area.X,
				Y: vr.Area.Y,
			},
			Extent: vk.Extent2D{
				Width:  vr.Area.Width,
				Height: vr.Area.Height,
			},
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
