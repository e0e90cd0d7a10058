package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

var ErrNestedRendering = errors.New("rendering scope already open")

// CommandList records the graph's commands into a Vulkan command buffer.
// Every rendering scope gets its own render pass and framebuffer, destroyed
// through the deletion queue once the frame retires.
type CommandList struct {
	device *VulkanDevice
	buffer *VulkanCommandBuffer

	renderpass  *VulkanRenderpass
	framebuffer *VulkanFramebuffer
}

func NewCommandList(device *VulkanDevice, buffer *VulkanCommandBuffer) *CommandList {
	return &CommandList{device: device, buffer: buffer}
}

func (c *CommandList) Buffer() *VulkanCommandBuffer {
	return c.buffer
}

func (c *CommandList) PipelineBarrier(memory []gpu.MemoryBarrier, images []gpu.ImageBarrier) {
	var src, dst gpu.PipelineStage

	memoryBarriers := make([]vk.MemoryBarrier, 0, len(memory))
	for _, m := range memory {
		src |= m.SrcStage
		dst |= m.DstStage
		memoryBarriers = append(memoryBarriers, vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: accessFlags(m.SrcAccess),
			DstAccessMask: accessFlags(m.DstAccess),
		})
	}

	imageBarriers := make([]vk.ImageMemoryBarrier, 0, len(images))
	for _, b := range images {
		img, ok := b.Texture.(*VulkanImage)
		if !ok {
			core.LogError("pipeline barrier on foreign texture %T", b.Texture)
			continue
		}
		src |= b.SrcStage
		dst |= b.DstStage
		imageBarriers = append(imageBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       accessFlags(b.SrcAccess),
			DstAccessMask:       accessFlags(b.DstAccess),
			OldLayout:           imageLayout(b.OldLayout),
			NewLayout:           imageLayout(b.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.Handle,
			SubresourceRange:    img.subresourceRange(),
		})
	}

	if len(memoryBarriers) == 0 && len(imageBarriers) == 0 {
		return
	}
	vk.CmdPipelineBarrier(c.buffer.Handle,
		stageFlags(src, true), stageFlags(dst, false), vk.DependencyFlags(0),
		uint32(len(memoryBarriers)), memoryBarriers,
		0, nil,
		uint32(len(imageBarriers)), imageBarriers)
}

func (c *CommandList) SetViewport(viewport gpu.Viewport) {
	vk.CmdSetViewport(c.buffer.Handle, 0, 1, []vk.Viewport{{
		X:        viewport.X,
		Y:        viewport.Y,
		Width:    viewport.Width,
		Height:   viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

func (c *CommandList) SetScissor(area math.Extents2D) {
	vk.CmdSetScissor(c.buffer.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: area.X, Y: area.Y},
		Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
	}})
}

func (c *CommandList) BeginRendering(info gpu.RenderingInfo) error {
	if c.renderpass != nil {
		return ErrNestedRendering
	}
	context := c.device.context
	rp, err := RenderpassCreate(context, info)
	if err != nil {
		return err
	}
	fb, err := FramebufferCreate(context, rp, info.Area.Width, info.Area.Height, rp.Views)
	if err != nil {
		rp.RenderpassDestroy(context)
		return fmt.Errorf("rendering %q: %w", info.Name, err)
	}
	rp.RenderpassBegin(c.buffer, fb.Handle)
	c.renderpass, c.framebuffer = rp, fb
	return nil
}

func (c *CommandList) EndRendering() {
	if c.renderpass == nil {
		return
	}
	c.renderpass.RenderpassEnd(c.buffer)

	context := c.device.context
	rp, fb := c.renderpass, c.framebuffer
	c.device.DeletionQueue().Push(func() {
		fb.Destroy(context)
		rp.RenderpassDestroy(context)
	})
	c.renderpass, c.framebuffer = nil, nil
}
