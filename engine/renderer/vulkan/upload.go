package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// staging creates a host visible buffer holding data.
func (d *VulkanDevice) staging(data []byte) (*VulkanBuffer, error) {
	desc := gpu.BufferDescription{Size: uint64(len(data)), Usage: gpu.BufferUsageTransferSrc}
	buf, err := NewVulkanBuffer(d.context, "staging", desc, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	if err := buf.LoadData(d.context, 0, data); err != nil {
		buf.Destroy(d.context)
		return nil, err
	}
	return buf, nil
}

// singleUse records fn into a one time command buffer and waits for it.
func (d *VulkanDevice) singleUse(fn func(cb *VulkanCommandBuffer)) error {
	cb, err := AllocateAndBeginSingleUse(d.context, d.context.CommandPool)
	if err != nil {
		return err
	}
	fn(cb)
	return cb.EndSingleUse(d.context, d.context.CommandPool, d.context.GraphicsQueue)
}

// UploadBuffer copies data through a staging buffer and blocks until the
// copy is done.
func (d *VulkanDevice) UploadBuffer(dst gpu.Buffer, offset uint64, data []byte) error {
	buf, ok := dst.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("upload buffer %T: %w", dst, ErrForeignObject)
	}
	if offset+uint64(len(data)) > buf.desc.Size {
		return fmt.Errorf("buffer %q: %d bytes at %d: %w", buf.Name, len(data), offset, ErrOutOfRange)
	}
	if len(data) == 0 {
		return nil
	}
	staging, err := d.staging(data)
	if err != nil {
		return err
	}
	defer staging.Destroy(d.context)

	return d.singleUse(func(cb *VulkanCommandBuffer) {
		vk.CmdCopyBuffer(cb.Handle, staging.Handle, buf.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(offset),
			Size:      vk.DeviceSize(len(data)),
		}})
	})
}

// UploadTexture fills mip 0 of every layer and leaves the image in layout.
// The previous contents are discarded.
func (d *VulkanDevice) UploadTexture(dst gpu.Texture, data []byte, layout gpu.ImageLayout) error {
	img, ok := dst.(*VulkanImage)
	if !ok {
		return fmt.Errorf("upload texture %T: %w", dst, ErrForeignObject)
	}
	desc := img.desc
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Layers) * uint64(desc.Format.BytesPerPixel())
	if uint64(len(data)) > size {
		return fmt.Errorf("image %q: %d bytes exceed %d: %w", img.Name, len(data), size, ErrOutOfRange)
	}
	staging, err := d.staging(data)
	if err != nil {
		return err
	}
	defer staging.Destroy(d.context)

	subresource := img.subresourceRange()
	return d.singleUse(func(cb *VulkanCommandBuffer) {
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.DependencyFlags(0), 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
				OldLayout:           vk.ImageLayoutUndefined,
				NewLayout:           vk.ImageLayoutTransferDstOptimal,
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               img.Handle,
				SubresourceRange:    subresource,
			}})

		vk.CmdCopyBufferToImage(cb.Handle, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: subresource.AspectMask,
				LayerCount: desc.Layers,
			},
			ImageExtent: vk.Extent3D{Width: desc.Width, Height: desc.Height, Depth: 1},
		}})

		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
			vk.DependencyFlags(0), 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccessMask:       vk.AccessFlags(vk.AccessMemoryReadBit),
				OldLayout:           vk.ImageLayoutTransferDstOptimal,
				NewLayout:           imageLayout(layout),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               img.Handle,
				SubresourceRange:    subresource,
			}})
	})
}
