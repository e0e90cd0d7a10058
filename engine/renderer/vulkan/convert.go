package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

var stageBits = []struct {
	stage gpu.PipelineStage
	bit   vk.PipelineStageFlagBits
}{
	{gpu.StageTopOfPipe, vk.PipelineStageTopOfPipeBit},
	{gpu.StageDrawIndirect, vk.PipelineStageDrawIndirectBit},
	{gpu.StageVertexInput, vk.PipelineStageVertexInputBit},
	{gpu.StageVertexShader, vk.PipelineStageVertexShaderBit},
	{gpu.StageFragmentShader, vk.PipelineStageFragmentShaderBit},
	{gpu.StageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
	{gpu.StageLateFragmentTests, vk.PipelineStageLateFragmentTestsBit},
	{gpu.StageColorAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
	{gpu.StageComputeShader, vk.PipelineStageComputeShaderBit},
	{gpu.StageTransfer, vk.PipelineStageTransferBit},
	{gpu.StageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
	{gpu.StageHost, vk.PipelineStageHostBit},
	{gpu.StageAllGraphics, vk.PipelineStageAllGraphicsBit},
	{gpu.StageAllCommands, vk.PipelineStageAllCommandsBit},
}

// stageFlags converts a stage mask. An empty source scope becomes top of
// pipe and an empty destination scope bottom of pipe, which Vulkan requires.
func stageFlags(stage gpu.PipelineStage, src bool) vk.PipelineStageFlags {
	var out vk.PipelineStageFlags
	for _, s := range stageBits {
		if stage&s.stage != 0 {
			out |= vk.PipelineStageFlags(s.bit)
		}
	}
	if out == 0 {
		if src {
			return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		}
		return vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return out
}

var accessBits = []struct {
	access gpu.Access
	bit    vk.AccessFlagBits
}{
	{gpu.AccessIndirectCommandRead, vk.AccessIndirectCommandReadBit},
	{gpu.AccessIndexRead, vk.AccessIndexReadBit},
	{gpu.AccessVertexAttributeRead, vk.AccessVertexAttributeReadBit},
	{gpu.AccessUniformRead, vk.AccessUniformReadBit},
	{gpu.AccessInputAttachmentRead, vk.AccessInputAttachmentReadBit},
	{gpu.AccessShaderRead, vk.AccessShaderReadBit},
	{gpu.AccessShaderWrite, vk.AccessShaderWriteBit},
	{gpu.AccessColorAttachmentRead, vk.AccessColorAttachmentReadBit},
	{gpu.AccessColorAttachmentWrite, vk.AccessColorAttachmentWriteBit},
	{gpu.AccessDepthStencilAttachmentRead, vk.AccessDepthStencilAttachmentReadBit},
	{gpu.AccessDepthStencilAttachmentWrite, vk.AccessDepthStencilAttachmentWriteBit},
	{gpu.AccessTransferRead, vk.AccessTransferReadBit},
	{gpu.AccessTransferWrite, vk.AccessTransferWriteBit},
	{gpu.AccessHostRead, vk.AccessHostReadBit},
	{gpu.AccessHostWrite, vk.AccessHostWriteBit},
	{gpu.AccessMemoryRead, vk.AccessMemoryReadBit},
	{gpu.AccessMemoryWrite, vk.AccessMemoryWriteBit},
}

func accessFlags(access gpu.Access) vk.AccessFlags {
	var out vk.AccessFlags
	for _, a := range accessBits {
		if access&a.access != 0 {
			out |= vk.AccessFlags(a.bit)
		}
	}
	return out
}

// imageLayout maps the graph's layouts onto Vulkan 1.0 layouts. The generic
// attachment layout has no 1.0 equivalent and falls back to General.
func imageLayout(layout gpu.ImageLayout) vk.ImageLayout {
	switch layout {
	case gpu.LayoutGeneral, gpu.LayoutAttachment:
		return vk.ImageLayoutGeneral
	case gpu.LayoutReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.LayoutDepthAttachment, gpu.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case gpu.LayoutDepthReadOnly, gpu.LayoutDepthStencilReadOnly:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case gpu.LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gpu.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpu.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func vkFormat(format gpu.Format) vk.Format {
	switch format {
	case gpu.FormatR8Unorm:
		return vk.FormatR8Unorm
	case gpu.FormatRG8Unorm:
		return vk.FormatR8g8Unorm
	case gpu.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gpu.FormatRGBA8SRGB:
		return vk.FormatR8g8b8a8Srgb
	case gpu.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gpu.FormatBGRA8SRGB:
		return vk.FormatB8g8r8a8Srgb
	case gpu.FormatR16Float:
		return vk.FormatR16Sfloat
	case gpu.FormatRG16Float:
		return vk.FormatR16g16Sfloat
	case gpu.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case gpu.FormatR32Float:
		return vk.FormatR32Sfloat
	case gpu.FormatRG32Float:
		return vk.FormatR32g32Sfloat
	case gpu.FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case gpu.FormatR32Uint:
		return vk.FormatR32Uint
	case gpu.FormatD16Unorm:
		return vk.FormatD16Unorm
	case gpu.FormatD32Float:
		return vk.FormatD32Sfloat
	case gpu.FormatD24UnormS8Uint:
		return vk.FormatD24UnormS8Uint
	case gpu.FormatD32FloatS8Uint:
		return vk.FormatD32SfloatS8Uint
	}
	return vk.FormatUndefined
}

func aspectMask(format gpu.Format) vk.ImageAspectFlags {
	if !format.HasDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	mask := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if format.HasStencil() {
		mask |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return mask
}

func bufferUsage(usage gpu.BufferUsage) vk.BufferUsageFlags {
	var out vk.BufferUsageFlagBits
	if usage&gpu.BufferUsageUniform != 0 {
		out |= vk.BufferUsageUniformBufferBit
	}
	if usage&gpu.BufferUsageStorage != 0 {
		out |= vk.BufferUsageStorageBufferBit
	}
	if usage&gpu.BufferUsageIndex != 0 {
		out |= vk.BufferUsageIndexBufferBit
	}
	if usage&gpu.BufferUsageVertex != 0 {
		out |= vk.BufferUsageVertexBufferBit
	}
	if usage&gpu.BufferUsageIndirect != 0 {
		out |= vk.BufferUsageIndirectBufferBit
	}
	if usage&gpu.BufferUsageTransferSrc != 0 {
		out |= vk.BufferUsageTransferSrcBit
	}
	if usage&gpu.BufferUsageTransferDst != 0 {
		out |= vk.BufferUsageTransferDstBit
	}
	if usage&gpu.BufferUsageDeviceAddress != 0 {
		out |= vk.BufferUsageShaderDeviceAddressBit
	}
	return vk.BufferUsageFlags(out)
}

// imageUsage always adds TransferDst so textures can receive uploads.
func imageUsage(usage gpu.TextureUsage) vk.ImageUsageFlags {
	out := vk.ImageUsageTransferDstBit
	if usage&gpu.TextureUsageSampled != 0 {
		out |= vk.ImageUsageSampledBit
	}
	if usage&gpu.TextureUsageStorage != 0 {
		out |= vk.ImageUsageStorageBit
	}
	if usage&gpu.TextureUsageColor != 0 {
		out |= vk.ImageUsageColorAttachmentBit
	}
	if usage&(gpu.TextureUsageDepth|gpu.TextureUsageStencil) != 0 {
		out |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if usage&gpu.TextureUsageTransferSrc != 0 {
		out |= vk.ImageUsageTransferSrcBit
	}
	return vk.ImageUsageFlags(out)
}

func loadOp(op gpu.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gpu.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	case gpu.LoadOpClear:
		return vk.AttachmentLoadOpClear
	}
	return vk.AttachmentLoadOpDontCare
}

func storeOp(op gpu.StoreOp) vk.AttachmentStoreOp {
	if op == gpu.StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func imageViewType(desc gpu.TextureDescription) vk.ImageViewType {
	switch desc.Kind {
	case gpu.TextureKindCube:
		return vk.ImageViewTypeCube
	case gpu.TextureKind3D:
		return vk.ImageViewType3d
	case gpu.TextureKind2DArray:
		return vk.ImageViewType2dArray
	}
	if desc.Layers > 1 {
		return vk.ImageViewType2dArray
	}
	return vk.ImageViewType2d
}
