package gpu

import "strings"

// PipelineStage is a mask of pipeline stages, used for synchronization.
type PipelineStage uint32

const (
	StageNone      PipelineStage = 0
	StageTopOfPipe PipelineStage = 1 << (iota - 1)
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
	StageAllGraphics
	StageAllCommands
)

var stageNames = []string{
	"TopOfPipe",
	"DrawIndirect",
	"VertexInput",
	"VertexShader",
	"FragmentShader",
	"EarlyFragmentTests",
	"LateFragmentTests",
	"ColorAttachmentOutput",
	"ComputeShader",
	"Transfer",
	"BottomOfPipe",
	"Host",
	"AllGraphics",
	"AllCommands",
}

func (s PipelineStage) String() string {
	return maskString(uint32(s), stageNames)
}

// Access is a mask of memory access types.
type Access uint32

const (
	AccessNone                Access = 0
	AccessIndirectCommandRead Access = 1 << (iota - 1)
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessInputAttachmentRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessMemoryRead
	AccessMemoryWrite
)

// AccessWriteMask holds every access bit that modifies memory.
const AccessWriteMask = AccessShaderWrite |
	AccessColorAttachmentWrite |
	AccessDepthStencilAttachmentWrite |
	AccessTransferWrite |
	AccessHostWrite |
	AccessMemoryWrite

var accessNames = []string{
	"IndirectCommandRead",
	"IndexRead",
	"VertexAttributeRead",
	"UniformRead",
	"InputAttachmentRead",
	"ShaderRead",
	"ShaderWrite",
	"ColorAttachmentRead",
	"ColorAttachmentWrite",
	"DepthStencilAttachmentRead",
	"DepthStencilAttachmentWrite",
	"TransferRead",
	"TransferWrite",
	"HostRead",
	"HostWrite",
	"MemoryRead",
	"MemoryWrite",
}

// IsWrite reports whether any bit of a modifies memory.
func (a Access) IsWrite() bool {
	return a&AccessWriteMask != 0
}

func (a Access) String() string {
	return maskString(uint32(a), accessNames)
}

// ImageLayout is the memory layout a texture is optimized for.
type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutReadOnly
	LayoutAttachment
	LayoutColorAttachment
	LayoutDepthAttachment
	LayoutDepthStencilAttachment
	LayoutDepthReadOnly
	LayoutDepthStencilReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	"Undefined",
	"General",
	"ReadOnly",
	"Attachment",
	"ColorAttachment",
	"DepthAttachment",
	"DepthStencilAttachment",
	"DepthReadOnly",
	"DepthStencilReadOnly",
	"TransferSrc",
	"TransferDst",
	"Present",
}

func (l ImageLayout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Unknown"
}

type BufferUsage uint32

const (
	BufferUsageNone    BufferUsage = 0
	BufferUsageUniform BufferUsage = 1 << (iota - 1)
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
	BufferUsageTransferSrc
	BufferUsageTransferDst
	BufferUsageDeviceAddress
)

var bufferUsageNames = []string{
	"Uniform",
	"Storage",
	"Index",
	"Vertex",
	"Indirect",
	"TransferSrc",
	"TransferDst",
	"DeviceAddress",
}

func (u BufferUsage) String() string {
	return maskString(uint32(u), bufferUsageNames)
}

type TextureUsage uint32

const (
	TextureUsageNone    TextureUsage = 0
	TextureUsageSampled TextureUsage = 1 << (iota - 1)
	TextureUsageStorage
	TextureUsageColor
	TextureUsageDepth
	TextureUsageStencil
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

var textureUsageNames = []string{
	"Sampled",
	"Storage",
	"Color",
	"Depth",
	"Stencil",
	"TransferSrc",
	"TransferDst",
}

func (u TextureUsage) String() string {
	return maskString(uint32(u), textureUsageNames)
}

type Format uint8

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatRGBA8SRGB
	FormatBGRA8Unorm
	FormatBGRA8SRGB
	FormatR16Float
	FormatRG16Float
	FormatRGBA16Float
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float
	FormatR32Uint
	FormatD16Unorm
	FormatD32Float
	FormatD24UnormS8Uint
	FormatD32FloatS8Uint
)

func (f Format) HasDepth() bool {
	switch f {
	case FormatD16Unorm, FormatD32Float, FormatD24UnormS8Uint, FormatD32FloatS8Uint:
		return true
	}
	return false
}

func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32FloatS8Uint
}

// BytesPerPixel is the texel size in bytes, used to size uploads.
func (f Format) BytesPerPixel() uint32 {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatRG8Unorm, FormatR16Float, FormatD16Unorm:
		return 2
	case FormatRGBA8Unorm, FormatRGBA8SRGB, FormatBGRA8Unorm, FormatBGRA8SRGB,
		FormatRG16Float, FormatR32Float, FormatR32Uint, FormatD32Float, FormatD24UnormS8Uint:
		return 4
	case FormatRGBA16Float, FormatRG32Float, FormatD32FloatS8Uint:
		return 8
	case FormatRGBA32Float:
		return 16
	}
	return 0
}

type TextureKind uint8

const (
	TextureKind2D TextureKind = iota
	TextureKind2DArray
	TextureKindCube
	TextureKind3D
)

type MipFilter uint8

const (
	MipFilterNearest MipFilter = iota
	MipFilterLinear
)

type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

func (op LoadOp) String() string {
	switch op {
	case LoadOpLoad:
		return "Load"
	case LoadOpClear:
		return "Clear"
	}
	return "DontCare"
}

type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

func (op StoreOp) String() string {
	if op == StoreOpStore {
		return "Store"
	}
	return "DontCare"
}

func maskString(mask uint32, names []string) string {
	if mask == 0 {
		return "None"
	}
	var parts []string
	for i, name := range names {
		if mask&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
