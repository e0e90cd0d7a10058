package gpu

import "github.com/spaghettifunk/anima-framegraph/engine/math"

// MemoryBarrier orders and makes visible all memory accesses between two
// stage scopes. Buffer hazards are expressed with these.
type MemoryBarrier struct {
	SrcStage  PipelineStage
	DstStage  PipelineStage
	SrcAccess Access
	DstAccess Access
}

// ImageBarrier is a barrier on a single texture. When OldLayout differs from
// NewLayout it also performs a layout transition.
type ImageBarrier struct {
	Texture   Texture
	SrcStage  PipelineStage
	DstStage  PipelineStage
	SrcAccess Access
	DstAccess Access
	OldLayout ImageLayout
	NewLayout ImageLayout
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type ColorAttachment struct {
	Texture Texture
	Layout  ImageLayout
	Load    LoadOp
	Store   StoreOp
	Clear   math.Vec4
}

type DepthAttachment struct {
	Texture      Texture
	Layout       ImageLayout
	Load         LoadOp
	Store        StoreOp
	StencilLoad  LoadOp
	StencilStore StoreOp
	ClearDepth   float32
	ClearStencil uint32
}

// RenderingInfo describes one rendering scope.
type RenderingInfo struct {
	Name   string
	Area   math.Extents2D
	Colors []ColorAttachment
	Depth  *DepthAttachment
}
