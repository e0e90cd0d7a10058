package rendergraph

import (
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// ResourceAccess is the merged use of one logical resource by one pass.
type ResourceAccess struct {
	Resource Resource
	Flags    AccessFlags
	Stage    gpu.PipelineStage
	Access   gpu.Access
	// Layout is filled in by Compile for textures.
	Layout gpu.ImageLayout

	bufferUsage  gpu.BufferUsage
	textureUsage gpu.TextureUsage
	pendingWrite bool
}

func (a ResourceAccess) IsWrite() bool {
	return a.Access.IsWrite()
}

func (a ResourceAccess) resolved() bool {
	return resolvedAccess{
		stage:        a.Stage,
		access:       a.Access,
		bufferUsage:  a.bufferUsage,
		textureUsage: a.textureUsage,
	}.ok(a.Resource.Kind)
}

type RenderTargetAccess struct {
	Resource Resource
	Load     gpu.LoadOp
	Store    gpu.StoreOp
	Clear    math.Vec4
}

type DepthClear struct {
	Depth   float32
	Stencil uint32
}

type DepthTargetAccess struct {
	Resource     Resource
	Load         gpu.LoadOp
	Store        gpu.StoreOp
	StencilLoad  gpu.LoadOp
	StencilStore gpu.StoreOp
	Clear        DepthClear
}

type BarrierKind uint8

const (
	// BarrierExecution orders a write after earlier reads.
	BarrierExecution BarrierKind = iota
	// BarrierMemory makes an earlier write available and visible.
	BarrierMemory
)

func (k BarrierKind) String() string {
	if k == BarrierMemory {
		return "memory"
	}
	return "execution"
}

// Barrier waits on the accesses of pass Source before the owning pass runs.
type Barrier struct {
	Kind      BarrierKind
	Resource  Resource
	Source    int
	SrcStage  gpu.PipelineStage
	DstStage  gpu.PipelineStage
	SrcAccess gpu.Access
	DstAccess gpu.Access
	// Layout is the unchanged layout of a texture.
	Layout gpu.ImageLayout
}

// LayoutTransition is a texture barrier that also changes its layout.
type LayoutTransition struct {
	Resource  Resource
	Source    int
	SrcStage  gpu.PipelineStage
	DstStage  gpu.PipelineStage
	SrcAccess gpu.Access
	DstAccess gpu.Access
	OldLayout gpu.ImageLayout
	NewLayout gpu.ImageLayout
}

// Acquire hands a pooled resource to the first pass that uses it this
// frame. It orders that pass after the previous owner of the pooled object
// and moves textures out of the undefined layout.
type Acquire struct {
	Resource  Resource
	Reused    bool
	SrcStage  gpu.PipelineStage
	DstStage  gpu.PipelineStage
	SrcAccess gpu.Access
	DstAccess gpu.Access
	Layout    gpu.ImageLayout
}

type passExecutor interface {
	execute(frame *FrameContext, res *Resources) error
}

type typedExecutor[T any] struct {
	data *T
	fn   func(data *T, frame *FrameContext, res *Resources) error
}

func (e *typedExecutor[T]) execute(frame *FrameContext, res *Resources) error {
	if e.fn == nil {
		return nil
	}
	return e.fn(e.data, frame, res)
}

type Pass struct {
	Name  string
	Index int

	Accesses      []ResourceAccess
	RenderTargets []RenderTargetAccess
	DepthTarget   *DepthTargetAccess

	Acquires          []Acquire
	Barriers          []Barrier
	LayoutTransitions []LayoutTransition

	IsRasterizationPass bool

	executor    passExecutor
	accessIndex map[resourceKey]int
}

func newPass(name string, index int) *Pass {
	return &Pass{
		Name:        name,
		Index:       index,
		accessIndex: make(map[resourceKey]int),
	}
}

// Access returns the pass's access to the logical resource behind h.
func (p *Pass) Access(h Resource) (ResourceAccess, bool) {
	i, ok := p.accessIndex[h.key()]
	if !ok {
		return ResourceAccess{}, false
	}
	return p.Accesses[i], true
}

func (p *Pass) resetCompiled() {
	p.Acquires = nil
	p.Barriers = nil
	p.LayoutTransitions = nil
	p.IsRasterizationPass = false
}
