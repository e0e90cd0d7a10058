package rendergraph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// Graph collects the passes of one frame, compiles them into a barrier
// schedule and records them. It is not safe for concurrent use.
type Graph struct {
	device gpu.Device
	pool   *Pool

	buffers  []*GraphBuffer
	textures []*GraphTexture
	passes   []*Pass

	current  *Pass
	setupErr error
	compiled bool

	// attempted is set once the frame's first Compile has touched the pool.
	attempted bool

	blackboard *Blackboard
	resources  *Resources
}

func NewGraph(device gpu.Device, pool *Pool) *Graph {
	g := &Graph{
		device:     device,
		pool:       pool,
		blackboard: NewBlackboard(),
	}
	g.resources = &Resources{graph: g}
	return g
}

func (g *Graph) Pool() *Pool {
	return g.pool
}

func (g *Graph) Blackboard() *Blackboard {
	return g.blackboard
}

func (g *Graph) Passes() []*Pass {
	return g.passes
}

// AddRenderPass declares a pass. setup runs immediately and declares the
// pass's resource accesses on data; execute runs during Execute. The pass
// is kept even when setup fails, and the failure is reported again by Compile.
func AddRenderPass[T any](
	g *Graph,
	name string,
	setup func(g *Graph, data *T) error,
	execute func(data *T, frame *FrameContext, res *Resources) error,
) (*Pass, error) {
	data := new(T)
	pass := newPass(name, len(g.passes))
	pass.executor = &typedExecutor[T]{data: data, fn: execute}
	g.passes = append(g.passes, pass)
	g.compiled = false

	if setup == nil {
		return pass, nil
	}

	g.current = pass
	err := setup(g, data)
	g.current = nil
	if err != nil {
		err = fmt.Errorf("pass %q setup: %w", name, err)
		if g.setupErr == nil {
			g.setupErr = err
		}
		return pass, err
	}
	return pass, nil
}

func anonymousName(kind ResourceKind) string {
	return fmt.Sprintf("%s-%s", kind, uuid.New().String())
}

// CreateBuffer declares a pooled buffer with no physical backing yet.
func (g *Graph) CreateBuffer(name string, desc gpu.BufferDescription) Resource {
	if name == "" {
		name = anonymousName(ResourceKindBuffer)
	}
	g.buffers = append(g.buffers, &GraphBuffer{
		record:      newRecord(name, false),
		Description: desc,
	})
	return Resource{Kind: ResourceKindBuffer, Index: uint32(len(g.buffers) - 1)}
}

// CreateTexture declares a pooled texture with no physical backing yet.
func (g *Graph) CreateTexture(name string, desc gpu.TextureDescription) Resource {
	if name == "" {
		name = anonymousName(ResourceKindTexture)
	}
	g.textures = append(g.textures, &GraphTexture{
		record:      newRecord(name, false),
		Description: desc.Normalized(),
	})
	return Resource{Kind: ResourceKindTexture, Index: uint32(len(g.textures) - 1)}
}

// AddExternalBuffer wraps a caller owned buffer. It is bound immediately and
// never handed to the pool.
func (g *Graph) AddExternalBuffer(name string, buf gpu.Buffer) Resource {
	if name == "" {
		name = anonymousName(ResourceKindBuffer)
	}
	g.buffers = append(g.buffers, &GraphBuffer{
		record:      newRecord(name, true),
		Description: buf.Description(),
		Physical:    buf,
	})
	g.buffers[len(g.buffers)-1].bound = true
	return Resource{Kind: ResourceKindBuffer, Index: uint32(len(g.buffers) - 1)}
}

// AddExternalTexture wraps a caller owned texture such as a swapchain image.
func (g *Graph) AddExternalTexture(name string, tex gpu.Texture) Resource {
	if name == "" {
		name = anonymousName(ResourceKindTexture)
	}
	g.textures = append(g.textures, &GraphTexture{
		record:      newRecord(name, true),
		Description: tex.Description().Normalized(),
		Physical:    tex,
	})
	g.textures[len(g.textures)-1].bound = true
	return Resource{Kind: ResourceKindTexture, Index: uint32(len(g.textures) - 1)}
}

func (g *Graph) Buffer(h Resource) (*GraphBuffer, error) {
	if !h.IsValid() {
		return nil, ErrInvalidResource
	}
	if h.Kind != ResourceKindBuffer {
		return nil, ErrWrongKind
	}
	if int(h.Index) >= len(g.buffers) {
		return nil, ErrInvalidResource
	}
	return g.buffers[h.Index], nil
}

func (g *Graph) Texture(h Resource) (*GraphTexture, error) {
	if !h.IsValid() {
		return nil, ErrInvalidResource
	}
	if h.Kind != ResourceKindTexture {
		return nil, ErrWrongKind
	}
	if int(h.Index) >= len(g.textures) {
		return nil, ErrInvalidResource
	}
	return g.textures[h.Index], nil
}

func (g *Graph) record(h Resource) (*record, error) {
	switch h.Kind {
	case ResourceKindBuffer:
		b, err := g.Buffer(h)
		if err != nil {
			return nil, err
		}
		return &b.record, nil
	case ResourceKindTexture:
		t, err := g.Texture(h)
		if err != nil {
			return nil, err
		}
		return &t.record, nil
	}
	return nil, ErrInvalidResource
}

// Latest returns the newest version of the logical resource behind h.
func (g *Graph) Latest(h Resource) (Resource, error) {
	rec, err := g.record(h)
	if err != nil {
		return InvalidResource, err
	}
	h.Version = rec.latest()
	return h, nil
}

// Renamed returns the version that superseded h, if a later write produced one.
func (g *Graph) Renamed(h Resource) (Resource, bool) {
	rec, err := g.record(h)
	if err != nil || h.Version >= rec.latest() {
		return InvalidResource, false
	}
	h.Version++
	return h, true
}

// Name returns the diagnostic name of the resource behind h.
func (g *Graph) Name(h Resource) string {
	rec, err := g.record(h)
	if err != nil {
		return h.String()
	}
	return rec.Name
}

// Read declares that the current pass reads h. It returns h unchanged.
func (g *Graph) Read(h Resource, flags AccessFlags) (Resource, error) {
	if _, err := g.declare(h, flags, false); err != nil {
		return InvalidResource, err
	}
	return h, nil
}

// Write declares that the current pass writes h. When an earlier pass
// already produced the latest version, the write produces a new version and
// the returned handle refers to it; h then becomes stale.
func (g *Graph) Write(h Resource, flags AccessFlags) (Resource, error) {
	return g.declare(h, flags, true)
}

func (g *Graph) declare(h Resource, flags AccessFlags, write bool) (Resource, error) {
	verb := "read"
	if write {
		verb = "write"
	}
	pass := g.current
	if pass == nil {
		return InvalidResource, fail(ErrOutsideSetup, "%s %s", verb, h)
	}
	rec, err := g.record(h)
	if err != nil {
		return InvalidResource, g.setupFailed(fail(err, "pass %q: %s %s", pass.Name, verb, h))
	}
	if h.Version != rec.latest() {
		return InvalidResource, g.setupFailed(fail(ErrStaleVersion, "pass %q: %s %q version %d, latest is %d",
			pass.Name, verb, rec.Name, h.Version, rec.latest()))
	}

	i, seen := pass.accessIndex[h.key()]
	if write && seen && pass.Accesses[i].pendingWrite {
		return InvalidResource, g.setupFailed(fail(ErrRepeatedWrite, "pass %q: write %q", pass.Name, rec.Name))
	}

	out := h
	if write {
		producer := rec.producers[h.Version]
		switch {
		case producer < 0:
			rec.producers[h.Version] = pass.Index
		case producer != pass.Index:
			rec.producers = append(rec.producers, pass.Index)
			out.Version = rec.latest()
		}
	}

	resolved := resolveAccess(h.Kind, flags, write)
	if !seen {
		pass.Accesses = append(pass.Accesses, ResourceAccess{Resource: out})
		i = len(pass.Accesses) - 1
		pass.accessIndex[h.key()] = i
	}
	a := &pass.Accesses[i]
	a.Resource = out
	a.Flags |= flags
	a.Stage |= resolved.stage
	a.Access |= resolved.access
	a.bufferUsage |= resolved.bufferUsage
	a.textureUsage |= resolved.textureUsage
	a.pendingWrite = write

	switch h.Kind {
	case ResourceKindBuffer:
		g.buffers[h.Index].Description.Usage |= resolved.bufferUsage
	case ResourceKindTexture:
		g.textures[h.Index].Description.Usage |= resolved.textureUsage
	}
	g.compiled = false
	return out, nil
}

// setupFailed remembers the first declaration error of the current pass so
// Compile rejects the graph even when setup drops the error.
func (g *Graph) setupFailed(err error) error {
	if g.current != nil && g.setupErr == nil {
		g.setupErr = fmt.Errorf("pass %q setup: %w", g.current.Name, err)
	}
	return err
}

// RenderTarget writes h as a color attachment of the current pass.
func (g *Graph) RenderTarget(h Resource, load gpu.LoadOp, store gpu.StoreOp, clear ...math.Vec4) (Resource, error) {
	if h.Kind != ResourceKindTexture {
		return InvalidResource, g.setupFailed(fail(ErrWrongKind, "render target %s", h))
	}
	out, err := g.Write(h, AccessColorAttachment)
	if err != nil {
		return InvalidResource, err
	}
	rt := RenderTargetAccess{Resource: out, Load: load, Store: store}
	if len(clear) > 0 {
		rt.Clear = clear[0]
	}
	g.current.RenderTargets = append(g.current.RenderTargets, rt)
	return out, nil
}

// DepthStencilTarget writes h as the depth attachment of the current pass.
// Stencil is included when the texture format has a stencil aspect.
func (g *Graph) DepthStencilTarget(h Resource, load gpu.LoadOp, store gpu.StoreOp, clear ...DepthClear) (Resource, error) {
	tex, err := g.Texture(h)
	if err != nil {
		return InvalidResource, g.setupFailed(fail(err, "depth target %s", h))
	}
	flags := AccessDepthAttachment
	if tex.Description.Format.HasStencil() {
		flags |= AccessStencilAttachment
	}
	out, err := g.Write(h, flags)
	if err != nil {
		return InvalidResource, err
	}
	dt := &DepthTargetAccess{
		Resource:     out,
		Load:         load,
		Store:        store,
		StencilLoad:  gpu.LoadOpDontCare,
		StencilStore: gpu.StoreOpDontCare,
		Clear:        DepthClear{Depth: 1},
	}
	if flags&AccessStencilAttachment != 0 {
		dt.StencilLoad, dt.StencilStore = load, store
	}
	if len(clear) > 0 {
		dt.Clear = clear[0]
	}
	if g.current.DepthTarget != nil {
		core.LogWarn("pass %q replaces its depth target", g.current.Name)
	}
	g.current.DepthTarget = dt
	return out, nil
}

// Clear drops every record of the frame, flushes the device deletion queue
// and resets transient descriptor pools. Pooled objects survive.
func (g *Graph) Clear() {
	if err := g.resetCompiled(); err != nil {
		core.LogError("failed to return pooled resources: %s", err.Error())
	}
	g.device.DeletionQueue().Flush()
	if err := g.device.ResetTransientDescriptorPools(); err != nil {
		core.LogError("failed to reset transient descriptor pools: %s", err.Error())
	}
	g.buffers = nil
	g.textures = nil
	g.passes = nil
	g.current = nil
	g.setupErr = nil
	g.compiled = false
	g.attempted = false
	g.blackboard.Clear()
	g.pool.NextFrame()
}
