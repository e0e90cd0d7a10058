package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// pooledBufferUsage is forced on every pooled buffer so it can be addressed
// from shaders and filled by uploads.
const pooledBufferUsage = gpu.BufferUsageDeviceAddress | gpu.BufferUsageTransferDst

type CompileStats struct {
	Passes      int
	Acquires    int
	Barriers    int
	Transitions int
}

// Compile computes live ranges, binds pooled resources for them and
// synthesizes the barriers and layout transitions of every pass. Compiling
// an unchanged graph again yields the same schedule.
func (g *Graph) Compile() error {
	if g.setupErr != nil {
		return fmt.Errorf("compile: %w", g.setupErr)
	}
	if err := g.resetCompiled(); err != nil {
		return err
	}
	if g.attempted {
		g.pool.rewind()
	}
	g.attempted = true
	if err := g.computeSpans(); err != nil {
		return err
	}
	s := newScheduler(g)
	if err := s.run(); err != nil {
		return err
	}
	g.compiled = true

	stats := g.Stats()
	core.LogDebug("render graph compiled: %d passes, %d barriers, %d layout transitions, %d acquires",
		stats.Passes, stats.Barriers, stats.Transitions, stats.Acquires)
	return nil
}

func (g *Graph) Compiled() bool {
	return g.compiled
}

func (g *Graph) Stats() CompileStats {
	stats := CompileStats{Passes: len(g.passes)}
	for _, p := range g.passes {
		stats.Acquires += len(p.Acquires)
		stats.Barriers += len(p.Barriers)
		stats.Transitions += len(p.LayoutTransitions)
	}
	return stats
}

// resetCompiled drops what an earlier Compile produced, handing back pooled
// objects a failed compile may still hold.
func (g *Graph) resetCompiled() error {
	g.compiled = false
	for _, b := range g.buffers {
		b.resetSpan()
		if b.External {
			continue
		}
		if b.held {
			if err := g.pool.releaseBuffer(b.poolHandle, syncState{}); err != nil {
				return fail(err, "reset %q", b.Name)
			}
		}
		b.Physical, b.bound, b.held, b.poolHandle = nil, false, false, invalidPoolHandle
	}
	for _, t := range g.textures {
		t.resetSpan()
		if t.External {
			continue
		}
		if t.held {
			if err := g.pool.releaseTexture(t.poolHandle, syncState{}); err != nil {
				return fail(err, "reset %q", t.Name)
			}
		}
		t.Physical, t.bound, t.held, t.poolHandle = nil, false, false, invalidPoolHandle
	}
	for _, p := range g.passes {
		p.resetCompiled()
	}
	return nil
}

// computeSpans records the first and last pass touching every resource,
// rejects accesses the lookup tables could not resolve and classifies passes.
func (g *Graph) computeSpans() error {
	for _, p := range g.passes {
		compute := false
		for _, a := range p.Accesses {
			rec, err := g.record(a.Resource)
			if err != nil {
				return fail(err, "pass %q", p.Name)
			}
			if !a.resolved() {
				return fail(ErrUnresolvedAccess, "pass %q: %q with %s", p.Name, rec.Name, a.Flags)
			}
			rec.touch(p.Index)
			if a.Stage&gpu.StageComputeShader != 0 {
				compute = true
			}
		}
		p.IsRasterizationPass = !compute && (len(p.RenderTargets) > 0 || p.DepthTarget != nil)
	}
	return nil
}

// scheduler walks the passes once. For each pass it binds the resources
// whose range starts there, runs the hazard tracker over the pass's
// accesses and then releases the resources whose range ends there, so a
// resource is always bound before its first hazard step.
type scheduler struct {
	g        *Graph
	buffers  []hazardState
	textures []hazardState
}

func newScheduler(g *Graph) *scheduler {
	return &scheduler{
		g:        g,
		buffers:  make([]hazardState, len(g.buffers)),
		textures: make([]hazardState, len(g.textures)),
	}
}

func (s *scheduler) run() error {
	for _, p := range s.g.passes {
		for i := range p.Accesses {
			s.bind(p, &p.Accesses[i])
		}
		for i := range p.Accesses {
			s.track(p, &p.Accesses[i])
		}
		for i := range p.Accesses {
			if err := s.release(p, &p.Accesses[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *scheduler) bind(p *Pass, a *ResourceAccess) {
	switch a.Resource.Kind {
	case ResourceKindBuffer:
		b := s.g.buffers[a.Resource.Index]
		if b.External || b.bound || b.FirstAccess != p.Index {
			return
		}
		b.Description.Usage |= pooledBufferUsage
		h, phys, last, reused := s.g.pool.acquireBuffer(b.Name, b.Description)
		b.Physical, b.poolHandle, b.bound, b.held = phys, h, true, true
		if reused && last.stage != gpu.StageNone {
			p.Acquires = append(p.Acquires, Acquire{
				Resource:  a.Resource,
				Reused:    true,
				SrcStage:  last.stage,
				SrcAccess: last.access,
				DstStage:  a.Stage,
				DstAccess: a.Access,
			})
		}
	case ResourceKindTexture:
		t := s.g.textures[a.Resource.Index]
		if t.External || t.bound || t.FirstAccess != p.Index {
			return
		}
		h, phys, last, reused := s.g.pool.acquireTexture(t.Name, t.Description)
		t.Physical, t.poolHandle, t.bound, t.held = phys, h, true, true
		acq := Acquire{
			Resource:  a.Resource,
			Reused:    reused,
			SrcStage:  gpu.StageTopOfPipe,
			DstStage:  a.Stage,
			DstAccess: a.Access,
			Layout:    desiredLayout(a.Flags, a.Stage, a.IsWrite(), t.Description.Format),
		}
		if reused && last.stage != gpu.StageNone {
			acq.SrcStage, acq.SrcAccess = last.stage, last.access
		}
		p.Acquires = append(p.Acquires, acq)
	}
}

func (s *scheduler) track(p *Pass, a *ResourceAccess) {
	in := hazardAccess{
		pass:   p.Index,
		stage:  a.Stage,
		access: a.Access,
		write:  a.IsWrite(),
	}
	state := &s.buffers[a.Resource.Index]
	if a.Resource.Kind == ResourceKindTexture {
		t := s.g.textures[a.Resource.Index]
		a.Layout = desiredLayout(a.Flags, a.Stage, in.write, t.Description.Format)
		in.texture = true
		in.layout = a.Layout
		state = &s.textures[a.Resource.Index]
	}

	next, res := synthesize(*state, in)
	*state = next
	if res.barrier != nil {
		res.barrier.Resource = a.Resource
		p.Barriers = append(p.Barriers, *res.barrier)
	}
	if res.transition != nil {
		res.transition.Resource = a.Resource
		p.LayoutTransitions = append(p.LayoutTransitions, *res.transition)
	}
}

func (s *scheduler) release(p *Pass, a *ResourceAccess) error {
	switch a.Resource.Kind {
	case ResourceKindBuffer:
		b := s.g.buffers[a.Resource.Index]
		if b.External || !b.held || b.LastAccess != p.Index {
			return nil
		}
		if err := s.g.pool.releaseBuffer(b.poolHandle, lastUse(s.buffers[a.Resource.Index])); err != nil {
			return fail(err, "pass %q: release %q", p.Name, b.Name)
		}
		b.held = false
	case ResourceKindTexture:
		t := s.g.textures[a.Resource.Index]
		if t.External || !t.held || t.LastAccess != p.Index {
			return nil
		}
		if err := s.g.pool.releaseTexture(t.poolHandle, lastUse(s.textures[a.Resource.Index])); err != nil {
			return fail(err, "pass %q: release %q", p.Name, t.Name)
		}
		t.held = false
	}
	return nil
}

func lastUse(s hazardState) syncState {
	return syncState{
		stage:  s.writeStage | s.readStage,
		access: s.writeAccess & gpu.AccessWriteMask,
		layout: s.layout,
	}
}
