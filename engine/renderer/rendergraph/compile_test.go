package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/headless"
)

func TestComputeWriteThenRead(t *testing.T) {
	g, _ := newTestGraph(t)
	buf := g.CreateBuffer("particles", storageDesc())

	var written Resource
	p0 := addPass(t, g, "simulate", func(g *Graph) error {
		var err error
		written, err = g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	p1 := addPass(t, g, "bin", func(g *Graph) error {
		_, err := g.Read(written, AccessCompute|AccessStorage)
		return err
	})
	require.NoError(t, g.Compile())

	assert.False(t, p0.IsRasterizationPass)
	assert.False(t, p1.IsRasterizationPass)
	assert.Empty(t, p0.Barriers)
	assert.Empty(t, p0.LayoutTransitions)
	assert.Empty(t, p1.LayoutTransitions)

	require.Len(t, p1.Barriers, 1)
	b := p1.Barriers[0]
	assert.Equal(t, BarrierMemory, b.Kind)
	assert.Equal(t, 0, b.Source)
	assert.Equal(t, gpu.StageComputeShader, b.SrcStage)
	assert.Equal(t, gpu.StageComputeShader, b.DstStage)
	assert.Equal(t, gpu.AccessShaderWrite, b.SrcAccess)
	assert.Equal(t, gpu.AccessShaderRead, b.DstAccess)

	gb, err := g.Buffer(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, gb.FirstAccess)
	assert.Equal(t, 1, gb.LastAccess)
	assert.NotNil(t, gb.Physical)
	assert.Equal(t, gpu.BufferUsageStorage|pooledBufferUsage, gb.Description.Usage)
}

func TestColorTargetThenSampled(t *testing.T) {
	g, _ := newTestGraph(t)
	albedo := g.CreateTexture("albedo", colorDesc())
	output := g.CreateTexture("output", colorDesc())

	var rt Resource
	p0 := addPass(t, g, "gbuffer", func(g *Graph) error {
		var err error
		rt, err = g.RenderTarget(albedo, gpu.LoadOpClear, gpu.StoreOpStore, math.NewVec4(0, 0, 0, 1))
		return err
	})
	p1 := addPass(t, g, "lighting", func(g *Graph) error {
		if _, err := g.Read(rt, AccessPixel|AccessSampled); err != nil {
			return err
		}
		_, err := g.RenderTarget(output, gpu.LoadOpDontCare, gpu.StoreOpStore)
		return err
	})
	require.NoError(t, g.Compile())

	assert.True(t, p0.IsRasterizationPass)
	assert.True(t, p1.IsRasterizationPass)
	assert.Empty(t, p1.Barriers)
	require.Len(t, p1.LayoutTransitions, 1)

	tr := p1.LayoutTransitions[0]
	assert.Equal(t, albedo.key(), tr.Resource.key())
	assert.Equal(t, 0, tr.Source)
	assert.Equal(t, gpu.LayoutColorAttachment, tr.OldLayout)
	assert.Equal(t, gpu.LayoutReadOnly, tr.NewLayout)
	assert.Equal(t, gpu.StageColorAttachmentOutput, tr.SrcStage)
	assert.Equal(t, gpu.AccessColorAttachmentWrite, tr.SrcAccess)
	assert.Equal(t, gpu.StageFragmentShader, tr.DstStage)
	assert.Equal(t, gpu.AccessShaderRead, tr.DstAccess)

	// both textures come out of the undefined layout on first use
	require.Len(t, p0.Acquires, 1)
	assert.Equal(t, gpu.LayoutColorAttachment, p0.Acquires[0].Layout)
	assert.False(t, p0.Acquires[0].Reused)
	require.Len(t, p1.Acquires, 1)
	assert.Equal(t, output.key(), p1.Acquires[0].Resource.key())

	a, ok := p1.Access(albedo)
	require.True(t, ok)
	assert.Equal(t, gpu.LayoutReadOnly, a.Layout)
}

func TestExternalBufferReadOnly(t *testing.T) {
	g, d := newTestGraph(t)
	camera, err := d.CreateBuffer("camera", gpu.BufferDescription{Size: 256, Usage: gpu.BufferUsageUniform})
	require.NoError(t, err)
	h := g.AddExternalBuffer("camera", camera)

	var passes []*Pass
	for _, name := range []string{"depth-prepass", "gbuffer", "forward"} {
		passes = append(passes, addPass(t, g, name, func(g *Graph) error {
			_, err := g.Read(h, AccessVertex|AccessPixel|AccessUniform)
			return err
		}))
	}
	require.NoError(t, g.Compile())

	for _, p := range passes {
		assert.Empty(t, p.Barriers, p.Name)
		assert.Empty(t, p.LayoutTransitions, p.Name)
		assert.Empty(t, p.Acquires, p.Name)
	}

	gb, err := g.Buffer(h)
	require.NoError(t, err)
	assert.Same(t, camera, gb.Physical)
	assert.Equal(t, 0, gb.FirstAccess)
	assert.Equal(t, 2, gb.LastAccess)

	stats := g.Pool().Stats()
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Buffers)

	bufs, _ := d.Live()
	assert.Equal(t, 1, bufs)
}

func TestDisjointRangesShareTexture(t *testing.T) {
	g, d := newTestGraph(t)
	shadow := g.CreateTexture("shadow", depthDesc())
	first := g.CreateTexture("bloom-a", colorDesc())
	second := g.CreateTexture("bloom-b", colorDesc())
	scratch := g.CreateTexture("scratch", gpu.TextureDescription{Width: 64, Height: 64, Format: gpu.FormatR8Unorm})

	addPass(t, g, "shadow", func(g *Graph) error {
		_, err := g.DepthStencilTarget(shadow, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "bloom-down", func(g *Graph) error {
		_, err := g.RenderTarget(first, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "bloom-blur", func(g *Graph) error {
		if _, err := g.Read(first, AccessPixel|AccessSampled); err != nil {
			return err
		}
		_, err := g.RenderTarget(scratch, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	p3 := addPass(t, g, "bloom-up", func(g *Graph) error {
		_, err := g.RenderTarget(second, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "composite", func(g *Graph) error {
		if _, err := g.Read(second, AccessPixel|AccessSampled); err != nil {
			return err
		}
		_, err := g.Read(shadow, AccessPixel|AccessSampled)
		return err
	})
	require.NoError(t, g.Compile())

	ta, err := g.Texture(first)
	require.NoError(t, err)
	tb, err := g.Texture(second)
	require.NoError(t, err)
	assert.Equal(t, 2, ta.LastAccess)
	assert.Equal(t, 3, tb.FirstAccess)
	assert.Same(t, ta.Physical, tb.Physical)

	require.Len(t, p3.Acquires, 1)
	acq := p3.Acquires[0]
	assert.True(t, acq.Reused)
	assert.Equal(t, gpu.StageFragmentShader, acq.SrcStage&gpu.StageFragmentShader, "waits on the sampling pass")
	assert.Equal(t, gpu.LayoutColorAttachment, acq.Layout)

	stats := g.Pool().Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	_, textures := d.Live()
	assert.Equal(t, 3, textures)
}

func TestOverlappingRangesNeverShare(t *testing.T) {
	g, _ := newTestGraph(t)
	a := g.CreateTexture("a", colorDesc())
	b := g.CreateTexture("b", colorDesc())

	addPass(t, g, "write-a", func(g *Graph) error {
		_, err := g.RenderTarget(a, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "write-b", func(g *Graph) error {
		_, err := g.RenderTarget(b, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "read-both", func(g *Graph) error {
		if _, err := g.Read(a, AccessPixel|AccessSampled); err != nil {
			return err
		}
		_, err := g.Read(b, AccessPixel|AccessSampled)
		return err
	})
	require.NoError(t, g.Compile())

	ta, _ := g.Texture(a)
	tb, _ := g.Texture(b)
	assert.NotSame(t, ta.Physical, tb.Physical)
}

func TestUnresolvedAccessFailsCompile(t *testing.T) {
	g, _ := newTestGraph(t)
	buf := g.CreateBuffer("params", gpu.BufferDescription{Size: 64})

	addPass(t, g, "draw", func(g *Graph) error {
		_, err := g.Read(buf, AccessUniform)
		return err
	})
	assert.ErrorIs(t, g.Compile(), ErrUnresolvedAccess)
	assert.False(t, g.Compiled())
}

func TestDroppedSetupErrorsFailCompile(t *testing.T) {
	g, _ := newTestGraph(t)
	buf := g.CreateBuffer("particles", storageDesc())
	tex := g.CreateTexture("albedo", colorDesc())

	addPass(t, g, "simulate", func(g *Graph) error {
		_, _ = g.Write(buf, AccessCompute|AccessStorage)
		_, _ = g.Write(buf, AccessCompute|AccessStorage)
		_, _ = g.RenderTarget(buf, gpu.LoadOpLoad, gpu.StoreOpStore)
		return nil
	})
	addPass(t, g, "shade", func(g *Graph) error {
		_, _ = g.Read(tex, AccessPixel|AccessSampled)
		return nil
	})

	err := g.Compile()
	require.ErrorIs(t, err, ErrRepeatedWrite, "the first error wins")
	assert.NotErrorIs(t, err, ErrWrongKind)
	assert.Contains(t, err.Error(), `"simulate"`)
	assert.False(t, g.Compiled())
	assert.Equal(t, 0, g.Stats().Acquires)
}

func TestDroppedStaleReadFailsCompile(t *testing.T) {
	g, _ := newTestGraph(t)
	buf := g.CreateBuffer("lights", storageDesc())

	addPass(t, g, "cull", func(g *Graph) error {
		_, err := g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "bin", func(g *Graph) error {
		_, err := g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "draw", func(g *Graph) error {
		_, _ = g.Read(buf, AccessVertex|AccessStorage)
		return nil
	})

	assert.ErrorIs(t, g.Compile(), ErrStaleVersion)
}

func TestComputeAndTargetsIsNotRasterization(t *testing.T) {
	g, _ := newTestGraph(t)
	tex := g.CreateTexture("target", colorDesc())
	buf := g.CreateBuffer("data", storageDesc())

	p := addPass(t, g, "mixed", func(g *Graph) error {
		if _, err := g.RenderTarget(tex, gpu.LoadOpClear, gpu.StoreOpStore); err != nil {
			return err
		}
		_, err := g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	require.NoError(t, g.Compile())
	assert.False(t, p.IsRasterizationPass)
}

// buildMixedFrame declares a frame exercising every hazard kind on both a
// buffer and a texture.
func buildMixedFrame(t *testing.T, g *Graph) (Resource, Resource) {
	buf := g.CreateBuffer("particles", storageDesc())
	tex := g.CreateTexture("hdr", gpu.TextureDescription{Width: 320, Height: 180, Format: gpu.FormatRGBA16Float})
	output := g.CreateTexture("output", colorDesc())

	b, h := buf, tex
	addPass(t, g, "emit", func(g *Graph) error {
		var err error
		b, err = g.Write(b, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "shade", func(g *Graph) error {
		var err error
		if _, err = g.Read(b, AccessCompute|AccessStorage); err != nil {
			return err
		}
		h, err = g.Write(h, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "draw", func(g *Graph) error {
		if _, err := g.Read(b, AccessVertex|AccessStorage); err != nil {
			return err
		}
		var err error
		h, err = g.RenderTarget(h, gpu.LoadOpLoad, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "resimulate", func(g *Graph) error {
		var err error
		b, err = g.Write(b, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "compact", func(g *Graph) error {
		var err error
		b, err = g.Write(b, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "blur", func(g *Graph) error {
		if _, err := g.Read(h, AccessCompute|AccessSampled); err != nil {
			return err
		}
		_, err := g.Read(b, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "tonemap", func(g *Graph) error {
		if _, err := g.Read(h, AccessPixel|AccessSampled); err != nil {
			return err
		}
		if _, err := g.Read(b, AccessPixel|AccessStorage); err != nil {
			return err
		}
		_, err := g.RenderTarget(output, gpu.LoadOpDontCare, gpu.StoreOpStore)
		return err
	})
	return buf, tex
}

func covers(have, want gpu.PipelineStage) bool {
	return have&want == want
}

// assertSynchronized checks that every access ordered after a conflicting
// access of the same resource is covered: writes by a sync whose source
// includes the previous access, reads by a sync between the last write and
// the read that made the write visible to the read's stage.
func assertSynchronized(t *testing.T, g *Graph, h Resource) {
	t.Helper()
	type use struct {
		pass   *Pass
		access ResourceAccess
	}
	var uses []use
	for _, p := range g.Passes() {
		if a, ok := p.Access(h); ok {
			uses = append(uses, use{p, a})
		}
	}
	lastWrite := -1
	for i, u := range uses {
		if i > 0 && u.access.IsWrite() {
			prev := uses[i-1]
			found := false
			for _, s := range syncOn(u.pass, h) {
				if covers(s.srcStage, prev.access.Stage) && covers(s.dstStage, u.access.Stage) {
					found = true
				}
			}
			assert.True(t, found, "%s: write in %q not ordered after %q", g.Name(h), u.pass.Name, prev.pass.Name)
		}
		if !u.access.IsWrite() && lastWrite >= 0 {
			w := uses[lastWrite]
			found := false
			for _, v := range uses[lastWrite+1 : i+1] {
				for _, s := range syncOn(v.pass, h) {
					if covers(s.srcStage, w.access.Stage) &&
						covers(s.dstStage, u.access.Stage) &&
						s.srcAccess&w.access.Access&gpu.AccessWriteMask != 0 &&
						s.dstAccess&u.access.Access == u.access.Access {
						found = true
					}
				}
			}
			assert.True(t, found, "%s: read in %q does not see the write of %q", g.Name(h), u.pass.Name, w.pass.Name)
		}
		if u.access.IsWrite() {
			lastWrite = i
		}
	}
}

func TestEveryConflictIsSynchronized(t *testing.T) {
	g, _ := newTestGraph(t)
	buf, tex := buildMixedFrame(t, g)
	require.NoError(t, g.Compile())

	assertSynchronized(t, g, buf)
	assertSynchronized(t, g, tex)

	// the storage write and the color write of "hdr" need different layouts
	draw := g.Passes()[2]
	require.Len(t, draw.LayoutTransitions, 1)
	assert.Equal(t, gpu.LayoutGeneral, draw.LayoutTransitions[0].OldLayout)
	assert.Equal(t, gpu.LayoutColorAttachment, draw.LayoutTransitions[0].NewLayout)

	// write after read only orders execution
	resim := g.Passes()[3]
	require.Len(t, resim.Barriers, 1)
	assert.Equal(t, BarrierExecution, resim.Barriers[0].Kind)
	assert.Equal(t, gpu.StageComputeShader|gpu.StageVertexShader, resim.Barriers[0].SrcStage)

	compact := g.Passes()[4]
	require.Len(t, compact.Barriers, 1)
	assert.Equal(t, BarrierMemory, compact.Barriers[0].Kind)
}

func TestResourcesBoundOverTheirRange(t *testing.T) {
	g, _ := newTestGraph(t)
	buildMixedFrame(t, g)
	require.NoError(t, g.Compile())

	for _, p := range g.Passes() {
		for _, a := range p.Accesses {
			rec, err := g.record(a.Resource)
			require.NoError(t, err)
			assert.LessOrEqual(t, rec.FirstAccess, p.Index)
			assert.GreaterOrEqual(t, rec.LastAccess, p.Index)
			if a.Resource.Kind == ResourceKindTexture {
				_, err = g.boundTexture(a.Resource)
			} else {
				_, err = g.boundBuffer(a.Resource)
			}
			assert.NoError(t, err, "%s in %q", g.Name(a.Resource), p.Name)
		}
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	g, d := newTestGraph(t)
	buildMixedFrame(t, g)
	require.NoError(t, g.Compile())

	type snapshot struct {
		raster      bool
		acquires    []Acquire
		barriers    []Barrier
		transitions []LayoutTransition
	}
	take := func() []snapshot {
		var out []snapshot
		for _, p := range g.Passes() {
			out = append(out, snapshot{p.IsRasterizationPass, p.Acquires, p.Barriers, p.LayoutTransitions})
		}
		return out
	}
	first := take()
	firstStats := g.Stats()
	tex, _ := g.Texture(Resource{Kind: ResourceKindTexture, Index: 0})
	physical := tex.Physical
	_, liveBefore := d.Live()

	for i := 0; i < 2; i++ {
		require.NoError(t, g.Compile())
		assert.Equal(t, first, take())
		assert.Equal(t, firstStats, g.Stats())
		assert.Same(t, physical, tex.Physical)
	}
	_, liveAfter := d.Live()
	assert.Equal(t, liveBefore, liveAfter, "recompiling reuses pooled objects")
}

func TestRecompileAddsNoAcquires(t *testing.T) {
	g, _ := newTestGraph(t)
	buf := g.CreateBuffer("visible", storageDesc())
	addPass(t, g, "cull", func(g *Graph) error {
		_, err := g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	addPass(t, g, "draw", func(g *Graph) error {
		_, err := g.Read(buf, AccessVertex|AccessStorage)
		return err
	})

	require.NoError(t, g.Compile())
	require.Empty(t, g.Passes()[0].Acquires)
	require.NoError(t, g.Compile())
	assert.Empty(t, g.Passes()[0].Acquires)
	assert.Equal(t, 0, g.Stats().Acquires)

	// a new frame sees the buffer last written by the previous one
	g.Clear()
	buf = g.CreateBuffer("visible", storageDesc())
	addPass(t, g, "cull", func(g *Graph) error {
		_, err := g.Write(buf, AccessCompute|AccessStorage)
		return err
	})
	require.NoError(t, g.Compile())
	require.Len(t, g.Passes()[0].Acquires, 1)
	acq := g.Passes()[0].Acquires[0]
	assert.True(t, acq.Reused)
	assert.Equal(t, gpu.StageVertexShader|gpu.StageComputeShader, acq.SrcStage)
}

func TestClearReturnsObjectsOfFailedCompile(t *testing.T) {
	g, d := newTestGraph(t)
	target := func(name string) Resource {
		return g.CreateTexture(name, colorDesc())
	}

	first := target("albedo")
	addPass(t, g, "gbuffer", func(g *Graph) error {
		_, err := g.RenderTarget(first, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	require.NoError(t, g.Compile())
	g.Clear()

	// the pooled texture is bound, then the second allocation fails
	a, b := target("albedo"), target("normal")
	addPass(t, g, "gbuffer", func(g *Graph) error {
		if _, err := g.RenderTarget(a, gpu.LoadOpClear, gpu.StoreOpStore); err != nil {
			return err
		}
		_, err := g.RenderTarget(b, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	d.FailAllocations = true
	require.Panics(t, func() { _ = g.Compile() })
	d.FailAllocations = false
	g.Clear()

	again := target("albedo")
	addPass(t, g, "gbuffer", func(g *Graph) error {
		_, err := g.RenderTarget(again, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	require.NoError(t, g.Compile())
	_, textures := d.Live()
	assert.Equal(t, 1, textures)
	assert.Equal(t, uint64(2), g.Pool().Stats().Hits)
}

func TestAllocationFailurePanics(t *testing.T) {
	d := headless.NewDevice(0)
	g := NewGraph(d, NewPool(d, 0))
	tex := g.CreateTexture("albedo", colorDesc())
	addPass(t, g, "gbuffer", func(g *Graph) error {
		_, err := g.RenderTarget(tex, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	d.FailAllocations = true
	assert.Panics(t, func() { _ = g.Compile() })
}

func TestClearKeepsPooledObjects(t *testing.T) {
	g, d := newTestGraph(t)
	frame := func() {
		tex := g.CreateTexture("albedo", colorDesc())
		addPass(t, g, "gbuffer", func(g *Graph) error {
			_, err := g.RenderTarget(tex, gpu.LoadOpClear, gpu.StoreOpStore)
			return err
		})
		require.NoError(t, g.Compile())
	}

	frame()
	_, err := RegisterOutput(g.Blackboard(), 42)
	require.NoError(t, err)
	g.Clear()

	assert.Empty(t, g.Passes())
	assert.False(t, g.Compiled())
	assert.Equal(t, 1, d.DescriptorPoolResets)
	_, ok := TryGetOutput[int](g.Blackboard())
	assert.False(t, ok)

	frame()
	_, textures := d.Live()
	assert.Equal(t, 1, textures)
	assert.Equal(t, uint64(1), g.Pool().Stats().Hits)
}
