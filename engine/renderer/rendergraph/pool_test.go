package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/headless"
)

func TestPoolReuse(t *testing.T) {
	d := headless.NewDevice(0)
	p := NewPool(d, 0)

	h1, a := p.GetBuffer("a", storageDesc())
	h2, b := p.GetBuffer("b", storageDesc())
	assert.NotSame(t, a, b, "both in use")

	require.NoError(t, p.ReleaseBuffer(h1))
	_, c := p.GetBuffer("c", storageDesc())
	assert.Same(t, a, c)

	_, other := p.GetBuffer("big", gpu.BufferDescription{Size: 8192})
	assert.NotSame(t, a, other, "different size never aliases")

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, 3, stats.Buffers)

	require.NoError(t, p.ReleaseBuffer(h2))
	assert.ErrorIs(t, p.ReleaseBuffer(h2), ErrStalePoolHandle)
	assert.ErrorIs(t, p.ReleaseBuffer(h1), ErrStalePoolHandle, "slot was handed out again")
	assert.ErrorIs(t, p.ReleaseTexture(invalidPoolHandle), ErrStalePoolHandle)
}

func TestPoolTextureAliasing(t *testing.T) {
	d := headless.NewDevice(0)
	p := NewPool(d, 0)

	h, a := p.GetTexture("a", colorDesc().Normalized())
	require.NoError(t, p.ReleaseTexture(h))

	desc := colorDesc().Normalized()
	desc.MipLevels = 4
	_, b := p.GetTexture("b", desc)
	assert.NotSame(t, a, b)

	_, c := p.GetTexture("c", colorDesc().Normalized())
	assert.Same(t, a, c)
}

func TestPoolEvictsIdleEntries(t *testing.T) {
	d := headless.NewDevice(0)
	p := NewPool(d, 1)

	h, _ := p.GetTexture("a", colorDesc().Normalized())
	p.GetBuffer("held", storageDesc())
	require.NoError(t, p.ReleaseTexture(h))

	p.NextFrame()
	assert.Zero(t, p.Stats().Evictions)

	p.NextFrame()
	assert.Equal(t, uint64(1), p.Stats().Evictions)
	assert.Zero(t, p.Stats().Textures)
	assert.Equal(t, 1, p.Stats().Buffers, "in use entries never age")

	_, textures := d.Live()
	assert.Equal(t, 1, textures, "destruction waits for the deletion queue")
	d.DeletionQueue().Flush()
	_, textures = d.Live()
	assert.Zero(t, textures)
}

func TestPoolEvictionThroughGraphFrames(t *testing.T) {
	d := headless.NewDevice(0)
	g := NewGraph(d, NewPool(d, 1))

	tex := g.CreateTexture("albedo", colorDesc())
	addPass(t, g, "gbuffer", func(g *Graph) error {
		_, err := g.RenderTarget(tex, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	require.NoError(t, g.Compile())

	g.Clear()
	g.Clear()
	_, textures := d.Live()
	assert.Equal(t, 1, textures)

	g.Clear()
	_, textures = d.Live()
	assert.Zero(t, textures)
	assert.Equal(t, uint64(1), g.Pool().Stats().Evictions)
}

func TestPoolDestroy(t *testing.T) {
	d := headless.NewDevice(0)
	p := NewPool(d, 0)
	p.GetBuffer("a", storageDesc())
	p.GetTexture("b", colorDesc().Normalized())

	p.Destroy()
	d.DeletionQueue().FlushAll()

	buffers, textures := d.Live()
	assert.Zero(t, buffers)
	assert.Zero(t, textures)
	assert.Zero(t, p.Stats().Buffers)
}
