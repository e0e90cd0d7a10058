package testbed

import (
	"testing"

	"github.com/spaghettifunk/anima-framegraph/engine"
	"github.com/spaghettifunk/anima-framegraph/engine/config"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/headless"
	rg "github.com/spaghettifunk/anima-framegraph/engine/renderer/rendergraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(frames uint64) *config.Config {
	cfg := config.Default()
	cfg.Window.Width, cfg.Window.Height = 320, 180
	cfg.Engine.Frames = frames
	cfg.Engine.TargetFPS = 0
	cfg.Engine.MetricsEvery = 0
	return cfg
}

func newGame(t *testing.T) (*TestGame, *headless.Device) {
	t.Helper()
	tg, err := NewTestGame()
	require.NoError(t, err)
	d := headless.NewDevice(2)
	tg.Device = d
	tg.Uploader = d
	require.NoError(t, tg.Initialize())
	require.NoError(t, tg.OnResize(320, 180))
	return tg, d
}

func TestDeferredFrameSchedule(t *testing.T) {
	tg, d := newGame(t)
	graph := rg.NewGraph(d, rg.NewPool(d, 0))

	require.NoError(t, tg.Render(graph, 1.0/60))
	require.NoError(t, graph.Compile())

	raster := map[string]bool{}
	for _, p := range graph.Passes() {
		raster[p.Name] = p.IsRasterizationPass
	}
	assert.Equal(t, map[string]bool{
		"upload":   false,
		"shadow":   true,
		"gbuffer":  true,
		"ssao":     false,
		"lighting": true,
		"tonemap":  true,
	}, raster)

	ssao := graph.Passes()[3]
	var noise bool
	for _, tr := range ssao.LayoutTransitions {
		if tr.OldLayout == gpu.LayoutTransferDst && tr.NewLayout == gpu.LayoutReadOnly {
			noise = true
		}
	}
	assert.True(t, noise, "noise texture moves from transfer to sampled")

	cmd := headless.NewCommandList()
	require.NoError(t, graph.Execute(&rg.FrameContext{Commands: cmd, Uploader: d}))

	var camera *headless.Buffer
	for _, b := range d.Buffers {
		if b.Name == "camera" {
			camera = b
		}
	}
	require.NotNil(t, camera)
	assert.NotEqual(t, make([]byte, 16), camera.Data[:16], "camera uniform uploaded")

	back := tg.state().backBuffer.(*headless.Texture)
	assert.Equal(t, gpu.LayoutUndefined, back.Layout, "external back buffer is not transitioned")
}

func TestFramesReusePooledResources(t *testing.T) {
	tg, err := NewTestGame()
	require.NoError(t, err)
	tg.Config = testConfig(0)

	e, err := engine.New(tg.Game, "")
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Frame(1.0/60))
	first := e.Stats()
	assert.NotZero(t, first.Misses)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Frame(1.0/60))
	}
	steady := e.Stats()
	assert.Equal(t, first.Misses, steady.Misses, "later frames allocate nothing new")
	assert.Greater(t, steady.Hits, first.Hits)
	assert.Equal(t, uint64(4), e.FrameNumber())
	assert.NotZero(t, e.Metrics().TotalTransitions)
}

func TestRunStopsAfterConfiguredFrames(t *testing.T) {
	tg, err := NewTestGame()
	require.NoError(t, err)
	tg.Config = testConfig(3)

	e, err := engine.New(tg.Game, "")
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())

	assert.Equal(t, uint64(3), e.FrameNumber())
	d := tg.Device.(*headless.Device)
	buffers, textures := d.Live()
	assert.Zero(t, buffers)
	assert.Zero(t, textures)
}

func TestResizeReplacesBackBuffer(t *testing.T) {
	tg, d := newGame(t)
	old := tg.state().backBuffer

	require.NoError(t, tg.OnResize(320, 180))
	assert.Same(t, old, tg.state().backBuffer, "same size keeps the back buffer")

	require.NoError(t, tg.OnResize(640, 360))
	assert.NotSame(t, old, tg.state().backBuffer)
	assert.Equal(t, uint32(640), tg.state().backBuffer.Description().Width)

	d.DeletionQueue().FlushAll()
	assert.True(t, old.(*headless.Texture).Destroyed)
}
