package rendergraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

func TestWriteMermaid(t *testing.T) {
	g, d := newTestGraph(t)
	camera, err := d.CreateBuffer("camera", gpu.BufferDescription{Size: 256})
	require.NoError(t, err)
	cam := g.AddExternalBuffer("camera", camera)
	albedo := g.CreateTexture(`albedo "main"`, colorDesc())
	output := g.CreateTexture("output", colorDesc())

	addPass(t, g, "gbuffer", func(g *Graph) error {
		if _, err := g.Read(cam, AccessVertex|AccessUniform); err != nil {
			return err
		}
		_, err := g.RenderTarget(albedo, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	addPass(t, g, "lighting", func(g *Graph) error {
		if _, err := g.Read(albedo, AccessPixel|AccessSampled); err != nil {
			return err
		}
		_, err := g.RenderTarget(output, gpu.LoadOpClear, gpu.StoreOpStore)
		return err
	})
	require.NoError(t, g.Compile())

	var out bytes.Buffer
	require.NoError(t, g.WriteMermaid(&out))
	dump := out.String()

	assert.Contains(t, dump, "flowchart TD\n")
	assert.Contains(t, dump, `P0["0: gbuffer (raster)"]`)
	assert.Contains(t, dump, `B0[("camera (external)")]`)
	assert.Contains(t, dump, `T0(["albedo #quot;main#quot;"])`)
	assert.Contains(t, dump, `B0 -- "Vertex|Uniform" --> P0`)
	assert.Contains(t, dump, `P0 -- "ColorAttachment" --> T0`)
	assert.Contains(t, dump, `T0 -- "Pixel|Sampled" --> P1`)
	assert.Contains(t, dump, "ColorAttachment → ReadOnly")
}
