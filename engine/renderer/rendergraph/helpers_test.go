package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/headless"
)

type noData struct{}

func newTestGraph(t *testing.T) (*Graph, *headless.Device) {
	t.Helper()
	d := headless.NewDevice(0)
	return NewGraph(d, NewPool(d, 0)), d
}

func storageDesc() gpu.BufferDescription {
	return gpu.BufferDescription{Size: 4096}
}

func colorDesc() gpu.TextureDescription {
	return gpu.TextureDescription{Width: 320, Height: 180, Format: gpu.FormatRGBA16Float}
}

func depthDesc() gpu.TextureDescription {
	return gpu.TextureDescription{Width: 320, Height: 180, Format: gpu.FormatD32Float}
}

// addPass declares a pass without pass data or execute callback.
func addPass(t *testing.T, g *Graph, name string, setup func(g *Graph) error) *Pass {
	t.Helper()
	p, err := AddRenderPass[noData](g, name, func(g *Graph, _ *noData) error {
		return setup(g)
	}, nil)
	require.NoError(t, err)
	return p
}

// syncOn lists every synchronization a pass performs on the logical resource h.
type syncRecord struct {
	srcStage  gpu.PipelineStage
	srcAccess gpu.Access
	dstStage  gpu.PipelineStage
	dstAccess gpu.Access
}

func syncOn(p *Pass, h Resource) []syncRecord {
	var out []syncRecord
	for _, b := range p.Barriers {
		if b.Resource.key() == h.key() {
			out = append(out, syncRecord{b.SrcStage, b.SrcAccess, b.DstStage, b.DstAccess})
		}
	}
	for _, tr := range p.LayoutTransitions {
		if tr.Resource.key() == h.key() {
			out = append(out, syncRecord{tr.SrcStage, tr.SrcAccess, tr.DstStage, tr.DstAccess})
		}
	}
	return out
}
