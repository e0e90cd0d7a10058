package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

func computeWrite(pass int) hazardAccess {
	return hazardAccess{pass: pass, stage: gpu.StageComputeShader, access: gpu.AccessShaderWrite, write: true}
}

func computeRead(pass int) hazardAccess {
	return hazardAccess{pass: pass, stage: gpu.StageComputeShader, access: gpu.AccessShaderRead}
}

func pixelRead(pass int) hazardAccess {
	return hazardAccess{pass: pass, stage: gpu.StageFragmentShader, access: gpu.AccessShaderRead}
}

func TestSynthesizeFirstAccessSeeds(t *testing.T) {
	s, res := synthesize(hazardState{}, computeWrite(0))
	assert.True(t, s.seeded)
	assert.Nil(t, res.barrier)
	assert.Nil(t, res.transition)
}

func TestSynthesizeReadAfterWrite(t *testing.T) {
	s, _ := synthesize(hazardState{}, computeWrite(0))
	_, res := synthesize(s, computeRead(1))
	require.NotNil(t, res.barrier)
	assert.Equal(t, BarrierMemory, res.barrier.Kind)
	assert.Equal(t, 0, res.barrier.Source)
	assert.Equal(t, gpu.StageComputeShader, res.barrier.SrcStage)
	assert.Equal(t, gpu.AccessShaderWrite, res.barrier.SrcAccess)
	assert.Equal(t, gpu.AccessShaderRead, res.barrier.DstAccess)
}

func TestSynthesizeWriteAfterWrite(t *testing.T) {
	s, _ := synthesize(hazardState{}, computeWrite(0))
	_, res := synthesize(s, computeWrite(1))
	require.NotNil(t, res.barrier)
	assert.Equal(t, BarrierMemory, res.barrier.Kind)
	assert.Equal(t, gpu.AccessShaderWrite, res.barrier.SrcAccess)
	assert.Equal(t, gpu.AccessShaderWrite, res.barrier.DstAccess)
}

func TestSynthesizeWriteAfterRead(t *testing.T) {
	s, _ := synthesize(hazardState{}, computeRead(0))
	s, _ = synthesize(s, pixelRead(1))
	_, res := synthesize(s, computeWrite(2))
	require.NotNil(t, res.barrier)
	assert.Equal(t, BarrierExecution, res.barrier.Kind)
	assert.Equal(t, 1, res.barrier.Source)
	assert.Equal(t, gpu.StageComputeShader|gpu.StageFragmentShader, res.barrier.SrcStage)
	assert.Equal(t, gpu.AccessNone, res.barrier.SrcAccess)
	assert.Equal(t, gpu.AccessNone, res.barrier.DstAccess)
}

func TestSynthesizeReadAfterRead(t *testing.T) {
	s, _ := synthesize(hazardState{}, computeRead(0))
	s, res := synthesize(s, computeRead(1))
	assert.Nil(t, res.barrier)
	_, res = synthesize(s, pixelRead(2))
	assert.Nil(t, res.barrier, "nothing was written")
}

func TestSynthesizeReadAtNewStageAfterWrite(t *testing.T) {
	s, _ := synthesize(hazardState{}, computeWrite(0))
	s, res := synthesize(s, computeRead(1))
	require.NotNil(t, res.barrier)

	s, res = synthesize(s, computeRead(2))
	assert.Nil(t, res.barrier, "already visible to compute reads")

	_, res = synthesize(s, pixelRead(3))
	require.NotNil(t, res.barrier)
	assert.Equal(t, 0, res.barrier.Source)
	assert.Equal(t, gpu.StageFragmentShader, res.barrier.DstStage)
}

func TestSynthesizeLayoutTransition(t *testing.T) {
	write := hazardAccess{
		pass: 0, stage: gpu.StageColorAttachmentOutput, access: gpu.AccessColorAttachmentWrite,
		write: true, texture: true, layout: gpu.LayoutColorAttachment,
	}
	read := pixelRead(1)
	read.texture = true
	read.layout = gpu.LayoutReadOnly

	s, _ := synthesize(hazardState{}, write)
	s, res := synthesize(s, read)
	assert.Nil(t, res.barrier)
	require.NotNil(t, res.transition)
	assert.Equal(t, gpu.LayoutColorAttachment, res.transition.OldLayout)
	assert.Equal(t, gpu.LayoutReadOnly, res.transition.NewLayout)
	assert.Equal(t, gpu.StageColorAttachmentOutput, res.transition.SrcStage)
	assert.Equal(t, gpu.AccessColorAttachmentWrite, res.transition.SrcAccess)
	assert.Equal(t, gpu.StageFragmentShader, res.transition.DstStage)
	assert.Equal(t, gpu.LayoutReadOnly, s.layout)

	// the transition made the write visible to fragment reads
	read.pass = 2
	_, res = synthesize(s, read)
	assert.Nil(t, res.barrier)
	assert.Nil(t, res.transition)
}
