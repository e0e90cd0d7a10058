package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessIsWrite(t *testing.T) {
	assert.False(t, AccessNone.IsWrite())
	assert.False(t, (AccessShaderRead | AccessUniformRead).IsWrite())
	assert.True(t, AccessShaderWrite.IsWrite())
	assert.True(t, (AccessColorAttachmentRead | AccessColorAttachmentWrite).IsWrite())
	assert.True(t, AccessTransferWrite.IsWrite())
}

func TestMaskStrings(t *testing.T) {
	assert.Equal(t, "None", StageNone.String())
	assert.Equal(t, "VertexShader|ComputeShader", (StageVertexShader | StageComputeShader).String())
	assert.Equal(t, "ShaderRead|ShaderWrite", (AccessShaderRead | AccessShaderWrite).String())
	assert.Equal(t, "Storage|DeviceAddress", (BufferUsageStorage | BufferUsageDeviceAddress).String())
	assert.Equal(t, "Sampled|Color", (TextureUsageSampled | TextureUsageColor).String())
	assert.Equal(t, "ColorAttachment", LayoutColorAttachment.String())
	assert.Equal(t, "Unknown", ImageLayout(200).String())
	assert.Equal(t, "Clear", LoadOpClear.String())
	assert.Equal(t, "Store", StoreOpStore.String())
}

func TestFormatTraits(t *testing.T) {
	assert.True(t, FormatD32Float.HasDepth())
	assert.False(t, FormatD32Float.HasStencil())
	assert.True(t, FormatD24UnormS8Uint.HasStencil())
	assert.False(t, FormatRGBA8Unorm.HasDepth())
	assert.Equal(t, uint32(4), FormatRGBA8Unorm.BytesPerPixel())
	assert.Equal(t, uint32(16), FormatRGBA32Float.BytesPerPixel())
	assert.Equal(t, uint32(0), FormatUndefined.BytesPerPixel())
}

func TestBufferCanAlias(t *testing.T) {
	a := BufferDescription{Size: 1024, Usage: BufferUsageStorage}
	assert.True(t, a.CanAlias(a))
	assert.False(t, a.CanAlias(BufferDescription{Size: 2048, Usage: BufferUsageStorage}))
	assert.False(t, a.CanAlias(BufferDescription{Size: 1024, Usage: BufferUsageUniform}))
}

func TestTextureCanAlias(t *testing.T) {
	base := TextureDescription{
		Width: 512, Height: 512, Layers: 1, MipLevels: 1, Views: 1,
		Format: FormatRGBA16Float, Usage: TextureUsageColor | TextureUsageSampled,
	}
	assert.True(t, base.CanAlias(base))

	for name, mutate := range map[string]func(*TextureDescription){
		"width":     func(d *TextureDescription) { d.Width = 256 },
		"height":    func(d *TextureDescription) { d.Height = 256 },
		"layers":    func(d *TextureDescription) { d.Layers = 6 },
		"mips":      func(d *TextureDescription) { d.MipLevels = 4 },
		"views":     func(d *TextureDescription) { d.Views = 2 },
		"format":    func(d *TextureDescription) { d.Format = FormatRGBA8Unorm },
		"kind":      func(d *TextureDescription) { d.Kind = TextureKindCube },
		"usage":     func(d *TextureDescription) { d.Usage |= TextureUsageStorage },
		"mipfilter": func(d *TextureDescription) { d.MipFilter = MipFilterLinear },
	} {
		other := base
		mutate(&other)
		assert.False(t, base.CanAlias(other), name)
	}
}

func TestTextureNormalized(t *testing.T) {
	d := TextureDescription{Width: 4, Height: 4}.Normalized()
	assert.Equal(t, uint32(1), d.Layers)
	assert.Equal(t, uint32(1), d.MipLevels)
	assert.Equal(t, uint32(1), d.Views)
}

func TestDeletionQueueDefersByFramesInFlight(t *testing.T) {
	q := NewDeletionQueue(2)
	var ran []int

	q.Push(func() { ran = append(ran, 0) })
	q.Flush() // frame 0 closed
	assert.Empty(t, ran)
	assert.Equal(t, 1, q.Pending())

	q.Push(func() { ran = append(ran, 1) })
	q.Flush() // frame 1 closed
	assert.Empty(t, ran)

	q.Flush() // frame 2 closed, frame 0 retires
	assert.Equal(t, []int{0}, ran)

	q.Flush()
	assert.Equal(t, []int{0, 1}, ran)
	assert.Equal(t, 0, q.Pending())
}

func TestDeletionQueueImmediateAndFlushAll(t *testing.T) {
	q := NewDeletionQueue(0)
	count := 0
	q.Push(func() { count++ })
	q.Flush()
	assert.Equal(t, 1, count)

	q = NewDeletionQueue(3)
	q.Push(func() { count++ })
	q.Flush()
	q.Push(func() { count++ })
	assert.Equal(t, 2, q.Pending())
	q.FlushAll()
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, q.Pending())
}
