package gpu

import "github.com/spaghettifunk/anima-framegraph/engine/math"

type Buffer interface {
	Description() BufferDescription
}

type Texture interface {
	Description() TextureDescription
}

// Device creates and destroys GPU objects.
type Device interface {
	CreateBuffer(name string, desc BufferDescription) (Buffer, error)
	CreateTexture(name string, desc TextureDescription) (Texture, error)
	DestroyBuffer(buf Buffer)
	DestroyTexture(tex Texture)
	// DeletionQueue defers destruction until the GPU no longer uses an object.
	DeletionQueue() *DeletionQueue
	ResetTransientDescriptorPools() error
}

// CommandList records commands for one frame.
type CommandList interface {
	PipelineBarrier(memory []MemoryBarrier, images []ImageBarrier)
	SetViewport(viewport Viewport)
	SetScissor(area math.Extents2D)
	BeginRendering(info RenderingInfo) error
	EndRendering()
}

// Uploader copies CPU data into GPU resources.
type Uploader interface {
	UploadBuffer(dst Buffer, offset uint64, data []byte) error
	// UploadTexture writes the first mip of every layer and leaves the
	// texture in layout.
	UploadTexture(dst Texture, data []byte, layout ImageLayout) error
}

// Backend is a device the engine can render frames with.
type Backend interface {
	Device
	Uploader
	// BeginFrame returns an empty command list for the next frame.
	BeginFrame() (CommandList, error)
	// SubmitFrame submits what was recorded into list since BeginFrame.
	SubmitFrame(list CommandList) error
	// Destroy waits for the GPU, runs every pending deletion and releases
	// the backend.
	Destroy()
}
