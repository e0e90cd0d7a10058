package headless

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

var (
	ErrAllocationFailed = errors.New("allocation failed")
	ErrDestroyed        = errors.New("resource destroyed")
	ErrOutOfRange       = errors.New("upload out of range")
	ErrNestedRendering  = errors.New("rendering scope already open")
)

type Buffer struct {
	ID        uint64
	Name      string
	Desc      gpu.BufferDescription
	Data      []byte
	Destroyed bool
}

func (b *Buffer) Description() gpu.BufferDescription {
	return b.Desc
}

type Texture struct {
	ID        uint64
	Name      string
	Desc      gpu.TextureDescription
	Data      []byte
	Layout    gpu.ImageLayout
	Destroyed bool
}

func (t *Texture) Description() gpu.TextureDescription {
	return t.Desc
}

// Device keeps every object in memory. It implements gpu.Device and
// gpu.Uploader so graphs can be compiled and executed without a GPU.
type Device struct {
	queue  *gpu.DeletionQueue
	nextID uint64

	Buffers  []*Buffer
	Textures []*Texture

	DescriptorPoolResets int
	// FailAllocations makes every Create call fail.
	FailAllocations bool

	// Submitted counts frames passed to SubmitFrame; LastFrame is the newest.
	Submitted int
	LastFrame *CommandList
	Destroyed bool
}

var _ gpu.Backend = (*Device)(nil)

func NewDevice(framesInFlight int) *Device {
	return &Device{queue: gpu.NewDeletionQueue(framesInFlight)}
}

func (d *Device) CreateBuffer(name string, desc gpu.BufferDescription) (gpu.Buffer, error) {
	if d.FailAllocations {
		return nil, fmt.Errorf("buffer %q: %w", name, ErrAllocationFailed)
	}
	d.nextID++
	b := &Buffer{ID: d.nextID, Name: name, Desc: desc, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	core.LogDebug("headless: created buffer %q (%d bytes, %s)", name, desc.Size, desc.Usage)
	return b, nil
}

func (d *Device) CreateTexture(name string, desc gpu.TextureDescription) (gpu.Texture, error) {
	if d.FailAllocations {
		return nil, fmt.Errorf("texture %q: %w", name, ErrAllocationFailed)
	}
	d.nextID++
	t := &Texture{ID: d.nextID, Name: name, Desc: desc, Layout: gpu.LayoutUndefined}
	d.Textures = append(d.Textures, t)
	core.LogDebug("headless: created texture %q (%dx%d, %s)", name, desc.Width, desc.Height, desc.Usage)
	return t, nil
}

func (d *Device) DestroyBuffer(buf gpu.Buffer) {
	if b, ok := buf.(*Buffer); ok {
		b.Destroyed = true
		b.Data = nil
	}
}

func (d *Device) DestroyTexture(tex gpu.Texture) {
	if t, ok := tex.(*Texture); ok {
		t.Destroyed = true
		t.Data = nil
	}
}

func (d *Device) DeletionQueue() *gpu.DeletionQueue {
	return d.queue
}

func (d *Device) ResetTransientDescriptorPools() error {
	d.DescriptorPoolResets++
	return nil
}

// Live counts the objects created and not destroyed yet.
func (d *Device) Live() (buffers, textures int) {
	for _, b := range d.Buffers {
		if !b.Destroyed {
			buffers++
		}
	}
	for _, t := range d.Textures {
		if !t.Destroyed {
			textures++
		}
	}
	return buffers, textures
}

func (d *Device) UploadBuffer(dst gpu.Buffer, offset uint64, data []byte) error {
	b, ok := dst.(*Buffer)
	if !ok {
		return fmt.Errorf("headless: foreign buffer %T", dst)
	}
	if b.Destroyed {
		return fmt.Errorf("buffer %q: %w", b.Name, ErrDestroyed)
	}
	if offset+uint64(len(data)) > b.Desc.Size {
		return fmt.Errorf("buffer %q: %d bytes at %d exceed %d: %w", b.Name, len(data), offset, b.Desc.Size, ErrOutOfRange)
	}
	copy(b.Data[offset:], data)
	return nil
}

func (d *Device) UploadTexture(dst gpu.Texture, data []byte, layout gpu.ImageLayout) error {
	t, ok := dst.(*Texture)
	if !ok {
		return fmt.Errorf("headless: foreign texture %T", dst)
	}
	if t.Destroyed {
		return fmt.Errorf("texture %q: %w", t.Name, ErrDestroyed)
	}
	size := uint64(t.Desc.Width) * uint64(t.Desc.Height) * uint64(t.Desc.Layers) * uint64(t.Desc.Format.BytesPerPixel())
	if uint64(len(data)) > size {
		return fmt.Errorf("texture %q: %d bytes exceed %d: %w", t.Name, len(data), size, ErrOutOfRange)
	}
	t.Data = append(t.Data[:0], data...)
	t.Layout = layout
	return nil
}

func (d *Device) BeginFrame() (gpu.CommandList, error) {
	if d.Destroyed {
		return nil, ErrDestroyed
	}
	return NewCommandList(), nil
}

func (d *Device) SubmitFrame(list gpu.CommandList) error {
	cl, ok := list.(*CommandList)
	if !ok {
		return fmt.Errorf("submit foreign command list %T", list)
	}
	if cl.open {
		return fmt.Errorf("submit: %w", ErrNestedRendering)
	}
	d.LastFrame = cl
	d.Submitted++
	return nil
}

// Destroy runs every pending deletion.
func (d *Device) Destroy() {
	d.queue.FlushAll()
	d.Destroyed = true
}
