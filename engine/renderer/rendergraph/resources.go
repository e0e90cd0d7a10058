package rendergraph

import (
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// Resources resolves handles to physical resources inside execute callbacks.
type Resources struct {
	graph *Graph
	frame *FrameContext
	pass  *Pass
}

func (r *Resources) GetBuffer(h Resource) (gpu.Buffer, error) {
	buf, err := r.graph.boundBuffer(h)
	if err != nil {
		return nil, fail(err, "get buffer %s", h)
	}
	return buf, nil
}

func (r *Resources) GetTexture(h Resource) (gpu.Texture, error) {
	tex, err := r.graph.boundTexture(h)
	if err != nil {
		return nil, fail(err, "get texture %s", h)
	}
	return tex, nil
}

// UploadBuffer copies data into the buffer at offset before returning it.
func (r *Resources) UploadBuffer(h Resource, data []byte, offset uint64) (gpu.Buffer, error) {
	buf, err := r.GetBuffer(h)
	if err != nil {
		return nil, err
	}
	if r.frame == nil || r.frame.Uploader == nil {
		return nil, fail(ErrNoUploader, "upload buffer %s", h)
	}
	if err := r.frame.Uploader.UploadBuffer(buf, offset, data); err != nil {
		return nil, fail(err, "upload buffer %q", r.graph.Name(h))
	}
	return buf, nil
}

// UploadTexture copies data into the texture before returning it. The
// texture is left in the layout the current pass expects.
func (r *Resources) UploadTexture(h Resource, data []byte) (gpu.Texture, error) {
	tex, err := r.GetTexture(h)
	if err != nil {
		return nil, err
	}
	if r.frame == nil || r.frame.Uploader == nil {
		return nil, fail(ErrNoUploader, "upload texture %s", h)
	}
	layout := gpu.LayoutReadOnly
	if r.pass != nil {
		layout = r.graph.passLayout(r.pass, h)
	}
	if err := r.frame.Uploader.UploadTexture(tex, data, layout); err != nil {
		return nil, fail(err, "upload texture %q", r.graph.Name(h))
	}
	return tex, nil
}
