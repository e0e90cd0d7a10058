package gpu

type BufferDescription struct {
	Size  uint64
	Usage BufferUsage
}

// CanAlias reports whether a buffer created for d can back a request for other.
func (d BufferDescription) CanAlias(other BufferDescription) bool {
	return d.Size == other.Size && d.Usage == other.Usage
}

type TextureDescription struct {
	Width     uint32
	Height    uint32
	Layers    uint32
	MipLevels uint32
	// Views is the number of per-layer/per-mip views the texture exposes.
	Views     uint32
	Format    Format
	Kind      TextureKind
	Usage     TextureUsage
	MipFilter MipFilter
}

// CanAlias reports whether a texture created for d can back a request for other.
func (d TextureDescription) CanAlias(other TextureDescription) bool {
	return d.Width == other.Width &&
		d.Height == other.Height &&
		d.Layers == other.Layers &&
		d.MipLevels == other.MipLevels &&
		d.Views == other.Views &&
		d.Format == other.Format &&
		d.Kind == other.Kind &&
		d.Usage == other.Usage &&
		d.MipFilter == other.MipFilter
}

// Normalized fills the zero counts with their single-element defaults.
func (d TextureDescription) Normalized() TextureDescription {
	if d.Layers == 0 {
		d.Layers = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.Views == 0 {
		d.Views = 1
	}
	return d
}
