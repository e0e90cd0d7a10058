package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

type ResourceKind uint8

const (
	ResourceKindBuffer ResourceKind = iota
	ResourceKindTexture
)

func (k ResourceKind) String() string {
	if k == ResourceKindTexture {
		return "texture"
	}
	return "buffer"
}

const invalidIndex = ^uint32(0)

// Resource is a handle to one version of a logical buffer or texture.
// Every write that follows a write by an earlier pass produces a new version.
type Resource struct {
	Kind    ResourceKind
	Index   uint32
	Version uint32
}

var InvalidResource = Resource{Index: invalidIndex, Version: invalidIndex}

func (r Resource) IsValid() bool {
	return r.Index != invalidIndex
}

func (r Resource) String() string {
	if !r.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%s#%d.v%d", r.Kind, r.Index, r.Version)
}

type resourceKey struct {
	kind  ResourceKind
	index uint32
}

func (r Resource) key() resourceKey {
	return resourceKey{kind: r.Kind, index: r.Index}
}

// record is the bookkeeping shared by buffers and textures.
type record struct {
	Name     string
	External bool
	// FirstAccess and LastAccess bound the live range in pass indices, -1 when unused.
	FirstAccess int
	LastAccess  int

	// producers[v] is the pass that wrote version v, -1 when nothing has.
	producers  []int
	poolHandle PoolHandle
	bound      bool
	held       bool
}

func newRecord(name string, external bool) record {
	return record{
		Name:        name,
		External:    external,
		FirstAccess: -1,
		LastAccess:  -1,
		producers:   []int{-1},
		poolHandle:  invalidPoolHandle,
	}
}

func (r *record) latest() uint32 {
	return uint32(len(r.producers) - 1)
}

func (r *record) touch(pass int) {
	if r.FirstAccess < 0 || pass < r.FirstAccess {
		r.FirstAccess = pass
	}
	if pass > r.LastAccess {
		r.LastAccess = pass
	}
}

func (r *record) resetSpan() {
	r.FirstAccess = -1
	r.LastAccess = -1
}

// Accessed reports whether any pass touches the resource.
func (r *record) Accessed() bool {
	return r.FirstAccess >= 0
}

// Versions returns how many versions writes have produced so far.
func (r *record) Versions() int {
	return len(r.producers)
}

// Producer returns the pass that wrote the given version, -1 if none did.
func (r *record) Producer(version uint32) int {
	if int(version) >= len(r.producers) {
		return -1
	}
	return r.producers[version]
}

type GraphBuffer struct {
	record
	Description gpu.BufferDescription
	Physical    gpu.Buffer
}

type GraphTexture struct {
	record
	Description gpu.TextureDescription
	Physical    gpu.Texture
}
