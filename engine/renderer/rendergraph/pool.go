package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// PoolHandle addresses a pooled object. The generation changes every time
// the object is released or its slot is recycled, so stale handles are caught.
type PoolHandle struct {
	index      uint32
	generation uint32
}

var invalidPoolHandle = PoolHandle{index: invalidIndex}

func (h PoolHandle) IsValid() bool {
	return h.index != invalidIndex
}

// syncState is the last GPU use of a pooled object.
type syncState struct {
	stage  gpu.PipelineStage
	access gpu.Access
	layout gpu.ImageLayout
}

type aliasable[D any] interface {
	CanAlias(other D) bool
}

type poolEntry[D aliasable[D], R any] struct {
	desc       D
	resource   R
	alive      bool
	inUse      bool
	generation uint32
	idleFrames int
	last       syncState

	// fresh entries were created this frame and never released.
	fresh     bool
	journaled bool
}

// journalEntry is the state an entry had before its first take of the frame.
type journalEntry struct {
	index int
	last  syncState
	fresh bool
}

type arena[D aliasable[D], R any] struct {
	entries []poolEntry[D, R]
	journal []journalEntry
}

func (a *arena[D, R]) find(desc D) int {
	for i := range a.entries {
		e := &a.entries[i]
		if e.alive && !e.inUse && e.desc.CanAlias(desc) {
			return i
		}
	}
	return -1
}

func (a *arena[D, R]) insert(desc D, res R) int {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.alive {
			*e = poolEntry[D, R]{desc: desc, resource: res, alive: true, fresh: true, generation: e.generation + 1}
			return i
		}
	}
	a.entries = append(a.entries, poolEntry[D, R]{desc: desc, resource: res, alive: true, fresh: true})
	return len(a.entries) - 1
}

func (a *arena[D, R]) take(i int) PoolHandle {
	e := &a.entries[i]
	if !e.journaled {
		a.journal = append(a.journal, journalEntry{index: i, last: e.last, fresh: e.fresh})
		e.journaled = true
	}
	e.inUse = true
	e.idleFrames = 0
	return PoolHandle{index: uint32(i), generation: e.generation}
}

func (a *arena[D, R]) get(h PoolHandle) (*poolEntry[D, R], error) {
	if !h.IsValid() || int(h.index) >= len(a.entries) {
		return nil, ErrStalePoolHandle
	}
	e := &a.entries[h.index]
	if !e.alive || !e.inUse || e.generation != h.generation {
		return nil, ErrStalePoolHandle
	}
	return e, nil
}

func (a *arena[D, R]) release(h PoolHandle, last syncState) error {
	e, err := a.get(h)
	if err != nil {
		return err
	}
	e.inUse = false
	e.generation++
	e.last = last
	e.fresh = false
	return nil
}

// rewind puts the free entries taken since the last mark back into the
// state they had before their first take.
func (a *arena[D, R]) rewind() {
	for i := len(a.journal) - 1; i >= 0; i-- {
		j := a.journal[i]
		e := &a.entries[j.index]
		if e.alive && !e.inUse {
			e.last, e.fresh = j.last, j.fresh
		}
	}
}

func (a *arena[D, R]) mark() {
	for _, j := range a.journal {
		if j.index < len(a.entries) {
			a.entries[j.index].journaled = false
		}
	}
	a.journal = a.journal[:0]
}

// age bumps the idle counter of free entries and evicts the ones idle for
// more than maxIdle frames. maxIdle <= 0 keeps everything.
func (a *arena[D, R]) age(maxIdle int, destroy func(R)) int {
	a.mark()
	evicted := 0
	for i := range a.entries {
		e := &a.entries[i]
		if !e.alive || e.inUse {
			continue
		}
		e.idleFrames++
		if maxIdle > 0 && e.idleFrames > maxIdle {
			destroy(e.resource)
			var zero R
			e.resource = zero
			e.alive = false
			e.generation++
			evicted++
		}
	}
	return evicted
}

func (a *arena[D, R]) live() int {
	n := 0
	for i := range a.entries {
		if a.entries[i].alive {
			n++
		}
	}
	return n
}

func (a *arena[D, R]) drain(destroy func(R)) {
	for i := range a.entries {
		e := &a.entries[i]
		if e.alive {
			destroy(e.resource)
		}
	}
	a.entries = nil
	a.journal = nil
}

type PoolStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Buffers   int
	Textures  int
}

// Pool recycles physical buffers and textures across logical resources
// whose live ranges do not overlap, within a frame and across frames.
type Pool struct {
	device        gpu.Device
	maxIdleFrames int
	buffers       arena[gpu.BufferDescription, gpu.Buffer]
	textures      arena[gpu.TextureDescription, gpu.Texture]
	stats         PoolStats
}

func NewPool(device gpu.Device, maxIdleFrames int) *Pool {
	return &Pool{
		device:        device,
		maxIdleFrames: maxIdleFrames,
	}
}

func (p *Pool) SetMaxIdleFrames(frames int) {
	p.maxIdleFrames = frames
}

// GetBuffer returns a free buffer that can alias desc, creating one if needed.
func (p *Pool) GetBuffer(name string, desc gpu.BufferDescription) (PoolHandle, gpu.Buffer) {
	h, buf, _, _ := p.acquireBuffer(name, desc)
	return h, buf
}

// GetTexture returns a free texture that can alias desc, creating one if needed.
func (p *Pool) GetTexture(name string, desc gpu.TextureDescription) (PoolHandle, gpu.Texture) {
	h, tex, _, _ := p.acquireTexture(name, desc)
	return h, tex
}

func (p *Pool) ReleaseBuffer(h PoolHandle) error {
	return p.releaseBuffer(h, syncState{})
}

func (p *Pool) ReleaseTexture(h PoolHandle) error {
	return p.releaseTexture(h, syncState{})
}

func (p *Pool) acquireBuffer(name string, desc gpu.BufferDescription) (PoolHandle, gpu.Buffer, syncState, bool) {
	if i := p.buffers.find(desc); i >= 0 {
		p.stats.Hits++
		h := p.buffers.take(i)
		e := &p.buffers.entries[i]
		return h, e.resource, e.last, !e.fresh
	}
	p.stats.Misses++
	buf, err := p.device.CreateBuffer(name, desc)
	if err != nil {
		err = fmt.Errorf("failed to allocate buffer %q (%d bytes): %w", name, desc.Size, err)
		core.LogError(err.Error())
		panic(err)
	}
	i := p.buffers.insert(desc, buf)
	return p.buffers.take(i), buf, syncState{}, false
}

func (p *Pool) acquireTexture(name string, desc gpu.TextureDescription) (PoolHandle, gpu.Texture, syncState, bool) {
	if i := p.textures.find(desc); i >= 0 {
		p.stats.Hits++
		h := p.textures.take(i)
		e := &p.textures.entries[i]
		return h, e.resource, e.last, !e.fresh
	}
	p.stats.Misses++
	tex, err := p.device.CreateTexture(name, desc)
	if err != nil {
		err = fmt.Errorf("failed to allocate texture %q (%dx%d): %w", name, desc.Width, desc.Height, err)
		core.LogError(err.Error())
		panic(err)
	}
	i := p.textures.insert(desc, tex)
	return p.textures.take(i), tex, syncState{}, false
}

func (p *Pool) releaseBuffer(h PoolHandle, last syncState) error {
	if err := p.buffers.release(h, last); err != nil {
		return fmt.Errorf("release buffer %d: %w", h.index, err)
	}
	return nil
}

func (p *Pool) releaseTexture(h PoolHandle, last syncState) error {
	if err := p.textures.release(h, last); err != nil {
		return fmt.Errorf("release texture %d: %w", h.index, err)
	}
	return nil
}

// rewind makes the objects handed out since the last NextFrame look the way
// they did before the frame took them, so recompiling a graph repeats the
// same acquire decisions.
func (p *Pool) rewind() {
	p.buffers.rewind()
	p.textures.rewind()
}

// NextFrame ages free entries and schedules the destruction of the ones
// that stayed unused for longer than the configured number of frames.
func (p *Pool) NextFrame() {
	queue := p.device.DeletionQueue()
	evicted := p.buffers.age(p.maxIdleFrames, func(b gpu.Buffer) {
		queue.Push(func() { p.device.DestroyBuffer(b) })
	})
	evicted += p.textures.age(p.maxIdleFrames, func(t gpu.Texture) {
		queue.Push(func() { p.device.DestroyTexture(t) })
	})
	if evicted > 0 {
		core.LogDebug("resource pool evicted %d idle resources", evicted)
	}
	p.stats.Evictions += uint64(evicted)
}

func (p *Pool) Stats() PoolStats {
	s := p.stats
	s.Buffers = p.buffers.live()
	s.Textures = p.textures.live()
	return s
}

// Destroy releases every pooled object through the deletion queue.
func (p *Pool) Destroy() {
	queue := p.device.DeletionQueue()
	p.buffers.drain(func(b gpu.Buffer) {
		queue.Push(func() { p.device.DestroyBuffer(b) })
	})
	p.textures.drain(func(t gpu.Texture) {
		queue.Push(func() { p.device.DestroyTexture(t) })
	})
}
