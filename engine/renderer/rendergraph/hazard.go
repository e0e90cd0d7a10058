package rendergraph

import "github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"

// hazardAccess is one pass's use of a resource as the hazard tracker sees it.
type hazardAccess struct {
	pass    int
	stage   gpu.PipelineStage
	access  gpu.Access
	write   bool
	texture bool
	layout  gpu.ImageLayout
}

// hazardState is what the tracker remembers about a resource between passes.
// Reads are accumulated until the next write resets them.
type hazardState struct {
	seeded bool
	layout gpu.ImageLayout

	writePass   int
	writeStage  gpu.PipelineStage
	writeAccess gpu.Access

	readPass   int
	readStage  gpu.PipelineStage
	readAccess gpu.Access

	// stages and accesses the last write was made visible to
	visibleStage  gpu.PipelineStage
	visibleAccess gpu.Access
}

type hazardResult struct {
	barrier    *Barrier
	transition *LayoutTransition
}

func (s hazardState) lastWasRead() bool {
	return s.readStage != gpu.StageNone
}

func (s hazardState) written(a hazardAccess) hazardState {
	s.writePass = a.pass
	s.writeStage = a.stage
	s.writeAccess = a.access
	s.readPass = -1
	s.readStage = gpu.StageNone
	s.readAccess = gpu.AccessNone
	s.visibleStage = gpu.StageNone
	s.visibleAccess = gpu.AccessNone
	return s
}

func seed(a hazardAccess) hazardState {
	s := hazardState{seeded: true, layout: a.layout, writePass: -1, readPass: -1}
	if a.write {
		return s.written(a)
	}
	s.readPass = a.pass
	s.readStage = a.stage
	s.readAccess = a.access
	return s
}

// synthesize returns the state after access a and the synchronization a
// needs against everything before it. The first access of a frame needs
// nothing: the resource has just been bound.
func synthesize(s hazardState, a hazardAccess) (hazardState, hazardResult) {
	var res hazardResult
	if !s.seeded {
		return seed(a), res
	}

	if a.texture && a.layout != s.layout {
		t := &LayoutTransition{
			SrcAccess: s.writeAccess & gpu.AccessWriteMask,
			DstStage:  a.stage,
			DstAccess: a.access,
			OldLayout: s.layout,
			NewLayout: a.layout,
		}
		if s.lastWasRead() {
			t.Source = s.readPass
			t.SrcStage = s.readStage | s.writeStage
		} else {
			t.Source = s.writePass
			t.SrcStage = s.writeStage
		}
		res.transition = t
		s.layout = a.layout
		if a.write {
			return s.written(a), res
		}
		s.readPass = a.pass
		s.readStage = a.stage
		s.readAccess = a.access
		s.visibleStage = a.stage
		s.visibleAccess = a.access
		return s, res
	}

	if a.write {
		b := &Barrier{DstStage: a.stage, Layout: s.layout}
		if s.lastWasRead() {
			// write after read: ordering only
			b.Kind = BarrierExecution
			b.Source = s.readPass
			b.SrcStage = s.readStage
		} else {
			b.Kind = BarrierMemory
			b.Source = s.writePass
			b.SrcStage = s.writeStage
			b.SrcAccess = s.writeAccess & gpu.AccessWriteMask
			b.DstAccess = a.access
		}
		res.barrier = b
		return s.written(a), res
	}

	if s.writeStage != gpu.StageNone {
		unseen := !s.lastWasRead() ||
			a.stage&^s.visibleStage != 0 ||
			a.access&^s.visibleAccess != 0
		if unseen {
			res.barrier = &Barrier{
				Kind:      BarrierMemory,
				Source:    s.writePass,
				SrcStage:  s.writeStage,
				SrcAccess: s.writeAccess & gpu.AccessWriteMask,
				DstStage:  a.stage,
				DstAccess: a.access,
				Layout:    s.layout,
			}
			s.visibleStage |= a.stage
			s.visibleAccess |= a.access
		}
	}
	s.readPass = a.pass
	s.readStage |= a.stage
	s.readAccess |= a.access
	return s, res
}
