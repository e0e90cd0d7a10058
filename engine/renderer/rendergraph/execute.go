package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// FrameContext is what execute callbacks record against.
type FrameContext struct {
	Commands    gpu.CommandList
	Uploader    gpu.Uploader
	FrameNumber uint64
	DeltaTime   float64
}

// Execute records every pass in declaration order: first the pass's
// synchronization, then its callback, inside a rendering scope for
// rasterization passes.
func (g *Graph) Execute(frame *FrameContext) error {
	if !g.compiled {
		return fail(ErrNotCompiled, "execute")
	}
	g.resources.frame = frame
	defer func() {
		g.resources.frame = nil
		g.resources.pass = nil
	}()

	for _, p := range g.passes {
		if err := g.recordSync(frame.Commands, p); err != nil {
			return err
		}
		g.resources.pass = p
		if !p.IsRasterizationPass {
			if err := p.executor.execute(frame, g.resources); err != nil {
				return fmt.Errorf("pass %q: %w", p.Name, err)
			}
			continue
		}
		if err := g.executeRaster(frame, p); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) executeRaster(frame *FrameContext, p *Pass) error {
	info, err := g.renderingInfo(p)
	if err != nil {
		return err
	}
	frame.Commands.SetViewport(gpu.Viewport{
		X:        float32(info.Area.X),
		Y:        float32(info.Area.Y),
		Width:    float32(info.Area.Width),
		Height:   float32(info.Area.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	frame.Commands.SetScissor(info.Area)
	if err := frame.Commands.BeginRendering(info); err != nil {
		return fail(err, "pass %q: begin rendering", p.Name)
	}
	err = p.executor.execute(frame, g.resources)
	frame.Commands.EndRendering()
	if err != nil {
		return fmt.Errorf("pass %q: %w", p.Name, err)
	}
	return nil
}

// renderingInfo builds the attachments of a rasterization pass. The render
// area is the size of the first color target, or of the depth target when
// there is none.
func (g *Graph) renderingInfo(p *Pass) (gpu.RenderingInfo, error) {
	info := gpu.RenderingInfo{Name: p.Name}
	for _, rt := range p.RenderTargets {
		tex, err := g.boundTexture(rt.Resource)
		if err != nil {
			return info, fail(err, "pass %q: render target", p.Name)
		}
		if len(info.Colors) == 0 {
			info.Area = areaOf(tex)
		}
		info.Colors = append(info.Colors, gpu.ColorAttachment{
			Texture: tex,
			Layout:  g.passLayout(p, rt.Resource),
			Load:    rt.Load,
			Store:   rt.Store,
			Clear:   rt.Clear,
		})
	}
	if dt := p.DepthTarget; dt != nil {
		tex, err := g.boundTexture(dt.Resource)
		if err != nil {
			return info, fail(err, "pass %q: depth target", p.Name)
		}
		if len(info.Colors) == 0 {
			info.Area = areaOf(tex)
		}
		info.Depth = &gpu.DepthAttachment{
			Texture:      tex,
			Layout:       g.passLayout(p, dt.Resource),
			Load:         dt.Load,
			Store:        dt.Store,
			StencilLoad:  dt.StencilLoad,
			StencilStore: dt.StencilStore,
			ClearDepth:   dt.Clear.Depth,
			ClearStencil: dt.Clear.Stencil,
		}
	}
	return info, nil
}

func areaOf(tex gpu.Texture) math.Extents2D {
	d := tex.Description()
	return math.Extents2D{Width: d.Width, Height: d.Height}
}

func (g *Graph) passLayout(p *Pass, h Resource) gpu.ImageLayout {
	if a, ok := p.Access(h); ok {
		return a.Layout
	}
	return gpu.LayoutGeneral
}

func (g *Graph) boundTexture(h Resource) (gpu.Texture, error) {
	t, err := g.Texture(h)
	if err != nil {
		return nil, err
	}
	if t.Physical == nil {
		return nil, ErrUnbound
	}
	return t.Physical, nil
}

func (g *Graph) boundBuffer(h Resource) (gpu.Buffer, error) {
	b, err := g.Buffer(h)
	if err != nil {
		return nil, err
	}
	if b.Physical == nil {
		return nil, ErrUnbound
	}
	return b.Physical, nil
}

// recordSync turns the acquires, barriers and layout transitions of a pass
// into one pipeline barrier command.
func (g *Graph) recordSync(cmd gpu.CommandList, p *Pass) error {
	var memory []gpu.MemoryBarrier
	var images []gpu.ImageBarrier

	for _, a := range p.Acquires {
		if a.Resource.Kind == ResourceKindBuffer {
			memory = append(memory, gpu.MemoryBarrier{
				SrcStage: a.SrcStage, DstStage: a.DstStage,
				SrcAccess: a.SrcAccess, DstAccess: a.DstAccess,
			})
			continue
		}
		tex, err := g.boundTexture(a.Resource)
		if err != nil {
			return fail(err, "pass %q: acquire", p.Name)
		}
		images = append(images, gpu.ImageBarrier{
			Texture:  tex,
			SrcStage: a.SrcStage, DstStage: a.DstStage,
			SrcAccess: a.SrcAccess, DstAccess: a.DstAccess,
			OldLayout: gpu.LayoutUndefined, NewLayout: a.Layout,
		})
	}

	for _, b := range p.Barriers {
		if b.Resource.Kind == ResourceKindBuffer {
			memory = append(memory, gpu.MemoryBarrier{
				SrcStage: b.SrcStage, DstStage: b.DstStage,
				SrcAccess: b.SrcAccess, DstAccess: b.DstAccess,
			})
			continue
		}
		tex, err := g.boundTexture(b.Resource)
		if err != nil {
			return fail(err, "pass %q: barrier", p.Name)
		}
		images = append(images, gpu.ImageBarrier{
			Texture:  tex,
			SrcStage: b.SrcStage, DstStage: b.DstStage,
			SrcAccess: b.SrcAccess, DstAccess: b.DstAccess,
			OldLayout: b.Layout, NewLayout: b.Layout,
		})
	}

	for _, t := range p.LayoutTransitions {
		tex, err := g.boundTexture(t.Resource)
		if err != nil {
			return fail(err, "pass %q: layout transition", p.Name)
		}
		images = append(images, gpu.ImageBarrier{
			Texture:  tex,
			SrcStage: t.SrcStage, DstStage: t.DstStage,
			SrcAccess: t.SrcAccess, DstAccess: t.DstAccess,
			OldLayout: t.OldLayout, NewLayout: t.NewLayout,
		})
	}

	if len(memory) > 0 || len(images) > 0 {
		cmd.PipelineBarrier(memory, images)
	}
	return nil
}
