package headless

import (
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

type CommandKind uint8

const (
	CommandPipelineBarrier CommandKind = iota
	CommandSetViewport
	CommandSetScissor
	CommandBeginRendering
	CommandEndRendering
)

func (k CommandKind) String() string {
	switch k {
	case CommandPipelineBarrier:
		return "PipelineBarrier"
	case CommandSetViewport:
		return "SetViewport"
	case CommandSetScissor:
		return "SetScissor"
	case CommandBeginRendering:
		return "BeginRendering"
	}
	return "EndRendering"
}

type Command struct {
	Kind      CommandKind
	Memory    []gpu.MemoryBarrier
	Images    []gpu.ImageBarrier
	Viewport  gpu.Viewport
	Scissor   math.Extents2D
	Rendering gpu.RenderingInfo
}

// CommandList records commands in order. Image barriers update the layout
// of headless textures so tests can check where a texture ended up.
type CommandList struct {
	Commands []Command
	open     bool
}

func NewCommandList() *CommandList {
	return &CommandList{}
}

func (c *CommandList) PipelineBarrier(memory []gpu.MemoryBarrier, images []gpu.ImageBarrier) {
	for _, img := range images {
		if t, ok := img.Texture.(*Texture); ok {
			t.Layout = img.NewLayout
		}
	}
	c.Commands = append(c.Commands, Command{Kind: CommandPipelineBarrier, Memory: memory, Images: images})
}

func (c *CommandList) SetViewport(viewport gpu.Viewport) {
	c.Commands = append(c.Commands, Command{Kind: CommandSetViewport, Viewport: viewport})
}

func (c *CommandList) SetScissor(area math.Extents2D) {
	c.Commands = append(c.Commands, Command{Kind: CommandSetScissor, Scissor: area})
}

func (c *CommandList) BeginRendering(info gpu.RenderingInfo) error {
	if c.open {
		return ErrNestedRendering
	}
	c.open = true
	c.Commands = append(c.Commands, Command{Kind: CommandBeginRendering, Rendering: info})
	return nil
}

func (c *CommandList) EndRendering() {
	c.open = false
	c.Commands = append(c.Commands, Command{Kind: CommandEndRendering})
}

// Kinds returns the recorded command kinds, handy for asserting order.
func (c *CommandList) Kinds() []CommandKind {
	kinds := make([]CommandKind, len(c.Commands))
	for i, cmd := range c.Commands {
		kinds[i] = cmd.Kind
	}
	return kinds
}

func (c *CommandList) Reset() {
	c.Commands = nil
	c.open = false
}
