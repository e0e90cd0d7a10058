package engine

import "github.com/spaghettifunk/anima-framegraph/engine/renderer/rendergraph"

type Game struct {
	Application
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render declares the passes of one frame on graph. The engine compiles and
// executes them afterwards.
type Render func(graph *rendergraph.Graph, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
