package engine

import (
	"github.com/spaghettifunk/anima-framegraph/engine/config"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// Application is the static part of a game: its configuration and the GPU
// objects the engine hands it during Initialize.
type Application struct {
	Config *config.Config
	// Backend renders the frames. The engine falls back to a headless
	// device when it is nil and owns the backend from Initialize on.
	Backend gpu.Backend
	// Device creates objects that live outside the frame graph, like the
	// back buffer. Set before FnInitialize runs.
	Device gpu.Device
	// Uploader fills those objects outside any frame.
	Uploader gpu.Uploader
}
