package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-framegraph/engine/config"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/rendergraph"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool

	configPath string
	watcher    *config.Watcher
	reloads    chan *config.Config

	backend gpu.Backend
	pool    *rendergraph.Pool
	graph   *rendergraph.Graph

	clock       *core.Clock
	metrics     *core.Metrics
	lastTime    float64
	frameNumber uint64
	dumpPending bool
}

// New prepares an engine for g. configPath is watched for changes when it
// exists; an empty path uses g.Config or the defaults.
func New(g *Game, configPath string) (*Engine, error) {
	if g.Config == nil {
		cfg := config.Default()
		if configPath != "" {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				core.LogError(err.Error())
				return nil, err
			}
		}
		g.Config = cfg
	} else if err := g.Config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		configPath:   configPath,
		reloads:      make(chan *config.Config, 1),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.Config
	cfg.Apply()

	if e.configPath != "" {
		if _, err := os.Stat(e.configPath); err == nil {
			w, err := config.Watch(e.configPath, e.onConfigChange)
			if err != nil {
				return err
			}
			e.watcher = w
		}
	}

	e.backend = e.gameInstance.Backend
	if e.backend == nil {
		e.backend = headless.NewDevice(cfg.Graph.FramesInFlight)
		e.gameInstance.Backend = e.backend
	}
	e.pool = rendergraph.NewPool(e.backend, cfg.Graph.PoolMaxIdleFrames)
	e.graph = rendergraph.NewGraph(e.backend, e.pool)
	e.dumpPending = cfg.Graph.DumpMermaid

	e.gameInstance.Device = e.backend
	e.gameInstance.Uploader = e.backend

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized (%dx%d, %d frames in flight)", cfg.Window.Width, cfg.Window.Height, cfg.Graph.FramesInFlight)
	return nil
}

// onConfigChange runs on the watcher goroutine; the frame loop applies the
// newest configuration at the start of its next frame.
func (e *Engine) onConfigChange(cfg *config.Config) {
	select {
	case <-e.reloads:
	default:
	}
	e.reloads <- cfg
}

func (e *Engine) applyReload() {
	select {
	case cfg := <-e.reloads:
		old := e.gameInstance.Config
		if cfg.Graph.FramesInFlight != old.Graph.FramesInFlight {
			core.LogWarn("frames_in_flight changes need a restart, keeping %d", old.Graph.FramesInFlight)
			cfg.Graph.FramesInFlight = old.Graph.FramesInFlight
		}
		if cfg.Window != old.Window {
			if err := e.gameInstance.FnOnResize(cfg.Window.Width, cfg.Window.Height); err != nil {
				core.LogError("resize failed: %s", err.Error())
				cfg.Window = old.Window
			}
		}
		e.pool.SetMaxIdleFrames(cfg.Graph.PoolMaxIdleFrames)
		e.dumpPending = cfg.Graph.DumpMermaid
		e.gameInstance.Config = cfg
	default:
	}
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized")
	}
	e.currentStage = EngineStageRunning
	defer e.teardown()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.ElapsedSeconds()

	for e.isRunning.Load() {
		e.applyReload()
		cfg := e.gameInstance.Config

		e.clock.Update()
		currentTime := e.clock.ElapsedSeconds()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err.Error())
			return err
		}
		if err := e.Frame(delta); err != nil {
			core.LogError("frame %d failed, shutting down: %s", e.frameNumber, err.Error())
			return err
		}

		if cfg.Engine.MetricsEvery > 0 && e.frameNumber%cfg.Engine.MetricsEvery == 0 {
			core.LogInfo("fps %.1f, frame %.3fms, compile %.3fms, barriers %d, transitions %d",
				e.metrics.FPS(), e.metrics.FrameTime(), e.metrics.CompileTime(),
				e.metrics.TotalBarriers, e.metrics.TotalTransitions)
		}
		if cfg.Engine.Frames > 0 && e.frameNumber >= cfg.Engine.Frames {
			e.isRunning.Store(false)
		}

		// give the remaining frame time back to the OS
		if cfg.Engine.TargetFPS > 0 {
			target := time.Duration(float64(time.Second) / cfg.Engine.TargetFPS)
			if remaining := target - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
		e.lastTime = currentTime
	}
	return nil
}

// Frame builds, compiles and records one frame, then clears the graph for
// the next one.
func (e *Engine) Frame(delta float64) error {
	frameStart := time.Now()
	defer e.graph.Clear()

	if err := e.gameInstance.FnRender(e.graph, delta); err != nil {
		return err
	}

	compileStart := time.Now()
	if err := e.graph.Compile(); err != nil {
		return err
	}
	compileSeconds := time.Since(compileStart).Seconds()

	if e.dumpPending {
		e.dumpPending = false
		if err := e.dumpMermaid(e.gameInstance.Config.Graph.MermaidPath); err != nil {
			core.LogError("mermaid dump failed: %s", err.Error())
		}
	}

	commands, err := e.backend.BeginFrame()
	if err != nil {
		return err
	}
	frame := &rendergraph.FrameContext{
		Commands:    commands,
		Uploader:    e.backend,
		FrameNumber: e.frameNumber,
		DeltaTime:   delta,
	}
	if err := e.graph.Execute(frame); err != nil {
		// the list was begun, hand it back before failing the frame
		if serr := e.backend.SubmitFrame(commands); serr != nil {
			core.LogError("submit after failed frame: %s", serr.Error())
		}
		return err
	}
	if err := e.backend.SubmitFrame(commands); err != nil {
		return err
	}

	stats := e.graph.Stats()
	e.metrics.Update(core.FrameStats{
		FrameSeconds:   time.Since(frameStart).Seconds(),
		CompileSeconds: compileSeconds,
		Passes:         stats.Passes,
		Barriers:       stats.Barriers,
		Transitions:    stats.Transitions,
	})
	e.frameNumber++
	return nil
}

func (e *Engine) dumpMermaid(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.graph.WriteMermaid(f); err != nil {
		f.Close()
		return err
	}
	core.LogInfo("frame graph written to %s", path)
	return f.Close()
}

// Shutdown asks the frame loop to stop. It is safe to call from another
// goroutine; Run releases every resource once the current frame is done.
func (e *Engine) Shutdown() error {
	if !e.isRunning.Swap(false) {
		return nil
	}
	core.LogInfo("shutdown requested")
	return nil
}

func (e *Engine) teardown() {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	e.clock.Stop()

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err.Error())
		}
	}
	stats := e.pool.Stats()
	e.pool.Destroy()
	e.backend.Destroy()
	core.LogInfo("engine stopped after %d frames (%d pooled buffers, %d pooled textures released)",
		e.frameNumber, stats.Buffers, stats.Textures)
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Stats() rendergraph.PoolStats {
	return e.pool.Stats()
}

func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}
