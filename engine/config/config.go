package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

const DefaultPath = "anima.toml"

var ErrInvalidConfig = errors.New("invalid configuration")

type LogConfig struct {
	Level string `toml:"level"`
}

type WindowConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type GraphConfig struct {
	// FramesInFlight is how many frames the deletion queue holds objects for.
	FramesInFlight int `toml:"frames_in_flight"`
	// PoolMaxIdleFrames evicts pooled objects unused for longer. Zero keeps
	// them forever.
	PoolMaxIdleFrames int    `toml:"pool_max_idle_frames"`
	DumpMermaid       bool   `toml:"dump_mermaid"`
	MermaidPath       string `toml:"mermaid_path"`
}

type EngineConfig struct {
	// Frames stops the loop after that many frames. Zero runs until shutdown.
	Frames       uint64  `toml:"frames"`
	TargetFPS    float64 `toml:"target_fps"`
	MetricsEvery uint64  `toml:"metrics_every"`
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Window WindowConfig `toml:"window"`
	Graph  GraphConfig  `toml:"graph"`
	Engine EngineConfig `toml:"engine"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Window: WindowConfig{
			Name:   "Anima Frame Graph",
			Width:  1280,
			Height: 720,
		},
		Graph: GraphConfig{
			FramesInFlight:    2,
			PoolMaxIdleFrames: 8,
			MermaidPath:       "framegraph.mmd",
		},
		Engine: EngineConfig{
			TargetFPS:    60,
			MetricsEvery: 120,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document on top of the defaults. Unknown keys are
// rejected so typos do not silently fall back to a default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		var decode *toml.DecodeError
		if errors.As(err, &decode) {
			row, col := decode.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, decode.Error())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q: %s", ErrInvalidConfig, c.Log.Level, err.Error())
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Graph.FramesInFlight < 1 {
		return fmt.Errorf("%w: frames_in_flight must be at least 1, got %d", ErrInvalidConfig, c.Graph.FramesInFlight)
	}
	if c.Graph.PoolMaxIdleFrames < 0 {
		return fmt.Errorf("%w: pool_max_idle_frames must not be negative", ErrInvalidConfig)
	}
	if c.Graph.DumpMermaid && c.Graph.MermaidPath == "" {
		return fmt.Errorf("%w: dump_mermaid needs mermaid_path", ErrInvalidConfig)
	}
	if c.Engine.TargetFPS < 0 {
		return fmt.Errorf("%w: target_fps must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LogLevel is the parsed log level. Validate has already accepted it.
func (c *Config) LogLevel() core.LogLevel {
	level, _ := core.ParseLogLevel(c.Log.Level)
	return level
}

// Apply pushes the settings that can change at runtime.
func (c *Config) Apply() {
	core.SetLogLevel(c.LogLevel())
}

// Save writes c as TOML to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
