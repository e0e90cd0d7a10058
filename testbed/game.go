package testbed

import (
	"bytes"
	"encoding/binary"
	gomath "math"

	"github.com/spaghettifunk/anima-framegraph/engine"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/math"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
	rg "github.com/spaghettifunk/anima-framegraph/engine/renderer/rendergraph"
)

const (
	shadowMapSize = 2048
	noiseSize     = 4
	cameraSize    = 256
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	time   float64

	// backBuffer stands in for the swapchain image and outlives the graph.
	backBuffer gpu.Texture
	noise      []byte
}

// cameraUniform is the layout the shaders read from the camera buffer.
type cameraUniform struct {
	Eye        math.Vec4
	LightDir   math.Vec4
	Viewport   math.Vec4
	Time       float32
	FrameIndex uint32
	_          [2]uint32
}

// Blackboard entries each pass publishes for the ones after it.
type cameraOutput struct {
	Buffer rg.Resource
}

type shadowOutput struct {
	Map rg.Resource
}

type gbufferOutput struct {
	Albedo rg.Resource
	Normal rg.Resource
	Depth  rg.Resource
}

type noiseOutput struct {
	Texture rg.Resource
}

type ssaoOutput struct {
	Occlusion rg.Resource
}

type lightingOutput struct {
	HDR rg.Resource
}

func NewTestGame() (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	state.noise = make([]byte, noiseSize*noiseSize*4)
	for i := range state.noise {
		state.noise[i] = byte((i * 73) ^ (i >> 2) * 151)
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	g.state().time += deltaTime
	return nil
}

// OnResize recreates the back buffer at the new size.
func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	if state.backBuffer != nil && state.width == width && state.height == height {
		return nil
	}
	if state.backBuffer != nil {
		old := state.backBuffer
		g.Device.DeletionQueue().Push(func() { g.Device.DestroyTexture(old) })
	}
	tex, err := g.Device.CreateTexture("back-buffer", gpu.TextureDescription{
		Width:  width,
		Height: height,
		Format: gpu.FormatBGRA8Unorm,
		Usage:  gpu.TextureUsageColor | gpu.TextureUsageTransferSrc,
	}.Normalized())
	if err != nil {
		return err
	}
	state.backBuffer = tex
	state.width, state.height = width, height
	core.LogDebug("back buffer resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	if state.backBuffer != nil {
		g.Device.DestroyTexture(state.backBuffer)
		state.backBuffer = nil
	}
	core.LogInfo("testbed shut down")
	return nil
}

// Render declares a deferred frame: uploads, shadow map, g-buffer, SSAO in
// compute, lighting and a tonemap into the back buffer.
func (g *TestGame) Render(graph *rg.Graph, deltaTime float64) error {
	state := g.state()
	steps := []func(*rg.Graph, *gameState) error{
		addUploadPass,
		addShadowPass,
		addGBufferPass,
		addSSAOPass,
		addLightingPass,
		addTonemapPass,
	}
	for _, step := range steps {
		if err := step(graph, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *gameState) camera(frame uint64) cameraUniform {
	angle := float32(s.time * 0.5)
	return cameraUniform{
		Eye:        math.NewVec4(10*float32(gomath.Cos(float64(angle))), 4, 10*float32(gomath.Sin(float64(angle))), 1),
		LightDir:   math.NewVec4(-0.3, -1, -0.2, 0),
		Viewport:   math.NewVec4(float32(s.width), float32(s.height), 1/float32(s.width), 1/float32(s.height)),
		Time:       float32(s.time),
		FrameIndex: uint32(frame),
	}
}

type uploadData struct {
	camera rg.Resource
	noise  rg.Resource
}

func addUploadPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "upload",
		func(graph *rg.Graph, data *uploadData) error {
			camera := graph.CreateBuffer("camera", gpu.BufferDescription{Size: cameraSize})
			noise := graph.CreateTexture("ssao-noise", gpu.TextureDescription{
				Width:  noiseSize,
				Height: noiseSize,
				Format: gpu.FormatRGBA8Unorm,
			})
			var err error
			if data.camera, err = graph.Write(camera, rg.AccessTransfer); err != nil {
				return err
			}
			if data.noise, err = graph.Write(noise, rg.AccessTransfer); err != nil {
				return err
			}
			if _, err = rg.RegisterOutput(graph.Blackboard(), noiseOutput{Texture: data.noise}); err != nil {
				return err
			}
			_, err = rg.RegisterOutput(graph.Blackboard(), cameraOutput{Buffer: data.camera})
			return err
		},
		func(data *uploadData, frame *rg.FrameContext, res *rg.Resources) error {
			var buf bytes.Buffer
			if err := binary.Write(&buf, binary.LittleEndian, state.camera(frame.FrameNumber)); err != nil {
				return err
			}
			if _, err := res.UploadBuffer(data.camera, buf.Bytes(), 0); err != nil {
				return err
			}
			_, err := res.UploadTexture(data.noise, state.noise)
			return err
		})
	return err
}

type shadowData struct {
	camera rg.Resource
	depth  rg.Resource
}

func addShadowPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "shadow",
		func(graph *rg.Graph, data *shadowData) error {
			camera, err := rg.GetOutput[cameraOutput](graph.Blackboard())
			if err != nil {
				return err
			}
			if data.camera, err = graph.Read(camera.Buffer, rg.AccessVertex|rg.AccessUniform); err != nil {
				return err
			}
			shadow := graph.CreateTexture("shadow-map", gpu.TextureDescription{
				Width:  shadowMapSize,
				Height: shadowMapSize,
				Format: gpu.FormatD32Float,
			})
			if data.depth, err = graph.DepthStencilTarget(shadow, gpu.LoadOpClear, gpu.StoreOpStore); err != nil {
				return err
			}
			_, err = rg.RegisterOutput(graph.Blackboard(), shadowOutput{Map: data.depth})
			return err
		},
		func(data *shadowData, frame *rg.FrameContext, res *rg.Resources) error {
			_, err := res.GetBuffer(data.camera)
			return err
		})
	return err
}

type gbufferData struct {
	camera rg.Resource
	out    gbufferOutput
}

func addGBufferPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "gbuffer",
		func(graph *rg.Graph, data *gbufferData) error {
			camera, err := rg.GetOutput[cameraOutput](graph.Blackboard())
			if err != nil {
				return err
			}
			if data.camera, err = graph.Read(camera.Buffer, rg.AccessVertex|rg.AccessPixel|rg.AccessUniform); err != nil {
				return err
			}
			size := func(format gpu.Format) gpu.TextureDescription {
				return gpu.TextureDescription{Width: state.width, Height: state.height, Format: format}
			}
			albedo := graph.CreateTexture("gbuffer-albedo", size(gpu.FormatRGBA8SRGB))
			normal := graph.CreateTexture("gbuffer-normal", size(gpu.FormatRGBA16Float))
			depth := graph.CreateTexture("gbuffer-depth", size(gpu.FormatD24UnormS8Uint))

			if data.out.Albedo, err = graph.RenderTarget(albedo, gpu.LoadOpClear, gpu.StoreOpStore, math.NewVec4(0, 0, 0, 1)); err != nil {
				return err
			}
			if data.out.Normal, err = graph.RenderTarget(normal, gpu.LoadOpClear, gpu.StoreOpStore); err != nil {
				return err
			}
			if data.out.Depth, err = graph.DepthStencilTarget(depth, gpu.LoadOpClear, gpu.StoreOpStore, rg.DepthClear{Depth: 1}); err != nil {
				return err
			}
			_, err = rg.RegisterOutput(graph.Blackboard(), data.out)
			return err
		},
		func(data *gbufferData, frame *rg.FrameContext, res *rg.Resources) error {
			for _, h := range []rg.Resource{data.out.Albedo, data.out.Normal, data.out.Depth} {
				if _, err := res.GetTexture(h); err != nil {
					return err
				}
			}
			return nil
		})
	return err
}

type ssaoData struct {
	normal rg.Resource
	depth  rg.Resource
	noise  rg.Resource
	camera rg.Resource
	out    rg.Resource
}

func addSSAOPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "ssao",
		func(graph *rg.Graph, data *ssaoData) error {
			bb := graph.Blackboard()
			gbuffer, err := rg.GetOutput[gbufferOutput](bb)
			if err != nil {
				return err
			}
			noise, err := rg.GetOutput[noiseOutput](bb)
			if err != nil {
				return err
			}
			camera, err := rg.GetOutput[cameraOutput](bb)
			if err != nil {
				return err
			}
			read := rg.AccessCompute | rg.AccessSampled
			if data.normal, err = graph.Read(gbuffer.Normal, read); err != nil {
				return err
			}
			if data.depth, err = graph.Read(gbuffer.Depth, read); err != nil {
				return err
			}
			if data.noise, err = graph.Read(noise.Texture, read); err != nil {
				return err
			}
			if data.camera, err = graph.Read(camera.Buffer, rg.AccessCompute|rg.AccessUniform); err != nil {
				return err
			}
			occlusion := graph.CreateTexture("ssao", gpu.TextureDescription{
				Width:  math.Max(state.width/2, 1),
				Height: math.Max(state.height/2, 1),
				Format: gpu.FormatR16Float,
			})
			if data.out, err = graph.Write(occlusion, rg.AccessCompute|rg.AccessStorage); err != nil {
				return err
			}
			_, err = rg.RegisterOutput(bb, ssaoOutput{Occlusion: data.out})
			return err
		},
		func(data *ssaoData, frame *rg.FrameContext, res *rg.Resources) error {
			_, err := res.GetTexture(data.out)
			return err
		})
	return err
}

type lightingData struct {
	inputs []rg.Resource
	hdr    rg.Resource
}

func addLightingPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "lighting",
		func(graph *rg.Graph, data *lightingData) error {
			bb := graph.Blackboard()
			gbuffer, err := rg.GetOutput[gbufferOutput](bb)
			if err != nil {
				return err
			}
			ssao, err := rg.GetOutput[ssaoOutput](bb)
			if err != nil {
				return err
			}
			shadow, err := rg.GetOutput[shadowOutput](bb)
			if err != nil {
				return err
			}
			camera, err := rg.GetOutput[cameraOutput](bb)
			if err != nil {
				return err
			}
			sampled := rg.AccessPixel | rg.AccessSampled
			for _, h := range []rg.Resource{gbuffer.Albedo, gbuffer.Normal, gbuffer.Depth, ssao.Occlusion, shadow.Map} {
				in, err := graph.Read(h, sampled)
				if err != nil {
					return err
				}
				data.inputs = append(data.inputs, in)
			}
			if _, err = graph.Read(camera.Buffer, rg.AccessPixel|rg.AccessUniform); err != nil {
				return err
			}
			hdr := graph.CreateTexture("hdr", gpu.TextureDescription{
				Width:  state.width,
				Height: state.height,
				Format: gpu.FormatRGBA16Float,
			})
			if data.hdr, err = graph.RenderTarget(hdr, gpu.LoadOpDontCare, gpu.StoreOpStore); err != nil {
				return err
			}
			_, err = rg.RegisterOutput(bb, lightingOutput{HDR: data.hdr})
			return err
		},
		func(data *lightingData, frame *rg.FrameContext, res *rg.Resources) error {
			for _, h := range data.inputs {
				if _, err := res.GetTexture(h); err != nil {
					return err
				}
			}
			return nil
		})
	return err
}

type tonemapData struct {
	hdr    rg.Resource
	output rg.Resource
}

func addTonemapPass(graph *rg.Graph, state *gameState) error {
	_, err := rg.AddRenderPass(graph, "tonemap",
		func(graph *rg.Graph, data *tonemapData) error {
			lighting, err := rg.GetOutput[lightingOutput](graph.Blackboard())
			if err != nil {
				return err
			}
			if data.hdr, err = graph.Read(lighting.HDR, rg.AccessPixel|rg.AccessSampled); err != nil {
				return err
			}
			back := graph.AddExternalTexture("back-buffer", state.backBuffer)
			data.output, err = graph.RenderTarget(back, gpu.LoadOpDontCare, gpu.StoreOpStore)
			return err
		},
		func(data *tonemapData, frame *rg.FrameContext, res *rg.Resources) error {
			_, err := res.GetTexture(data.hdr)
			return err
		})
	return err
}
