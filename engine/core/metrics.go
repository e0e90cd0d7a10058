package core

const AVG_COUNT uint8 = 30

// FrameStats is what a single frame reports back to the metrics.
type FrameStats struct {
	FrameSeconds   float64
	CompileSeconds float64
	Passes         int
	Barriers       int
	Transitions    int
}

// Metrics keeps rolling averages over the last AVG_COUNT frames.
type Metrics struct {
	frameAVGCounter    uint8
	frameMS            [AVG_COUNT]float64
	compileMS          [AVG_COUNT]float64
	frameMSAvg         float64
	compileMSAvg       float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	TotalFrames      uint64
	TotalBarriers    uint64
	TotalTransitions uint64
	LastPasses       int
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(stats FrameStats) {
	frameMS := stats.FrameSeconds * 1000.0
	compileMS := stats.CompileSeconds * 1000.0
	m.frameMS[m.frameAVGCounter] = frameMS
	m.compileMS[m.frameAVGCounter] = compileMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.frameMSAvg, m.compileMSAvg = 0, 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.frameMSAvg += m.frameMS[i]
			m.compileMSAvg += m.compileMS[i]
		}
		m.frameMSAvg /= float64(AVG_COUNT)
		m.compileMSAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
	m.frames++

	m.TotalFrames++
	m.TotalBarriers += uint64(stats.Barriers)
	m.TotalTransitions += uint64(stats.Transitions)
	m.LastPasses = stats.Passes
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.frameMSAvg
}

// CompileTime is the average graph compile time in milliseconds.
func (m *Metrics) CompileTime() float64 {
	return m.compileMSAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.frameMSAvg
}
