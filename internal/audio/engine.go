// SPDX-License-Identifier: MIT
/*
Package audio implements a real-time audio processing engine with:
- Lock-free audio capture and playback using PortAudio
- A phase-vocoder graph (internal/pv) driving real-time spectral analysis,
  transformation, and resynthesis
- Noise gate with branchless implementation, now gating the analyzer
- WAV recording with atomic state management

Thread Safety:
- Uses atomic operations for state management
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"audio/internal/analysis"
	"audio/internal/config"
	"audio/internal/pv"
	"audio/internal/pv/transform"
	"audio/internal/transport"
	"audio/internal/transport/udp"
	"audio/internal/window"
)

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Audio input/output device handling.
	inputBuffer   []int32
	outputBuffer  []int32
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Phase-vocoder graph: analyzer -> transformer chain -> synthesizer.
	graph      *pv.Graph
	analyzer   *pv.Analyzer
	synth      *pv.Synthesizer
	autotune   *pv.AutoTune
	stageNames []string
	monoIn     []float64 // mono downmix fed to the analyzer
	monoOut    []float64 // synthesizer output before upmix

	// Noise gate for signal conditioning; gates whether the analyzer runs
	// for the current block rather than a raw FFT processor (spec §4.5,
	// the gate is a pre-processing collaborator outside PV core scope).
	gateEnabled   bool
	gateThreshold int32

	// Observability: band energy and beat events pushed to external
	// consumers (visualizers, the TUI's companions) over the configured
	// transports, plus a dedicated raw-magnitude UDP publisher. Any of
	// these may be nil when disabled in config.
	bandEnergy   *analysis.BandEnergyProcessor
	beatDetector *analysis.BeatDetector
	udpPublisher *udp.UDPPublisher
	closers      []interface{ Close() error }

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

func NewEngine(cfg *config.Config) (engine *Engine, err error) {
	inputDevice, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	outputDevice, err := OutputDevice(cfg.OutputDeviceID)
	if err != nil {
		return nil, err
	}

	wintype, ok := window.Parse(cfg.PV.Window)
	if !ok {
		log.Printf("audio: unknown window %q, defaulting to Hann", cfg.PV.Window)
		wintype = window.Hann
	}

	analyzer := pv.NewAnalyzer(cfg.PV.Size, cfg.PV.Olaps, cfg.SampleRate, wintype)

	var upstream pv.View = analyzer.View()
	stages := make([]interface {
		View() pv.View
		ComputeNextDataFrame(b int)
	}, 0, len(cfg.PV.Chain))
	stageNames := make([]string, 0, len(cfg.PV.Chain))
	for _, stage := range cfg.PV.Chain {
		t, err := buildTransformer(upstream, stage)
		if err != nil {
			return nil, err
		}
		stages = append(stages, t)
		stageNames = append(stageNames, stage.Type)
		upstream = t.View()
	}

	tapView := upstream // last chain view, the one the synthesizer resynthesizes from

	synth := pv.NewSynthesizer(upstream, wintype)
	graph := pv.NewGraph(analyzer, synth)
	for _, t := range stages {
		graph.AddTransformer(t)
	}

	inputSize := cfg.FramesPerBuffer * cfg.Channels

	engine = &Engine{
		config:        cfg,
		inputBuffer:   make([]int32, inputSize),
		outputBuffer:  make([]int32, inputSize),
		inputDevice:   inputDevice,
		outputDevice:  outputDevice,
		graph:         graph,
		analyzer:      analyzer,
		synth:         synth,
		stageNames:    stageNames,
		monoIn:        make([]float64, cfg.FramesPerBuffer),
		monoOut:       make([]float64, cfg.FramesPerBuffer),
		gateEnabled:   true,
		gateThreshold: 2147483647 / 1000, // Default to ~0.1% of max value
	}

	if cfg.PV.AutoTune {
		engine.autotune = pv.NewAutoTune(analyzer)
	}

	if err := engine.wireTransports(cfg, tapView); err != nil {
		return nil, err
	}

	if engine.config.LowLatency {
		engine.inputLatency = engine.inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = engine.inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// buildTransformer constructs one transformer from its config stage. The
// constructed transformer satisfies the same View()/ComputeNextDataFrame
// shape pv.Graph.AddTransformer expects.
func buildTransformer(upstream pv.View, stage config.ChainStage) (interface {
	View() pv.View
	ComputeNextDataFrame(b int)
}, error) {
	switch stage.Type {
	case "transpose":
		return transform.NewTranspose(upstream, transform.Scalar(stage.Params["t"])), nil
	case "reverb":
		return transform.NewReverb(upstream,
			transform.Scalar(stage.Params["revtime"]),
			transform.Scalar(stage.Params["damp"])), nil
	case "gate":
		return transform.NewGate(upstream,
			transform.Scalar(stage.Params["thresh_db"]),
			transform.Scalar(stage.Params["damp"])), nil
	default:
		return nil, fmt.Errorf("audio: unknown transformer %q", stage.Type)
	}
}

// wireTransports builds the observability side-channels named by
// cfg.Transport: band-energy and beat events pushed over a WebSocket (or
// logged to stderr if debugging with no WebSocket configured), and raw
// magnitude rows published over UDP at a fixed rate. view is the
// post-chain spectral view fed to the synthesizer.
func (e *Engine) wireTransports(cfg *config.Config, view pv.View) error {
	var eventTransport transport.Transport
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		eventTransport = ws
		e.closers = append(e.closers, ws)
	} else if cfg.Debug {
		eventTransport = transport.NewLoggingTransport()
	}

	if eventTransport != nil {
		e.bandEnergy = analysis.NewBandEnergyProcessor(eventTransport, view)
		e.beatDetector = analysis.NewBeatDetector(0.1, 1.5, cfg.SampleRate, cfg.FramesPerBuffer, eventTransport)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("audio: starting UDP sender: %w", err)
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, view)
		if err != nil {
			return fmt.Errorf("audio: starting UDP publisher: %w", err)
		}
		publisher.Start()
		e.udpPublisher = publisher
		e.closers = append(e.closers, publisher)
	}

	return nil
}

// Analyzer exposes the engine's PV Analyzer for the TUI's live graph
// dashboard (internal/tui.StartGraphUI).
func (e *Engine) Analyzer() *pv.Analyzer { return e.analyzer }

// StageNames returns the transformer chain's type names in source order.
func (e *Engine) StageNames() []string { return e.stageNames }

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return err
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		return err
	}

	return nil
}

func (e *Engine) StopInputStream() error {
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return err
		}
		if err := e.stream.Close(); err != nil {
			return err
		}
		e.stream = nil
	}
	return nil
}

// processStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer, e.outputBuffer)
	copy(out, e.outputBuffer)

	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		for i, sample := range e.inputBuffer {
			e.sampleBuf.Data[i] = int(sample)
		}
		e.sampleBuf.Data = e.sampleBuf.Data[:len(e.inputBuffer)]
		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			log.Printf("Error writing to WAV file: %v", err)
		}
	}
}

// processBuffer runs the noise gate, downmixes to mono, drives the PV
// graph, and upmixes the synthesized output back into every channel.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless noise gate implementation
func (e *Engine) processBuffer(in, out []int32) {
	shouldRun := true
	if e.gateEnabled {
		var maxAmplitude int32
		for i := range in {
			sample := in[i]
			mask := sample >> 31
			amplitude := (sample ^ mask) - mask
			diff := amplitude - maxAmplitude
			maxAmplitude += (diff & (diff >> 31)) ^ diff
		}
		shouldRun = maxAmplitude > e.gateThreshold
	}

	if shouldRun {
		e.analyzer.Play()
	} else {
		e.analyzer.Stop()
	}

	const normFactor = 1.0 / float64(0x80000000)
	channels := e.config.Channels
	b := e.config.FramesPerBuffer

	for i := 0; i < b; i++ {
		if channels == 1 {
			e.monoIn[i] = float64(in[i]) * normFactor
		} else if i*channels < len(in) {
			e.monoIn[i] = float64(in[i*channels]) * normFactor
		} else {
			e.monoIn[i] = 0
		}
	}

	if e.autotune != nil {
		e.autotune.Observe(e.monoIn[:b])
	}
	if e.beatDetector != nil {
		e.beatDetector.Process(in)
	}

	e.graph.ComputeNextDataFrame(e.monoIn, e.monoOut, b)

	if e.bandEnergy != nil {
		e.bandEnergy.Observe(b)
	}
	if e.udpPublisher != nil {
		e.udpPublisher.Observe(b)
	}

	for i := 0; i < b; i++ {
		sample := int32(e.monoOut[i] * 0x7FFFFFFF)
		for c := 0; c < channels; c++ {
			idx := i*channels + c
			if idx < len(out) {
				out[idx] = sample
			}
		}
	}
}
