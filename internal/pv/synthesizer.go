// SPDX-License-Identifier: MIT
package pv

import (
	"math"

	"audio/internal/fft"
	"audio/internal/log"
	"audio/internal/window"
)

// AmplitudeModulator is the external collaborator named in spec §6/§1: a
// generic per-sample multiply/add post-processor applied to the
// Synthesizer's output. Its contract is only that it is applied
// sample-wise; implementing the modulator itself is out of scope for this
// package. PassthroughModulator is the identity implementation used when
// no host-supplied modulator is wired.
type AmplitudeModulator interface {
	Apply(sample float64) float64
}

// PassthroughModulator applies no modification; it exists so Synthesizer
// always has a non-nil modulator to call.
type PassthroughModulator struct{}

// Apply implements AmplitudeModulator.
func (PassthroughModulator) Apply(sample float64) float64 { return sample }

// Synthesizer is the spectral-to-time-domain PV node (spec §4.3). It
// consumes an upstream View and does not own a PVStream of its own.
type Synthesizer struct {
	geom    Geometry
	wintype window.Kind

	win      []float64 // length N
	plan     *fft.Plan
	inframe  []float64 // length N, packed Hermitian scratch
	outframe []float64 // length N, time-domain iFFT output

	real []float64 // length H
	imag []float64 // length H

	sumPhase []float64 // length H, per-bin phase accumulator

	outputAccum []float64 // length N+P, overlap-add accumulator
	outputBuf   []float64 // length P, ready-to-emit samples

	overcount int
	playing   bool

	upstream  View
	modulator AmplitudeModulator
}

// NewSynthesizer constructs a Synthesizer wired to upstream. upstream's
// current geometry is adopted immediately.
func NewSynthesizer(upstream View, wintype window.Kind) *Synthesizer {
	s := &Synthesizer{
		geom:      upstream.Geometry(),
		wintype:   wintype,
		playing:   true,
		upstream:  upstream,
		modulator: PassthroughModulator{},
	}
	s.reallocate()
	log.Infof("pv.Synthesizer: N=%d O=%d hop=%d window=%s", s.geom.N, s.geom.O, s.geom.P, wintype)
	return s
}

// SetModulator wires the external multiply/add post-processor (spec §1,
// §6). Passing nil restores the passthrough identity modulator.
func (s *Synthesizer) SetModulator(m AmplitudeModulator) {
	if m == nil {
		m = PassthroughModulator{}
	}
	s.modulator = m
}

// Bind rewires the Synthesizer's upstream input, performing the
// capability check of spec §6. Returns ErrNotAPVStream (spec §7b) if
// input is not a PVStream view.
func (s *Synthesizer) Bind(input any) error {
	v, err := AsView(input)
	if err != nil {
		return err
	}
	s.upstream = v
	s.geom = v.Geometry()
	s.reallocate()
	return nil
}

func (s *Synthesizer) reallocate() {
	n, h, p := s.geom.N, s.geom.H, s.geom.P

	s.win = make([]float64, n)
	window.Generate(s.win, s.wintype)

	s.plan = fft.NewPlan(n)
	s.inframe = make([]float64, n)
	s.outframe = make([]float64, n)
	s.real = make([]float64, h)
	s.imag = make([]float64, h)
	s.sumPhase = make([]float64, h)

	s.outputAccum = make([]float64, n+p)
	s.outputBuf = make([]float64, p)

	s.overcount = 0
}

// SetWindow regenerates the window table in place without touching phase
// accumulation state.
func (s *Synthesizer) SetWindow(kind window.Kind) {
	s.wintype = kind
	window.Generate(s.win, kind)
}

func (s *Synthesizer) Play()         { s.playing = true }
func (s *Synthesizer) Stop()         { s.playing = false }
func (s *Synthesizer) Playing() bool { return s.playing }

// ComputeNextDataFrame runs the streaming synthesis algorithm over one
// audio block and writes b samples into out (spec §4.3). It detects
// upstream geometry drift at block start (spec §3 Lifecycle point c).
func (s *Synthesizer) ComputeNextDataFrame(out []float64, b int) {
	if !s.geom.Equal(s.upstream.Geometry()) {
		s.geom = s.upstream.Geometry()
		s.reallocate()
	}

	if !s.playing {
		for i := range out[:b] {
			out[i] = 0
		}
		return
	}

	g := s.geom
	for i := 0; i < b; i++ {
		idx := s.upstream.Count(i) - g.L
		if idx < 0 || idx >= len(s.outputBuf) {
			out[i] = 0
		} else {
			out[i] = s.modulator.Apply(s.outputBuf[idx])
		}

		if s.upstream.Count(i) == g.N-1 {
			s.hop()
		}
	}
}

// hop consumes one fresh hop from upstream: phase accumulation, inverse
// FFT, windowed overlap-add, and accumulator shift (spec §4.3 steps a-g).
func (s *Synthesizer) hop() {
	g := s.geom
	magn := s.upstream.MagnRow(s.overcount)
	freq := s.upstream.FreqRow(s.overcount)

	for k := 0; k < g.H; k++ {
		delta := (freq[k] - float64(k)*g.scaleS) * g.factorS
		s.sumPhase[k] += delta
		s.real[k] = magn[k] * math.Cos(s.sumPhase[k])
		s.imag[k] = magn[k] * math.Sin(s.sumPhase[k])
	}

	s.inframe[0] = s.real[0]
	s.inframe[g.H] = 0
	for k := 1; k < g.H; k++ {
		s.inframe[k] = s.real[k]
		s.inframe[g.N-k] = s.imag[k]
	}

	if err := s.plan.Inverse(s.outframe, s.inframe); err != nil {
		log.Errorf("pv.Synthesizer: FFT inverse failed: %v", err)
		return
	}

	m := g.P * s.overcount
	for k := 0; k < g.N; k++ {
		s.outputAccum[k] += s.outframe[(k+m)%g.N] * s.win[k] * g.ampscl
	}

	copy(s.outputBuf, s.outputAccum[0:g.P])

	copy(s.outputAccum[0:g.N], s.outputAccum[g.P:g.N+g.P])
	for k := g.N; k < g.N+g.P; k++ {
		s.outputAccum[k] = 0
	}

	s.overcount = (s.overcount + 1) % g.O
}

var _ Node = (*Synthesizer)(nil)
