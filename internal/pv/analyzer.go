// SPDX-License-Identifier: MIT
package pv

import (
	"math"

	"audio/internal/fft"
	"audio/internal/log"
	"audio/internal/window"
)

// Analyzer is the time-domain-to-spectral PV node (spec §4.2). It owns the
// PVStream it produces; callers obtain a read-only handle via View().
type Analyzer struct {
	geom    Geometry
	wintype window.Kind

	win      []float64 // length N
	plan     *fft.Plan
	ring     []float64 // length N, sliding input buffer
	inframe  []float64 // length N, windowed+rotated scratch
	outframe []float64 // length N, split-Hermitian FFT output

	real []float64 // length H
	imag []float64 // length H

	lastPhase []float64 // length H, per-bin phase history

	incount   int
	overcount int
	playing   bool

	stream *PVStream
}

// NewAnalyzer constructs an Analyzer for the given geometry. size/olaps
// are rounded up to powers of two per spec §3.
func NewAnalyzer(size, olaps int, sampleRate float64, wintype window.Kind) *Analyzer {
	a := &Analyzer{
		geom:    NewGeometry(size, olaps, sampleRate),
		wintype: wintype,
		playing: true,
	}
	a.reallocate()
	log.Infof("pv.Analyzer: N=%d O=%d hop=%d window=%s", a.geom.N, a.geom.O, a.geom.P, wintype)
	return a
}

// reallocate (re)builds every geometry-dependent buffer, zeroes them, and
// resets overcount/incount (spec §3 Lifecycle).
func (a *Analyzer) reallocate() {
	n, h := a.geom.N, a.geom.H

	a.win = make([]float64, n)
	window.Generate(a.win, a.wintype)

	a.plan = fft.NewPlan(n)
	a.ring = make([]float64, n)
	a.inframe = make([]float64, n)
	a.outframe = make([]float64, n)
	a.real = make([]float64, h)
	a.imag = make([]float64, h)
	a.lastPhase = make([]float64, h)

	a.overcount = 0
	a.incount = a.geom.L

	// Reallocate the existing stream in place so consumers already holding
	// its View observe the new geometry at their next block.
	if a.stream == nil {
		a.stream = NewPVStream(a.geom)
	} else {
		a.stream.Reallocate(a.geom)
	}
}

// View exposes the read-only PVStream handle downstream nodes wire to.
func (a *Analyzer) View() View { return a.stream }

// Geometry returns the analyzer's current geometry.
func (a *Analyzer) Geometry() Geometry { return a.geom }

// SetSize changes the FFT size, rounding to a power of two and forcing a
// full reallocation (phase history is discarded, spec §4.2 edge cases).
func (a *Analyzer) SetSize(n int) {
	g := NewGeometry(n, a.geom.O, a.geom.sr)
	if g.Equal(a.geom) {
		return
	}
	a.geom = g
	a.reallocate()
}

// SetOlaps changes the overlap count, same reallocation rule as SetSize.
func (a *Analyzer) SetOlaps(o int) {
	g := NewGeometry(a.geom.N, o, a.geom.sr)
	if g.Equal(a.geom) {
		return
	}
	a.geom = g
	a.reallocate()
}

// SetWindow regenerates the window table in place without touching phase
// history (spec §4.2 edge cases).
func (a *Analyzer) SetWindow(kind window.Kind) {
	a.wintype = kind
	window.Generate(a.win, kind)
}

func (a *Analyzer) Play()         { a.playing = true }
func (a *Analyzer) Stop()         { a.playing = false }
func (a *Analyzer) Playing() bool { return a.playing }

// ComputeNextDataFrame runs the streaming analysis algorithm over one
// audio block (spec §4.2). in must have length b.
func (a *Analyzer) ComputeNextDataFrame(in []float64, b int) {
	a.stream.SetBlockSize(b)

	if !a.playing {
		for i := 0; i < b; i++ {
			a.stream.SetCount(i, a.incount)
		}
		return
	}

	g := a.geom
	for i := 0; i < b; i++ {
		a.ring[a.incount] = in[i]
		a.stream.SetCount(i, a.incount)
		a.incount++

		if a.incount == g.N {
			a.hop()
			a.incount = g.L
		}
	}
}

// hop runs one full analysis frame: window+rotate, FFT, phase unwrap and
// true-frequency estimation, then shifts the ring left by the hop size
// (spec §4.2 steps b-g).
func (a *Analyzer) hop() {
	g := a.geom
	m := g.P * a.overcount

	for k := 0; k < g.N; k++ {
		a.inframe[(k+m)%g.N] = a.ring[k] * a.win[k]
	}

	if err := a.plan.Forward(a.outframe, a.inframe); err != nil {
		log.Errorf("pv.Analyzer: FFT forward failed: %v", err)
		return
	}

	a.real[0] = a.outframe[0]
	a.imag[0] = 0
	for k := 1; k < g.H; k++ {
		a.real[k] = a.outframe[k]
		a.imag[k] = a.outframe[g.N-k]
	}

	for k := 0; k < g.H; k++ {
		mag := math.Hypot(a.real[k], a.imag[k])
		// A zero-magnitude bin has phase 0; atan2 of signed zeros from the
		// FFT would otherwise report +/-pi.
		phase := 0.0
		if mag != 0 {
			phase = math.Atan2(a.imag[k], a.real[k])
		}

		delta := phase - a.lastPhase[k]
		a.lastPhase[k] = phase
		delta = wrapPi(delta)

		freq := (delta + float64(k)*g.scaleA) * g.factor

		a.stream.SetMagn(a.overcount, k, mag)
		a.stream.SetFreq(a.overcount, k, freq)
	}

	copy(a.ring[0:g.L], a.ring[g.P:g.N])

	a.overcount = (a.overcount + 1) % g.O
}

// wrapPi wraps a phase difference into (-pi, pi] by repeated +/-2*pi (spec
// §4.2e).
func wrapPi(delta float64) float64 {
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta <= -math.Pi {
		delta += 2 * math.Pi
	}
	return delta
}

var _ Node = (*Analyzer)(nil)
