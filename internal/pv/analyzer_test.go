// SPDX-License-Identifier: MIT
package pv

import (
	"math"
	"testing"

	"audio/internal/window"
)

// TestAnalyzerSilenceProducesZeroMagnitude drives an Analyzer with pure
// silence for several full cycles and checks every published row. The
// phase-unwrap step degenerates on a silent input (real=imag=0 gives
// atan2(0,0)=0, so the measured phase delta never deviates from the
// lastPhase history), and the true-frequency estimate reduces to the
// bin's own center frequency rather than literal zero; magnitude is
// exactly zero regardless, so the degenerate frequency value is inert
// once a consumer weighs it against a zero magnitude.
func TestAnalyzerSilenceProducesZeroMagnitude(t *testing.T) {
	const (
		size       = 1024
		olaps      = 4
		sampleRate = 44100.0
		block      = 64
	)

	a := NewAnalyzer(size, olaps, sampleRate, window.Blackman)
	v := a.View()
	g := v.Geometry()

	silent := make([]float64, block)
	for n := 0; n < 4096/block; n++ {
		a.ComputeNextDataFrame(silent, block)
	}

	for r := 0; r < g.O; r++ {
		magn := v.MagnRow(r)
		freq := v.FreqRow(r)
		for k := 0; k < g.H; k++ {
			if magn[k] != 0 {
				t.Fatalf("row %d bin %d: magn = %v, want 0", r, k, magn[k])
			}
			want := g.BinFrequency(k)
			if math.Abs(freq[k]-want) > 1e-6 {
				t.Fatalf("row %d bin %d: freq = %v, want %v", r, k, freq[k], want)
			}
		}
	}
}

func TestAnalyzerSizeAndOlapsRoundToPowerOfTwo(t *testing.T) {
	a := NewAnalyzer(1000, 3, 44100, window.Hann)
	g := a.Geometry()
	if g.N != 1024 {
		t.Errorf("N = %d, want 1024", g.N)
	}
	if g.O != 4 {
		t.Errorf("O = %d, want 4", g.O)
	}
}

// TestAnalyzerOvercountCyclesThroughRows feeds exactly one hop's worth of
// samples per call; after O calls overcount must have wrapped back to 0.
func TestAnalyzerOvercountCyclesThroughRows(t *testing.T) {
	a := NewAnalyzer(256, 4, 44100, window.Hann)
	g := a.Geometry()

	in := make([]float64, g.P)
	for i := range in {
		in[i] = 0.1
	}

	for i := 0; i < g.O; i++ {
		a.ComputeNextDataFrame(in, g.P)
	}
	if a.overcount != 0 {
		t.Errorf("overcount = %d, want 0 after O hops", a.overcount)
	}
}

func TestAnalyzerPlayStopGatesHopAdvance(t *testing.T) {
	a := NewAnalyzer(256, 4, 44100, window.Hann)
	g := a.Geometry()
	a.Stop()

	in := make([]float64, g.N*2)
	for i := range in {
		in[i] = 0.1
	}
	a.ComputeNextDataFrame(in, len(in))

	if a.overcount != 0 {
		t.Errorf("overcount = %d, want 0: a stopped analyzer must not hop", a.overcount)
	}
}
