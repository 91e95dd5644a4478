// SPDX-License-Identifier: MIT
package transform

import (
	"math"
	"testing"

	"audio/internal/pv"
	"audio/internal/window"
	"audio/pkg/utils"
)

// TestTransposeSingleBinMapsToScaledBin exercises the transpose linearity
// invariant directly at the spectral level: one nonzero source bin maps
// to floor(k*t) with magnitude preserved and frequency scaled by t.
func TestTransposeSingleBinMapsToScaledBin(t *testing.T) {
	geom := pv.NewGeometry(16, 2, 44100) // H=8, P=8
	upstream := pv.NewPVStream(geom)
	upstream.SetBlockSize(geom.N)

	const (
		k     = 2
		scale = 2.0
	)
	upstream.SetMagn(0, k, 3.5)
	upstream.SetFreq(0, k, 100.0)
	for i := 0; i < geom.N; i++ {
		upstream.SetCount(i, i)
	}

	tr := NewTranspose(upstream, Scalar(scale))
	tr.ComputeNextDataFrame(geom.N)

	out := tr.View()
	wantBin := int(float64(k) * scale)
	magn := out.MagnRow(0)
	for bin := 0; bin < geom.H; bin++ {
		if bin == wantBin {
			if magn[bin] != 3.5 {
				t.Errorf("magn[%d] = %v, want 3.5", bin, magn[bin])
			}
			continue
		}
		if magn[bin] != 0 {
			t.Errorf("magn[%d] = %v, want 0", bin, magn[bin])
		}
	}
	if got := out.FreqRow(0)[wantBin]; got != 100.0*scale {
		t.Errorf("freq[%d] = %v, want %v", wantBin, got, 100.0*scale)
	}
}

// TestTransposeBinBeyondNyquistDropped covers the edge case where
// floor(k*t) lands at or past H: the output row must be entirely zero.
func TestTransposeBinBeyondNyquistDropped(t *testing.T) {
	geom := pv.NewGeometry(16, 2, 44100) // H=8
	upstream := pv.NewPVStream(geom)
	upstream.SetBlockSize(geom.N)

	const k = 7 // floor(7*2) = 14 >= H(8)
	upstream.SetMagn(0, k, 9.0)
	upstream.SetFreq(0, k, 50.0)
	for i := 0; i < geom.N; i++ {
		upstream.SetCount(i, i)
	}

	tr := NewTranspose(upstream, Scalar(2.0))
	tr.ComputeNextDataFrame(geom.N)

	for bin, v := range tr.View().MagnRow(0) {
		if v != 0 {
			t.Errorf("magn[%d] = %v, want 0 (bin dropped past Nyquist)", bin, v)
		}
	}
}

// TestTransposeAccumulatesCollidingBins covers the "accumulate in
// magnitude, last-writer-wins in frequency" collision rule: two source
// bins mapping to the same destination sum their magnitudes.
func TestTransposeAccumulatesCollidingBins(t *testing.T) {
	geom := pv.NewGeometry(16, 2, 44100) // H=8
	upstream := pv.NewPVStream(geom)
	upstream.SetBlockSize(geom.N)

	// t=0.5 maps both bin 4 and bin 5 to destination bin 2.
	upstream.SetMagn(0, 4, 1.0)
	upstream.SetFreq(0, 4, 40.0)
	upstream.SetMagn(0, 5, 2.0)
	upstream.SetFreq(0, 5, 50.0)
	for i := 0; i < geom.N; i++ {
		upstream.SetCount(i, i)
	}

	tr := NewTranspose(upstream, Scalar(0.5))
	tr.ComputeNextDataFrame(geom.N)

	out := tr.View()
	if got := out.MagnRow(0)[2]; got != 3.0 {
		t.Errorf("magn[2] = %v, want 3.0 (accumulated)", got)
	}
	if got := out.FreqRow(0)[2]; got != 25.0 {
		t.Errorf("freq[2] = %v, want 25.0 (last writer wins: bin 5's freq*t)", got)
	}
}

// TestTransposeDoublesFrequency drives a full Analyzer->Transpose chain
// with a 500 Hz tone and t=2.0; after warm-up the dominant spectral bin
// should sit within one bin of 1000 Hz.
func TestTransposeDoublesFrequency(t *testing.T) {
	const (
		size       = 1024
		olaps      = 4
		sampleRate = 44100.0
		block      = 64
		sourceHz   = 500.0
		scale      = 2.0
		warmup     = 4096
	)

	a := pv.NewAnalyzer(size, olaps, sampleRate, window.Hann)
	tr := NewTranspose(a.View(), Scalar(scale))
	g := a.Geometry()

	in := make([]float64, block)
	for start := 0; start < warmup; start += block {
		for i := range in {
			n := start + i
			in[i] = math.Sin(2 * math.Pi * sourceHz * float64(n) / sampleRate)
		}
		a.ComputeNextDataFrame(in, block)
		tr.ComputeNextDataFrame(block)
	}

	lastRow := (tr.overcount - 1 + g.O) % g.O
	magn := tr.View().MagnRow(lastRow)
	peak := utils.FindPeakBin(magn, 0, g.H-1)

	gotFreq := g.BinFrequency(peak)
	wantFreq := sourceHz * scale
	binWidth := g.BinFrequency(1)
	if math.Abs(gotFreq-wantFreq) > binWidth {
		t.Errorf("dominant bin frequency = %.2f Hz, want %.2f Hz +/- %.2f Hz", gotFreq, wantFreq, binWidth)
	}
}
