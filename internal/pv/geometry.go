// SPDX-License-Identifier: MIT

// Package pv implements the real-time phase-vocoder pipeline: a shared
// spectral frame buffer (PVStream) produced by an Analyzer, optionally
// reshaped by a chain of Transformers, and consumed by a Synthesizer.
package pv

import (
	"math"

	"audio/internal/log"
	"audio/pkg/bitint"
)

// Geometry holds the FFT size, overlap count, and every constant derived
// from them (spec §3). Geometry is immutable once constructed; changing N
// or O means building a new Geometry and reallocating the owning node's
// buffers (spec §3 Lifecycle).
type Geometry struct {
	N  int // FFT size, power of two.
	O  int // Overlap count, power of two.
	H  int // Half size, N/2.
	P  int // Hop size, N/O.
	L  int // Input latency, N-P.
	sr float64

	factor  float64 // sr / (P * 2*pi), analysis true-frequency scale.
	scaleA  float64 // 2*pi * P / N, analysis bin-center phase advance.
	factorS float64 // P * 2*pi / sr, synthesis phase-per-Hz scale.
	scaleS  float64 // sr / N, synthesis bin-center frequency.
	ampscl  float64 // 1/sqrt(O), overlap-add amplitude normalization.
}

// NewGeometry builds a Geometry for the requested size/overlap/sample
// rate. Non-power-of-two size or olaps are rounded up to the next power
// of two, with a warning logged (spec §3, §7a).
func NewGeometry(size, olaps int, sampleRate float64) Geometry {
	n := bitint.NextPowerOfTwo(size)
	if n != size {
		log.Warnf("pv: fft size %d is not a power of two, rounding up to %d", size, n)
	}

	o := bitint.NextPowerOfTwo(olaps)
	if o != olaps {
		log.Warnf("pv: overlap count %d is not a power of two, rounding up to %d", olaps, o)
	}

	h := n / 2
	p := n / o
	l := n - p

	return Geometry{
		N:  n,
		O:  o,
		H:  h,
		P:  p,
		L:  l,
		sr: sampleRate,

		factor:  sampleRate / (float64(p) * 2 * math.Pi),
		scaleA:  2 * math.Pi * float64(p) / float64(n),
		factorS: float64(p) * 2 * math.Pi / sampleRate,
		scaleS:  sampleRate / float64(n),
		ampscl:  1 / math.Sqrt(float64(o)),
	}
}

// SampleRate returns the sample rate this geometry was built for.
func (g Geometry) SampleRate() float64 { return g.sr }

// BinFrequency returns the center frequency in Hz of analysis bin k.
func (g Geometry) BinFrequency(k int) float64 { return float64(k) * g.scaleS }

// Equal reports whether two geometries describe the same N, O and sample
// rate — the condition under which a consumer must reallocate (spec §3
// Lifecycle, point c).
func (g Geometry) Equal(other Geometry) bool {
	return g.N == other.N && g.O == other.O && g.sr == other.sr
}
