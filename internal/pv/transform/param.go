// SPDX-License-Identifier: MIT

// Package transform implements the spectral-to-spectral Transformer
// nodes: Transpose, Reverb, and Gate (spec §4.4). All three share the
// audio-rate-vs-scalar parameter dispatch described in spec §5.
package transform

// Param is a transformer parameter that is either a fixed scalar or an
// audio-rate signal (one value per sample in the current block). At checks
// which of the two shapes the Param has on every call; the transformers
// have a single process function and do not select per-shape variants.
type Param struct {
	scalar    float64
	audioRate []float64
}

// Scalar builds a constant Param.
func Scalar(v float64) Param { return Param{scalar: v} }

// AudioRate builds a Param driven by a per-sample signal. signal must
// cover at least the block length the Param will be read over.
func AudioRate(signal []float64) Param { return Param{audioRate: signal} }

// IsAudioRate reports whether this Param varies per sample.
func (p Param) IsAudioRate() bool { return p.audioRate != nil }

// At returns the parameter's value for sample index i. For a scalar Param,
// i is ignored.
func (p Param) At(i int) float64 {
	if p.audioRate != nil {
		return p.audioRate[i]
	}
	return p.scalar
}

// clamp01 restricts v to [0,1], used by Reverb and Gate's damp parameters.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
