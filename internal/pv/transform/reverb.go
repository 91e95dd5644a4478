// SPDX-License-Identifier: MIT
package transform

import "audio/internal/pv"

// Reverb implements the Spectral Reverb transformer (spec §4.4): a
// per-bin magnitude follower with instant attack and exponential release.
// The release coefficient shrinks with bin index, so higher bins decay
// faster; raising revtime toward 1 lengthens the release in every bin, and
// raising damp toward 1 reduces the extra decay of the higher bins.
type Reverb struct {
	revtime Param
	damp    Param

	upstream pv.View
	out      *pv.PVStream

	lmagn     []float64 // length H, persists across frames
	overcount int
}

// NewReverb builds a Reverb transformer consuming upstream.
func NewReverb(upstream pv.View, revtime, damp Param) *Reverb {
	r := &Reverb{revtime: revtime, damp: damp, upstream: upstream}
	g := upstream.Geometry()
	r.out = pv.NewPVStream(g)
	r.lmagn = make([]float64, g.H)
	return r
}

// View exposes the transformer's output PVStream to downstream nodes.
func (r *Reverb) View() pv.View { return r.out }

// Bind rewires the transformer's upstream input (spec §6 capability
// check).
func (r *Reverb) Bind(input any) error {
	v, err := pv.AsView(input)
	if err != nil {
		return err
	}
	r.upstream = v
	r.out.Reallocate(v.Geometry())
	r.lmagn = make([]float64, v.Geometry().H)
	r.overcount = 0
	return nil
}

// ComputeNextDataFrame mirrors the upstream schedule for b samples and
// processes any fresh hop (spec §4.4).
func (r *Reverb) ComputeNextDataFrame(b int) {
	if !r.out.Geometry().Equal(r.upstream.Geometry()) {
		r.out.Reallocate(r.upstream.Geometry())
		r.lmagn = make([]float64, r.upstream.Geometry().H)
		r.overcount = 0
	}

	r.out.SetBlockSize(b)
	g := r.upstream.Geometry()

	for i := 0; i < b; i++ {
		c := r.upstream.Count(i)
		r.out.SetCount(i, c)

		if c == g.N-1 {
			r.hop(i)
		}
	}
}

func (r *Reverb) hop(sampleIndex int) {
	revtime := clamp01(r.revtime.At(sampleIndex))
	damp := clamp01(r.damp.At(sampleIndex))

	rc := 0.75 + 0.25*revtime
	d := 0.997 + 0.003*damp

	magnIn := r.upstream.MagnRow(r.overcount)
	freqIn := r.upstream.FreqRow(r.overcount)

	g := r.upstream.Geometry()
	amp := 1.0
	for k := 0; k < g.H; k++ {
		m := magnIn[k]
		var out float64
		if m > r.lmagn[k] {
			out = m
		} else {
			out = m + (r.lmagn[k]-m)*rc*amp
		}
		r.lmagn[k] = out

		r.out.SetMagn(r.overcount, k, out)
		r.out.SetFreq(r.overcount, k, freqIn[k])

		amp *= d
	}

	r.overcount = (r.overcount + 1) % g.O
}
