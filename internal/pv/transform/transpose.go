// SPDX-License-Identifier: MIT
package transform

import "audio/internal/pv"

// Transpose implements the Spectral Transpose transformer (spec §4.4): it
// remaps each source bin k to floor(k*t), accumulating magnitude and
// last-writer-wins on frequency for any bins two source bins collide on.
// Magnitude-weighted averaging on collision is a documented optional
// deviation (spec §9 Open Question 1) not taken here — last-writer-wins
// is preserved as the source behavior.
type Transpose struct {
	t Param

	upstream  pv.View
	out       *pv.PVStream
	overcount int
}

// NewTranspose builds a Transpose transformer consuming upstream, with
// factor t (scalar or audio-rate).
func NewTranspose(upstream pv.View, t Param) *Transpose {
	tr := &Transpose{t: t, upstream: upstream}
	tr.out = pv.NewPVStream(upstream.Geometry())
	return tr
}

// View exposes the transformer's output PVStream to downstream nodes.
func (tr *Transpose) View() pv.View { return tr.out }

// Bind rewires the transformer's upstream input (spec §6 capability
// check).
func (tr *Transpose) Bind(input any) error {
	v, err := pv.AsView(input)
	if err != nil {
		return err
	}
	tr.upstream = v
	tr.out.Reallocate(v.Geometry())
	tr.overcount = 0
	return nil
}

// ComputeNextDataFrame mirrors the upstream schedule for b samples and
// remaps any fresh hop (spec §4.4).
func (tr *Transpose) ComputeNextDataFrame(b int) {
	if !tr.out.Geometry().Equal(tr.upstream.Geometry()) {
		tr.out.Reallocate(tr.upstream.Geometry())
		tr.overcount = 0
	}

	tr.out.SetBlockSize(b)
	g := tr.upstream.Geometry()

	for i := 0; i < b; i++ {
		c := tr.upstream.Count(i)
		tr.out.SetCount(i, c)

		if c == g.N-1 {
			tr.hop(i)
		}
	}
}

func (tr *Transpose) hop(sampleIndex int) {
	t := tr.t.At(sampleIndex)

	tr.out.ZeroRow(tr.overcount)

	magnIn := tr.upstream.MagnRow(tr.overcount)
	freqIn := tr.upstream.FreqRow(tr.overcount)
	magnOut := tr.out.MagnRow(tr.overcount)

	g := tr.upstream.Geometry()
	for k := 0; k < g.H; k++ {
		kPrime := int(float64(k) * t)
		if kPrime >= g.H {
			continue
		}
		tr.out.SetMagn(tr.overcount, kPrime, magnOut[kPrime]+magnIn[k])
		tr.out.SetFreq(tr.overcount, kPrime, freqIn[k]*t)
	}

	tr.overcount = (tr.overcount + 1) % g.O
}
