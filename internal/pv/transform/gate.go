// SPDX-License-Identifier: MIT
package transform

import (
	"math"

	"audio/internal/pv"
)

// Gate implements the Spectral Gate transformer (spec §4.4): bins below
// a dB threshold are attenuated by damp, bins at or above it pass
// through unchanged.
type Gate struct {
	threshDB Param
	damp     Param

	upstream  pv.View
	out       *pv.PVStream
	overcount int
}

// NewGate builds a Gate transformer consuming upstream.
func NewGate(upstream pv.View, threshDB, damp Param) *Gate {
	g := &Gate{threshDB: threshDB, damp: damp, upstream: upstream}
	g.out = pv.NewPVStream(upstream.Geometry())
	return g
}

// View exposes the transformer's output PVStream to downstream nodes.
func (g *Gate) View() pv.View { return g.out }

// Bind rewires the transformer's upstream input (spec §6 capability
// check).
func (g *Gate) Bind(input any) error {
	v, err := pv.AsView(input)
	if err != nil {
		return err
	}
	g.upstream = v
	g.out.Reallocate(v.Geometry())
	g.overcount = 0
	return nil
}

// ComputeNextDataFrame mirrors the upstream schedule for b samples and
// processes any fresh hop (spec §4.4).
func (g *Gate) ComputeNextDataFrame(b int) {
	if !g.out.Geometry().Equal(g.upstream.Geometry()) {
		g.out.Reallocate(g.upstream.Geometry())
		g.overcount = 0
	}

	g.out.SetBlockSize(b)
	geom := g.upstream.Geometry()

	for i := 0; i < b; i++ {
		c := g.upstream.Count(i)
		g.out.SetCount(i, c)

		if c == geom.N-1 {
			g.hop(i)
		}
	}
}

func (g *Gate) hop(sampleIndex int) {
	threshDB := g.threshDB.At(sampleIndex)
	damp := clamp01(g.damp.At(sampleIndex))
	thresh := math.Pow(10, threshDB/20)

	magnIn := g.upstream.MagnRow(g.overcount)
	freqIn := g.upstream.FreqRow(g.overcount)

	geom := g.upstream.Geometry()
	for k := 0; k < geom.H; k++ {
		m := magnIn[k]
		if m < thresh {
			m *= damp
		}
		g.out.SetMagn(g.overcount, k, m)
		g.out.SetFreq(g.overcount, k, freqIn[k])
	}

	g.overcount = (g.overcount + 1) % geom.O
}
