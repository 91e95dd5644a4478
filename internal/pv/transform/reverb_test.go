// SPDX-License-Identifier: MIT
package transform

import (
	"math"
	"testing"

	"audio/internal/pv"
)

// setHopMagnitude writes a known magnitude into every bin of one upstream
// row and arms the schedule so that driving ComputeNextDataFrame(geom.N)
// fires exactly one hop.
func setHopMagnitude(upstream *pv.PVStream, geom pv.Geometry, row int, magn float64) {
	for k := 0; k < geom.H; k++ {
		upstream.SetMagn(row, k, magn)
		upstream.SetFreq(row, k, 0)
	}
	for i := 0; i < geom.N; i++ {
		upstream.SetCount(i, i)
	}
}

// TestReverbDecayMatchesPerHopAndPerBinFactors grounds the Reverb's
// release math: revtime=0 gives the decay coefficient its minimum
// (rc=0.75); damp=0 gives the per-bin damping its harshest value
// (d=0.997, matching the original algorithm's mapping of damp=0 to that
// extreme rather than damp=1). A sudden drop to silence after an
// instantaneous attack should release by exactly rc*d^k in the following
// hop.
func TestReverbDecayMatchesPerHopAndPerBinFactors(t *testing.T) {
	geom := pv.NewGeometry(16, 2, 44100) // H=8
	upstream := pv.NewPVStream(geom)
	upstream.SetBlockSize(geom.N)

	r := NewReverb(upstream, Scalar(0), Scalar(0))

	setHopMagnitude(upstream, geom, 0, 1.0)
	r.ComputeNextDataFrame(geom.N)
	for k := 0; k < geom.H; k++ {
		if got := r.View().MagnRow(0)[k]; got != 1.0 {
			t.Fatalf("attack hop bin %d = %v, want 1.0 (instant attack)", k, got)
		}
	}

	setHopMagnitude(upstream, geom, 1, 0.0)
	r.ComputeNextDataFrame(geom.N)

	const (
		rc = 0.75
		d  = 0.997
	)
	for k := 0; k < geom.H; k++ {
		want := rc * math.Pow(d, float64(k))
		got := r.View().MagnRow(1)[k]
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("release hop bin %d = %v, want %v", k, got, want)
		}
	}
}

// TestReverbMonotoneAttackTracksInputExactly covers the attack invariant
// in isolation across several rising frames: l_magn must equal magn_in at
// every frame as long as the input is non-decreasing.
func TestReverbMonotoneAttackTracksInputExactly(t *testing.T) {
	geom := pv.NewGeometry(16, 2, 44100) // H=8
	upstream := pv.NewPVStream(geom)
	upstream.SetBlockSize(geom.N)

	r := NewReverb(upstream, Scalar(1), Scalar(1))

	rising := []float64{0.1, 0.4, 0.9, 0.9, 1.5}
	for i, m := range rising {
		row := i % geom.O
		setHopMagnitude(upstream, geom, row, m)
		r.ComputeNextDataFrame(geom.N)
		for k := 0; k < geom.H; k++ {
			if got := r.View().MagnRow(row)[k]; got != m {
				t.Fatalf("frame %d bin %d = %v, want %v", i, k, got, m)
			}
		}
	}
}
