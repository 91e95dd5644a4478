// SPDX-License-Identifier: MIT
package pv

import "fmt"

// View is the read-only capability a PVStream exposes to consumers (spec
// §4.1, §9: "a capability-style handle, not inheritance"). Any spectral
// consumer (Transformer, Synthesizer) is wired against a View, never
// against the concrete *PVStream the producer owns — that keeps the
// producer the sole writer of its own tables.
type View interface {
	Geometry() Geometry
	FFTSize() int
	Olaps() int
	BlockSize() int
	MagnRow(row int) []float64
	FreqRow(row int) []float64
	Count(i int) int
}

// ErrNotAPVStream is returned when a node is wired to an upstream value
// that does not implement View — the "type mismatch" error class of spec
// §7b. The host graph surfaces this and stops, it is not recovered from
// within the audio path.
var ErrNotAPVStream = fmt.Errorf("pv: upstream input does not expose a PVStream view")

// AsView performs the host-side capability check named in spec §6: every
// spectral consumer verifies its input has a PVStream handle before
// wiring, rather than checking a concrete type name.
func AsView(input any) (View, error) {
	v, ok := input.(View)
	if !ok {
		return nil, ErrNotAPVStream
	}
	return v, nil
}

// PVStream is the shared spectral channel: one producer owns it and
// writes magn/freq/count; any number of consumers hold a View onto it.
// Rows are a round-robin ring of length O, each holding H bins.
type PVStream struct {
	geom  Geometry
	magn  [][]float64 // [O][H]
	freq  [][]float64 // [O][H]
	count []int       // length B, the host's current block size
}

// NewPVStream allocates a PVStream for the given geometry. Buffers are
// zeroed, matching the "reallocation zeroes all buffers" rule of spec §3.
func NewPVStream(geom Geometry) *PVStream {
	s := &PVStream{}
	s.Reallocate(geom)
	return s
}

// Reallocate replaces the magn/freq tables for a new geometry, zeroing
// them. Invoked whenever a producer's N or O changes (spec §3 Lifecycle).
func (s *PVStream) Reallocate(geom Geometry) {
	s.geom = geom
	s.magn = make([][]float64, geom.O)
	s.freq = make([][]float64, geom.O)
	for i := range s.magn {
		s.magn[i] = make([]float64, geom.H)
		s.freq[i] = make([]float64, geom.H)
	}
}

// SetBlockSize (re)allocates the per-sample schedule map for a host
// callback block of b samples. Called once at the start of each block.
func (s *PVStream) SetBlockSize(b int) {
	if cap(s.count) >= b {
		s.count = s.count[:b]
		return
	}
	s.count = make([]int, b)
}

// Geometry returns the stream's current geometry.
func (s *PVStream) Geometry() Geometry { return s.geom }

// FFTSize implements View.
func (s *PVStream) FFTSize() int { return s.geom.N }

// Olaps implements View.
func (s *PVStream) Olaps() int { return s.geom.O }

// BlockSize implements View.
func (s *PVStream) BlockSize() int { return len(s.count) }

// MagnRow implements View. The returned slice is a borrowed view into the
// producer's table; consumers must not mutate it.
func (s *PVStream) MagnRow(row int) []float64 { return s.magn[row] }

// FreqRow implements View.
func (s *PVStream) FreqRow(row int) []float64 { return s.freq[row] }

// Count implements View.
func (s *PVStream) Count(i int) int { return s.count[i] }

// SetMagn is a producer-only write into the magnitude ring.
func (s *PVStream) SetMagn(row, bin int, v float64) { s.magn[row][bin] = v }

// SetFreq is a producer-only write into the frequency ring.
func (s *PVStream) SetFreq(row, bin int, v float64) { s.freq[row][bin] = v }

// SetCount publishes the schedule value for sample i. Transformers mirror
// their upstream's count through this same method (spec §4.1, §4.4): "copy
// count[i] through" means calling SetCount with the upstream's Count(i).
func (s *PVStream) SetCount(i, v int) { s.count[i] = v }

// ZeroRow clears one magnitude/frequency row, used by transformers before
// accumulating into it (spec §4.4 Transpose: "zero the output row").
func (s *PVStream) ZeroRow(row int) {
	for i := range s.magn[row] {
		s.magn[row][i] = 0
	}
	for i := range s.freq[row] {
		s.freq[row][i] = 0
	}
}

var _ View = (*PVStream)(nil)
