// SPDX-License-Identifier: MIT

// Package window fills coefficient tables for the window functions used by
// the phase-vocoder Analyzer and Synthesizer nodes. This is the gen_window
// primitive: callers pass an enumerated Kind, not library-specific options.
package window

import (
	"strings"

	"gonum.org/v1/gonum/dsp/window"

	"audio/internal/log"
)

// Kind enumerates the supported window functions.
type Kind int

const (
	Hann Kind = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Lanczos
	Nuttall
	Rectangular
)

// String returns the canonical lower-case name for the kind.
func (k Kind) String() string {
	switch k {
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case BartlettHann:
		return "bartletthann"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	case Rectangular:
		return "rectangular"
	default:
		return "unknown"
	}
}

// Parse converts a string name (case-insensitive) to a Kind. Returns Hann
// and false if the name is unrecognized.
func Parse(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, true
	case "hamming":
		return Hamming, true
	case "blackman":
		return Blackman, true
	case "blackmannuttall":
		return BlackmanNuttall, true
	case "bartletthann":
		return BartlettHann, true
	case "lanczos":
		return Lanczos, true
	case "nuttall":
		return Nuttall, true
	case "rectangular", "rect", "none":
		return Rectangular, true
	default:
		return Hann, false
	}
}

// Generate fills table (length N) with the coefficients for kind. table must
// be pre-allocated to the desired window length.
func Generate(table []float64, kind Kind) {
	for i := range table {
		table[i] = 1.0
	}

	switch kind {
	case Hann:
		window.Hann(table)
	case Hamming:
		window.Hamming(table)
	case Blackman:
		window.Blackman(table)
	case BlackmanNuttall:
		window.BlackmanNuttall(table)
	case BartlettHann:
		window.BartlettHann(table)
	case Lanczos:
		window.Lanczos(table)
	case Nuttall:
		window.Nuttall(table)
	case Rectangular:
		// Already all-ones.
	default:
		log.Warnf("window: unknown kind %d, defaulting to Hann", kind)
		window.Hann(table)
	}
}
