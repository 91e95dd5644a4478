// SPDX-License-Identifier: MIT

// Package fft wraps gonum's real FFT into the Hermitian-split real-array
// packing the phase-vocoder Analyzer and Synthesizer expect: a length-N
// array where index 0 holds the DC real part, indices [1,N/2) hold the
// real parts of bins 1..N/2-1, and indices (N/2,N) hold the matching
// imaginary parts (mirrored: index N-k holds Im(bin k)). This is the
// realfft_split / inverse primitive named in the specification; the
// unpacking into separate magnitude/phase values is the Analyzer's job,
// not this package's.
package fft

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan holds a reusable FFT plan and scratch buffer for one FFT size.
type Plan struct {
	n       int
	fft     *fourier.FFT
	scratch []complex128 // length N/2+1
}

// NewPlan creates an FFT plan for real-valued sequences of length n. n must
// be a positive power of two; callers are responsible for rounding (spec
// §3) before constructing a Plan.
func NewPlan(n int) *Plan {
	return &Plan{
		n:       n,
		fft:     fourier.NewFFT(n),
		scratch: make([]complex128, n/2+1),
	}
}

// Size returns the FFT length this plan was built for.
func (p *Plan) Size() int {
	return p.n
}

// Forward computes the real-input FFT of src (length N, time domain) into
// dst (length N, split-Hermitian layout). src and dst must not alias.
func (p *Plan) Forward(dst, src []float64) error {
	if len(src) != p.n || len(dst) != p.n {
		return fmt.Errorf("fft: Forward expects length %d buffers, got src=%d dst=%d", p.n, len(src), len(dst))
	}

	p.fft.Coefficients(p.scratch, src)

	h := p.n / 2
	dst[0] = real(p.scratch[0])
	for k := 1; k < h; k++ {
		dst[k] = real(p.scratch[k])
		dst[p.n-k] = imag(p.scratch[k])
	}
	dst[h] = real(p.scratch[h])

	return nil
}

// Inverse computes the inverse FFT of src (length N, split-Hermitian
// layout) into dst (length N, time domain). src and dst must not alias.
func (p *Plan) Inverse(dst, src []float64) error {
	if len(src) != p.n || len(dst) != p.n {
		return fmt.Errorf("fft: Inverse expects length %d buffers, got src=%d dst=%d", p.n, len(src), len(dst))
	}

	h := p.n / 2
	p.scratch[0] = complex(src[0], 0)
	for k := 1; k < h; k++ {
		p.scratch[k] = complex(src[k], src[p.n-k])
	}
	p.scratch[h] = complex(src[h], 0)

	p.fft.Sequence(dst, p.scratch)

	norm := 1 / float64(p.n)
	for i := range dst {
		dst[i] *= norm
	}

	return nil
}
