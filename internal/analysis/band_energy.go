// SPDX-License-Identifier: MIT
package analysis

import (
	"log"
	"math"

	"audio/internal/pv"
	"audio/internal/transport"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name    string
	LowHz   float64
	HighHz  float64
	Energy  float64 // Holds the calculated energy for the current frame
	numBins int     // Internal counter for normalization
}

// BandEnergyProcessor calculates per-band spectral energy from a
// phase-vocoder View. It tracks its own shadow round-robin cursor rather
// than reading the producer's overcount (spec §9: overcount is never
// exposed across nodes), advancing it whenever it observes a fresh hop
// via Count(i)==N-1, the same signal Transformers use.
type BandEnergyProcessor struct {
	transport transport.Transport
	bands     []*FrequencyBand
	view      pv.View
	overcount int
}

// NewBandEnergyProcessor creates a new processor for calculating band
// energy from the given PV View.
func NewBandEnergyProcessor(t transport.Transport, view pv.View) *BandEnergyProcessor {
	if view == nil {
		log.Panic("BandEnergyProcessor requires a non-nil pv.View")
	}
	nyquist := view.Geometry().BinFrequency(view.Geometry().H)
	bands := []*FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: nyquist},
	}
	log.Printf("Analysis: Initializing BandEnergyProcessor with %d bands.", len(bands))
	return &BandEnergyProcessor{
		transport: t,
		bands:     bands,
		view:      view,
	}
}

// Observe scans a block for hop boundaries and recomputes band energy
// from the most recently completed spectral frame whenever one occurs.
func (p *BandEnergyProcessor) Observe(b int) {
	g := p.view.Geometry()
	for i := 0; i < b; i++ {
		if p.view.Count(i) == g.N-1 {
			p.process()
			p.overcount = (p.overcount + 1) % g.O
		}
	}
}

// process calculates band energies from the current spectral frame.
func (p *BandEnergyProcessor) process() {
	if p.transport == nil {
		return
	}

	g := p.view.Geometry()
	magnitudes := p.view.MagnRow(p.overcount)
	if magnitudes == nil {
		return
	}

	for _, band := range p.bands {
		band.Energy = 0
		band.numBins = 0
	}

	for i := 0; i < len(magnitudes); i++ {
		freq := g.BinFrequency(i)

		for _, band := range p.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				band.Energy += magnitudes[i] * magnitudes[i]
				band.numBins++
				break
			}
		}
	}

	bandData := map[string]any{"type": "band_energy"}
	for _, band := range p.bands {
		avgBandEnergy := 0.0
		if band.numBins > 0 {
			avgBandEnergy = band.Energy / float64(band.numBins)
		}
		scaledValue := math.Sqrt(avgBandEnergy) * 50.0
		bandData[band.Name] = math.Min(1.0, scaledValue)
	}

	if err := p.transport.Send(bandData); err != nil {
		log.Printf("BandEnergyProcessor: Error sending band energy data: %v", err)
	}
}
