// SPDX-License-Identifier: MIT
package pv

import (
	"math"
	"sort"
	"time"

	"audio/internal/log"
	"audio/internal/window"
)

// AutoTune is an optional controller that adjusts an Analyzer's size,
// overlap count and window in response to input energy. It is not part
// of the PV core algorithm (spec §4.2 takes N/O/wintype as given
// mutators); it is an auxiliary driver of those same mutators, kept
// separate so the Analyzer itself stays free of adaptation policy.
type AutoTune struct {
	analyzer *Analyzer

	maxSize          int
	energyThreshold  float64
	adaptationPeriod time.Duration
	sizeCooldown     time.Duration

	lastAdaptation time.Time
	lastSizeChange time.Time

	calibrating   bool
	energySamples []float64
}

// NewAutoTune builds a controller for analyzer, starting in a
// calibration phase that determines the initial energy threshold from
// the first 30 blocks it observes.
func NewAutoTune(analyzer *Analyzer) *AutoTune {
	log.Infof("pv.AutoTune: starting calibration phase")
	return &AutoTune{
		analyzer:         analyzer,
		maxSize:          4096,
		energyThreshold:  0.01,
		adaptationPeriod: 500 * time.Millisecond,
		sizeCooldown:     3 * time.Second,
		calibrating:      true,
		energySamples:    make([]float64, 0, 30),
	}
}

// Observe feeds one block of time-domain input through the calibration
// and adaptation logic. It is a no-op between adaptation periods and
// makes no allocation on that fast path.
func (a *AutoTune) Observe(block []float64) {
	energy := rms(block)

	if a.calibrating {
		a.calibrate(energy)
		return
	}

	if time.Since(a.lastAdaptation) < a.adaptationPeriod {
		return
	}

	changed := a.adaptWindow(block)
	changed = a.adaptSize(energy) || changed

	if changed {
		a.lastAdaptation = time.Now()
	}
}

func rms(block []float64) float64 {
	var sum float64
	for _, s := range block {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(block)))
}

// calibrate collects 30 energy samples and sets the threshold to twice
// their 25th percentile, matching the teacher's calibration heuristic.
func (a *AutoTune) calibrate(energy float64) {
	a.energySamples = append(a.energySamples, energy)
	if len(a.energySamples) < 30 {
		return
	}

	sort.Float64s(a.energySamples)
	idx := len(a.energySamples) / 4
	a.energyThreshold = a.energySamples[idx] * 2
	log.Infof("pv.AutoTune: calibrated energy threshold to %.6f", a.energyThreshold)

	a.energySamples = nil
	a.calibrating = false
}

// adaptWindow picks a window shape from the current spectral balance of
// the analyzer's most recent frame.
func (a *AutoTune) adaptWindow(block []float64) bool {
	view := a.analyzer.View()
	h := view.Geometry().H
	if h == 0 {
		return false
	}

	row := view.MagnRow(a.lastRow())
	midBound := h / 3
	highBound := (h * 2) / 3

	var low, mid, high float64
	for k, m := range row {
		switch {
		case k < midBound:
			low += m
		case k < highBound:
			mid += m
		default:
			high += m
		}
	}

	current := a.analyzer.wintype
	next := current
	switch {
	case high > low*2 && high > mid*2:
		next = window.Blackman
	case low > high*2 && low > mid*1.5:
		next = window.Hamming
	case mid > low && mid > high:
		next = window.Hann
	}

	if next == current {
		return false
	}
	a.analyzer.SetWindow(next)
	return true
}

// adaptSize grows or shrinks the FFT size based on how far the current
// energy sits from the calibrated threshold, respecting a cooldown so
// consecutive loud or quiet blocks do not thrash the geometry.
func (a *AutoTune) adaptSize(energy float64) bool {
	if time.Since(a.lastSizeChange) <= a.sizeCooldown {
		return false
	}

	ratio := energy / a.energyThreshold
	size := a.analyzer.Geometry().N

	switch {
	case ratio > 5.0 && size > 1024:
		a.analyzer.SetSize(size / 2)
	case ratio < 0.3 && size < a.maxSize:
		a.analyzer.SetSize(size * 2)
	default:
		return false
	}

	a.lastSizeChange = time.Now()
	log.Infof("pv.AutoTune: resized analyzer to N=%d (energy ratio %.2f)", a.analyzer.Geometry().N, ratio)
	return true
}

// lastRow returns the ring row the analyzer most recently wrote.
// AutoTune lives in the same package as Analyzer and reads its
// overcount directly; spec §9's "overcount never exposed across nodes"
// rule governs the public View/Node surface, not an in-package helper.
func (a *AutoTune) lastRow() int {
	o := a.analyzer.geom.O
	return (a.analyzer.overcount - 1 + o) % o
}
