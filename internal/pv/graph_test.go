// SPDX-License-Identifier: MIT
package pv

import (
	"testing"

	"audio/internal/window"
)

// passthroughStage is a minimal transformStage used to exercise Graph's
// wiring without pulling in a concrete transform package implementation
// (which would need to import this package in turn).
type passthroughStage struct {
	upstream View
}

func (p *passthroughStage) View() View              { return p.upstream }
func (p *passthroughStage) ComputeNextDataFrame(int) {}

func TestGraphDrivesChainWithoutPanicking(t *testing.T) {
	a := NewAnalyzer(256, 4, 44100, window.Hann)
	stage := &passthroughStage{upstream: a.View()}
	s := NewSynthesizer(stage.View(), window.Hann)

	graph := NewGraph(a, s)
	graph.AddTransformer(stage)

	if err := graph.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if nodes := graph.Nodes(); len(nodes) != 2 {
		t.Fatalf("Nodes() returned %d nodes, want 2 (transformers excluded)", len(nodes))
	}

	in := make([]float64, 64)
	out := make([]float64, 64)
	for i := range in {
		in[i] = 0.1
	}
	for i := 0; i < 100; i++ {
		graph.ComputeNextDataFrame(in, out, 64)
	}
}

func TestGraphNodesPlayStopGatesBothEnds(t *testing.T) {
	a := NewAnalyzer(256, 4, 44100, window.Hann)
	s := NewSynthesizer(a.View(), window.Hann)
	graph := NewGraph(a, s)

	for _, n := range graph.Nodes() {
		n.Stop()
	}
	if a.Playing() || s.Playing() {
		t.Fatal("expected both nodes stopped")
	}

	for _, n := range graph.Nodes() {
		n.Play()
	}
	if !a.Playing() || !s.Playing() {
		t.Fatal("expected both nodes playing")
	}
}

func TestGraphValidateRejectsNonView(t *testing.T) {
	a := NewAnalyzer(256, 4, 44100, window.Hann)
	s := NewSynthesizer(a.View(), window.Hann)
	graph := NewGraph(a, s)
	graph.AddTransformer(&passthroughStage{upstream: nil})

	if err := graph.Validate(); err == nil {
		t.Error("Validate() with a nil upstream view should fail")
	}
}
