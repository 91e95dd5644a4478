// SPDX-License-Identifier: MIT
package pv

import "fmt"

// transformStage is the shape every Transformer in internal/pv/transform
// exposes: a View for downstream wiring and a per-block hop-mirroring
// entry point (spec §4.4). Defined here rather than imported to avoid a
// cycle between pv and pv/transform.
type transformStage interface {
	View() View
	ComputeNextDataFrame(b int)
}

// Graph wires one Analyzer through zero or more Transformers into one
// Synthesizer, and drives them in the topological order spec §5
// requires: analyzer completes its writes for a block before any
// downstream stage reads them, transformers run in source order, the
// synthesizer runs last.
type Graph struct {
	analyzer     *Analyzer
	transformers []transformStage
	synthesizer  *Synthesizer
}

// NewGraph builds a Graph with no transformers. Use AddTransformer to
// insert stages between the Analyzer and Synthesizer; Bind the
// Synthesizer's upstream afterward if transformers are added after
// construction.
func NewGraph(analyzer *Analyzer, synthesizer *Synthesizer) *Graph {
	return &Graph{analyzer: analyzer, synthesizer: synthesizer}
}

// AddTransformer appends a transformer to the chain. The caller is
// responsible for constructing it against the current tail view (either
// the analyzer's or the previous transformer's) and for rebinding the
// synthesizer to the new tail afterward.
func (g *Graph) AddTransformer(t transformStage) {
	g.transformers = append(g.transformers, t)
}

// Nodes returns every node in topological order for callers that need
// uniform Play/Stop access. Transformers are not Nodes (spec §4.4 gives
// them no play/stop gate of their own; they always mirror whatever
// schedule their upstream publishes).
func (g *Graph) Nodes() []Node {
	return []Node{g.analyzer, g.synthesizer}
}

// ComputeNextDataFrame drives one full pass of the graph for a block of
// b samples: analyzer reads in, transformers mirror and reshape, and the
// synthesizer writes b samples into out.
func (g *Graph) ComputeNextDataFrame(in, out []float64, b int) {
	g.analyzer.ComputeNextDataFrame(in, b)
	for _, t := range g.transformers {
		t.ComputeNextDataFrame(b)
	}
	g.synthesizer.ComputeNextDataFrame(out, b)
}

// Validate performs the host-side capability check of spec §6 across
// the whole chain, returning ErrNotAPVStream wrapped with the offending
// stage's position if any link does not expose a PVStream view.
func (g *Graph) Validate() error {
	var upstream View = g.analyzer.View()
	for i, t := range g.transformers {
		if _, err := AsView(t.View()); err != nil {
			return fmt.Errorf("pv.Graph: transformer %d: %w", i, err)
		}
		upstream = t.View()
	}
	if _, err := AsView(upstream); err != nil {
		return fmt.Errorf("pv.Graph: synthesizer input: %w", err)
	}
	return nil
}
