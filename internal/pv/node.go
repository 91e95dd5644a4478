// SPDX-License-Identifier: MIT
package pv

// Node is the play/stop capability every PV graph member satisfies (spec
// §6: "a play/stop pair that gates whether the node runs in a given
// block"). Each concrete node additionally exposes its own
// ComputeNextDataFrame-shaped method — the signature differs by node kind
// (an Analyzer consumes a time-domain buffer, a Synthesizer produces one,
// a Transformer takes neither), so that entry point is not part of this
// shared interface.
type Node interface {
	Play()
	Stop()
	Playing() bool
}
