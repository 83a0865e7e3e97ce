// Package odds computes bust probabilities and expected values for
// Flip 7 rounds from exact deck combinatorics.
//
// The main type is Engine, which is bound to a deck.Composition at
// construction and evaluates observation snapshots against it. Every
// call recomputes from the full snapshot; the engine holds no mutable
// state and is safe for concurrent use.
//
// # Basic Usage
//
// Evaluate the player's current line against what has been seen:
//
//	engine, err := odds.NewEngine(deck.Standard())
//	numbers, _ := odds.NewNumberSet(3, 7, 11)
//	decision, err := engine.Compute(odds.RoundState{Numbers: numbers}, seen)
//	// decision.BustProbability, decision.ExpectedBank, decision.Recommendation
//
// When only the hand's number values and banked score are known, the
// minimal entry point skips modifier state:
//
//	result, err := engine.ComputeRound(seen, []int{3, 7, 11}, 21)
//
// # Exactness
//
// All probabilities are ratios of live card counts over the remaining
// deck; nothing is sampled. The Flip Three estimate enumerates the
// complete three-draw tree over the remaining multiset. An observation
// that is impossible for the configured deck surfaces as
// deck.InvalidStateError rather than being corrected silently.
package odds
