package odds

import (
	"errors"
	"fmt"

	"github.com/lox/flip7odds/internal/deck"
)

// ErrDeckExhausted is returned when every card has been observed: with
// nothing left to draw there is no next-card probability to compute.
var ErrDeckExhausted = errors.New("deck exhausted: no cards remaining")

// Recommendation says whether one more draw is worth taking.
type Recommendation string

const (
	Hit     Recommendation = "hit"
	Stay    Recommendation = "stay"
	Neutral Recommendation = "neutral"
)

// recommendationDeadZone is the expected-value margin, in points, inside
// which hitting and staying are called even.
const recommendationDeadZone = 0.01

// Note flags a state condition that shaped the numbers.
type Note string

const (
	NoteFlipSeven    Note = "flip7_bonus"
	NoteSecondChance Note = "second_chance_held"
	NoteTimesTwo     Note = "x2_held"
)

// KindOutcome is one row of the per-kind breakdown: the chance the next
// draw is this kind and its contribution to the expected value.
type KindOutcome struct {
	Kind         deck.Kind
	Probability  float64
	Contribution float64
}

// Result holds the single-draw numbers for one observation snapshot.
type Result struct {
	// BustProbability is the chance the next draw busts the line.
	BustProbability float64

	// ExpectedValue is the expected change in banked points from taking
	// exactly one more card, relative to stopping now. Negative means
	// drawing costs points on average.
	ExpectedValue float64

	// Breakdown lists every kind with cards remaining, in kind order.
	// The probabilities sum to 1.
	Breakdown []KindOutcome
}

// FlipThreeEstimate prices the three forced draws of a Flip Three card.
type FlipThreeEstimate struct {
	BustProbability float64
	ExpectedBank    float64
}

// Decision is the full evaluation of a round state: the single-draw
// Result plus banked values, the Flip Three estimate and the
// hit-or-stay call.
type Decision struct {
	Result

	// Bank is the points banked by stopping now.
	Bank int

	// ExpectedBank is the expected banked points after exactly one more
	// draw and then stopping.
	ExpectedBank float64

	FlipThree      FlipThreeEstimate
	Recommendation Recommendation
	Notes          []Note
}

// Engine computes bust probabilities and expected values over a fixed
// deck composition. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	comp *deck.Composition
}

// NewEngine validates the composition and returns an engine bound to it.
func NewEngine(comp *deck.Composition) (*Engine, error) {
	if comp == nil || comp.Total() == 0 {
		return nil, fmt.Errorf("empty deck composition")
	}
	for _, k := range comp.Kinds() {
		if !k.IsNumber() && !k.IsAction() && !k.IsModifier() {
			return nil, fmt.Errorf("no score rule for kind %s", k)
		}
	}
	return &Engine{comp: comp}, nil
}

// Composition returns the deck table the engine was built with.
func (e *Engine) Composition() *deck.Composition {
	return e.comp
}

// Compute evaluates a round state against the observed counts. The
// Decision is freshly built per call; identical snapshots produce
// identical results.
func (e *Engine) Compute(state RoundState, seen deck.Seen) (*Decision, error) {
	rem, err := e.remainingAfter(seen)
	if err != nil {
		return nil, err
	}
	if rem.total == 0 {
		return nil, ErrDeckExhausted
	}

	base := float64(state.BankWithBonus())
	res := e.computeDraw(state, rem, base)

	dec := &Decision{
		Result:       *res,
		Bank:         state.Bank(),
		ExpectedBank: base + res.ExpectedValue,
		FlipThree:    e.flipThree(state, rem),
	}

	switch {
	case res.ExpectedValue > recommendationDeadZone:
		dec.Recommendation = Hit
	case res.ExpectedValue < -recommendationDeadZone:
		dec.Recommendation = Stay
	default:
		dec.Recommendation = Neutral
	}

	if state.FlipSeven() {
		dec.Notes = append(dec.Notes, NoteFlipSeven)
	}
	if state.SecondChance {
		dec.Notes = append(dec.Notes, NoteSecondChance)
	}
	if state.TimesTwo {
		dec.Notes = append(dec.Notes, NoteTimesTwo)
	}

	return dec, nil
}

// ComputeRound is the minimal entry point used when only the hand's
// number values and banked score are known. Bust outcomes lose the
// caller's handScore; gains derive from the hand values alone.
func (e *Engine) ComputeRound(seen deck.Seen, handValues []int, handScore float64) (*Result, error) {
	numbers, err := NewNumberSet(handValues...)
	if err != nil {
		return nil, err
	}
	if handScore < 0 {
		return nil, fmt.Errorf("negative hand score %v", handScore)
	}

	rem, err := e.remainingAfter(seen)
	if err != nil {
		return nil, err
	}
	if rem.total == 0 {
		return nil, ErrDeckExhausted
	}

	return e.computeDraw(RoundState{Numbers: numbers}, rem, handScore), nil
}

// remainingCounts materializes the undrawn deck for one computation.
type remainingCounts struct {
	counts [deck.KindCount]int
	total  int
}

// draw returns the counts after removing one copy of k.
func (r remainingCounts) draw(k deck.Kind) remainingCounts {
	r.counts[k]--
	r.total--
	return r
}

// remainingAfter validates the observed counts against the composition
// and returns the remaining multiset.
func (e *Engine) remainingAfter(seen deck.Seen) (remainingCounts, error) {
	var rem remainingCounts
	total, err := e.comp.TotalRemaining(seen)
	if err != nil {
		return rem, err
	}
	rem.total = total
	for k := deck.Zero; k <= deck.TimesTwo; k++ {
		rem.counts[k] = e.comp.Printed(k) - seen[k]
	}
	return rem, nil
}

// computeDraw prices a single draw. Each kind still in the deck
// contributes probability times the change in banked points it causes;
// duplicated numbers contribute minus bustLoss and add to the bust
// probability, unless Second Chance absorbs them.
func (e *Engine) computeDraw(state RoundState, rem remainingCounts, bustLoss float64) *Result {
	base := float64(state.BankWithBonus())
	res := &Result{Breakdown: make([]KindOutcome, 0, deck.KindCount)}

	for k := deck.Zero; k <= deck.TimesTwo; k++ {
		n := rem.counts[k]
		if n == 0 {
			continue
		}
		p := float64(n) / float64(rem.total)

		var delta float64
		switch {
		case k.IsNumber() && state.Numbers.Contains(k.Value()):
			if state.SecondChance {
				delta = 0
			} else {
				delta = -bustLoss
				res.BustProbability += p
			}
		case k.IsNumber():
			next := state
			next.Numbers.Add(k.Value())
			delta = float64(next.BankWithBonus()) - base
		case k == deck.Freeze:
			delta = 0
		case k == deck.SecondChance:
			delta = 0
		case k == deck.FlipThree:
			est := e.flipThree(state, rem.draw(k))
			delta = est.ExpectedBank - base
		case k == deck.TimesTwo:
			if !state.TimesTwo {
				next := state
				next.TimesTwo = true
				delta = float64(next.BankWithBonus()) - base
			}
		default:
			delta = float64(k.Bonus())
		}

		res.Breakdown = append(res.Breakdown, KindOutcome{
			Kind:         k,
			Probability:  p,
			Contribution: p * delta,
		})
		res.ExpectedValue += p * delta
	}

	return res
}
