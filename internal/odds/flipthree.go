package odds

import "github.com/lox/flip7odds/internal/deck"

// flipThree prices three forced draws by enumerating the complete draw
// tree over the remaining multiset.
func (e *Engine) flipThree(state RoundState, rem remainingCounts) FlipThreeEstimate {
	bust, bank := e.enumerateDraws(state, rem, 3)
	return FlipThreeEstimate{BustProbability: bust, ExpectedBank: bank}
}

// enumerateDraws returns the bust probability and expected final bank of
// taking depth forced draws. Duplicate numbers bust (Second Chance
// absorbs one), Freeze banks immediately, another Flip Three during the
// sequence is a dead draw, and a seventh unique number ends the round
// with its bonus. A busted sequence banks nothing.
func (e *Engine) enumerateDraws(state RoundState, rem remainingCounts, depth int) (float64, float64) {
	if depth == 0 || rem.total == 0 || state.FlipSeven() {
		return 0, float64(state.BankWithBonus())
	}

	var bust, bank float64
	for k := deck.Zero; k <= deck.TimesTwo; k++ {
		n := rem.counts[k]
		if n == 0 {
			continue
		}
		p := float64(n) / float64(rem.total)

		next := state
		switch {
		case k.IsNumber() && state.Numbers.Contains(k.Value()):
			if !state.SecondChance {
				bust += p
				continue
			}
			next.SecondChance = false
		case k.IsNumber():
			next.Numbers.Add(k.Value())
		case k == deck.Freeze:
			bank += p * float64(state.BankWithBonus())
			continue
		case k == deck.SecondChance:
			next.SecondChance = true
		case k == deck.TimesTwo:
			next.TimesTwo = true
		case k == deck.FlipThree:
			// drawn and discarded, no stacking
		default:
			next.PlusPoints += k.Bonus()
		}

		subBust, subBank := e.enumerateDraws(next, rem.draw(k), depth-1)
		bust += p * subBust
		bank += p * subBank
	}

	return bust, bank
}
