package odds

import (
	"fmt"
	"math/bits"
)

// flipSevenSize is the unique-number count that ends a round with the
// flip-7 bonus.
const flipSevenSize = 7

// flipSevenBonus is the points awarded for banking seven unique numbers.
const flipSevenBonus = 15

// NumberSet represents the unique number values 0-12 in a line using a
// bitmask for fast membership checks.
type NumberSet uint16

// NewNumberSet creates a NumberSet from number card values.
func NewNumberSet(values ...int) (NumberSet, error) {
	var ns NumberSet
	for _, v := range values {
		if v < 0 || v > 12 {
			return 0, fmt.Errorf("number card out of range: %d", v)
		}
		ns.Add(v)
	}
	return ns, nil
}

// Add adds a number value to the set.
func (ns *NumberSet) Add(value int) {
	*ns |= 1 << value
}

// Contains checks if a number value is in the set.
func (ns NumberSet) Contains(value int) bool {
	return ns&(1<<value) != 0
}

// Count returns the number of distinct values in the set.
func (ns NumberSet) Count() int {
	return bits.OnesCount16(uint16(ns))
}

// Sum returns the sum of all values in the set.
func (ns NumberSet) Sum() int {
	sum := 0
	for v := 0; v <= 12; v++ {
		if ns.Contains(v) {
			sum += v
		}
	}
	return sum
}

// Values returns the values in ascending order.
func (ns NumberSet) Values() []int {
	values := make([]int, 0, ns.Count())
	for v := 0; v <= 12; v++ {
		if ns.Contains(v) {
			values = append(values, v)
		}
	}
	return values
}

// RoundState captures everything about the player's current round that
// scoring depends on.
type RoundState struct {
	// Numbers holds the unique number values in the line. Drawing any of
	// them again busts, subject to Second Chance.
	Numbers NumberSet

	// SecondChance cancels the next duplicate number instead of busting.
	SecondChance bool

	// FlipThree is set while a Flip Three card forces three more draws.
	FlipThree bool

	// TimesTwo doubles number-card points when scoring.
	TimesTwo bool

	// PlusPoints is the sum of +2 through +10 modifiers held.
	PlusPoints int
}

// UniqueCount returns the number of distinct number cards in the line.
func (s RoundState) UniqueCount() int {
	return s.Numbers.Count()
}

// Bank returns the points banked if the player stays now: the number
// sum, doubled under x2, plus modifier points. The flip-7 bonus is not
// included; reaching seven uniques ends the round on its own.
func (s RoundState) Bank() int {
	base := s.Numbers.Sum()
	if s.TimesTwo {
		base *= 2
	}
	return base + s.PlusPoints
}

// FlipSeven reports whether the line holds seven unique numbers, which
// ends the round immediately with the bonus.
func (s RoundState) FlipSeven() bool {
	return s.UniqueCount() >= flipSevenSize
}

// BankWithBonus is Bank plus the flip-7 bonus once the line holds seven
// unique numbers. EV outcome states use it so the bonus is priced in.
func (s RoundState) BankWithBonus() int {
	bank := s.Bank()
	if s.FlipSeven() {
		bank += flipSevenBonus
	}
	return bank
}
