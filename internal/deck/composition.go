package deck

import "fmt"

// DeckSize is the card count of the official Flip 7 deck.
const DeckSize = 94

// Composition is an immutable deck table: how many copies of each kind
// the deck was printed with. Build one with Standard, NewComposition or
// LoadComposition and share it read-only.
type Composition struct {
	counts [KindCount]int
	total  int
}

// standardCounts is the official composition: number card N has N copies
// for 2 through 12, 0 and 1 have one copy each, three of each action
// card, one of each modifier. 94 cards in all.
var standardCounts = map[Kind]int{
	Zero: 1, One: 1, Two: 2, Three: 3, Four: 4, Five: 5, Six: 6,
	Seven: 7, Eight: 8, Nine: 9, Ten: 10, Eleven: 11, Twelve: 12,
	Freeze: 3, FlipThree: 3, SecondChance: 3,
	PlusTwo: 1, PlusFour: 1, PlusSix: 1, PlusEight: 1, PlusTen: 1,
	TimesTwo: 1,
}

// Standard returns the official 94-card composition.
func Standard() *Composition {
	var c Composition
	for k, n := range standardCounts {
		c.counts[k] = n
		c.total += n
	}
	return &c
}

// NewComposition builds a validated composition from printed counts.
// Unknown kinds and negative counts are rejected. Kinds absent from the
// map have zero copies, so test fixtures can use small subsets.
func NewComposition(counts map[Kind]int) (*Composition, error) {
	var c Composition
	for k, n := range counts {
		if k > TimesTwo {
			return nil, fmt.Errorf("unknown card kind %d", uint8(k))
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count %d for kind %s", n, k)
		}
		c.counts[k] = n
		c.total += n
	}
	if c.total == 0 {
		return nil, fmt.Errorf("empty composition")
	}
	return &c, nil
}

// Printed returns how many copies of k the deck was printed with.
func (c *Composition) Printed(k Kind) int {
	if k > TimesTwo {
		return 0
	}
	return c.counts[k]
}

// Total returns the total printed card count.
func (c *Composition) Total() int {
	return c.total
}

// Kinds returns the kinds present in the composition, in kind order.
func (c *Composition) Kinds() []Kind {
	kinds := make([]Kind, 0, KindCount)
	for k := Zero; k <= TimesTwo; k++ {
		if c.counts[k] > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Remaining returns how many copies of k are still undrawn given the
// observed counts. An observed count below zero or above the printed
// count returns an InvalidStateError; it is never clamped, so a
// miscounting observer surfaces immediately instead of skewing results.
func (c *Composition) Remaining(k Kind, seen Seen) (int, error) {
	printed := c.Printed(k)
	n := seen[k]
	if n < 0 || n > printed {
		return 0, &InvalidStateError{Kind: k, Printed: printed, Seen: n}
	}
	return printed - n, nil
}

// TotalRemaining returns the number of undrawn cards given the observed
// counts.
func (c *Composition) TotalRemaining(seen Seen) (int, error) {
	remaining := c.total
	for k, n := range seen {
		printed := c.Printed(k)
		if n < 0 || n > printed {
			return 0, &InvalidStateError{Kind: k, Printed: printed, Seen: n}
		}
		remaining -= n
	}
	return remaining, nil
}

// InvalidStateError reports an observed count that is impossible for the
// configured deck, which indicates a bug in the observing layer.
type InvalidStateError struct {
	Kind    Kind
	Printed int
	Seen    int
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid observed state: %d of kind %s seen, %d printed", e.Seen, e.Kind, e.Printed)
}
