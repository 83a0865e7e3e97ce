package odds

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/lox/flip7odds/internal/deck"
)

func mustComposition(t *testing.T, counts map[deck.Kind]int) *deck.Composition {
	t.Helper()
	c, err := deck.NewComposition(counts)
	if err != nil {
		t.Fatalf("NewComposition() error = %v", err)
	}
	return c
}

func mustEngine(t *testing.T, counts map[deck.Kind]int) *Engine {
	t.Helper()
	e, err := NewEngine(mustComposition(t, counts))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func mustNumbers(t *testing.T, values ...int) NumberSet {
	t.Helper()
	ns, err := NewNumberSet(values...)
	if err != nil {
		t.Fatalf("NewNumberSet(%v) error = %v", values, err)
	}
	return ns
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestComputeRoundFixture(t *testing.T) {
	engine := mustEngine(t, map[deck.Kind]int{deck.Five: 2, deck.Eight: 2, deck.Twelve: 2})

	tests := []struct {
		name      string
		seen      deck.Seen
		hand      []int
		handScore float64
		wantBust  float64
		wantEV    float64
		wantRows  int
	}{
		{
			name:      "hand holds a live kind",
			seen:      deck.Seen{},
			hand:      []int{5},
			handScore: 5,
			wantBust:  2.0 / 6.0,
			wantEV:    5.0,
			wantRows:  3,
		},
		{
			name:      "one copy of the held kind already seen",
			seen:      deck.Seen{deck.Five: 1},
			hand:      []int{5},
			handScore: 5,
			wantBust:  1.0 / 5.0,
			wantEV:    7.0,
			wantRows:  3,
		},
		{
			name:      "hand matches no remaining kind",
			seen:      deck.Seen{},
			hand:      []int{7},
			handScore: 7,
			wantBust:  0,
			wantEV:    50.0 / 6.0,
			wantRows:  3,
		},
		{
			name:      "zero hand score makes busting free",
			seen:      deck.Seen{},
			hand:      []int{5},
			handScore: 0,
			wantBust:  2.0 / 6.0,
			wantEV:    40.0 / 6.0,
			wantRows:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.ComputeRound(tt.seen, tt.hand, tt.handScore)
			if err != nil {
				t.Fatalf("ComputeRound() error = %v", err)
			}
			if !almostEqual(res.BustProbability, tt.wantBust) {
				t.Errorf("BustProbability = %v, want %v", res.BustProbability, tt.wantBust)
			}
			if !almostEqual(res.ExpectedValue, tt.wantEV) {
				t.Errorf("ExpectedValue = %v, want %v", res.ExpectedValue, tt.wantEV)
			}
			if len(res.Breakdown) != tt.wantRows {
				t.Errorf("len(Breakdown) = %d, want %d", len(res.Breakdown), tt.wantRows)
			}

			sum := 0.0
			for _, row := range res.Breakdown {
				sum += row.Probability
			}
			if !almostEqual(sum, 1.0) {
				t.Errorf("breakdown probabilities sum to %v, want 1", sum)
			}
		})
	}
}

func TestComputeRoundAllBusting(t *testing.T) {
	engine := mustEngine(t, map[deck.Kind]int{deck.Five: 2})

	res, err := engine.ComputeRound(deck.Seen{}, []int{5}, 5)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	if res.BustProbability != 1.0 {
		t.Errorf("BustProbability = %v, want 1", res.BustProbability)
	}
	if !almostEqual(res.ExpectedValue, -5.0) {
		t.Errorf("ExpectedValue = %v, want -5", res.ExpectedValue)
	}
}

func TestComputeRoundSingleKindLeft(t *testing.T) {
	engine := mustEngine(t, map[deck.Kind]int{deck.Five: 2, deck.Eight: 2})

	res, err := engine.ComputeRound(deck.Seen{deck.Five: 2, deck.Eight: 1}, nil, 0)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	if len(res.Breakdown) != 1 {
		t.Fatalf("len(Breakdown) = %d, want 1", len(res.Breakdown))
	}
	row := res.Breakdown[0]
	if row.Kind != deck.Eight || row.Probability != 1.0 {
		t.Errorf("Breakdown[0] = %+v, want kind 8 with probability 1", row)
	}
	if !almostEqual(res.ExpectedValue, 8.0) {
		t.Errorf("ExpectedValue = %v, want 8", res.ExpectedValue)
	}
}

func TestComputeRoundErrors(t *testing.T) {
	engine := mustEngine(t, map[deck.Kind]int{deck.Five: 2, deck.Eight: 2, deck.Twelve: 2})

	t.Run("overcounted observation", func(t *testing.T) {
		_, err := engine.ComputeRound(deck.Seen{deck.Five: 3}, nil, 0)
		var invalid *deck.InvalidStateError
		if !errors.As(err, &invalid) {
			t.Fatalf("error = %v, want *deck.InvalidStateError", err)
		}
		if invalid.Kind != deck.Five || invalid.Printed != 2 || invalid.Seen != 3 {
			t.Errorf("InvalidStateError = %+v, want kind 5, printed 2, seen 3", invalid)
		}
	})

	t.Run("exhausted deck", func(t *testing.T) {
		seen := deck.Seen{deck.Five: 2, deck.Eight: 2, deck.Twelve: 2}
		_, err := engine.ComputeRound(seen, nil, 0)
		if !errors.Is(err, ErrDeckExhausted) {
			t.Fatalf("error = %v, want ErrDeckExhausted", err)
		}
	})

	t.Run("hand value out of range", func(t *testing.T) {
		if _, err := engine.ComputeRound(deck.Seen{}, []int{13}, 0); err == nil {
			t.Fatal("expected error for hand value 13")
		}
	})

	t.Run("negative hand score", func(t *testing.T) {
		if _, err := engine.ComputeRound(deck.Seen{}, []int{5}, -1); err == nil {
			t.Fatal("expected error for negative hand score")
		}
	})
}

func TestComputeRoundIdempotent(t *testing.T) {
	engine := mustEngine(t, standardCounts(t))
	seen := deck.Seen{deck.Twelve: 3, deck.Freeze: 1, deck.PlusTen: 1}

	first, err := engine.ComputeRound(seen, []int{3, 7, 11}, 21)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	second, err := engine.ComputeRound(seen, []int{3, 7, 11}, 21)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical snapshots gave different results")
	}
}

func TestBustProbabilityMonotonicity(t *testing.T) {
	engine := mustEngine(t, standardCounts(t))

	before, err := engine.ComputeRound(deck.Seen{}, []int{12}, 12)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	after, err := engine.ComputeRound(deck.Seen{deck.Twelve: 1}, []int{12}, 12)
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}
	if after.BustProbability >= before.BustProbability {
		t.Errorf("bust probability did not fall after observing a held number: before %v, after %v",
			before.BustProbability, after.BustProbability)
	}
}

// Randomized observations: probabilities must cover the remaining deck
// exactly and the bust probability must stay a probability.
func TestBreakdownProbabilitiesSumToOne(t *testing.T) {
	comp := deck.Standard()
	engine, err := NewEngine(comp)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(12345))

	for i := 0; i < 200; i++ {
		seen := deck.Seen{}
		for _, k := range comp.Kinds() {
			seen[k] = rng.Intn(comp.Printed(k) + 1)
		}
		total, err := comp.TotalRemaining(seen)
		if err != nil {
			t.Fatal(err)
		}
		if total == 0 {
			continue
		}

		res, err := engine.ComputeRound(seen, []int{3, 7}, 10)
		if err != nil {
			t.Fatalf("ComputeRound() error = %v", err)
		}

		sum := 0.0
		for _, row := range res.Breakdown {
			sum += row.Probability
		}
		if !almostEqual(sum, 1.0) {
			t.Fatalf("iteration %d: probabilities sum to %v, want 1", i, sum)
		}
		if res.BustProbability < 0 || res.BustProbability > 1 {
			t.Fatalf("iteration %d: bust probability %v outside [0,1]", i, res.BustProbability)
		}
	}
}

func TestSecondChanceSuppressesBust(t *testing.T) {
	engine := mustEngine(t, standardCounts(t))
	state := RoundState{Numbers: mustNumbers(t, 12), SecondChance: true}

	dec, err := engine.Compute(state, deck.Seen{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if dec.BustProbability != 0 {
		t.Errorf("BustProbability = %v with Second Chance, want 0", dec.BustProbability)
	}
	for _, row := range dec.Breakdown {
		if row.Kind == deck.Twelve && row.Contribution != 0 {
			t.Errorf("duplicate kind contribution = %v under Second Chance, want 0", row.Contribution)
		}
	}
}

func TestModifierDeltas(t *testing.T) {
	state := RoundState{Numbers: mustNumbers(t, 3, 7)}

	t.Run("plus and times two", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.PlusFour: 1, deck.TimesTwo: 1})
		dec, err := engine.Compute(state, deck.Seen{})
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		// 1/2 chance of +4, 1/2 chance of doubling the 10 points held.
		if !almostEqual(dec.ExpectedValue, 7.0) {
			t.Errorf("ExpectedValue = %v, want 7", dec.ExpectedValue)
		}
		if !almostEqual(dec.ExpectedBank, 17.0) {
			t.Errorf("ExpectedBank = %v, want 17", dec.ExpectedBank)
		}
		if dec.Bank != 10 {
			t.Errorf("Bank = %d, want 10", dec.Bank)
		}
	})

	t.Run("actions are neutral", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.Freeze: 3, deck.SecondChance: 3})
		dec, err := engine.Compute(state, deck.Seen{})
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if !almostEqual(dec.ExpectedValue, 0) {
			t.Errorf("ExpectedValue = %v, want 0", dec.ExpectedValue)
		}
		if dec.Recommendation != Neutral {
			t.Errorf("Recommendation = %s, want neutral", dec.Recommendation)
		}
	})

	t.Run("second x2 is worthless", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.TimesTwo: 1})
		held := state
		held.TimesTwo = true
		dec, err := engine.Compute(held, deck.Seen{})
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if !almostEqual(dec.ExpectedValue, 0) {
			t.Errorf("ExpectedValue = %v, want 0", dec.ExpectedValue)
		}
	})
}

func TestFlipSevenBonusPricedIn(t *testing.T) {
	engine := mustEngine(t, map[deck.Kind]int{deck.Twelve: 2})
	state := RoundState{Numbers: mustNumbers(t, 0, 1, 2, 3, 4, 5)}

	dec, err := engine.Compute(state, deck.Seen{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// Drawing the 12 completes seven uniques: 12 points plus the bonus.
	if !almostEqual(dec.ExpectedValue, 27.0) {
		t.Errorf("ExpectedValue = %v, want 27", dec.ExpectedValue)
	}
	if dec.BustProbability != 0 {
		t.Errorf("BustProbability = %v, want 0", dec.BustProbability)
	}
}

func TestComputeMatchesComputeRound(t *testing.T) {
	engine := mustEngine(t, standardCounts(t))
	seen := deck.Seen{deck.Twelve: 4, deck.Freeze: 2}
	state := RoundState{Numbers: mustNumbers(t, 3, 7)}

	dec, err := engine.Compute(state, seen)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	res, err := engine.ComputeRound(seen, []int{3, 7}, float64(state.Bank()))
	if err != nil {
		t.Fatalf("ComputeRound() error = %v", err)
	}

	if !almostEqual(dec.ExpectedValue, res.ExpectedValue) {
		t.Errorf("ExpectedValue mismatch: Compute %v, ComputeRound %v", dec.ExpectedValue, res.ExpectedValue)
	}
	if !almostEqual(dec.BustProbability, res.BustProbability) {
		t.Errorf("BustProbability mismatch: Compute %v, ComputeRound %v", dec.BustProbability, res.BustProbability)
	}
	if !almostEqual(dec.ExpectedBank, float64(dec.Bank)+dec.ExpectedValue) {
		t.Errorf("ExpectedBank = %v, want Bank %d plus EV %v", dec.ExpectedBank, dec.Bank, dec.ExpectedValue)
	}
}

func TestRecommendationThresholds(t *testing.T) {
	t.Run("hit when drawing gains", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.Five: 1})
		dec, err := engine.Compute(RoundState{}, deck.Seen{})
		if err != nil {
			t.Fatal(err)
		}
		if dec.Recommendation != Hit {
			t.Errorf("Recommendation = %s, want hit", dec.Recommendation)
		}
	})

	t.Run("stay when drawing loses", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.Five: 1})
		dec, err := engine.Compute(RoundState{Numbers: mustNumbers(t, 5)}, deck.Seen{})
		if err != nil {
			t.Fatal(err)
		}
		if dec.Recommendation != Stay {
			t.Errorf("Recommendation = %s, want stay", dec.Recommendation)
		}
	})

	t.Run("neutral when nothing changes", func(t *testing.T) {
		engine := mustEngine(t, map[deck.Kind]int{deck.Freeze: 1})
		dec, err := engine.Compute(RoundState{}, deck.Seen{})
		if err != nil {
			t.Fatal(err)
		}
		if dec.Recommendation != Neutral {
			t.Errorf("Recommendation = %s, want neutral", dec.Recommendation)
		}
	})
}

func TestComputeNotes(t *testing.T) {
	engine := mustEngine(t, standardCounts(t))
	state := RoundState{
		Numbers:      mustNumbers(t, 0, 1, 2, 3, 4, 5, 6),
		SecondChance: true,
		TimesTwo:     true,
	}

	dec, err := engine.Compute(state, deck.Seen{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := []Note{NoteFlipSeven, NoteSecondChance, NoteTimesTwo}
	if !reflect.DeepEqual(dec.Notes, want) {
		t.Errorf("Notes = %v, want %v", dec.Notes, want)
	}
}

func TestComputeExhaustedDeck(t *testing.T) {
	comp := deck.Standard()
	engine, err := NewEngine(comp)
	if err != nil {
		t.Fatal(err)
	}

	seen := deck.Seen{}
	for _, k := range comp.Kinds() {
		seen[k] = comp.Printed(k)
	}
	_, err = engine.Compute(RoundState{}, seen)
	if !errors.Is(err, ErrDeckExhausted) {
		t.Fatalf("error = %v, want ErrDeckExhausted", err)
	}
}

// standardCounts rebuilds the official table as a plain map so tests can
// tweak it.
func standardCounts(t *testing.T) map[deck.Kind]int {
	t.Helper()
	comp := deck.Standard()
	counts := make(map[deck.Kind]int, deck.KindCount)
	for _, k := range comp.Kinds() {
		counts[k] = comp.Printed(k)
	}
	return counts
}
