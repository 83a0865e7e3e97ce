// Package simulator plays out Flip 7 rounds with real draw rules to
// measure how drawing policies perform, and to cross-check the exact
// probabilities computed by the odds engine against sampled outcomes.
package simulator

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/statistics"
)

// Config holds configuration for running simulations
type Config struct {
	Rounds int
	Policy Policy
	Seed   int64
	Logger *log.Logger

	// Progress, when set, is called after each completed round.
	Progress func()
}

// Simulator runs solo Flip 7 round simulations
type Simulator struct {
	engine *odds.Engine
	config Config
}

// New creates a new simulator with the given engine and configuration
func New(engine *odds.Engine, config Config) *Simulator {
	return &Simulator{engine: engine, config: config}
}

// Run executes the simulation and returns aggregated results. Each round
// draws from a fresh deck, seeded independently so runs reproduce exactly
// for a given base seed.
func (s *Simulator) Run() (*statistics.Statistics, error) {
	if s.config.Policy == nil {
		return nil, fmt.Errorf("no policy configured")
	}

	stats := &statistics.Statistics{}
	for round := 0; round < s.config.Rounds; round++ {
		roundSeed := s.config.Seed + int64(round)
		rng := rand.New(rand.NewSource(roundSeed))

		result, err := s.playRound(rng)
		if err != nil {
			return nil, fmt.Errorf("round %d (seed %d): %w", round+1, roundSeed, err)
		}
		stats.Add(result)

		if s.config.Logger != nil {
			s.config.Logger.Debug("round complete",
				"round", round+1, "score", result.Score, "draws", result.Draws,
				"busted", result.Busted, "froze", result.Froze, "flip7", result.FlipSeven)
		}

		if s.config.Progress != nil {
			s.config.Progress()
		}
	}
	return stats, nil
}

// playRound plays a single solo round: consult the policy, draw, resolve,
// repeat until the round ends or the policy stays.
func (s *Simulator) playRound(rng *rand.Rand) (statistics.RoundResult, error) {
	var state odds.RoundState
	pool, err := newDrawPool(s.engine.Composition(), deck.Seen{})
	if err != nil {
		return statistics.RoundResult{}, err
	}
	start := pool.size()

	for {
		if pool.size() == 0 {
			// Deck ran dry mid-round. Whatever is held gets banked.
			return statistics.RoundResult{Score: state.BankWithBonus(), Draws: start}, nil
		}

		decision, err := s.engine.Compute(state, pool.seen)
		if err != nil {
			return statistics.RoundResult{}, err
		}
		if !s.config.Policy.Hit(decision) {
			return statistics.RoundResult{Score: decision.Bank, Draws: start - pool.size()}, nil
		}

		k, _ := pool.draw(rng)
		switch resolveDraw(&state, pool, k, rng, false) {
		case statusBusted:
			return statistics.RoundResult{Busted: true, Draws: start - pool.size()}, nil
		case statusFroze:
			return statistics.RoundResult{Score: state.BankWithBonus(), Froze: true, Draws: start - pool.size()}, nil
		case statusFlipSeven:
			return statistics.RoundResult{Score: state.BankWithBonus(), FlipSeven: true, Draws: start - pool.size()}, nil
		}
	}
}

// roundStatus reports how a resolved draw left the round.
type roundStatus int

const (
	statusContinue roundStatus = iota
	statusBusted
	statusFroze
	statusFlipSeven
)

// resolveDraw applies a drawn card to the round state. A Flip Three card
// forces three more draws from the pool; during those, a further Flip
// Three is discarded rather than stacked, and a Freeze still banks the
// round immediately.
func resolveDraw(state *odds.RoundState, pool *drawPool, k deck.Kind, rng *rand.Rand, forced bool) roundStatus {
	switch {
	case k.IsNumber():
		v := k.Value()
		if state.Numbers.Contains(v) {
			if state.SecondChance {
				state.SecondChance = false
				return statusContinue
			}
			return statusBusted
		}
		state.Numbers.Add(v)
		if state.FlipSeven() {
			return statusFlipSeven
		}
		return statusContinue
	case k == deck.Freeze:
		return statusFroze
	case k == deck.FlipThree:
		if forced {
			return statusContinue
		}
		for i := 0; i < 3; i++ {
			next, ok := pool.draw(rng)
			if !ok {
				return statusContinue
			}
			if status := resolveDraw(state, pool, next, rng, true); status != statusContinue {
				return status
			}
		}
		return statusContinue
	case k == deck.SecondChance:
		state.SecondChance = true
		return statusContinue
	case k == deck.TimesTwo:
		state.TimesTwo = true
		return statusContinue
	default:
		state.PlusPoints += k.Bonus()
		return statusContinue
	}
}

// drawPool is the physical deck a round draws from: one entry per card
// remaining, with the observed counts kept in step for the odds engine.
type drawPool struct {
	kinds []deck.Kind
	seen  deck.Seen
}

// newDrawPool builds a pool of the cards remaining after seen. It fails
// if seen is inconsistent with the composition.
func newDrawPool(comp *deck.Composition, seen deck.Seen) (*drawPool, error) {
	kinds := make([]deck.Kind, 0, comp.Total())
	for _, k := range comp.Kinds() {
		n, err := comp.Remaining(k, seen)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			kinds = append(kinds, k)
		}
	}
	return &drawPool{kinds: kinds, seen: seen.Clone()}, nil
}

// draw removes and returns a uniformly random card from the pool.
func (p *drawPool) draw(rng *rand.Rand) (deck.Kind, bool) {
	if len(p.kinds) == 0 {
		return 0, false
	}
	i := rng.Intn(len(p.kinds))
	k := p.kinds[i]
	p.kinds[i] = p.kinds[len(p.kinds)-1]
	p.kinds = p.kinds[:len(p.kinds)-1]
	p.seen.Add(k)
	return k, true
}

func (p *drawPool) size() int {
	return len(p.kinds)
}

func (p *drawPool) clone() *drawPool {
	kinds := make([]deck.Kind, len(p.kinds))
	copy(kinds, p.kinds)
	return &drawPool{kinds: kinds, seen: p.seen.Clone()}
}

// RunSimulation is a convenience function for running a simulation with basic parameters
func RunSimulation(engine *odds.Engine, rounds int, policy Policy, seed int64, logger *log.Logger) (*statistics.Statistics, error) {
	config := Config{
		Rounds: rounds,
		Policy: policy,
		Seed:   seed,
		Logger: logger,
	}

	simulator := New(engine, config)
	return simulator.Run()
}

// PrintSummary prints a comprehensive summary of simulation results
func PrintSummary(stats *statistics.Statistics, policyName string) {
	mean := stats.Mean()
	stdDev := stats.StdDev()
	stdErr := stats.StdError()
	low, high := stats.ConfidenceInterval(0.95)

	fmt.Printf("\n=== FINAL RESULTS: %s policy ===\n", policyName)
	fmt.Printf("Rounds played: %d\n", stats.Rounds)

	fmt.Printf("\n=== SCORE ===\n")
	fmt.Printf("Mean: %.4f points/round\n", mean)
	fmt.Printf("Std Dev: %.4f\n", stdDev)
	fmt.Printf("Std Error: %.4f\n", stdErr)
	fmt.Printf("95%% CI: [%.4f, %.4f] points/round\n", low, high)
	fmt.Printf("Percentiles: P5=%.1f, P25=%.1f, P50=%.1f, P75=%.1f, P95=%.1f\n",
		stats.Quantile(0.05), stats.Quantile(0.25), stats.Quantile(0.50),
		stats.Quantile(0.75), stats.Quantile(0.95))
	fmt.Printf("Max score: %d\n", stats.MaxScore)

	fmt.Printf("\n=== OUTCOMES ===\n")
	bustLow, bustHigh := stats.BustRateInterval(0.95)
	fmt.Printf("Busts: %d (%.1f%%), 95%% CI [%.3f, %.3f]\n",
		stats.Busts, stats.BustRate()*100, bustLow, bustHigh)
	fmt.Printf("Freezes: %d (%.1f%%)\n", stats.Freezes, stats.FreezeRate()*100)
	fmt.Printf("Flip 7s: %d (%.1f%%)\n", stats.FlipSevens, stats.FlipSevenRate()*100)
	fmt.Printf("Mean draws: %.2f cards/round\n", stats.MeanDraws())
}
