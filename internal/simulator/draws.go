package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/statistics"
	"golang.org/x/sync/errgroup"
)

// EstimateDraws samples trials of up to draws forced flips from the deck
// remaining after seen, applying the real resolution rules to state, and
// aggregates the outcomes. Each trial ends early on a bust, a freeze or a
// flip 7, and banks what the rules dictate (a bust banks zero).
//
// With draws=1 the sampled mean bank converges on Decision.ExpectedBank,
// and on decks without Flip Three cards the sampled bust rate converges
// on Result.BustProbability, which makes this a cross-check for the
// closed-form engine.
func EstimateDraws(comp *deck.Composition, state odds.RoundState, seen deck.Seen, draws, trials int, seed int64) (*statistics.Statistics, error) {
	if draws <= 0 {
		return nil, fmt.Errorf("draws must be positive, got %d", draws)
	}
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", trials)
	}

	base, err := newDrawPool(comp, seen)
	if err != nil {
		return nil, err
	}

	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8 // Cap at 8 for diminishing returns
	}
	if workers > trials {
		workers = trials
	}

	// Divide trials among workers
	trialsPerWorker := trials / workers
	remainder := trials % workers

	// Use errgroup to manage workers
	rng := rand.New(rand.NewSource(seed))
	g, ctx := errgroup.WithContext(context.Background())
	results := make(chan *statistics.Statistics, workers)

	for w := 0; w < workers; w++ {
		workerTrials := trialsPerWorker
		if w < remainder {
			workerTrials++ // Distribute remainder trials
		}

		// Create independent RNG for each worker to avoid contention
		workerSeed := rng.Int63()

		g.Go(func() error {
			workerRng := rand.New(rand.NewSource(workerSeed))
			stats := &statistics.Statistics{}
			for i := 0; i < workerTrials; i++ {
				stats.Add(runTrial(state, base, draws, workerRng))
			}

			select {
			case results <- stats:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	go func() {
		defer close(results)
		g.Wait()
	}()

	total := &statistics.Statistics{}
	for stats := range results {
		total.Merge(stats)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return total, nil
}

// runTrial performs one sampled sequence of forced draws against a fresh
// copy of the pool.
func runTrial(state odds.RoundState, base *drawPool, draws int, rng *rand.Rand) statistics.RoundResult {
	trial := state
	pool := base.clone()
	start := pool.size()

	status := statusContinue
	for i := 0; i < draws && status == statusContinue; i++ {
		k, ok := pool.draw(rng)
		if !ok {
			break
		}
		status = resolveDraw(&trial, pool, k, rng, false)
	}

	result := statistics.RoundResult{Draws: start - pool.size()}
	switch status {
	case statusBusted:
		result.Busted = true
	case statusFroze:
		result.Froze = true
		result.Score = trial.BankWithBonus()
	case statusFlipSeven:
		result.FlipSeven = true
		result.Score = trial.BankWithBonus()
	default:
		result.Score = trial.BankWithBonus()
	}
	return result
}
