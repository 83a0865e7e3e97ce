package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/cheggaaa/pb/v3"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/simulator"
)

type CLI struct {
	Rounds     int     `default:"100000" help:"Number of rounds to simulate"`
	Policy     string  `default:"ev" help:"Drawing policy: ev, bust, bank, always"`
	BustLimit  float64 `default:"0.35" help:"Bust probability ceiling for the bust policy"`
	BankTarget int     `default:"25" help:"Stop-at score for the bank policy"`
	Seed       int64   `default:"0" help:"RNG seed (0 for random)"`
	Deck       string  `short:"d" help:"Deck composition YAML (defaults to the official 94-card deck)" type:"path"`
	Verify     int     `default:"0" help:"Cross-check engine probabilities against N sampled draws"`
	NoProgress bool    `help:"Disable the progress bar"`
	Verbose    bool    `short:"v" help:"Verbose logging"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli)

	logger := log.New(os.Stderr)
	if cli.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	comp := deck.Standard()
	if cli.Deck != "" {
		var err error
		comp, err = deck.LoadCompositionFile(cli.Deck)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading deck: %v\n", err)
			ctx.Exit(1)
		}
	}

	engine, err := odds.NewEngine(comp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if cli.Verify > 0 {
		if err := verify(engine, comp, cli.Verify, seed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			ctx.Exit(1)
		}
		return
	}

	policy, err := simulator.CreatePolicy(cli.Policy, cli.BustLimit, cli.BankTarget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	logger.Info("Starting simulation",
		"rounds", cli.Rounds, "policy", policy.Name(), "seed", seed, "deck", comp.Total())

	bar := pb.StartNew(cli.Rounds)
	if cli.NoProgress {
		bar.SetWriter(io.Discard)
	}

	sim := simulator.New(engine, simulator.Config{
		Rounds:   cli.Rounds,
		Policy:   policy,
		Seed:     seed,
		Logger:   logger,
		Progress: func() { bar.Increment() },
	})

	stats, err := sim.Run()
	if err != nil {
		bar.Finish()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}
	duration := time.Since(bar.StartTime())
	bar.Finish()

	simulator.PrintSummary(stats, policy.Name())
	fmt.Printf("\n%d rounds in %v\n", stats.Rounds, duration.Truncate(time.Millisecond))
}

// verify samples single forced draws from a mid-round reference state
// and prints them beside the engine's closed-form numbers. The sampled
// intervals should bracket the exact values.
func verify(engine *odds.Engine, comp *deck.Composition, trials int, seed int64) error {
	numbers, err := odds.NewNumberSet(3, 7, 11)
	if err != nil {
		return err
	}
	state := odds.RoundState{Numbers: numbers}
	seen := deck.Seen{deck.Three: 1, deck.Seven: 1, deck.Eleven: 1}

	exact, err := engine.Compute(state, seen)
	if err != nil {
		return err
	}

	sampled, err := simulator.EstimateDraws(comp, state, seen, 1, trials, seed)
	if err != nil {
		return err
	}

	bustLow, bustHigh := sampled.BustRateInterval(0.95)
	bankLow, bankHigh := sampled.ConfidenceInterval(0.95)

	fmt.Printf("=== VERIFY: hand 3 7 11, one draw, %d trials ===\n", trials)
	fmt.Printf("Bust: exact %.4f, sampled %.4f, 95%% CI [%.4f, %.4f]\n",
		exact.BustProbability, sampled.BustRate(), bustLow, bustHigh)
	fmt.Printf("Expected bank: exact %.4f, sampled %.4f, 95%% CI [%.4f, %.4f]\n",
		exact.ExpectedBank, sampled.Mean(), bankLow, bankHigh)
	return nil
}
