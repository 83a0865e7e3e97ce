package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
)

type CLI struct {
	Hand         []int    `arg:"" optional:"" help:"Number cards currently held (e.g. 3 7 11)"`
	Seen         []string `short:"s" help:"Cards observed this round as label=count pairs (e.g. 7=2 freeze=1); a bare label counts once"`
	SecondChance bool     `help:"Hold a Second Chance card"`
	FlipThree    bool     `help:"A Flip Three card is pending"`
	TimesTwo     bool     `name:"x2" help:"Hold the x2 multiplier"`
	Plus         int      `help:"Points held from + modifier cards"`
	Deck         string   `short:"d" help:"Deck composition YAML (defaults to the official 94-card deck)" type:"path"`
	Debug        bool     `help:"Enable debug logging"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli)

	logger := log.New(os.Stderr)
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	comp, err := loadDeck(cli.Deck)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading deck: %v\n", err)
		ctx.Exit(1)
	}
	logger.Debug("deck loaded", "total", comp.Total())

	seen, err := parseSeen(cli.Seen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing seen cards: %v\n", err)
		ctx.Exit(1)
	}

	numbers, err := odds.NewNumberSet(cli.Hand...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing hand: %v\n", err)
		ctx.Exit(1)
	}

	state := odds.RoundState{
		Numbers:      numbers,
		SecondChance: cli.SecondChance,
		FlipThree:    cli.FlipThree,
		TimesTwo:     cli.TimesTwo,
		PlusPoints:   cli.Plus,
	}

	engine, err := odds.NewEngine(comp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	decision, err := engine.Compute(state, seen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	remaining, err := comp.TotalRemaining(seen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	data, err := json.MarshalIndent(buildJSON(decision, remaining), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}
	fmt.Println(string(data))
}

func loadDeck(path string) (*deck.Composition, error) {
	if path == "" {
		return deck.Standard(), nil
	}
	return deck.LoadCompositionFile(path)
}

// parseSeen converts label=count pairs into observed counts. Repeated
// labels accumulate.
func parseSeen(pairs []string) (deck.Seen, error) {
	seen := make(deck.Seen, len(pairs))

	for _, pair := range pairs {
		label, countStr, hasCount := strings.Cut(pair, "=")
		label = strings.TrimSpace(label)

		k, err := deck.ParseKind(label)
		if err != nil {
			return nil, err
		}

		count := 1
		if hasCount {
			count, err = strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil {
				return nil, fmt.Errorf("bad count in %q: %v", pair, err)
			}
			if count < 0 {
				return nil, fmt.Errorf("negative count in %q", pair)
			}
		}

		seen.AddN(k, count)
	}

	return seen, nil
}

// jsonDecision is the stdout form of a computed decision. The CLI is a
// machine boundary; rendering for humans lives with the caller.
type jsonDecision struct {
	Bank            int           `json:"bank"`
	Remaining       int           `json:"remaining"`
	BustProbability float64       `json:"bustProbability"`
	ExpectedValue   float64       `json:"expectedValue"`
	ExpectedBank    float64       `json:"expectedBank"`
	FlipThree       jsonFlipThree `json:"flipThree"`
	Breakdown       []jsonOutcome `json:"breakdown"`
	Recommendation  string        `json:"recommendation"`
	Notes           []string      `json:"notes,omitempty"`
}

type jsonFlipThree struct {
	BustProbability float64 `json:"bustProbability"`
	ExpectedBank    float64 `json:"expectedBank"`
}

type jsonOutcome struct {
	Kind         string  `json:"kind"`
	Probability  float64 `json:"probability"`
	Contribution float64 `json:"contribution"`
}

func buildJSON(decision *odds.Decision, remaining int) jsonDecision {
	out := jsonDecision{
		Bank:            decision.Bank,
		Remaining:       remaining,
		BustProbability: decision.BustProbability,
		ExpectedValue:   decision.ExpectedValue,
		ExpectedBank:    decision.ExpectedBank,
		FlipThree: jsonFlipThree{
			BustProbability: decision.FlipThree.BustProbability,
			ExpectedBank:    decision.FlipThree.ExpectedBank,
		},
		Recommendation: string(decision.Recommendation),
	}
	for _, row := range decision.Breakdown {
		out.Breakdown = append(out.Breakdown, jsonOutcome{
			Kind:         row.Kind.String(),
			Probability:  row.Probability,
			Contribution: row.Contribution,
		})
	}
	for _, note := range decision.Notes {
		out.Notes = append(out.Notes, string(note))
	}
	return out
}
