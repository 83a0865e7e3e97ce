package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Client to server messages
	MessageTypeObservation MessageType = "observation"

	// Server to client messages
	MessageTypeDecision MessageType = "decision"
	MessageTypeError    MessageType = "error"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the WebSocket envelope: a type, a raw payload and a
// timestamp. RequestID, when a client sets one, is echoed back on the
// matching response so callers can pair them up.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

// HandState describes the player's current line as the detection layer
// sees it.
type HandState struct {
	Numbers      []int `json:"numbers"`
	SecondChance bool  `json:"secondChance,omitempty"`
	FlipThree    bool  `json:"flipThree,omitempty"`
	TimesTwo     bool  `json:"timesTwo,omitempty"`
	PlusPoints   int   `json:"plusPoints,omitempty"`
}

// ObservationData is one observation snapshot: the cards counted out of
// the deck this round, keyed by wire label, and the player's hand.
type ObservationData struct {
	SessionID string         `json:"sessionId,omitempty"`
	Seen      map[string]int `json:"seen,omitempty"`
	Hand      HandState      `json:"hand"`
}

// parse converts the wire observation into engine inputs. Label and
// number range problems are reported here; count consistency against
// the deck is the engine's job.
func (o ObservationData) parse() (odds.RoundState, deck.Seen, error) {
	numbers, err := odds.NewNumberSet(o.Hand.Numbers...)
	if err != nil {
		return odds.RoundState{}, nil, err
	}
	if o.Hand.PlusPoints < 0 {
		return odds.RoundState{}, nil, fmt.Errorf("negative plus points: %d", o.Hand.PlusPoints)
	}

	state := odds.RoundState{
		Numbers:      numbers,
		SecondChance: o.Hand.SecondChance,
		FlipThree:    o.Hand.FlipThree,
		TimesTwo:     o.Hand.TimesTwo,
		PlusPoints:   o.Hand.PlusPoints,
	}

	seen := make(deck.Seen, len(o.Seen))
	for label, n := range o.Seen {
		k, err := deck.ParseKind(label)
		if err != nil {
			return odds.RoundState{}, nil, err
		}
		seen.AddN(k, n)
	}
	return state, seen, nil
}

// Server → Client payloads

// ErrorData carries a stable machine-readable code plus a human
// explanation with the identifying detail.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutcomeRow is one row of the per-kind breakdown.
type OutcomeRow struct {
	Kind         string  `json:"kind"`
	Probability  float64 `json:"probability"`
	Contribution float64 `json:"contribution"`
}

// FlipThreeData is the three-forced-draw estimate.
type FlipThreeData struct {
	BustProbability float64 `json:"bustProbability"`
	ExpectedBank    float64 `json:"expectedBank"`
}

// DecisionData is the evaluation result sent back to callers.
type DecisionData struct {
	Bank            int           `json:"bank"`
	BustProbability float64       `json:"bustProbability"`
	ExpectedValue   float64       `json:"expectedValue"`
	ExpectedBank    float64       `json:"expectedBank"`
	Breakdown       []OutcomeRow  `json:"breakdown"`
	FlipThree       FlipThreeData `json:"flipThree"`
	Recommendation  string        `json:"recommendation"`
	Notes           []string      `json:"notes,omitempty"`
}

// DecisionDataFromOdds converts an engine decision to its wire form.
func DecisionDataFromOdds(dec *odds.Decision) DecisionData {
	breakdown := make([]OutcomeRow, len(dec.Breakdown))
	for i, row := range dec.Breakdown {
		breakdown[i] = OutcomeRow{
			Kind:         row.Kind.String(),
			Probability:  row.Probability,
			Contribution: row.Contribution,
		}
	}

	var notes []string
	for _, note := range dec.Notes {
		notes = append(notes, string(note))
	}

	return DecisionData{
		Bank:            dec.Bank,
		BustProbability: dec.BustProbability,
		ExpectedValue:   dec.ExpectedValue,
		ExpectedBank:    dec.ExpectedBank,
		Breakdown:       breakdown,
		FlipThree: FlipThreeData{
			BustProbability: dec.FlipThree.BustProbability,
			ExpectedBank:    dec.FlipThree.ExpectedBank,
		},
		Recommendation: string(dec.Recommendation),
		Notes:          notes,
	}
}

// DeckData describes the composition the engine is evaluating against.
type DeckData struct {
	Cards map[string]int `json:"cards"`
	Total int            `json:"total"`
}

// DeckDataFromComposition converts a composition to its wire form.
func DeckDataFromComposition(comp *deck.Composition) DeckData {
	cards := make(map[string]int, deck.KindCount)
	for _, k := range comp.Kinds() {
		cards[k.String()] = comp.Printed(k)
	}
	return DeckData{Cards: cards, Total: comp.Total()}
}

// RoundRecord is one stored evaluation returned by the rounds endpoint.
type RoundRecord struct {
	ID              int64          `json:"id"`
	Session         string         `json:"session"`
	Seen            map[string]int `json:"seen"`
	Hand            []int          `json:"hand"`
	Bank            int            `json:"bank"`
	BustProbability float64        `json:"bustProbability"`
	ExpectedValue   float64        `json:"expectedValue"`
	ExpectedBank    float64        `json:"expectedBank"`
	Recommendation  string         `json:"recommendation"`
	CreatedAt       time.Time      `json:"createdAt"`
}
