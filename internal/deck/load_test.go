package deck

import (
	"strings"
	"testing"
)

const standardYAML = `
name: standard
cards:
  "0": 1
  "1": 1
  "2": 2
  "3": 3
  "4": 4
  "5": 5
  "6": 6
  "7": 7
  "8": 8
  "9": 9
  "10": 10
  "11": 11
  "12": 12
  freeze: 3
  flipthree: 3
  secondchance: 3
  "+2": 1
  "+4": 1
  "+6": 1
  "+8": 1
  "+10": 1
  x2: 1
`

func TestLoadComposition(t *testing.T) {
	c, err := LoadComposition(strings.NewReader(standardYAML))
	if err != nil {
		t.Fatalf("LoadComposition() error = %v", err)
	}
	if c.Total() != DeckSize {
		t.Errorf("Total() = %d, want %d", c.Total(), DeckSize)
	}
	if got := c.Printed(Eleven); got != 11 {
		t.Errorf("Printed(11) = %d, want 11", got)
	}
}

func TestLoadCompositionHouseVariant(t *testing.T) {
	// Moving a count between kinds keeps the total legal.
	variant := strings.Replace(standardYAML, "freeze: 3", "freeze: 2", 1)
	variant = strings.Replace(variant, "secondchance: 3", "secondchance: 4", 1)

	c, err := LoadComposition(strings.NewReader(variant))
	if err != nil {
		t.Fatalf("LoadComposition() error = %v", err)
	}
	if got := c.Printed(Freeze); got != 2 {
		t.Errorf("Printed(freeze) = %d, want 2", got)
	}
	if got := c.Printed(SecondChance); got != 4 {
		t.Errorf("Printed(secondchance) = %d, want 4", got)
	}
}

func TestLoadCompositionErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "wrong total",
			yaml:    "cards:\n  \"12\": 12\n",
			wantErr: "want 94",
		},
		{
			name:    "unknown label",
			yaml:    "cards:\n  joker: 2\n",
			wantErr: "unknown card kind",
		},
		{
			name:    "negative count",
			yaml:    "cards:\n  freeze: -1\n",
			wantErr: "negative count",
		},
		{
			name:    "malformed yaml",
			yaml:    "cards: [not a map",
			wantErr: "parsing deck table",
		},
		{
			name:    "no cards",
			yaml:    "name: empty\n",
			wantErr: "empty composition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadComposition(strings.NewReader(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadComposition() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
