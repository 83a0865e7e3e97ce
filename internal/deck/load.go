package deck

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// compositionFile is the YAML deck table format: printed counts keyed by
// wire label. Kinds are fixed by the game; only counts vary between
// printings.
type compositionFile struct {
	Name  string         `yaml:"name"`
	Cards map[string]int `yaml:"cards"`
}

// LoadComposition reads a YAML deck table and validates it. Unknown
// labels, negative counts and any total other than DeckSize fail, so a
// bad table is caught at startup rather than skewing every computation.
func LoadComposition(r io.Reader) (*Composition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading deck table: %w", err)
	}

	var file compositionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing deck table: %w", err)
	}

	counts := make(map[Kind]int, len(file.Cards))
	for label, n := range file.Cards {
		k, err := ParseKind(label)
		if err != nil {
			return nil, fmt.Errorf("deck table: %w", err)
		}
		if _, dup := counts[k]; dup {
			return nil, fmt.Errorf("deck table: duplicate entry for kind %s", k)
		}
		counts[k] = n
	}

	c, err := NewComposition(counts)
	if err != nil {
		return nil, fmt.Errorf("deck table: %w", err)
	}
	if c.Total() != DeckSize {
		return nil, fmt.Errorf("deck table totals %d cards, want %d", c.Total(), DeckSize)
	}
	return c, nil
}

// LoadCompositionFile reads a YAML deck table from disk.
func LoadCompositionFile(path string) (*Composition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening deck table: %w", err)
	}
	defer f.Close()

	c, err := LoadComposition(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
