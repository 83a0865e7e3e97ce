package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one printed card type in the Flip 7 deck: a number card
// 0-12, an action card, or a scoring modifier.
type Kind uint8

const (
	Zero Kind = iota
	One
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Eleven
	Twelve
	Freeze
	FlipThree
	SecondChance
	PlusTwo
	PlusFour
	PlusSix
	PlusEight
	PlusTen
	TimesTwo
)

// KindCount is the number of distinct kinds in the deck.
const KindCount = int(TimesTwo) + 1

// String returns the wire label for the kind, as emitted by detection
// layers (e.g. "7", "freeze", "+4", "x2").
func (k Kind) String() string {
	switch {
	case k.IsNumber():
		return strconv.Itoa(int(k))
	case k == Freeze:
		return "freeze"
	case k == FlipThree:
		return "flipthree"
	case k == SecondChance:
		return "secondchance"
	case k == TimesTwo:
		return "x2"
	case k.IsModifier():
		return "+" + strconv.Itoa(k.Bonus())
	default:
		return "?"
	}
}

// IsNumber returns true for the number cards 0 through 12.
func (k Kind) IsNumber() bool {
	return k <= Twelve
}

// IsAction returns true for Freeze, Flip Three and Second Chance.
func (k Kind) IsAction() bool {
	return k == Freeze || k == FlipThree || k == SecondChance
}

// IsModifier returns true for the scoring modifiers (+2 through +10 and x2).
func (k Kind) IsModifier() bool {
	return k >= PlusTwo && k <= TimesTwo
}

// Value returns the face value of a number kind, or 0 for actions and
// modifiers.
func (k Kind) Value() int {
	if k.IsNumber() {
		return int(k)
	}
	return 0
}

// Bonus returns the flat points granted by a +N modifier, or 0 for every
// other kind.
func (k Kind) Bonus() int {
	switch k {
	case PlusTwo:
		return 2
	case PlusFour:
		return 4
	case PlusSix:
		return 6
	case PlusEight:
		return 8
	case PlusTen:
		return 10
	default:
		return 0
	}
}

// ParseKind parses a wire label into a Kind. Labels are case-insensitive
// and surrounding whitespace is ignored.
func ParseKind(s string) (Kind, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	switch label {
	case "freeze":
		return Freeze, nil
	case "flipthree":
		return FlipThree, nil
	case "secondchance":
		return SecondChance, nil
	case "+2":
		return PlusTwo, nil
	case "+4":
		return PlusFour, nil
	case "+6":
		return PlusSix, nil
	case "+8":
		return PlusEight, nil
	case "+10":
		return PlusTen, nil
	case "x2":
		return TimesTwo, nil
	}
	// Signed forms like "+7" are not number labels: an unmatched "+N" is a
	// typo for a modifier, not a card value.
	if len(label) > 0 && label[0] >= '0' && label[0] <= '9' {
		if n, err := strconv.Atoi(label); err == nil {
			return NumberKind(n)
		}
	}
	return 0, fmt.Errorf("unknown card kind %q", s)
}

// NumberKind returns the kind for a number card value 0 through 12.
func NumberKind(value int) (Kind, error) {
	if value < 0 || value > 12 {
		return 0, fmt.Errorf("number card out of range: %d", value)
	}
	return Kind(value), nil
}

// MarshalText implements encoding.TextMarshaler so kinds can key JSON maps.
func (k Kind) MarshalText() ([]byte, error) {
	if k > TimesTwo {
		return nil, fmt.Errorf("invalid card kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
