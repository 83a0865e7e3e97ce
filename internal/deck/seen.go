package deck

// Seen records how many copies of each kind have left the undrawn deck
// this round: cards in any player's line, banked, or otherwise out of
// play in view of the observer. It is a plain snapshot owned by the
// caller; the engine never mutates or retains one.
type Seen map[Kind]int

// Add records one more observed copy of k.
func (s Seen) Add(k Kind) {
	s[k]++
}

// AddN records n more observed copies of k.
func (s Seen) AddN(k Kind, n int) {
	s[k] += n
}

// Count returns the observed count for k.
func (s Seen) Count(k Kind) int {
	return s[k]
}

// Total returns the total number of observed cards.
func (s Seen) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Clone returns an independent copy.
func (s Seen) Clone() Seen {
	out := make(Seen, len(s))
	for k, n := range s {
		out[k] = n
	}
	return out
}
