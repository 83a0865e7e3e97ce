package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RoundResult represents the outcome of a single simulated round.
type RoundResult struct {
	Score     int  // points banked, 0 on a bust
	Busted    bool // round ended by a duplicate number
	Froze     bool // round ended by a Freeze card
	FlipSeven bool // round ended by banking seven unique numbers
	Draws     int  // cards drawn before the round ended
}

// Statistics aggregates simulated round outcomes. Workers accumulate
// independent aggregates and fold them together with Merge.
type Statistics struct {
	Rounds    int
	SumScore  float64
	SumScore2 float64 // sum of squares for variance calculation
	Values    []float64

	Busts      int
	Freezes    int
	FlipSevens int
	TotalDraws int
	MaxScore   int
}

// Add incorporates a round result.
func (s *Statistics) Add(result RoundResult) {
	score := float64(result.Score)
	s.Rounds++
	s.SumScore += score
	s.SumScore2 += score * score
	s.Values = append(s.Values, score)
	s.TotalDraws += result.Draws

	if result.Busted {
		s.Busts++
	}
	if result.Froze {
		s.Freezes++
	}
	if result.FlipSeven {
		s.FlipSevens++
	}
	if result.Score > s.MaxScore {
		s.MaxScore = result.Score
	}
}

// Merge folds another aggregate into this one.
func (s *Statistics) Merge(other *Statistics) {
	s.Rounds += other.Rounds
	s.SumScore += other.SumScore
	s.SumScore2 += other.SumScore2
	s.Values = append(s.Values, other.Values...)
	s.Busts += other.Busts
	s.Freezes += other.Freezes
	s.FlipSevens += other.FlipSevens
	s.TotalDraws += other.TotalDraws
	if other.MaxScore > s.MaxScore {
		s.MaxScore = other.MaxScore
	}
}

// Mean returns the mean banked score per round.
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.SumScore / float64(s.Rounds)
}

// Variance returns the sample variance of banked scores.
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumScore2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of banked scores.
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval returns the normal-approximation confidence
// interval for the mean score at the given level, e.g. 0.95.
func (s *Statistics) ConfidenceInterval(level float64) (float64, float64) {
	mean := s.Mean()
	se := s.StdError()
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + level/2)
	return mean - z*se, mean + z*se
}

// BustRate returns the fraction of rounds that busted.
func (s *Statistics) BustRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Busts) / float64(s.Rounds)
}

// BustRateInterval returns a Clopper-Pearson interval for the bust rate
// at the given level.
func (s *Statistics) BustRateInterval(level float64) (float64, float64) {
	n, k := s.Rounds, s.Busts
	if n == 0 {
		return 0, 1
	}
	alpha := 1 - level
	lo, hi := 0.0, 1.0
	if k > 0 {
		lo = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	if k < n {
		hi = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return lo, hi
}

// FreezeRate returns the fraction of rounds ended by a Freeze card.
func (s *Statistics) FreezeRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Freezes) / float64(s.Rounds)
}

// FlipSevenRate returns the fraction of rounds that banked seven
// unique numbers.
func (s *Statistics) FlipSevenRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.FlipSevens) / float64(s.Rounds)
}

// MeanDraws returns the mean number of cards drawn per round.
func (s *Statistics) MeanDraws() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.TotalDraws) / float64(s.Rounds)
}

// Quantile returns the empirical score quantile at q in [0, 1].
func (s *Statistics) Quantile(q float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}
