package random

// Script replays fixed values, repeating the last one once exhausted.
// Tests use it to force hits, misses and critical rolls.
type Script struct {
	Floats []float64
	Ints   []int
	fi, ii int
}

func (s *Script) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[min(s.fi, len(s.Floats)-1)]
	s.fi++
	return v
}

// IntN returns the scripted value clamped into [0, n).
func (s *Script) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[min(s.ii, len(s.Ints)-1)]
	s.ii++
	return max(0, min(v, n-1))
}

// Fixed returns a factory that always hands out the same source.
func Fixed(src Source) Factory {
	return func() Source { return src }
}
