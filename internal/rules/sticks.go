package rules

// Sticks is one throw of the four two-faced sticks; true is the flat face.
type Sticks [4]bool

// Rand is the randomness a throw needs. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Throw draws four independent fair sticks.
func Throw(r Rand) Sticks {
	var s Sticks
	for i := range s {
		s[i] = r.Intn(2) == 1
	}
	return s
}

// Value maps the throw to a move count: the number of flat faces, with
// all sticks down counting as 6.
func (s Sticks) Value() int {
	n := 0
	for _, up := range s {
		if up {
			n++
		}
	}
	if n == 0 {
		return 6
	}
	return n
}

// Rolls are the only values a throw can produce.
var Rolls = [...]int{1, 2, 3, 4, 6}

// ValidRoll reports whether v is a possible throw value.
func ValidRoll(v int) bool {
	for _, r := range Rolls {
		if r == v {
			return true
		}
	}
	return false
}

// ExtraTurn reports whether a roll lets the same player throw again.
func ExtraTurn(v int) bool { return v == 1 || v == 4 || v == 6 }

// Chance pairs a roll with its approximate probability.
type Chance struct {
	Roll int
	P    float64
}

// Chances is the binomial distribution of four fair sticks, rounded.
var Chances = [...]Chance{{1, 0.25}, {2, 0.38}, {3, 0.25}, {4, 0.06}, {6, 0.06}}
