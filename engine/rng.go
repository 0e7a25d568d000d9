package engine

import "math/rand/v2"

// Rand is the randomness used by shuffles.
type Rand interface {
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
}

// ---------------------------------------------------------------------------
// Seeded generator
// ---------------------------------------------------------------------------

// Xorshift64 is the deterministic generator used whenever a seed is supplied.
// The stream is x ^= x<<13; x ^= x>>7; x ^= x<<17, and IntN reduces by modulo,
// so seeded shuffles are bit-reproducible across implementations.
type Xorshift64 struct {
	state uint64
}

// NewXorshift64 seeds a generator. Seed 0 is corrected to 1; xorshift can't
// start at 0.
func NewXorshift64(seed uint64) *Xorshift64 {
	if seed == 0 {
		seed = 1
	}
	return &Xorshift64{state: seed}
}

// Next advances the stream and returns the new state.
func (x *Xorshift64) Next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

// IntN returns Next() % n.
func (x *Xorshift64) IntN(n int) int {
	return int(x.Next() % uint64(n))
}

// State returns the current internal state, suitable for NewXorshift64.
func (x *Xorshift64) State() uint64 { return x.state }

// ambientRand delegates to math/rand/v2 (auto-seeded). Not reproducible.
type ambientRand struct{}

func (ambientRand) IntN(n int) int { return rand.IntN(n) }

// NewRand returns a seeded xorshift64 stream when seed is non-nil and the
// ambient source otherwise.
func NewRand(seed *uint64) Rand {
	if seed != nil {
		return NewXorshift64(*seed)
	}
	return ambientRand{}
}

// Shuffle performs a Fisher-Yates shuffle from the end of s.
func Shuffle[T any](s []T, r Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
