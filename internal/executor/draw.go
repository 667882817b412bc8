package executor

import (
	"math/rand/v2"
	"sync"
)

// DrawSource yields uniformly distributed integers in [1, n].
type DrawSource interface {
	Draw(n int) int
}

// RandomSource is a seedable DrawSource safe for concurrent use.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource seeds a PCG generator. Equal seeds produce equal draw sequences.
func NewRandomSource(seed uint64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomSource) Draw(n int) int {
	if n <= 1 {
		return 1
	}
	s.mu.Lock()
	v := s.rng.IntN(n)
	s.mu.Unlock()
	return v + 1
}

// ScriptedSource replays a fixed sequence of draws, clamped to [1, n].
// Once exhausted it keeps returning the last value.
type ScriptedSource struct {
	mu    sync.Mutex
	draws []int
	next  int
}

// NewScriptedSource returns a source replaying draws in order.
func NewScriptedSource(draws ...int) *ScriptedSource {
	return &ScriptedSource{draws: append([]int(nil), draws...)}
}

func (s *ScriptedSource) Draw(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.draws) == 0 {
		return 1
	}
	idx := s.next
	if idx >= len(s.draws) {
		idx = len(s.draws) - 1
	} else {
		s.next++
	}
	v := s.draws[idx]
	if v < 1 {
		v = 1
	}
	if v > n {
		v = n
	}
	return v
}
