// Package selection draws items uniformly at random from an eligible set.
package selection

import (
	"math/rand/v2"
	"sync"
)

// Picker draws ids without replacement. It is safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a Picker backed by a randomly seeded source.
func NewPicker() *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededPicker returns a deterministic Picker, for tests.
func NewSeededPicker(seed1, seed2 uint64) *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Sample returns up to n distinct ids chosen uniformly from ids, in random
// order. If fewer than n are available all of them are returned shuffled.
// The input slice is not modified.
func (p *Picker) Sample(ids []int64, n int) []int64 {
	if n <= 0 || len(ids) == 0 {
		return []int64{}
	}
	pool := make([]int64, len(ids))
	copy(pool, ids)
	if n > len(pool) {
		n = len(pool)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + p.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// One returns a single id chosen uniformly from ids. ok is false when ids is empty.
func (p *Picker) One(ids []int64) (id int64, ok bool) {
	if len(ids) == 0 {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return ids[p.rng.IntN(len(ids))], true
}
