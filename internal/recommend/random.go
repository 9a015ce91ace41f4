package recommend

import (
	"math/rand"
	"sync"
	"time"
)

// Random supplies the pipeline's randomness: genre sampling, page choice,
// and the final candidate pick. Injecting it keeps picks reproducible in
// tests.
type Random interface {
	Intn(n int) int
}

// lockedRand guards a rand.Rand so request goroutines can share it.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a time-seeded Random safe for concurrent use.
func NewRandom() Random {
	return NewSeededRandom(time.Now().UnixNano())
}

// NewSeededRandom returns a deterministic Random for tests.
func NewSeededRandom(seed int64) Random {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}
