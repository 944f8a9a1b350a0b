package persona

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source used by the generators. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// LockedRand is a Rand safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewLockedRand returns a LockedRand seeded with seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

func pick(r Rand, list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[r.Intn(len(list))]
}
