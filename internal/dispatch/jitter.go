package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

// jitterSource draws pacing jitter from a mutex-guarded rand.Rand so both the
// dispatcher loop and tests can share one seeded source.
type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newJitterSource(seed int64) *jitterSource {
	return &jitterSource{rnd: rand.New(rand.NewSource(seed))}
}

// pace returns base plus a uniform draw from [0, spread*base).
func (j *jitterSource) pace(base time.Duration, spread float64) time.Duration {
	if base <= 0 {
		return 0
	}
	max := time.Duration(spread * float64(base))
	if max <= 0 {
		return base
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return base + time.Duration(j.rnd.Int63n(int64(max)))
}
