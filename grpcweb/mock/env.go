package mock

import (
	"strconv"
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/atomic"
)

// ids is shared by every adapter in the process so generated ids never
// repeat within a run.
var ids = atomic.NewUint64(0)

// Env is what a generator may use besides its request. It is not safe for
// concurrent use; each call gets its own.
type Env struct {
	Seed uint32
	Path string

	rng fastrand.RNG
	now func() time.Time
}

func newEnv(seed uint32, path string, rngSeed uint32, now func() time.Time) *Env {
	// fastrand reseeds a zero state from the OS.
	if rngSeed == 0 {
		rngSeed = 1
	}
	env := &Env{Seed: seed, Path: path, now: now}
	env.rng.Seed(rngSeed)
	return env
}

// Uint32 returns the next pseudo-random value.
func (e *Env) Uint32() uint32 {
	return e.rng.Uint32()
}

// Intn returns a pseudo-random int in [0, n). n <= 0 returns 0.
func (e *Env) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(e.rng.Uint32n(uint32(n)))
}

// Between returns a pseudo-random int in [lo, hi].
func (e *Env) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + e.Intn(hi-lo+1)
}

// Float returns a pseudo-random value in [0, 1).
func (e *Env) Float() float64 {
	return float64(e.rng.Uint32()) / (1 << 32)
}

// NextID returns prefix followed by a process-wide increasing number.
func (e *Env) NextID(prefix string) string {
	return prefix + strconv.FormatUint(ids.Inc(), 10)
}

// Now returns the adapter clock.
func (e *Env) Now() time.Time {
	return e.now()
}

// Pick returns a pseudo-random element of items, or the zero value when
// items is empty.
func Pick[T any](env *Env, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[env.Intn(len(items))]
}
