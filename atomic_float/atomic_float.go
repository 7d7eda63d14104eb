package atomic_float

import (
	"math"
	"sync/atomic"
	"unsafe"
)

/*
Gist:
- consider gc side effects
- consider race conditions
This code 'checks out' despite the code-smell of using the unsafe package.
But beware the tight guidelines, and minimize critical regions and pointers:
no unsafe pointer should be stored for more than a few lines of context,
since the gc may move the original variable around, such that the original
pointer no longer refers to the variable's location.
*/

// AtomicFloat64 is a float64 with atomic read/set/add, for values written by
// the simulation loop and read concurrently by telemetry handlers.
type AtomicFloat64 struct {
	val float64
}

func NewAtomicFloat64(initial float64) *AtomicFloat64 {
	return &AtomicFloat64{val: initial}
}

// AtomicRead atomically reads the value.
func (f *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(&f.val))))
}

// AtomicSet atomically sets the value.
func (f *AtomicFloat64) AtomicSet(newVal float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&f.val)), math.Float64bits(newVal))
}

// AtomicAdd attempts a single compare-and-swap add, returning the new value
// and whether the swap succeeded. Callers retry on contention; rejected
// deltas are visible rather than silently retried.
func (f *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := f.AtomicRead()
	newVal = old + addend
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&f.val)),
		math.Float64bits(old),
		math.Float64bits(newVal),
	)
	return
}
