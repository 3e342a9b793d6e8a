package furi

import (
	"math"
	"time"

	"furigo/kernel"
)

// Duration is a span of kernel ticks.
type Duration uint32

const (
	// Zero does not wait.
	Zero Duration = 0
	// WaitForever never expires.
	WaitForever Duration = Duration(kernel.WaitForever)
	// MaxDuration is the longest representable span.
	MaxDuration Duration = math.MaxUint32
)

// MaxIntervalTicks is the longest span for which Instant ordering holds.
const MaxIntervalTicks = math.MaxUint32 / 2

// Ticks returns the span as a kernel timeout.
func (d Duration) Ticks() uint32 { return uint32(d) }

func saturate(v uint64) Duration {
	if v > math.MaxUint32 {
		return MaxDuration
	}
	return Duration(v)
}

// FromTicks wraps a raw tick count.
func FromTicks(ticks uint32) Duration { return Duration(ticks) }

// FromSecs converts seconds to ticks, saturating at MaxDuration.
func FromSecs(secs uint32) Duration {
	return saturate(uint64(secs) * uint64(kernel.TickFrequency()))
}

// FromMillis converts milliseconds to ticks, saturating at MaxDuration.
func FromMillis(ms uint32) Duration {
	hz := kernel.TickFrequency()
	if hz == 1000 {
		return Duration(ms)
	}
	return saturate(uint64(ms) * uint64(hz) / 1000)
}

// FromMicros converts microseconds to ticks, saturating at MaxDuration.
func FromMicros(us uint64) Duration {
	return fromUnits(us, 1_000_000)
}

// FromNanos converts nanoseconds to ticks, saturating at MaxDuration.
func FromNanos(ns uint64) Duration {
	return fromUnits(ns, 1_000_000_000)
}

func fromUnits(v, perSec uint64) Duration {
	hz := uint64(kernel.TickFrequency())
	secs, rem := v/perSec, v%perSec
	if secs > math.MaxUint32 {
		return MaxDuration
	}
	return saturate(secs*hz + rem*hz/perSec)
}

// FromStd converts a time.Duration to ticks. Negative values become Zero.
func FromStd(d time.Duration) Duration {
	if d <= 0 {
		return Zero
	}
	return FromNanos(uint64(d))
}

// Std converts the span to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(uint64(d) * uint64(time.Second) / uint64(kernel.TickFrequency()))
}

// Millis returns the span in whole milliseconds.
func (d Duration) Millis() uint64 {
	hz := kernel.TickFrequency()
	if hz == 1000 {
		return uint64(d)
	}
	return uint64(d) * 1000 / uint64(hz)
}

// CheckedAdd returns d+o, or false on overflow.
func (d Duration) CheckedAdd(o Duration) (Duration, bool) {
	s := uint64(d) + uint64(o)
	if s > math.MaxUint32 {
		return 0, false
	}
	return Duration(s), true
}

// SaturatingAdd returns d+o clamped to MaxDuration.
func (d Duration) SaturatingAdd(o Duration) Duration {
	return saturate(uint64(d) + uint64(o))
}

// CheckedSub returns d-o, or false when o > d.
func (d Duration) CheckedSub(o Duration) (Duration, bool) {
	if o > d {
		return 0, false
	}
	return d - o, true
}

// SaturatingSub returns d-o clamped to Zero.
func (d Duration) SaturatingSub(o Duration) Duration {
	if o > d {
		return Zero
	}
	return d - o
}

// CheckedMul returns d*n, or false on overflow.
func (d Duration) CheckedMul(n uint32) (Duration, bool) {
	p := uint64(d) * uint64(n)
	if p > math.MaxUint32 {
		return 0, false
	}
	return Duration(p), true
}

// CheckedDiv returns d/n, or false when n is zero.
func (d Duration) CheckedDiv(n uint32) (Duration, bool) {
	if n == 0 {
		return 0, false
	}
	return d / Duration(n), true
}

func (d Duration) String() string {
	if d == WaitForever {
		return "forever"
	}
	return d.Std().String()
}

// Instant is a point on the wrapping kernel tick counter.
//
// Two instants compare correctly while they are at most MaxIntervalTicks
// apart.
type Instant uint32

// Now returns the current tick.
func Now() Instant { return Instant(kernel.Tick()) }

// Ticks returns the raw tick value.
func (i Instant) Ticks() uint32 { return uint32(i) }

// CheckedSince returns i-earlier, or false when earlier is after i.
func (i Instant) CheckedSince(earlier Instant) (Duration, bool) {
	diff := uint32(i - earlier)
	if diff > MaxIntervalTicks {
		return 0, false
	}
	return Duration(diff), true
}

// Since returns i-earlier, or Zero when earlier is after i.
func (i Instant) Since(earlier Instant) Duration {
	d, _ := i.CheckedSince(earlier)
	return d
}

// Elapsed returns the time passed since i.
func (i Instant) Elapsed() Duration { return Now().Since(i) }

// Add returns i+d, or false when d exceeds MaxIntervalTicks.
func (i Instant) Add(d Duration) (Instant, bool) {
	if d > MaxIntervalTicks {
		return 0, false
	}
	return i + Instant(d), true
}

// Sub returns i-d, or false when d exceeds MaxIntervalTicks.
func (i Instant) Sub(d Duration) (Instant, bool) {
	if d > MaxIntervalTicks {
		return 0, false
	}
	return i - Instant(d), true
}

// After reports whether i is later than o.
func (i Instant) After(o Instant) bool {
	diff := uint32(i - o)
	return diff != 0 && diff <= MaxIntervalTicks
}

// Before reports whether i is earlier than o.
func (i Instant) Before(o Instant) bool { return o.After(i) }
