// Package instant provides a nanosecond-precision time value used by the
// renderer. All scheduling math is done on integer nanoseconds; conversion
// to floating seconds happens only when automation curves are evaluated.
package instant

import (
	"encoding/json"
	"math"
	"time"
)

// Instant is a point in time or a duration measured in nanoseconds.
type Instant struct {
	nanos int64
}

// Zero is the zero instant.
var Zero = Instant{}

// FromNanos creates an instant from nanoseconds.
func FromNanos(nanos int64) Instant {
	return Instant{nanos: nanos}
}

// FromMillis creates an instant from milliseconds.
func FromMillis(millis float64) Instant {
	return Instant{nanos: int64(math.Round(millis * 1e6))}
}

// FromSeconds creates an instant from seconds.
func FromSeconds(seconds float64) Instant {
	return Instant{nanos: int64(math.Round(seconds * 1e9))}
}

// FromSamples creates an instant from number of samples at provided sample rate.
func FromSamples(samples int64, hz int) Instant {
	return Instant{nanos: int64(math.Round(float64(samples) / float64(hz) * 1e9))}
}

// FromDuration creates an instant from time.Duration.
func FromDuration(d time.Duration) Instant {
	return Instant{nanos: int64(d)}
}

// Nanos returns instant as nanoseconds.
func (i Instant) Nanos() int64 {
	return i.nanos
}

// Millis returns instant as milliseconds.
func (i Instant) Millis() float64 {
	return float64(i.nanos) / 1e6
}

// Seconds returns instant as seconds.
func (i Instant) Seconds() float64 {
	return float64(i.nanos) / 1e9
}

// Samples returns number of samples at provided sample rate, rounded to
// the nearest one. Zero instant is always zero samples.
func (i Instant) Samples(hz int) int64 {
	if i.nanos == 0 {
		return 0
	}
	return int64(math.Round(float64(i.nanos) / 1e9 * float64(hz)))
}

// Duration returns instant as time.Duration.
func (i Instant) Duration() time.Duration {
	return time.Duration(i.nanos)
}

// Add returns i+o.
func (i Instant) Add(o Instant) Instant {
	return Instant{nanos: i.nanos + o.nanos}
}

// Sub returns i-o.
func (i Instant) Sub(o Instant) Instant {
	return Instant{nanos: i.nanos - o.nanos}
}

// Scale multiplies instant by factor, result is rounded to nanoseconds.
func (i Instant) Scale(factor float64) Instant {
	return Instant{nanos: int64(math.Round(float64(i.nanos) * factor))}
}

// Mod returns remainder of division by factor nanoseconds. Zero factor
// returns i unchanged.
func (i Instant) Mod(factor int64) Instant {
	if factor == 0 {
		return i
	}
	return Instant{nanos: i.nanos % factor}
}

// Div returns i/o as a float.
func (i Instant) Div(o Instant) float64 {
	return float64(i.nanos) / float64(o.nanos)
}

// Gt returns i > o.
func (i Instant) Gt(o Instant) bool { return i.nanos > o.nanos }

// Gte returns i >= o.
func (i Instant) Gte(o Instant) bool { return i.nanos >= o.nanos }

// Lt returns i < o.
func (i Instant) Lt(o Instant) bool { return i.nanos < o.nanos }

// Lte returns i <= o.
func (i Instant) Lte(o Instant) bool { return i.nanos <= o.nanos }

// Eq returns i == o.
func (i Instant) Eq(o Instant) bool { return i.nanos == o.nanos }

// Neq returns i != o.
func (i Instant) Neq(o Instant) bool { return i.nanos != o.nanos }

// Max returns the latest of instants.
func Max(a Instant, others ...Instant) Instant {
	for _, o := range others {
		if o.nanos > a.nanos {
			a = o
		}
	}
	return a
}

// Min returns the earliest of instants.
func Min(a Instant, others ...Instant) Instant {
	for _, o := range others {
		if o.nanos < a.nanos {
			a = o
		}
	}
	return a
}

func (i Instant) String() string {
	return time.Duration(i.nanos).String()
}

// MarshalJSON encodes instant as a number of nanoseconds.
func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.nanos)
}

// UnmarshalJSON decodes instant from a number of nanoseconds.
func (i *Instant) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &i.nanos)
}
