// Package param implements automation parameters with Web Audio
// scheduling semantics. Times are in seconds.
package param

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

// ErrUnknownCommand is returned when automation command is not supported.
var ErrUnknownCommand = errors.New("unknown automation command")

type eventKind int

const (
	setValue eventKind = iota
	linearRamp
	exponentialRamp
	setTarget
	valueCurve
)

type event struct {
	kind         eventKind
	time         float64
	value        float64
	timeConstant float64
	duration     float64
	values       []float64
}

func (e event) isRamp() bool {
	return e.kind == linearRamp || e.kind == exponentialRamp
}

// Param is an automation parameter. It's not safe for concurrent use.
type Param struct {
	defaultValue float64
	events       []event
}

// New returns param with default value.
func New(defaultValue float64) *Param {
	return &Param{defaultValue: defaultValue}
}

// DefaultValue returns the value used before any event.
func (p *Param) DefaultValue() float64 {
	return p.defaultValue
}

// Len returns number of scheduled events.
func (p *Param) Len() int {
	return len(p.events)
}

// insert keeps events ordered by time. Events with equal time keep
// insertion order.
func (p *Param) insert(e event) {
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > e.time
	})
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

// SetValueAtTime sets value at start time.
func (p *Param) SetValueAtTime(value, start float64) {
	p.insert(event{kind: setValue, time: start, value: value})
}

// LinearRampToValueAtTime linearly ramps from previous event to value at end time.
func (p *Param) LinearRampToValueAtTime(value, end float64) {
	p.insert(event{kind: linearRamp, time: end, value: value})
}

// ExponentialRampToValueAtTime exponentially ramps from previous event to
// value at end time.
func (p *Param) ExponentialRampToValueAtTime(value, end float64) {
	p.insert(event{kind: exponentialRamp, time: end, value: value})
}

// SetTargetAtTime starts exponential approach to target at start time.
func (p *Param) SetTargetAtTime(target, start, timeConstant float64) {
	p.insert(event{kind: setTarget, time: start, value: target, timeConstant: timeConstant})
}

// SetValueCurveAtTime plays linearly interpolated values over duration.
func (p *Param) SetValueCurveAtTime(values []float64, start, duration float64) {
	p.insert(event{kind: valueCurve, time: start, duration: duration, values: append([]float64(nil), values...)})
}

// CancelScheduledValues removes all events scheduled at or after t.
func (p *Param) CancelScheduledValues(t float64) {
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time >= t
	})
	p.events = p.events[:i]
}

// ValueAt returns value at time t.
func (p *Param) ValueAt(t float64) float64 {
	value := p.defaultValue
	var prevTime float64
	for i, e := range p.events {
		if e.time > t {
			switch e.kind {
			case linearRamp:
				return value + (e.value-value)*(t-prevTime)/(e.time-prevTime)
			case exponentialRamp:
				if value == 0 || e.value == 0 || value*e.value < 0 {
					return value
				}
				return value * math.Pow(e.value/value, (t-prevTime)/(e.time-prevTime))
			default:
				return value
			}
		}

		switch e.kind {
		case setValue, linearRamp, exponentialRamp:
			value, prevTime = e.value, e.time
		case valueCurve:
			end := e.time + e.duration
			if t < end {
				return curveValueAt(e, t)
			}
			if len(e.values) > 0 {
				value = e.values[len(e.values)-1]
			}
			prevTime = end
		case setTarget:
			var next *event
			if i+1 < len(p.events) {
				next = &p.events[i+1]
			}
			switch {
			case next == nil || (next.time > t && !next.isRamp()):
				return signal.TargetValueAt(t, value, e.value, e.time, e.timeConstant)
			case next.isRamp():
				// ramp starts from the value held when approach began.
				prevTime = e.time
			default:
				value = signal.TargetValueAt(next.time, value, e.value, e.time, e.timeConstant)
				prevTime = next.time
			}
		}
	}
	return value
}

func curveValueAt(e event, t float64) float64 {
	n := len(e.values)
	switch {
	case n == 0:
		return 0
	case n == 1 || e.duration <= 0:
		return e.values[n-1]
	}
	k := (t - e.time) / e.duration * float64(n-1)
	i := int(math.Floor(k))
	if i >= n-1 {
		return e.values[n-1]
	}
	return e.values[i] + (e.values[i+1]-e.values[i])*(k-float64(i))
}

// Apply schedules score commands. Command times are in nanoseconds.
func (p *Param) Apply(cmds ...score.Command) error {
	for _, cmd := range cmds {
		if err := p.apply(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all scheduled values and replays commands from scratch.
func (p *Param) Reset(cmds []score.Command) error {
	p.events = p.events[:0]
	return p.Apply(cmds...)
}

func seconds(nanos int64) float64 {
	return instant.FromNanos(nanos).Seconds()
}

func (p *Param) apply(cmd score.Command) error {
	switch cmd.Name {
	case score.SetValueAtTimeName:
		var args score.SetValueAtTimeArgs
		if err := decode(cmd, &args); err != nil {
			return err
		}
		p.SetValueAtTime(args.Value, seconds(args.StartTime))
	case score.LinearRampToValueAtTimeName:
		var args score.RampArgs
		if err := decode(cmd, &args); err != nil {
			return err
		}
		p.LinearRampToValueAtTime(args.Value, seconds(args.EndTime))
	case score.ExponentialRampToValueAtTimeName:
		var args score.RampArgs
		if err := decode(cmd, &args); err != nil {
			return err
		}
		p.ExponentialRampToValueAtTime(args.Value, seconds(args.EndTime))
	case score.SetTargetAtTimeName:
		var args score.SetTargetAtTimeArgs
		if err := decode(cmd, &args); err != nil {
			return err
		}
		p.SetTargetAtTime(args.Target, seconds(args.StartTime), args.TimeConstant)
	case score.SetValueCurveAtTimeName:
		var args score.SetValueCurveAtTimeArgs
		if err := decode(cmd, &args); err != nil {
			return err
		}
		p.SetValueCurveAtTime(args.Values, seconds(args.StartTime), seconds(args.Duration))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	return nil
}

func decode(cmd score.Command, args interface{}) error {
	if err := json.Unmarshal(cmd.Args, args); err != nil {
		return fmt.Errorf("decode %s args: %w", cmd.Name, err)
	}
	return nil
}
