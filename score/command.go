package score

import (
	"encoding/json"

	"github.com/dudk/nfplayer/instant"
)

// Automation command names.
const (
	SetValueAtTimeName               = "setValueAtTime"
	LinearRampToValueAtTimeName      = "linearRampToValueAtTime"
	ExponentialRampToValueAtTimeName = "exponentialRampToValueAtTime"
	SetTargetAtTimeName              = "setTargetAtTime"
	SetValueCurveAtTimeName          = "setValueCurveAtTime"
)

// Command is a single automation command. Args are kept in wire format.
type Command struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type (
	// SetValueAtTimeArgs are arguments of setValueAtTime command.
	SetValueAtTimeArgs struct {
		Value     float64 `json:"value"`
		StartTime int64   `json:"startTime"`
	}

	// RampArgs are arguments of linear and exponential ramp commands.
	RampArgs struct {
		Value   float64 `json:"value"`
		EndTime int64   `json:"endTime"`
	}

	// SetTargetAtTimeArgs are arguments of setTargetAtTime command.
	SetTargetAtTimeArgs struct {
		Target       float64 `json:"target"`
		StartTime    int64   `json:"startTime"`
		TimeConstant float64 `json:"timeConstant"`
	}

	// SetValueCurveAtTimeArgs are arguments of setValueCurveAtTime command.
	SetValueCurveAtTimeArgs struct {
		Values    []float64 `json:"values"`
		StartTime int64     `json:"startTime"`
		Duration  int64     `json:"duration"`
	}
)

func newCommand(name string, args interface{}) Command {
	// args are plain structs of numbers, marshal never fails.
	data, _ := json.Marshal(args)
	return Command{Name: name, Args: data}
}

// SetValueAtTime sets value at start time.
func SetValueAtTime(value float64, start instant.Instant) Command {
	return newCommand(SetValueAtTimeName, SetValueAtTimeArgs{Value: value, StartTime: start.Nanos()})
}

// LinearRampToValueAtTime ramps linearly to value at end time.
func LinearRampToValueAtTime(value float64, end instant.Instant) Command {
	return newCommand(LinearRampToValueAtTimeName, RampArgs{Value: value, EndTime: end.Nanos()})
}

// ExponentialRampToValueAtTime ramps exponentially to value at end time.
func ExponentialRampToValueAtTime(value float64, end instant.Instant) Command {
	return newCommand(ExponentialRampToValueAtTimeName, RampArgs{Value: value, EndTime: end.Nanos()})
}

// SetTargetAtTime approaches target exponentially starting at start time.
func SetTargetAtTime(target float64, start instant.Instant, timeConstant float64) Command {
	return newCommand(SetTargetAtTimeName, SetTargetAtTimeArgs{Target: target, StartTime: start.Nanos(), TimeConstant: timeConstant})
}

// SetValueCurveAtTime plays values curve over duration starting at start time.
func SetValueCurveAtTime(values []float64, start, duration instant.Instant) Command {
	return newCommand(SetValueCurveAtTimeName, SetValueCurveAtTimeArgs{Values: values, StartTime: start.Nanos(), Duration: duration.Nanos()})
}
