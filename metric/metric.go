// Package metric publishes render budget counters with expvar. Every
// quantum has a budget equal to its playback duration: a quantum rendered
// slower than it plays is an overrun and causes an audible dropout.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/nfplayer/signal"
)

const prefix = "nfplayer.render"

const (
	// QuantumCounter counts rendered quanta.
	QuantumCounter = "Quanta"
	// SampleCounter counts rendered samples.
	SampleCounter = "Samples"
	// PlayedCounter is the playback duration of rendered quanta.
	PlayedCounter = "Played"
	// RenderCounter is the time spent rendering quanta.
	RenderCounter = "RenderTime"
	// PeakLoadCounter is the highest render time of a single quantum, in
	// percent of its budget.
	PeakLoadCounter = "PeakLoad"
	// OverrunCounter counts quanta rendered slower than they play.
	OverrunCounter = "Overruns"
	// MeterCounter counts meters created for the component type.
	MeterCounter = "Meters"
)

var (
	registry = budgets{
		m: make(map[string]*budget),
	}

	counters = []string{
		QuantumCounter,
		SampleCounter,
		PlayedCounter,
		RenderCounter,
		PeakLoadCounter,
		OverrunCounter,
		MeterCounter,
	}
)

// Get returns counters of the component type.
func Get(component interface{}) map[string]string {
	return values(typeName(component))
}

// GetAll returns counters of all metered component types.
func GetAll() map[string]map[string]string {
	registry.Lock()
	defer registry.Unlock()
	m := make(map[string]map[string]string, len(registry.m))
	for name := range registry.m {
		m[name] = values(name)
	}
	return m
}

func values(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		if v := expvar.Get(key(name, counter)); v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Meter measures quanta rendered by a single component. Meters of the
// same component type share counters. Meter is not safe for concurrent
// use.
type Meter struct {
	sampleRate      int
	budget          *budget
	quantumSize     int64
	quantumDuration time.Duration
}

// NewMeter creates a meter for the component.
func NewMeter(component interface{}, sampleRate int) *Meter {
	b := registry.get(typeName(component))
	b.meters.Add(1)
	return &Meter{
		sampleRate: sampleRate,
		budget:     b,
	}
}

// Start begins measuring a quantum. Returned function must be called once
// the quantum is rendered.
func (m *Meter) Start() func(quantumSize int64) {
	startedAt := time.Now()
	return func(quantumSize int64) {
		m.Record(quantumSize, time.Since(startedAt))
	}
}

// Record accounts a quantum of provided size that took given time to
// render.
func (m *Meter) Record(quantumSize int64, took time.Duration) {
	if m.quantumSize != quantumSize {
		m.quantumSize = quantumSize
		m.quantumDuration = signal.DurationOf(m.sampleRate, quantumSize)
	}
	b := m.budget
	b.quanta.Add(1)
	b.samples.Add(quantumSize)
	b.played.add(m.quantumDuration)
	b.rendering.add(took)
	if m.quantumDuration <= 0 {
		return
	}
	if took > m.quantumDuration {
		b.overruns.Add(1)
	}
	b.peakLoad.max(int64(took * 100 / m.quantumDuration))
}

type budgets struct {
	sync.Mutex
	m map[string]*budget
}

// get returns counters of the type. Counters are published once since
// expvar panics on duplicate names.
func (bs *budgets) get(name string) *budget {
	bs.Lock()
	defer bs.Unlock()
	if b, ok := bs.m[name]; ok {
		return b
	}
	b := &budget{
		meters:    expvar.NewInt(key(name, MeterCounter)),
		quanta:    expvar.NewInt(key(name, QuantumCounter)),
		samples:   expvar.NewInt(key(name, SampleCounter)),
		overruns:  expvar.NewInt(key(name, OverrunCounter)),
		played:    &duration{},
		rendering: &duration{},
		peakLoad:  &peak{},
	}
	expvar.Publish(key(name, PlayedCounter), b.played)
	expvar.Publish(key(name, RenderCounter), b.rendering)
	expvar.Publish(key(name, PeakLoadCounter), b.peakLoad)
	bs.m[name] = b
	return b
}

type budget struct {
	meters    *expvar.Int
	quanta    *expvar.Int
	samples   *expvar.Int
	overruns  *expvar.Int
	played    *duration
	rendering *duration
	peakLoad  *peak
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, name, counter)
}

func typeName(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration formats accumulated time.Duration.
type duration struct {
	d atomic.Int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(v.d.Load()).String())
}

func (v *duration) add(delta time.Duration) {
	v.d.Add(int64(delta))
}

// peak keeps the highest recorded value.
type peak struct {
	v atomic.Int64
}

func (p *peak) String() string {
	return fmt.Sprintf("%d", p.v.Load())
}

func (p *peak) max(value int64) {
	for {
		current := p.v.Load()
		if value <= current || p.v.CompareAndSwap(current, value) {
			return
		}
	}
}
