// Package loop runs the bridge: each iteration polls every serial source,
// merges new readings into the vehicle state, forwards changes to the
// actuator board and records IMU telemetry.
package loop

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shaunagostinho/carputer/internal/actuator"
	"github.com/shaunagostinho/carputer/internal/imu"
	"github.com/shaunagostinho/carputer/internal/input"
	"github.com/shaunagostinho/carputer/internal/linebuf"
	"github.com/shaunagostinho/carputer/internal/serialio"
)

// Sources are the serial links polled each iteration. Output may be the same
// Source as Input when one board handles both; IMU is nil when disabled.
type Sources struct {
	Input  *serialio.Source
	Output *serialio.Source
	IMU    *serialio.Source
}

// Sink receives tagged telemetry rows.
type Sink interface {
	Record(tag string, values []float64)
}

// Config holds loop timing and debug settings.
type Config struct {
	Period  time.Duration
	Verbose bool
}

// VehicleState is the latest steering/throttle/aux and the values sent on
// the previous iteration. PrevAux is nil until one iteration has completed.
type VehicleState struct {
	Steering int
	Throttle int
	Aux      int

	PrevSteering int
	PrevThrottle int
	PrevAux      *int
}

// Snapshot is a copy of everything the loop tracks.
type Snapshot struct {
	Vehicle     VehicleState
	InputToggle int
	Output      actuator.Telemetry
	Iterations  uint64
}

// Loop is the bridge's control loop. It is driven from a single goroutine.
type Loop struct {
	cfg       Config
	src       Sources
	input     *input.Parser
	telemetry *actuator.TelemetryParser
	tx        *actuator.Transmitter
	sink      Sink

	state      VehicleState
	iterations uint64
	failing    map[*serialio.Source]bool // sources whose last read failed

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Loop that writes commands to out and telemetry to sink.
// sink may be nil.
func New(cfg Config, src Sources, out actuator.Writer, sink Sink) *Loop {
	return &Loop{
		cfg:       cfg,
		src:       src,
		input:     input.NewParser(),
		telemetry: actuator.NewTelemetryParser(),
		tx:        actuator.NewTransmitter(out, cfg.Verbose),
		sink:      sink,
		failing:   make(map[*serialio.Source]bool),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Snapshot returns a copy of the loop state.
func (l *Loop) Snapshot() Snapshot {
	s := Snapshot{
		Vehicle:     l.state,
		InputToggle: l.input.Toggle(),
		Output:      l.telemetry.State(),
		Iterations:  l.iterations,
	}
	if l.state.PrevAux != nil {
		aux := *l.state.PrevAux
		s.Vehicle.PrevAux = &aux
	}
	return s
}

// Run iterates until ctx is cancelled. Cancellation is observed between
// iterations only.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("[loop] running (period %v)", l.cfg.Period)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[loop] stopped after %d iterations", l.iterations)
			return nil
		default:
		}

		start := l.now()
		l.Step()
		if d := sleepFor(l.now().Sub(start), l.cfg.Period); d > 0 {
			l.sleep(d)
		}
	}
}

// Step runs one iteration: poll and parse every source, merge new values,
// log telemetry, send changed commands and remember what was sent.
func (l *Loop) Step() {
	polled := make(map[*serialio.Source][]string, 3)
	lines := func(s *serialio.Source) []string {
		if s == nil {
			return nil
		}
		if ls, ok := polled[s]; ok {
			return ls
		}
		ls := l.poll(s)
		polled[s] = ls
		return ls
	}

	upd := l.input.Parse(lines(l.src.Input))
	l.telemetry.Parse(lines(l.src.Output))
	frame := imu.Parse(lines(l.src.IMU))

	if r := upd.Reading; r != nil {
		l.state.Steering = r.Steering
		l.state.Throttle = r.Throttle
		l.state.Aux = r.Aux
	}
	if l.cfg.Verbose {
		log.Printf("[loop] S: %d, T: %d, aux: %d", l.state.Steering, l.state.Throttle, l.state.Aux)
	}

	if frame != nil && l.sink != nil {
		v := frame.Values()
		l.sink.Record(imu.Tag, v[:])
	}

	prev := actuator.Command{Steering: l.state.PrevSteering, Throttle: l.state.PrevThrottle}
	next := actuator.Command{Steering: l.state.Steering, Throttle: l.state.Throttle}
	if _, err := l.tx.Send(prev, next); err != nil {
		log.Printf("[loop] warning: %v", err)
	}

	aux := l.state.Aux
	l.state.PrevAux = &aux
	l.state.PrevSteering = l.state.Steering
	l.state.PrevThrottle = l.state.Throttle
	l.iterations++
}

// poll reads one source. A read error is logged when it first appears and
// again when reads succeed; repeats in between are not logged.
func (l *Loop) poll(s *serialio.Source) []string {
	lines, err := s.Poll()
	switch {
	case err == nil:
		if l.failing[s] {
			delete(l.failing, s)
			log.Printf("[loop] %s reads recovered", s.Name())
		}
	case errors.Is(err, linebuf.ErrDecode):
		log.Printf("[loop] warning: discarded %s buffer: %v", s.Name(), err)
	default:
		if !l.failing[s] {
			l.failing[s] = true
			log.Printf("[loop] warning: %v (further read errors suppressed)", err)
		}
	}
	return lines
}

// sleepFor returns how long to sleep after an iteration that took elapsed.
// It only sleeps when the time left in the period exceeds the time already
// spent, not whenever any time is left.
func sleepFor(elapsed, period time.Duration) time.Duration {
	remaining := period - elapsed
	if remaining > elapsed {
		return remaining
	}
	return 0
}
