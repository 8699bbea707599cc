// Package actuator speaks to the output Arduino: it parses the odometer and
// button telemetry the board reports and encodes steering/throttle commands
// sent back to it.
package actuator

import (
	"strconv"
	"strings"
)

const (
	odometerPrefix = "Mil"
	buttonPrefix   = "Button"
)

// Odometer counts wheel ticks reported by the board.
type Odometer struct {
	Ticks      uint64
	LastMillis int64 // board clock at the last tick
}

// Telemetry is the accumulated state reported by the output board.
type Telemetry struct {
	Odometer Odometer
	Button   int // 0 or 1
}

// TelemetryParser keeps the output board's telemetry state across batches.
type TelemetryParser struct {
	state Telemetry
}

func NewTelemetryParser() *TelemetryParser { return &TelemetryParser{} }

// State returns the current telemetry.
func (p *TelemetryParser) State() Telemetry { return p.state }

// ParseLine applies one "Mil\t<ms>" or "Button\t<value>" line and reports
// whether the line was recognised. Every Mil line counts one tick, even if
// its timestamp does not parse; the timestamp is then left unchanged.
func (p *TelemetryParser) ParseLine(line string) bool {
	switch {
	case strings.HasPrefix(line, odometerPrefix):
		p.state.Odometer.Ticks++
		if ms, ok := intField(line, 1); ok {
			p.state.Odometer.LastMillis = ms
		}
		return true
	case strings.HasPrefix(line, buttonPrefix):
		v, ok := intField(line, 1)
		if !ok {
			return false
		}
		if v != 0 {
			v = 1
		}
		p.state.Button = int(v)
		return true
	}
	return false
}

// Parse applies a batch of lines in order and returns the resulting state.
func (p *TelemetryParser) Parse(lines []string) Telemetry {
	for _, line := range lines {
		p.ParseLine(line)
	}
	return p.state
}

// intField returns tab-delimited field i of line as an integer.
func intField(line string, i int) (int64, bool) {
	fields := strings.Split(line, "\t")
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(fields[i]), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
