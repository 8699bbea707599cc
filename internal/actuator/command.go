package actuator

import (
	"errors"
	"fmt"
	"io"
	"log"
)

// Throttle scale on the output board: 90 is neutral, lower values brake.
const (
	ThrottleNeutral  = 90
	ThrottleCeiling  = 110
	deadZoneLow      = 88
	deadZoneHigh     = 92
	steeringCmdToken = 'S'
	throttleCmdToken = 'D'
)

// Command is the steering/throttle pair the board is driven with.
type Command struct {
	Steering int
	Throttle int
}

// ClampThrottle snaps [88,92] to neutral and caps the value at the
// ceiling. Values below the dead zone pass through unchanged.
func ClampThrottle(v int) int {
	switch {
	case v >= deadZoneLow && v <= deadZoneHigh:
		return ThrottleNeutral
	case v > ThrottleCeiling:
		return ThrottleCeiling
	}
	return v
}

// Translate returns the commands needed to move the board from prev to
// next, without line terminators: "S<steering>" if steering changed and
// "D<throttle>" (clamped) if throttle changed.
func Translate(prev, next Command) []string {
	var cmds []string
	if next.Steering != prev.Steering {
		cmds = append(cmds, fmt.Sprintf("%c%d", steeringCmdToken, next.Steering))
	}
	if next.Throttle != prev.Throttle {
		cmds = append(cmds, fmt.Sprintf("%c%d", throttleCmdToken, ClampThrottle(next.Throttle)))
	}
	return cmds
}

// Writer is the part of the output transport the Transmitter needs.
type Writer interface {
	io.Writer
	Flush() error
}

// Transmitter writes translated commands to the output board.
type Transmitter struct {
	w       Writer
	verbose bool
}

// NewTransmitter returns a Transmitter writing to w. With verbose set every
// command sent is logged.
func NewTransmitter(w Writer, verbose bool) *Transmitter {
	return &Transmitter{w: w, verbose: verbose}
}

// Send writes each command for prev->next as a newline-terminated ASCII
// line and then flushes once. Nothing is written or flushed when neither
// value changed. It returns the commands that were written.
func (t *Transmitter) Send(prev, next Command) ([]string, error) {
	cmds := Translate(prev, next)
	if len(cmds) == 0 {
		// Unchanged values skip the flush as well as the writes.
		return nil, nil
	}
	var errs []error
	var sent []string
	for _, c := range cmds {
		if _, err := t.w.Write([]byte(c + "\n")); err != nil {
			errs = append(errs, fmt.Errorf("actuator: write %q: %w", c, err))
			continue
		}
		sent = append(sent, c)
		if t.verbose {
			log.Printf("[actuator] sent %s", c)
		}
	}
	if err := t.w.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("actuator: flush: %w", err))
	}
	return sent, errors.Join(errs...)
}
