// Package input parses the text protocol of the input-sensor Arduino: lines
// of "<steering> <throttle> <aux1>" readings and "S" toggle-button events.
package input

import (
	"regexp"
	"strconv"
	"strings"
)

// togglePrefix marks a toggle-button press from the sensor board.
const togglePrefix = "S"

// readingPattern matches three whitespace-separated unsigned integers that
// stand as whole words somewhere in a line, so "1.5 2 3" is not a reading.
var readingPattern = regexp.MustCompile(`(?:^|\s)(\d+)\s+(\d+)\s+(\d+)(?:\s|$)`)

// Reading is one complete steering/throttle/aux sample.
type Reading struct {
	Steering int // degrees
	Throttle int // 0-180 scale, 90 neutral
	Aux      int
}

// Update is the result of parsing one batch of lines.
type Update struct {
	Reading *Reading // last complete reading in the batch, nil if none
	Toggle  int      // toggle state after the batch, 0 or 1
	Toggled bool     // at least one toggle event was seen
}

// Parser keeps the input-side toggle button state between batches.
type Parser struct {
	toggle int
}

// NewParser returns a Parser with the toggle released.
func NewParser() *Parser { return &Parser{} }

// Toggle returns the current toggle state.
func (p *Parser) Toggle() int { return p.toggle }

// ParseLine handles one line. A line starting with "S" flips the toggle;
// independently, a line containing three unsigned integers yields a
// Reading. Both can happen for the same line.
func (p *Parser) ParseLine(line string) (Reading, bool) {
	if strings.HasPrefix(line, togglePrefix) {
		p.toggle ^= 1
	}
	return parseReading(line)
}

// Parse handles a batch of lines in order. The last reading wins.
func (p *Parser) Parse(lines []string) Update {
	var u Update
	for _, line := range lines {
		if strings.HasPrefix(line, togglePrefix) {
			u.Toggled = true
		}
		if r, ok := p.ParseLine(line); ok {
			u.Reading = &r
		}
	}
	u.Toggle = p.toggle
	return u
}

// parseReading returns the first triple in line whose values fit in an int.
// A triple that overflows is skipped and the search resumes after its first
// number.
func parseReading(line string) (Reading, bool) {
	for off := 0; off < len(line); {
		m := readingPattern.FindStringSubmatchIndex(line[off:])
		if m == nil {
			return Reading{}, false
		}
		var vals [3]int
		ok := true
		for i := range vals {
			v, err := strconv.Atoi(line[off+m[2+2*i] : off+m[3+2*i]])
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			return Reading{Steering: vals[0], Throttle: vals[1], Aux: vals[2]}, true
		}
		off += m[3]
	}
	return Reading{}, false
}
