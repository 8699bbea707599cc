// Package linebuf accumulates raw serial bytes into newline-delimited text
// lines for one serial source.
package linebuf

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
)

// ErrDecode is returned by Ingest when the input contains bytes outside
// 7-bit ASCII. The buffer has already been reset when it is returned.
var ErrDecode = errors.New("linebuf: input is not restricted ASCII")

// Buffer holds the text received so far on one source that has not yet
// been consumed as a complete line. The zero value is ready to use.
//
// Lines are split on '\n' only. A '\r' or any other control byte stays part
// of the line content.
type Buffer struct {
	buf []byte
}

// Ingest appends raw to the buffer. If any byte of raw is not ASCII, the
// whole buffer is dropped, including a partial line already in flight, and
// an error wrapping ErrDecode is returned.
func (b *Buffer) Ingest(raw []byte) error {
	for i, c := range raw {
		if c > 0x7F {
			b.Reset()
			return fmt.Errorf("%w: byte 0x%02X at offset %d", ErrDecode, c, i)
		}
	}
	b.buf = append(b.buf, raw...)
	return nil
}

// Lines returns the complete lines currently buffered, without their '\n'.
// Each line is removed from the buffer as it is yielded; if the consumer
// stops early the rest stay buffered. The trailing partial line, if any, is
// never yielded.
func (b *Buffer) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			idx := bytes.IndexByte(b.buf, '\n')
			if idx < 0 {
				return
			}
			line := string(b.buf[:idx])
			b.buf = b.buf[idx+1:]
			if len(b.buf) == 0 {
				b.buf = nil
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Drain consumes every complete line and returns them in arrival order.
func (b *Buffer) Drain() []string {
	var lines []string
	for line := range b.Lines() {
		lines = append(lines, line)
	}
	return lines
}

// Pending returns the buffered text that has not been consumed.
func (b *Buffer) Pending() string { return string(b.buf) }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Reset discards everything buffered.
func (b *Buffer) Reset() { b.buf = nil }
