package serialio

import (
	"fmt"
	"io"

	"github.com/shaunagostinho/carputer/internal/linebuf"
)

const readChunk = 4096

// Source is one physical serial link together with the line buffer that
// belongs to it. A Source is used from a single goroutine.
type Source struct {
	name    string
	r       io.Reader
	buf     linebuf.Buffer
	scratch []byte
}

// NewSource wraps r, which must not block when nothing is pending.
func NewSource(name string, r io.Reader) *Source {
	return &Source{name: name, r: r, scratch: make([]byte, readChunk)}
}

func (s *Source) Name() string { return s.name }

// Pending returns the partial line currently buffered.
func (s *Source) Pending() string { return s.buf.Pending() }

// Poll reads whatever bytes are currently available and returns every
// complete line now buffered. A decode failure resets only this source's
// buffer and is returned wrapping linebuf.ErrDecode.
func (s *Source) Poll() ([]string, error) {
	for {
		n, err := s.r.Read(s.scratch)
		if n > 0 {
			if ierr := s.buf.Ingest(s.scratch[:n]); ierr != nil {
				return nil, fmt.Errorf("serialio: %s: %w", s.name, ierr)
			}
		}
		if err != nil && err != io.EOF {
			return s.buf.Drain(), fmt.Errorf("serialio: read %s: %w", s.name, err)
		}
		if n < len(s.scratch) || err == io.EOF {
			break
		}
	}
	return s.buf.Drain(), nil
}
