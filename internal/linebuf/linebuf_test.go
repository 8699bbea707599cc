package linebuf

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainCompleteLines(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("10 90 1\nMil\t100\npart")))

	got := b.Drain()
	if diff := cmp.Diff([]string{"10 90 1", "Mil\t100"}, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "part", b.Pending())

	require.NoError(t, b.Ingest([]byte("ial\n")))
	assert.Equal(t, []string{"partial"}, b.Drain())
	assert.Equal(t, 0, b.Len())
}

func TestCarriageReturnKept(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("IMU 1 2\r\n")))
	assert.Equal(t, []string{"IMU 1 2\r"}, b.Drain())
}

func TestEmptyLines(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("\n\nx\n")))
	assert.Equal(t, []string{"", "", "x"}, b.Drain())
}

func TestDrainWithoutNewline(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("no newline yet")))
	assert.Empty(t, b.Drain())
	assert.Equal(t, "no newline yet", b.Pending())
}

func TestLinesStopEarlyKeepsRest(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("a\nb\nc\ntail")))

	for line := range b.Lines() {
		assert.Equal(t, "a", line)
		break
	}
	assert.Equal(t, "b\nc\ntail", b.Pending())
	assert.Equal(t, []string{"b", "c"}, b.Drain())
}

func TestIngestDecodeErrorResets(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte("1 2 3\nhalf")))

	err := b.Ingest([]byte{'o', 'k', 0xFF, '\n'})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Drain())

	// The buffer keeps working after recovery.
	require.NoError(t, b.Ingest([]byte("S\n")))
	assert.Equal(t, []string{"S"}, b.Drain())
}

func TestASCIIBoundary(t *testing.T) {
	var b Buffer
	require.NoError(t, b.Ingest([]byte{0x00, 0x7F, '\n'}))
	assert.Equal(t, []string{"\x00\x7f"}, b.Drain())
	assert.ErrorIs(t, b.Ingest([]byte{0x80}), ErrDecode)
}

// Splitting the same stream at arbitrary points must never lose or reorder
// bytes: drained lines plus the remainder equal the input minus delimiters.
func TestNoByteLossAcrossChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("0123456789 \tSDMilButtonIMU.-\r\n")

	for round := 0; round < 200; round++ {
		stream := make([]byte, rng.Intn(300))
		for i := range stream {
			stream[i] = alphabet[rng.Intn(len(alphabet))]
		}

		var b Buffer
		var drained strings.Builder
		for rest := stream; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			require.NoError(t, b.Ingest(rest[:n]))
			rest = rest[n:]
			for _, line := range b.Drain() {
				drained.WriteString(line)
			}
		}

		want := strings.ReplaceAll(string(stream), "\n", "")
		got := drained.String() + b.Pending()
		require.Equal(t, want, got, "round %d", round)
		assert.NotContains(t, b.Pending(), "\n")
	}
}
