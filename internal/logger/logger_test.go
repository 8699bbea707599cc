package logger

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/carputer/internal/serialio"
)

var sessionStart = time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)

func newTestLogger(t *testing.T, root string) *Logger {
	t.Helper()
	l := New(Config{Enabled: true, Path: root}, map[string]serialio.PortConfig{
		"imu": {PortPath: "/dev/ttyUSB0", BaudRate: 115200},
	})
	l.now = func() time.Time { return sessionStart }
	l.hostID = func() (string, error) { return "host-1234", nil }
	t.Cleanup(l.Close)
	return l
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRecordWritesSessionFiles(t *testing.T) {
	root := t.TempDir()
	l := newTestLogger(t, root)
	assert.Empty(t, l.SessionDir())

	l.Record("IMU", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	l.Record("IMU", []float64{0.5, 0, 0, 1, -1.25, 0, 0, 0, 0, 9.81})

	dir := filepath.Join(root, "2026-03-14_092653")
	assert.Equal(t, dir, l.SessionDir())

	want := [][]string{
		csvHeader,
		{"IMU", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		{"IMU", "0.5", "0", "0", "1", "-1.25", "0", "0", "0", "0", "9.81"},
	}
	if diff := cmp.Diff(want, readCSV(t, filepath.Join(dir, "imu.csv"))); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	_, err = uuid.Parse(m.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, "host-1234", m.HostID)
	assert.True(t, sessionStart.Equal(m.Started))
	assert.Equal(t, serialio.PortConfig{PortPath: "/dev/ttyUSB0", BaudRate: 115200}, m.Ports["imu"])
}

func TestRotateAfterMaxRows(t *testing.T) {
	root := t.TempDir()
	l := newTestLogger(t, root)
	l.Record("IMU", make([]float64, 10))
	l.rows = maxRowsPerFile
	l.Record("IMU", make([]float64, 10))

	rows := readCSV(t, filepath.Join(l.SessionDir(), "imu_001.csv"))
	assert.Len(t, rows, 2)
}

func TestHostIDFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	l := newTestLogger(t, root)
	l.hostID = func() (string, error) { return "", errors.New("no machine id") }

	l.Record("IMU", make([]float64, 10))
	assert.True(t, l.IsEnabled())

	data, err := os.ReadFile(filepath.Join(l.SessionDir(), manifestName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "host_id")
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	root := t.TempDir()
	l := New(Config{Enabled: false, Path: root}, nil)
	l.Record("IMU", make([]float64, 10))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, l.IsEnabled())
}

func TestSessionFailureDisablesLogging(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	l := newTestLogger(t, root)
	l.Record("IMU", make([]float64, 10))
	assert.False(t, l.IsEnabled())
	assert.Empty(t, l.SessionDir())

	// further records are dropped quietly
	l.Record("IMU", make([]float64, 10))
}
