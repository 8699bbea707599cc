package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/carputer/internal/serialio"
)

// Logger appends telemetry frames to CSV files inside a per-session
// directory named after the session start time.
type Logger struct {
	mu      sync.Mutex
	root    string
	enabled bool
	ports   map[string]serialio.PortConfig

	now    func() time.Time
	hostID func() (string, error)

	session string // session directory, set on first record
	file    *os.File
	writer  *csv.Writer
	rows    int
	part    int
	failed  bool
}

// Config holds logger configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// DebugFile receives a copy of the process log. Empty disables it.
	DebugFile string `yaml:"debug_file"`
}

// Manifest describes one logging session. It is written as session.yaml
// next to the CSV files.
type Manifest struct {
	SessionID string                         `yaml:"session_id"`
	HostID    string                         `yaml:"host_id,omitempty"`
	Started   time.Time                      `yaml:"started"`
	Ports     map[string]serialio.PortConfig `yaml:"ports,omitempty"`
}

const (
	maxRowsPerFile = 100_000
	manifestName   = "session.yaml"
	sessionLayout  = "2006-01-02_150405"
)

var csvHeader = []string{
	"frame", "qx", "qy", "qz", "qw", "gx", "gy", "gz", "ax", "ay", "az",
}

// New creates a Logger. ports is recorded in the session manifest.
func New(cfg Config, ports map[string]serialio.PortConfig) *Logger {
	if cfg.Path == "" {
		cfg.Path = "./logs"
	}
	return &Logger{
		root:    cfg.Path,
		enabled: cfg.Enabled,
		ports:   ports,
		now:     time.Now,
		hostID:  func() (string, error) { return machineid.ProtectedID("carputer") },
	}
}

// IsEnabled reports whether records are being written.
func (l *Logger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled && !l.failed
}

// SessionDir returns the session directory, or "" before the first record.
func (l *Logger) SessionDir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Record appends one row: the frame tag followed by the values. The session
// directory is created on the first call. If it cannot be created, logging
// is switched off for the rest of the process.
func (l *Logger) Record(tag string, values []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.failed {
		return
	}

	if l.session == "" {
		if err := l.openSession(); err != nil {
			log.Printf("[logger] session setup failed, logging disabled: %v", err)
			l.failed = true
			return
		}
	}
	if l.writer == nil || l.rows >= maxRowsPerFile {
		if err := l.rotateFile(); err != nil {
			log.Printf("[logger] rotate failed, logging disabled: %v", err)
			l.failed = true
			return
		}
	}

	row := make([]string, 0, len(values)+1)
	row = append(row, tag)
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if err := l.writer.Write(row); err != nil {
		log.Printf("[logger] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) openSession() error {
	started := l.now()
	dir := filepath.Join(l.root, started.Format(sessionLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	m := Manifest{
		SessionID: uuid.NewString(),
		Started:   started,
		Ports:     l.ports,
	}
	if id, err := l.hostID(); err == nil {
		m.HostID = id
	} else {
		log.Printf("[logger] host id unavailable: %v", err)
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	l.session = dir
	log.Printf("[logger] session %s in %s", m.SessionID, dir)
	return nil
}

func (l *Logger) rotateFile() error {
	l.closeFile()

	name := "imu.csv"
	if l.part > 0 {
		name = fmt.Sprintf("imu_%03d.csv", l.part)
	}
	path := filepath.Join(l.session, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.writer = csv.NewWriter(f)
	l.rows = 0
	l.part++

	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[logger] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
