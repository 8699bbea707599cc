package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/carputer/internal/logger"
	"github.com/shaunagostinho/carputer/internal/serialio"
)

// DefaultPath is where the bridge looks for its config file.
const DefaultPath = "/etc/carputer/config.yaml"

// Config holds all bridge configuration.
type Config struct {
	// Serial ports
	Input  serialio.PortConfig `yaml:"input"`  // sensor Arduino
	Output serialio.PortConfig `yaml:"output"` // actuator Arduino
	IMU    IMUConfig           `yaml:"imu"`

	Loop    LoopConfig    `yaml:"loop"`
	Logging logger.Config `yaml:"logging"`

	path string // file path for save/load
}

type IMUConfig struct {
	Enabled             bool `yaml:"enabled"`
	serialio.PortConfig `yaml:",inline"`
}

type LoopConfig struct {
	PeriodMs int  `yaml:"period_ms"` // minimum iteration period
	Verbose  bool `yaml:"verbose"`   // log state every iteration
}

// Period returns the loop period as a duration.
func (l LoopConfig) Period() time.Duration {
	return time.Duration(l.PeriodMs) * time.Millisecond
}

// SharedPort reports whether input and output name the same device, in
// which case one port carries both protocols.
func (c *Config) SharedPort() bool {
	return c.Input.PortPath == c.Output.PortPath && c.Input.PortPath != serialio.AutoPath
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: serialio.PortConfig{
			PortPath: "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Output: serialio.PortConfig{
			PortPath: "/dev/ttyACM1",
			BaudRate: 115200,
		},
		IMU: IMUConfig{
			Enabled: true,
			PortConfig: serialio.PortConfig{
				PortPath: "/dev/ttyUSB0",
				BaudRate: 115200,
			},
		},
		Loop: LoopConfig{
			PeriodMs: 1,
		},
		Logging: logger.Config{
			Enabled:   true,
			Path:      "./logs",
			DebugFile: "./.carputer_passthrough.log",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		// Real env takes precedence
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: INPUT_PORT, INPUT_BAUD, OUTPUT_PORT, OUTPUT_BAUD, IMU_PORT,
// IMU_BAUD, IMU_ENABLED, LOOP_PERIOD_MS, LOOP_VERBOSE, LOG_ENABLED, LOG_PATH,
// LOG_DEBUG_FILE ("-" turns the process log file off)
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INPUT_PORT"); v != "" {
		c.Input.PortPath = v
	}
	envInt("INPUT_BAUD", &c.Input.BaudRate)
	if v := os.Getenv("OUTPUT_PORT"); v != "" {
		c.Output.PortPath = v
	}
	envInt("OUTPUT_BAUD", &c.Output.BaudRate)
	if v := os.Getenv("IMU_PORT"); v != "" {
		c.IMU.PortPath = v
	}
	envInt("IMU_BAUD", &c.IMU.BaudRate)
	envBool("IMU_ENABLED", &c.IMU.Enabled)

	envInt("LOOP_PERIOD_MS", &c.Loop.PeriodMs)
	envBool("LOOP_VERBOSE", &c.Loop.Verbose)

	envBool("LOG_ENABLED", &c.Logging.Enabled)
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	switch v := os.Getenv("LOG_DEBUG_FILE"); v {
	case "":
	case "-":
		c.Logging.DebugFile = ""
	default:
		c.Logging.DebugFile = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || v == "true" || v == "yes"
	}
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	if c.Input.PortPath == "" {
		return fmt.Errorf("config: input port_path is empty")
	}
	if c.Output.PortPath == "" {
		return fmt.Errorf("config: output port_path is empty")
	}
	if c.IMU.Enabled && c.IMU.PortPath == "" {
		return fmt.Errorf("config: imu is enabled but port_path is empty")
	}
	if c.Loop.PeriodMs < 0 {
		return fmt.Errorf("config: loop period_ms must not be negative, got %d", c.Loop.PeriodMs)
	}
	return nil
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = DefaultPath
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}
