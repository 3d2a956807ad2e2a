package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StageConfig describes the serial link to the XY stage firmware.
type StageConfig struct {
	Port     string `yaml:"port"`     // e.g. /dev/ttyACM0
	Baudrate int    `yaml:"baudrate"` // stage firmware baud rate
	Mock     bool   `yaml:"mock"`     // use a mock transport (dev/test, no stage attached)
}

// CameraConfig describes how the capture trigger is driven.
// Type selects a concrete implementation (e.g. "nikon_d90_gpio").
type CameraConfig struct {
	Type           string `yaml:"type"`             // "nikon_d90_gpio" or "mock"
	Port           int    `yaml:"port"`             // capture port identifier passed to the trigger
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
	MockGPIO       bool   `yaml:"mock_gpio"`        // use mock GPIO (dev/test)
}

// LocationsConfig holds the per-camera location file paths.
type LocationsConfig struct {
	LeftFile  string `yaml:"left_file"`
	RightFile string `yaml:"right_file"`
}

// RunConfig holds the run-cycle defaults offered to the presentation layer.
type RunConfig struct {
	SampleSize         int `yaml:"sample_size"`          // 4, 6, 8, 10 or 12
	SkipRow            int `yaml:"skip_row"`             // 0 or 1
	PhaseDurationHours int `yaml:"phase_duration_hours"` // fast phase duration
	Phase1IntervalMin  int `yaml:"phase1_interval_min"`  // fast phase revisit interval
	Phase2IntervalMin  int `yaml:"phase2_interval_min"`  // slow phase revisit interval
}

// EnvlogDevice is one humidity/temperature device polled by the envlog
// utility.
type EnvlogDevice struct {
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
	Baudrate int    `yaml:"baudrate"`
}

// EnvlogConfig configures the environmental sensor logger.
type EnvlogConfig struct {
	LogDir  string         `yaml:"log_dir"`
	Devices []EnvlogDevice `yaml:"devices"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Stage     StageConfig     `yaml:"stage"`
	Camera    CameraConfig    `yaml:"camera"`
	Locations LocationsConfig `yaml:"locations"`
	Run       RunConfig       `yaml:"run"`
	Envlog    EnvlogConfig    `yaml:"envlog"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

const phaseBound = 1000000

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation and defaults
	if cfg.Camera.Type == "" {
		return nil, fmt.Errorf("camera.type is required")
	}
	if cfg.Stage.Port == "" && !cfg.Stage.Mock {
		return nil, fmt.Errorf("stage.port is required unless stage.mock is set")
	}
	if cfg.Stage.Baudrate <= 0 {
		cfg.Stage.Baudrate = 115200 // stage firmware default
	}
	if cfg.Locations.LeftFile == "" {
		cfg.Locations.LeftFile = "samples_loc_left.txt"
	}
	if cfg.Locations.RightFile == "" {
		cfg.Locations.RightFile = "samples_loc_right.txt"
	}
	if cfg.Locations.LeftFile == cfg.Locations.RightFile {
		return nil, fmt.Errorf("locations.left_file and locations.right_file must differ")
	}

	if cfg.Run.SampleSize == 0 {
		cfg.Run.SampleSize = 4
	}
	switch cfg.Run.SampleSize {
	case 4, 6, 8, 10, 12:
	default:
		return nil, fmt.Errorf("run.sample_size must be one of 4/6/8/10/12, got %d", cfg.Run.SampleSize)
	}
	if cfg.Run.SkipRow != 0 && cfg.Run.SkipRow != 1 {
		return nil, fmt.Errorf("run.skip_row must be 0 or 1, got %d", cfg.Run.SkipRow)
	}
	if cfg.Run.PhaseDurationHours == 0 && cfg.Run.Phase1IntervalMin == 0 && cfg.Run.Phase2IntervalMin == 0 {
		cfg.Run.PhaseDurationHours = 30
		cfg.Run.Phase1IntervalMin = 5
		cfg.Run.Phase2IntervalMin = 30
	}
	for name, v := range map[string]int{
		"run.phase_duration_hours": cfg.Run.PhaseDurationHours,
		"run.phase1_interval_min":  cfg.Run.Phase1IntervalMin,
		"run.phase2_interval_min":  cfg.Run.Phase2IntervalMin,
	} {
		if v < 0 || v > phaseBound {
			return nil, fmt.Errorf("%s must be between 0 and %d, got %d", name, phaseBound, v)
		}
	}

	// Default values for camera delays
	if cfg.Camera.FocusDelayMs <= 0 {
		cfg.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if cfg.Camera.ShutterDelayMs <= 0 {
		cfg.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}

	if cfg.Envlog.LogDir == "" {
		cfg.Envlog.LogDir = "."
	}
	for i, dev := range cfg.Envlog.Devices {
		if dev.Name == "" {
			return nil, fmt.Errorf("envlog.devices[%d].name is required", i)
		}
		if dev.Port == "" {
			return nil, fmt.Errorf("envlog device %q: port is required", dev.Name)
		}
		if dev.Baudrate <= 0 {
			return nil, fmt.Errorf("envlog device %q: baudrate must be > 0", dev.Name)
		}
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}
