package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
stage:
  port: /dev/ttyACM0
  baudrate: 115200
camera:
  type: nikon_d90_gpio
  port: 0
  focus_pin: 17
  shutter_pin: 27
locations:
  left_file: left.txt
  right_file: right.txt
run:
  sample_size: 8
  skip_row: 1
  phase_duration_hours: 24
  phase1_interval_min: 10
  phase2_interval_min: 60
envlog:
  log_dir: /tmp/envlog
  devices:
    - name: pid
      port: /dev/ttyACM2
      baudrate: 115200
defaults:
  debug_level: 2
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stage.Port != "/dev/ttyACM0" || cfg.Stage.Baudrate != 115200 {
		t.Errorf("stage config = %+v", cfg.Stage)
	}
	if cfg.Run.SampleSize != 8 || cfg.Run.SkipRow != 1 {
		t.Errorf("run config = %+v", cfg.Run)
	}
	if cfg.Run.PhaseDurationHours != 24 || cfg.Run.Phase1IntervalMin != 10 || cfg.Run.Phase2IntervalMin != 60 {
		t.Errorf("phase config = %+v", cfg.Run)
	}
	if len(cfg.Envlog.Devices) != 1 || cfg.Envlog.Devices[0].Name != "pid" {
		t.Errorf("envlog config = %+v", cfg.Envlog)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
stage:
  mock: true
camera:
  type: mock
  mock_gpio: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Stage.Baudrate != 115200 {
		t.Errorf("baudrate default = %d", cfg.Stage.Baudrate)
	}
	if cfg.Run.SampleSize != 4 {
		t.Errorf("sample_size default = %d", cfg.Run.SampleSize)
	}
	if cfg.Run.PhaseDurationHours != 30 || cfg.Run.Phase1IntervalMin != 5 || cfg.Run.Phase2IntervalMin != 30 {
		t.Errorf("phase defaults = %+v", cfg.Run)
	}
	if cfg.Locations.LeftFile == cfg.Locations.RightFile {
		t.Error("default location files must differ")
	}
	if cfg.FocusDelay() != 500*time.Millisecond {
		t.Errorf("FocusDelay = %v", cfg.FocusDelay())
	}
	if cfg.ShutterDelay() != 200*time.Millisecond {
		t.Errorf("ShutterDelay = %v", cfg.ShutterDelay())
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing camera type", "stage:\n  mock: true\n"},
		{"missing stage port", "camera:\n  type: mock\n"},
		{"odd sample size", "stage:\n  mock: true\ncamera:\n  type: mock\nrun:\n  sample_size: 5\n"},
		{"bad skip row", "stage:\n  mock: true\ncamera:\n  type: mock\nrun:\n  sample_size: 4\n  skip_row: 2\n"},
		{"negative interval", "stage:\n  mock: true\ncamera:\n  type: mock\nrun:\n  sample_size: 4\n  phase1_interval_min: -1\n"},
		{"huge interval", "stage:\n  mock: true\ncamera:\n  type: mock\nrun:\n  sample_size: 4\n  phase2_interval_min: 1000001\n"},
		{"same location files", "stage:\n  mock: true\ncamera:\n  type: mock\nlocations:\n  left_file: a.txt\n  right_file: a.txt\n"},
		{"bad debug level", "stage:\n  mock: true\ncamera:\n  type: mock\ndefaults:\n  debug_level: 9\n"},
		{"envlog device no port", "stage:\n  mock: true\ncamera:\n  type: mock\nenvlog:\n  devices:\n    - name: pid\n"},
		{"not yaml", ":\n--\n  {{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
