package main

import (
	"testing"

	"github.com/afmlab/xystage/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Envlog.Devices = []config.EnvlogDevice{
		{Name: "pid", Port: "/dev/ttyUSB0", Baudrate: 9600},
		{Name: "tcs", Port: "/dev/ttyUSB1", Baudrate: 9600},
	}
	return cfg
}

func TestFindDevice_ByName(t *testing.T) {
	dev, err := findDevice(testConfig(), "tcs")
	if err != nil {
		t.Fatalf("expected device, got: %v", err)
	}
	if dev.Port != "/dev/ttyUSB1" {
		t.Errorf("wrong device resolved: %+v", dev)
	}
}

func TestFindDevice_DefaultsToFirst(t *testing.T) {
	dev, err := findDevice(testConfig(), "")
	if err != nil {
		t.Fatalf("expected device, got: %v", err)
	}
	if dev.Name != "pid" {
		t.Errorf("expected first device, got %q", dev.Name)
	}
}

func TestFindDevice_Unknown(t *testing.T) {
	if _, err := findDevice(testConfig(), "bogus"); err == nil {
		t.Error("expected error for unknown device, got nil")
	}
}

func TestFindDevice_NoDevices(t *testing.T) {
	if _, err := findDevice(&config.Config{}, ""); err == nil {
		t.Error("expected error with no configured devices, got nil")
	}
}
