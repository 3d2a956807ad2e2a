package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/afmlab/xystage/internal/config"
	"github.com/afmlab/xystage/internal/controller"
	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/hw/camera"
	"github.com/afmlab/xystage/internal/hw/gpio"
	"github.com/afmlab/xystage/internal/hw/serialport"
	"github.com/afmlab/xystage/internal/locations"
	"github.com/afmlab/xystage/internal/run"
	"github.com/afmlab/xystage/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Open the stage serial link
	debug.Step(1, "Opening stage serial port")
	debug.Value("Mock stage", cfg.Stage.Mock)
	transport, err := serialport.Open(cfg.Stage.Mock, cfg.Stage.Port, cfg.Stage.Baudrate)
	if err != nil {
		log.Fatalf("open stage serial port failed: %v", err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.Printf("closing stage serial port failed: %v", err)
		}
	}()

	// Initialize GPIO driver
	debug.Step(2, "Initializing GPIO driver")
	debug.Value("Mock GPIO", cfg.Camera.MockGPIO)
	gpioDriver, err := gpio.NewDriver(cfg.Camera.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize capture trigger
	debug.Step(3, "Initializing camera trigger")
	trigger, err := newTriggerFromConfig(gpioDriver, cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Capture port", cfg.Camera.Port)

	// Load the persistent location tables
	debug.Step(4, "Loading sample location tables")
	store, err := locations.Open(cfg.Locations.LeftFile, cfg.Locations.RightFile)
	if err != nil {
		log.Fatalf("load locations failed: %v", err)
	}
	debug.Value("Left table", cfg.Locations.LeftFile)
	debug.Value("Right table", cfg.Locations.RightFile)

	broadcaster := web.NewStatusBroadcaster()
	notify := func(ev run.Event) {
		debug.Live("Run %s: %s cycle=%d sample=%d", ev.RunID, ev.Kind, ev.Cycle, ev.Sample)
		broadcaster.BroadcastRunEvent(ev)
	}

	ctrl := controller.New(store, transport, trigger, cfg.Camera.Port, run.DefaultTiming(), notify)

	if port := webPort.port(); port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		formDefaults := web.FormConfig{
			SampleSize:         cfg.Run.SampleSize,
			SkipRow:            cfg.Run.SkipRow,
			PhaseDurationHours: cfg.Run.PhaseDurationHours,
			Phase1IntervalMin:  cfg.Run.Phase1IntervalMin,
			Phase2IntervalMin:  cfg.Run.Phase2IntervalMin,
		}
		srv := web.NewServer(webAddr, broadcaster, ctrl, formDefaults)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	// Headless: start the run cycle with the config defaults and stop on
	// SIGINT/SIGTERM.
	debug.Section("Starting Run Cycle")
	rc := run.Config{SampleSize: cfg.Run.SampleSize, SkipRow: cfg.Run.SkipRow}
	pc := run.PhaseConfig{
		PhaseDurationHours: cfg.Run.PhaseDurationHours,
		Phase1IntervalMin:  cfg.Run.Phase1IntervalMin,
		Phase2IntervalMin:  cfg.Run.Phase2IntervalMin,
	}
	if err := ctrl.StartRun(rc, pc); err != nil {
		log.Fatalf("start run failed: %v", err)
	}

	select {
	case <-ctx.Done():
		debug.Info("Signal received, stopping run")
		if err := ctrl.StopRun(); err != nil {
			log.Printf("stop run failed: %v", err)
		}
		<-ctrl.Done()
	case <-ctrl.Done():
	}
	debug.Section("Run Complete")
}

// newTriggerFromConfig selects a capture trigger implementation based on
// configuration.
func newTriggerFromConfig(g gpio.Driver, cfg *config.Config) (camera.Trigger, error) {
	switch cfg.Camera.Type {
	case "nikon_d90_gpio":
		return camera.NewNikonD90GPIO(
			g,
			cfg.Camera.FocusPin,
			cfg.Camera.ShutterPin,
			cfg.FocusDelay(),
			cfg.ShutterDelay(),
		), nil
	case "mock":
		return &camera.MockTrigger{}, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
