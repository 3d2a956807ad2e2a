// Command envlog polls the environmental controllers (humidity, temperature)
// attached to the incubation chamber and appends timestamped readings to
// per-device log files. It can also push a humidity or temperature set-point
// to a controller.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/albenik/go-serial/v2"
	"github.com/spf13/cobra"

	"github.com/afmlab/xystage/internal/config"
	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/envlog"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "envlog",
		Short: "Environmental sensor logging for the stage incubation chamber",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs/default.yaml", "path to config file")
	root.AddCommand(newRunCmd(), newSetCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll all configured devices and log their readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(cfg.Envlog.Devices) == 0 {
				return fmt.Errorf("no envlog devices configured")
			}
			debug.Init(cfg.Defaults.DebugLevel)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var sources []envlog.Source
			for _, dev := range cfg.Envlog.Devices {
				port, err := serial.Open(dev.Port,
					serial.WithBaudrate(dev.Baudrate),
					serial.WithReadTimeout(1000),
				)
				if err != nil {
					return fmt.Errorf("open device %q (%s): %w", dev.Name, dev.Port, err)
				}
				defer port.Close()
				sources = append(sources, envlog.NewSource(dev.Name, port))
			}

			log.Printf("logging %d device(s) to %s for %s", len(sources), cfg.Envlog.LogDir, duration)
			paths, err := envlog.Run(ctx, cfg.Envlog.LogDir, sources, duration)
			for name, path := range paths {
				log.Printf("%s: %s", name, path)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 24*time.Hour, "how long to poll before exiting")
	return cmd
}

func newSetCmd() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "set {humidity|temperature} VALUE",
		Short: "Send a set-point to an environmental controller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var command string
			switch args[0] {
			case "humidity":
				command = envlog.CmdHumidity
			case "temperature":
				command = envlog.CmdTemperature
			default:
				return fmt.Errorf("unknown set-point %q, want humidity or temperature", args[0])
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dev, err := findDevice(cfg, device)
			if err != nil {
				return err
			}

			port, err := serial.Open(dev.Port,
				serial.WithBaudrate(dev.Baudrate),
				serial.WithReadTimeout(1000),
			)
			if err != nil {
				return fmt.Errorf("open device %q (%s): %w", dev.Name, dev.Port, err)
			}
			defer port.Close()

			if err := envlog.SetPoint(port, command, args[1]); err != nil {
				return err
			}
			log.Printf("%s set-point %s sent to %s", args[0], args[1], dev.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "device name from the config (defaults to the first)")
	return cmd
}

// findDevice resolves a device by name, or returns the first configured one
// when name is empty.
func findDevice(cfg *config.Config, name string) (config.EnvlogDevice, error) {
	if len(cfg.Envlog.Devices) == 0 {
		return config.EnvlogDevice{}, fmt.Errorf("no envlog devices configured")
	}
	if name == "" {
		return cfg.Envlog.Devices[0], nil
	}
	for _, dev := range cfg.Envlog.Devices {
		if dev.Name == name {
			return dev, nil
		}
	}
	return config.EnvlogDevice{}, fmt.Errorf("device %q not found in config", name)
}
