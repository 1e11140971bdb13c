/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	relay "github.com/allbin/serial-relay"
	"github.com/allbin/serial-relay/internal/logging"
	"github.com/allbin/serial-relay/internal/monitor"
	"github.com/allbin/serial-relay/internal/serialport"
	"github.com/allbin/serial-relay/internal/tui/picker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [port...]",
	Short: "Poll serial ports and relay responses over UDP",
	Long: `Open every given serial port, poll it with the configured command
sequence and forward each response as a UDP datagram until interrupted
(Ctrl+C or SIGTERM).

Ports come from the arguments, else from the "ports" config key, else from
an interactive picker when stdin is a terminal.

Example usage:
  serial-relay run /dev/ttyUSB0
  serial-relay run /dev/ttyUSB0 /dev/ttyUSB1 --empty suppress
  serial-relay run /dev/ttyACM0 --driver portable --metrics-addr :9100`,
	Args: cobra.ArbitraryArgs,
	Run:  runRelayCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRelayCommand(cmd *cobra.Command, args []string) {
	if err := runRelay(cmd.Context(), args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRelay(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s := loadSettings(viper.GetViper())
	log, err := logging.Setup(s.Log.Level, s.Log.Format)
	if err != nil {
		return err
	}
	relayOpts, err := s.relayOptions()
	if err != nil {
		return err
	}
	serialOpts, err := s.serialOptions()
	if err != nil {
		return err
	}

	paths := uniquePaths(args)
	if len(paths) == 0 {
		paths = uniquePaths(s.Ports)
	}
	if len(paths) == 0 {
		paths, err = choosePorts()
		if err != nil || len(paths) == 0 {
			return err
		}
	}

	ports, err := openPorts(paths, serialOpts...)
	if err != nil {
		return err
	}

	sink, err := relay.DialSink(s.Remote, s.Local)
	if err != nil {
		closePorts(ports, log)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := startMetrics(ctx, s.Metrics.Addr, log)
	if err != nil {
		closePorts(ports, log)
		sink.Close()
		return err
	}

	relayOpts = append(relayOpts, relay.WithLogger(log), relay.WithMetrics(metrics))
	pipeline, err := relay.NewPipeline(ports, sink, relayOpts...)
	if err != nil {
		closePorts(ports, log)
		sink.Close()
		return err
	}

	log.WithFields(logrus.Fields{
		"ports":   paths,
		"remote":  sink.RemoteAddr().String(),
		"local":   sink.LocalAddr().String(),
		"timeout": s.Timeout,
	}).Info("Relaying serial responses")

	return pipeline.Run(ctx)
}

// choosePorts asks the operator which ports to poll. A nil result with a nil
// error means there is nothing to do.
func choosePorts() ([]string, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, fmt.Errorf("%w: pass port paths or set ports in the config file", relay.ErrNoPorts)
	}

	found, err := serialport.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("listing ports: %w", err)
	}
	if len(found) == 0 {
		fmt.Println("No serial ports found.")
		return nil, nil
	}

	selected, err := picker.Run(serialport.DescribePorts(found), tea.WithOutput(os.Stderr))
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		fmt.Println("No valid selections made.")
		return nil, nil
	}
	return selected, nil
}

// startMetrics binds addr and serves the relay metrics until ctx is done.
// An empty addr disables metrics.
func startMetrics(ctx context.Context, addr string, log logrus.FieldLogger) (*relay.Metrics, error) {
	if addr == "" {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(reg)

	srv := monitor.NewServer(addr, reg, log)
	if err := srv.Listen(); err != nil {
		return nil, err
	}
	go srv.Run(ctx)
	return metrics, nil
}

// openPorts opens every path or none of them
func openPorts(paths []string, opts ...serialport.Option) ([]relay.Port, error) {
	ports := make([]relay.Port, 0, len(paths))
	for _, path := range paths {
		dev, err := serialport.Open(path, opts...)
		if err != nil {
			closePorts(ports, nil)
			return nil, err
		}
		ports = append(ports, relay.Port{Name: path, Device: dev})
	}
	return ports, nil
}

func closePorts(ports []relay.Port, log logrus.FieldLogger) {
	for _, port := range ports {
		if err := port.Device.Close(); err != nil && log != nil {
			log.WithError(err).WithField("port", port.Name).Warn("Failed to close port")
		}
	}
}
