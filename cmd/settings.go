package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	relay "github.com/allbin/serial-relay"
	"github.com/allbin/serial-relay/internal/serialport"
	"github.com/spf13/viper"
)

const defaultTimeout = 100 * time.Millisecond

// settings is the merged configuration of flags, environment, config file and defaults
type settings struct {
	Ports      []string      `yaml:"ports"`
	Baud       int           `yaml:"baud"`
	DataBits   int           `yaml:"data_bits"`
	StopBits   int           `yaml:"stop_bits"`
	Parity     string        `yaml:"parity"`
	Driver     string        `yaml:"driver"`
	DTR        bool          `yaml:"dtr"`
	RTS        bool          `yaml:"rts"`
	Commands   []string      `yaml:"commands"`
	Terminator string        `yaml:"terminator"`
	Timeout    string        `yaml:"timeout"`
	QueueSize  int           `yaml:"queue_size"`
	Empty      string        `yaml:"empty"`
	Remote     string        `yaml:"remote"`
	Local      string        `yaml:"local"`
	Log        logSettings   `yaml:"log"`
	Metrics    metricSetting `yaml:"metrics"`
}

type logSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type metricSetting struct {
	Addr string `yaml:"addr"`
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		Ports:      v.GetStringSlice("ports"),
		Baud:       v.GetInt("baud"),
		DataBits:   v.GetInt("data_bits"),
		StopBits:   v.GetInt("stop_bits"),
		Parity:     v.GetString("parity"),
		Driver:     v.GetString("driver"),
		DTR:        v.GetBool("dtr"),
		RTS:        v.GetBool("rts"),
		Commands:   v.GetStringSlice("commands"),
		Terminator: v.GetString("terminator"),
		Timeout:    v.GetString("timeout"),
		QueueSize:  v.GetInt("queue_size"),
		Empty:      v.GetString("empty"),
		Remote:     v.GetString("remote"),
		Local:      v.GetString("local"),
		Log: logSettings{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Metrics: metricSetting{
			Addr: v.GetString("metrics.addr"),
		},
	}
}

// parseCommands accepts decimal, hex (0x05) or octal (0o7) bytes
func parseCommands(values []string) ([]byte, error) {
	var cmds []byte
	for _, v := range values {
		for _, field := range strings.Fields(strings.ReplaceAll(v, ",", " ")) {
			n, err := strconv.ParseUint(field, 0, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: command %q is not a byte", relay.ErrInvalidConfig, field)
			}
			cmds = append(cmds, byte(n))
		}
	}
	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: no commands configured", relay.ErrInvalidConfig)
	}
	return cmds, nil
}

func (s settings) relayOptions() ([]relay.Option, error) {
	cmds, err := parseCommands(s.Commands)
	if err != nil {
		return nil, err
	}
	term, err := relay.ParseTerminator(s.Terminator)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: timeout %q", relay.ErrInvalidConfig, s.Timeout)
	}
	empty, err := relay.ParseEmptyPolicy(s.Empty)
	if err != nil {
		return nil, err
	}

	return []relay.Option{
		relay.WithCommands(cmds...),
		relay.WithTerminator(term),
		relay.WithTimeout(timeout),
		relay.WithQueueSize(s.QueueSize),
		relay.WithEmptyPolicy(empty),
	}, nil
}

func (s settings) serialOptions() ([]serialport.Option, error) {
	driver, err := serialport.ParseDriver(s.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, s.Driver)
	}

	parity, err := serialport.ParseParity(s.Parity)
	if err != nil {
		return nil, fmt.Errorf("%w: parity %q", err, s.Parity)
	}

	opts := []serialport.Option{
		serialport.WithDriver(driver),
		serialport.WithBaudRate(s.Baud),
		serialport.WithDataBits(s.DataBits),
		serialport.WithStopBits(s.StopBits),
		serialport.WithParity(parity),
	}
	if s.DTR {
		opts = append(opts, serialport.WithInitialDTR(true))
	}
	if s.RTS {
		opts = append(opts, serialport.WithInitialRTS(true))
	}
	return opts, nil
}

// uniquePaths drops repeated ports while keeping the first occurrence
func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
