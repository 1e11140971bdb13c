/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serial-relay [port...]",
	Short: "Poll serial devices and relay their responses over UDP",
	Long: `serial-relay writes a fixed sequence of single-byte commands to each
serial port, reads every response until the terminator or the transaction
deadline, and forwards each response as one JSON datagram:

  {"port":"/dev/ttyUSB0","command":5,"data":"b2sK","duration_microseconds":10342,"complete":true}

Without ports on the command line or in the config file, an interactive
picker lists the attached serial ports.

Examples:
  serial-relay /dev/ttyUSB0 /dev/ttyUSB1
  serial-relay run /dev/ttyACM0 --remote 10.0.0.5:34254 --timeout 250ms
  serial-relay --commands 0x01,0x02 --terminator '\r\n'`,
	Args: cobra.ArbitraryArgs,
	Run:  runRelayCommand,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .serial-relay.yaml in $HOME or the working directory)")

	flags.IntP("baud", "b", 115200, "Baud rate")
	flags.Int("data-bits", 8, "Data bits: 5, 6, 7, 8")
	flags.Int("stop-bits", 1, "Stop bits: 1, 2")
	flags.String("parity", "none", "Parity: none, odd, even")
	flags.String("driver", "native", "Serial driver: native, portable")
	flags.Bool("dtr", false, "Assert DTR on port open")
	flags.Bool("rts", false, "Assert RTS on port open")
	flags.StringSlice("commands", []string{"0x05", "0x06", "0x07", "0x08"}, "Command bytes sent in order")
	flags.String("terminator", `\n`, "Response terminator, Go escapes allowed")
	flags.Duration("timeout", defaultTimeout, "Per-transaction deadline")
	flags.Int("queue-size", 100, "Relay queue capacity")
	flags.String("empty", "forward", "Zero-byte responses: forward, suppress")
	flags.String("remote", "127.0.0.1:34254", "UDP destination")
	flags.String("local", "0.0.0.0:0", "UDP local address")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json")
	flags.String("metrics-addr", "", "Serve /metrics and /health on this address")

	bindFlag("baud", "baud")
	bindFlag("data_bits", "data-bits")
	bindFlag("stop_bits", "stop-bits")
	bindFlag("parity", "parity")
	bindFlag("driver", "driver")
	bindFlag("dtr", "dtr")
	bindFlag("rts", "rts")
	bindFlag("commands", "commands")
	bindFlag("terminator", "terminator")
	bindFlag("timeout", "timeout")
	bindFlag("queue_size", "queue-size")
	bindFlag("empty", "empty")
	bindFlag("remote", "remote")
	bindFlag("local", "local")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
	bindFlag("metrics.addr", "metrics-addr")
	viper.SetDefault("ports", []string{})
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serial-relay")
	}

	viper.SetEnvPrefix("SERIAL_RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error: reading config: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}
