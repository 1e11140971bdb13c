/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/serial-relay/internal/serialport"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serial-relay info /dev/ttyUSB0
  serial-relay info /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		if _, err := os.Stat(portPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}
		info := serialport.DescribePorts([]string{portPath})[0]

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)

		if info.IsUSB {
			fmt.Println("\nUSB Device Information:")
			fmt.Printf("  Vendor ID:    %s\n", info.VendorID)
			fmt.Printf("  Product ID:   %s\n", info.ProductID)
			if info.SerialNumber != "" {
				fmt.Printf("  Serial:       %s\n", info.SerialNumber)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
