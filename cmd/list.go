/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/serial-relay/internal/serialport"
	"github.com/allbin/serial-relay/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports serial-relay can poll.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

With --table the ports are shown with their USB vendor, product and serial
number where known.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serialport.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		infos := filterPorts(serialport.DescribePorts(ports), filterType)
		if len(infos) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found.")
			}
			return
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(infos))
			fmt.Println(renderTable(infos))
			return
		}
		for _, info := range infos {
			fmt.Println(info.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(infos []serialport.PortInfo, filterType string) []serialport.PortInfo {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return infos
	}

	var filtered []serialport.PortInfo
	for _, info := range infos {
		name := strings.ToLower(info.Name)
		switch filterType {
		case "usb":
			if info.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

// renderTable renders the port list as a bordered lipgloss table
func renderTable(infos []serialport.PortInfo) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		vid, pid, serialNumber := "-", "-", "-"
		if info.IsUSB {
			vid, pid = info.VendorID, info.ProductID
			if info.SerialNumber != "" {
				serialNumber = info.SerialNumber
			}
		}
		rows = append(rows, []string{info.Path, info.Description, vid, pid, serialNumber})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.MutedStyle).
		Headers("Port", "Description", "VID", "PID", "Serial").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeaderStyle.Padding(0, 1)
			case col >= 2 && infos[row].IsUSB:
				return styles.USBStyle.Padding(0, 1)
			default:
				return styles.TableCellStyle
			}
		}).
		String()
}
