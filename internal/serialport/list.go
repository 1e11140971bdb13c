package serialport

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a discovered serial port
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
}

var (
	// Communication-capable tty names
	devicePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
		regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
		regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
		regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
		regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
		regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
		regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	}

	// Virtual terminals and other non-serial devices
	excludePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^tty\d+$`),
		regexp.MustCompile(`^console$`),
		regexp.MustCompile(`^ptmx$`),
		regexp.MustCompile(`^pty.*$`),
	}
)

// ListPorts returns the available serial ports, sorted by path.
// Linux scans /dev; other platforms ask go.bug.st/serial.
func ListPorts() ([]string, error) {
	if runtime.GOOS != "linux" {
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, err
		}
		sort.Strings(ports)
		return ports, nil
	}
	return scanDevDir("/dev")
}

func scanDevDir(devDir string) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !isSerialName(name) {
			continue
		}

		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

func isSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range devicePatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// DescribePorts returns PortInfo for each path, enriched with USB metadata
// when the enumerator knows the device. Enumeration failures leave the
// USB fields empty.
func DescribePorts(paths []string) []PortInfo {
	usb := map[string]*enumerator.PortDetails{}
	if details, err := enumerator.GetDetailedPortsList(); err == nil {
		for _, d := range details {
			usb[d.Name] = d
		}
	}

	infos := make([]PortInfo, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		info := PortInfo{
			Name:        name,
			Path:        path,
			Description: getPortDescription(name),
		}
		if d, ok := usb[path]; ok && d.IsUSB {
			info.IsUSB = true
			info.VendorID = strings.ToLower(d.VID)
			info.ProductID = strings.ToLower(d.PID)
			info.SerialNumber = d.SerialNumber
		}
		infos = append(infos, info)
	}
	return infos
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
