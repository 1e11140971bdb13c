package serialport

import "strings"

// Driver selects the implementation behind an opened port
type Driver int

const (
	DriverNative   Driver = iota // termios via golang.org/x/sys/unix (Linux)
	DriverPortable               // go.bug.st/serial
)

func (d Driver) String() string {
	switch d {
	case DriverPortable:
		return "portable"
	default:
		return "native"
	}
}

// ParseDriver maps a configuration string to a Driver
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "native":
		return DriverNative, nil
	case "portable", "bugst":
		return DriverPortable, nil
	default:
		return DriverNative, ErrUnknownDriver
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "none"
	}
}

// ParseParity accepts none, odd and even, or their N, O and E abbreviations
func ParseParity(name string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	default:
		return ParityNone, ErrInvalidConfig
	}
}

// Config holds the configuration for a serial port
type Config struct {
	Driver     Driver
	BaudRate   int
	DataBits   int
	StopBits   int
	Parity     Parity
	InitialDTR *bool
	InitialRTS *bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns 115200 8N1 on the native driver
func DefaultConfig() Config {
	return Config{
		Driver:   DriverNative,
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   ParityNone,
	}
}

// WithDriver selects the port implementation
func WithDriver(d Driver) Option {
	return func(c *Config) error {
		if d != DriverNative && d != DriverPortable {
			return ErrUnknownDriver
		}
		c.Driver = d
		return nil
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if !validBaudRate(rate) {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithInitialDTR sets the DTR state applied right after open.
// Many USB bridges hold the attached device in reset until DTR is asserted.
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithInitialRTS sets the RTS state applied right after open
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// standardBaudRates is the set both drivers accept
var standardBaudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800, 9600,
	19200, 38400, 57600, 115200, 230400, 460800, 500000, 576000, 921600,
	1000000, 1152000, 1500000, 2000000, 2500000, 3000000, 3500000, 4000000,
}

func validBaudRate(rate int) bool {
	for _, r := range standardBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}
