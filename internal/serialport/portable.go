package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// portablePort wraps go.bug.st/serial for platforms without the native driver
type portablePort struct {
	mu     sync.Mutex
	port   serial.Port
	path   string
	closed bool
}

var _ Port = (*portablePort)(nil)

func portableMode(config Config) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	switch config.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	}
	if config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	if config.InitialDTR != nil || config.InitialRTS != nil {
		bits := &serial.ModemOutputBits{DTR: true, RTS: true}
		if config.InitialDTR != nil {
			bits.DTR = *config.InitialDTR
		}
		if config.InitialRTS != nil {
			bits.RTS = *config.InitialRTS
		}
		mode.InitialStatusBits = bits
	}
	return mode
}

func mapPortableError(device string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
		case serial.PortBusy:
			return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
		case serial.InvalidSpeed:
			return ErrInvalidBaudRate
		}
	}
	return fmt.Errorf("failed to open %s: %w", device, err)
}

func openPortable(device string, config Config) (Port, error) {
	p, err := serial.Open(device, portableMode(config))
	if err != nil {
		return nil, mapPortableError(device, err)
	}
	return &portablePort{port: p, path: device}, nil
}

func (p *portablePort) Path() string {
	return p.path
}

func (p *portablePort) Read(buf []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrPortClosed
	}
	n, err := p.port.Read(buf)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
			return n, io.EOF
		}
	}
	return n, err
}

func (p *portablePort) Write(data []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

// SetReadTimeout maps a negative timeout to serial.NoTimeout
func (p *portablePort) SetReadTimeout(timeout time.Duration) error {
	if p.isClosed() {
		return ErrPortClosed
	}
	if timeout < 0 {
		timeout = serial.NoTimeout
	}
	return p.port.SetReadTimeout(timeout)
}

func (p *portablePort) FlushInput() error {
	if p.isClosed() {
		return ErrPortClosed
	}
	return p.port.ResetInputBuffer()
}

func (p *portablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return p.port.Close()
}

func (p *portablePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
