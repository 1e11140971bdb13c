package serialport

import (
	"io"
	"time"
)

// Port represents an open serial port.
//
// Read returns (0, nil) when the read timeout elapses with no data and io.EOF
// once the device has hung up. A negative read timeout blocks until data arrives.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
	FlushInput() error
	Path() string
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	switch config.Driver {
	case DriverPortable:
		return openPortable(device, config)
	default:
		return openNative(device, config)
	}
}
