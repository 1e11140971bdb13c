package relay

import (
	"io"
	"time"
)

// Device is an open, exclusively owned byte stream to one serial device.
//
// Read must return (0, nil) once the read timeout elapses without data and
// io.EOF when the stream reports end-of-data. FlushInput drops bytes that
// arrived but were not read yet.
type Device interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
	FlushInput() error
}

// Port binds a Device to the identifier carried in every envelope
type Port struct {
	Name   string
	Device Device
}
