//go:build linux

package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// nativePort is a termios-configured tty opened in exclusive mode
type nativePort struct {
	mu          sync.RWMutex
	fd          int
	path        string
	config      Config
	readTimeout time.Duration
	closed      bool
}

// Ensure nativePort implements Port interface at compile time
var _ Port = (*nativePort)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// mapOpenError translates errno values from open(2) into package errors
func mapOpenError(device string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
}

func openNative(device string, config Config) (Port, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapOpenError(device, err)
	}

	// One poller owns the tty; refuse other openers while we hold it
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceInUse, device, err)
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialDTR != nil {
		if err := setModemBit(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %v", err)
		}
	}
	if config.InitialRTS != nil {
		if err := setModemBit(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %v", err)
		}
	}

	return &nativePort{
		fd:          fd,
		path:        device,
		config:      config,
		readTimeout: -1,
	}, nil
}

// configurePort puts the tty into raw mode. Reads are paced by poll(2), so
// VMIN and VTIME are both zero.
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %v", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %v", err)
	}

	// O_NONBLOCK was only needed so open(2) would not wait for carrier
	if err := unix.SetNonblock(fd, false); err != nil {
		return fmt.Errorf("failed to clear O_NONBLOCK: %v", err)
	}
	return nil
}

func setModemBit(fd int, bit int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, bit)
}

// pollMillis rounds a timeout up to whole milliseconds for poll(2)
func pollMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func (p *nativePort) Path() string {
	return p.path
}

// Close closes the serial port
func (p *nativePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// SetReadTimeout bounds how long the next Read waits for the first byte
func (p *nativePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.readTimeout = timeout
	return nil
}

// Read waits up to the read timeout for input, then returns what is available
func (p *nativePort) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	deadline := time.Now().Add(p.readTimeout)
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}

	for {
		timeout := p.readTimeout
		if timeout >= 0 {
			timeout = time.Until(deadline)
			if timeout < 0 {
				timeout = 0
			}
		}

		n, err := unix.Poll(fds, pollMillis(timeout))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, nil
		}

		revents := fds[0].Revents
		if revents&unix.POLLNVAL != 0 {
			return 0, ErrPortClosed
		}
		if revents&unix.POLLIN == 0 && revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return 0, io.EOF
		}

		n, err = unix.Read(p.fd, buf)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes data to the serial port
func (p *nativePort) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(data) {
		n, err := unix.Write(p.fd, data[written:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// FlushInput discards any unread input data
func (p *nativePort) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}
