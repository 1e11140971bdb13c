//go:build linux

package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// openPTY returns the master side of a fresh pseudo terminal and the path of its slave
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()

	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	fd := int(master.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		t.Skipf("unlockpt failed: %v", err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		t.Skipf("ptsname failed: %v", err)
	}
	t.Cleanup(func() { master.Close() })
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		rate     int
		expected uint32
		hasError bool
	}{
		{9600, unix.B9600, false},
		{115200, unix.B115200, false},
		{921600, unix.B921600, false},
		{123456, 0, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.rate)
		if test.hasError {
			if err == nil {
				t.Errorf("Expected error for rate %d", test.rate)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for rate %d: %v", test.rate, err)
		}
		if result != test.expected {
			t.Errorf("Expected %d for rate %d, got %d", test.expected, test.rate, result)
		}
	}
}

func TestPollMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{-1, -1},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{100 * time.Millisecond, 100},
	}

	for _, tt := range tests {
		if got := pollMillis(tt.in); got != tt.want {
			t.Errorf("pollMillis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOpenNonexistent(t *testing.T) {
	_, err := Open("/dev/ttyDOESNOTEXIST")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOpenInvalidBaudRate(t *testing.T) {
	_, err := Open("/dev/null", WithBaudRate(123))
	if !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestNativeReadTimeout(t *testing.T) {
	_, slave := openPTY(t)

	port, err := Open(slave)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(30 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout failed: %v", err)
	}

	buf := make([]byte, 16)
	start := time.Now()
	n, err := port.Read(buf)
	elapsed := time.Since(start)

	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil) on timeout, got (%d, %v)", n, err)
	}
	if elapsed < 25*time.Millisecond {
		t.Errorf("Read returned after %v, expected to wait for the timeout", elapsed)
	}
}

func TestNativeReadWrite(t *testing.T) {
	master, slave := openPTY(t)

	port, err := Open(slave)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if port.Path() != slave {
		t.Errorf("Expected path %s, got %s", slave, port.Path())
	}

	if _, err := master.Write([]byte("ok\n")); err != nil {
		t.Fatalf("master write failed: %v", err)
	}

	if err := port.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("SetReadTimeout failed: %v", err)
	}
	buf := make([]byte, 16)
	n, err := port.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "ok\n" {
		t.Errorf("Expected %q, got %q", "ok\n", buf[:n])
	}

	if _, err := port.Write([]byte{0x05}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	reply := make([]byte, 1)
	if _, err := io.ReadFull(master, reply); err != nil {
		t.Fatalf("master read failed: %v", err)
	}
	if reply[0] != 0x05 {
		t.Errorf("Expected 0x05, got %#x", reply[0])
	}
}

func TestNativeClose(t *testing.T) {
	_, slave := openPTY(t)

	port, err := Open(slave)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := port.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := port.Close(); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed on second close, got %v", err)
	}
	if _, err := port.Read(make([]byte, 1)); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed on read, got %v", err)
	}
	if err := port.SetReadTimeout(time.Second); err != ErrPortClosed {
		t.Errorf("Expected ErrPortClosed on SetReadTimeout, got %v", err)
	}
}
