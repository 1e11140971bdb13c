//go:build !linux

package serialport

func openNative(device string, config Config) (Port, error) {
	return nil, ErrUnsupported
}
