// Package serialport opens and discovers serial devices.
//
// Two drivers sit behind the Port interface. The native driver configures the
// tty with termios through golang.org/x/sys/unix, takes exclusive ownership
// with TIOCEXCL and bounds reads with poll(2). The portable driver wraps
// go.bug.st/serial and works wherever that library does.
//
//	port, err := serialport.Open("/dev/ttyUSB0",
//	    serialport.WithBaudRate(115200),
//	    serialport.WithDriver(serialport.DriverNative),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// ListPorts and DescribePorts report what is attached.
package serialport
