//go:build !tinygo

package bridge

import (
	"errors"
	"io"
	"runtime"

	"github.com/tarm/serial"
)

// Open the serial port of a bridge at 115200 baud. If dev is empty,
// the names a USB CDC-ACM bridge board enumerates as are tried in
// order: /dev/ttyACM0 and /dev/ttyACM1, then /dev/ttyUSB0 for boards
// behind a USB-UART converter on Linux, /dev/cu.usbmodem1 on macOS and
// COM3 on Windows. The first error is returned if none opens.
func Open(dev string) (io.ReadWriteCloser, error) {
	const baudRate = 115200

	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3")
		case "linux":
			devices = append(devices, "/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyUSB0")
		case "darwin":
			devices = append(devices, "/dev/cu.usbmodem1")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("bridge: no device specified")
	}
	var firstErr error
	for _, dev := range devices {
		c := &serial.Config{Name: dev, Baud: baudRate}
		s, err := serial.OpenPort(c)
		if err == nil {
			return s, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
