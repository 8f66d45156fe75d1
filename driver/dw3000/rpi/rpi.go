// package rpi connects a DW3000 to the SPI and GPIO headers of a Linux
// single board computer, such as the Raspberry Pi with a DWM3000 shield.
package rpi

import (
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Board is a DW3000 on an SPI port, with its WAKEUP pin on a GPIO.
// It implements dw3000.Bus.
type Board struct {
	conn  spi.Conn
	port  spi.Port
	wake  gpio.PinOut
	sleep func(time.Duration)

	// WakePulse is how long WAKEUP is held high.
	WakePulse time.Duration
	// Settle is the time allowed for the clocks to start after
	// the pulse.
	Settle time.Duration
}

const (
	// The SPI clock must stay below 7 MHz until the PLL has
	// locked, which includes the whole wakeup sequence.
	spiFreq = 7 * physic.MegaHertz

	defaultWakePulse = 850 * time.Microsecond
	defaultSettle    = 4 * time.Millisecond
)

// Open initializes the host drivers and opens the named SPI port and
// WAKEUP pin. An empty port name selects the first available port.
func Open(spiPort, wakePin string) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("rpi: %w", err)
	}
	p, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("rpi: %w", err)
	}
	pin := gpioreg.ByName(wakePin)
	if pin == nil {
		p.Close()
		return nil, fmt.Errorf("rpi: no such pin: %q", wakePin)
	}
	b, err := New(p, pin)
	if err != nil {
		p.Close()
		return nil, err
	}
	return b, nil
}

// New connects to the device on p, using wake as the WAKEUP pin.
func New(p spi.Port, wake gpio.PinOut) (*Board, error) {
	c, err := p.Connect(spiFreq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("rpi: %w", err)
	}
	if err := wake.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("rpi: WAKEUP: %w", err)
	}
	return &Board{
		conn:      c,
		port:      p,
		wake:      wake,
		sleep:     time.Sleep,
		WakePulse: defaultWakePulse,
		Settle:    defaultSettle,
	}, nil
}

func (b *Board) Tx(w, r []byte) error {
	return b.conn.Tx(w, r)
}

// Wake pulses the WAKEUP pin and waits for the device clocks to
// settle. The device may then be brought up with FinishWakeup.
func (b *Board) Wake() error {
	if err := b.wake.Out(gpio.High); err != nil {
		return fmt.Errorf("rpi: WAKEUP: %w", err)
	}
	b.sleep(b.WakePulse)
	if err := b.wake.Out(gpio.Low); err != nil {
		return fmt.Errorf("rpi: WAKEUP: %w", err)
	}
	b.sleep(b.Settle)
	return nil
}

func (b *Board) Close() error {
	if c, ok := b.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
