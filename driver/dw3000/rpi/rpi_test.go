package rpi

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
	"uwbkit.dev/driver/dw3000"
)

// levels records the levels driven on a pin.
type levels struct {
	gpiotest.Pin
	out []gpio.Level
}

func (l *levels) Out(v gpio.Level) error {
	l.out = append(l.out, v)
	return l.Pin.Out(v)
}

var devIDRead = conntest.IO{
	W: []byte{0x40, 0x00, 0, 0, 0, 0},
	R: []byte{0, 0, 0x02, 0x03, 0xca, 0xde},
}

func newBoard(t *testing.T, ops ...conntest.IO) (*Board, *spitest.Playback, *levels) {
	t.Helper()
	p := &spitest.Playback{
		Playback: conntest.Playback{Ops: ops, DontPanic: true},
	}
	pin := &levels{Pin: gpiotest.Pin{N: "WAKEUP"}}
	b, err := New(p, pin)
	if err != nil {
		t.Fatal(err)
	}
	return b, p, pin
}

func TestIdentify(t *testing.T) {
	b, p, _ := newBoard(t, devIDRead)
	d, err := dw3000.New(b)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("no device")
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestWake(t *testing.T) {
	b, _, pin := newBoard(t)
	var slept []time.Duration
	b.sleep = func(d time.Duration) {
		slept = append(slept, d)
	}
	if err := b.Wake(); err != nil {
		t.Fatal(err)
	}
	want := []gpio.Level{gpio.Low, gpio.High, gpio.Low}
	if len(pin.out) != len(want) {
		t.Fatalf("WAKEUP driven %v, want %v", pin.out, want)
	}
	for i := range want {
		if pin.out[i] != want[i] {
			t.Errorf("WAKEUP driven %v, want %v", pin.out, want)
			break
		}
	}
	if len(slept) != 2 || slept[0] != defaultWakePulse || slept[1] != defaultSettle {
		t.Errorf("delays %v, want [%v %v]", slept, defaultWakePulse, defaultSettle)
	}
}

func TestFinishWakeupWire(t *testing.T) {
	b, p, _ := newBoard(t,
		devIDRead,
		// Read OTP_CFG, set OTP_MAN.
		conntest.IO{W: []byte{0x56, 0x20, 0, 0}, R: []byte{0, 0, 0, 0}},
		conntest.IO{W: []byte{0xd6, 0x20, 0x01, 0x00}, R: []byte{0, 0, 0, 0}},
		// OTP_ADDR = 0x04.
		conntest.IO{W: []byte{0xd6, 0x10, 0x04, 0x00}, R: []byte{0, 0, 0, 0}},
		// Read OTP_CFG, set OTP_READ.
		conntest.IO{W: []byte{0x56, 0x20, 0, 0}, R: []byte{0, 0, 0x01, 0x00}},
		conntest.IO{W: []byte{0xd6, 0x20, 0x03, 0x00}, R: []byte{0, 0, 0, 0}},
		// OTP_RDATA, not calibrated.
		conntest.IO{W: []byte{0x56, 0x40, 0, 0, 0, 0}, R: []byte{0, 0, 0, 0, 0, 0}},
	)
	b.sleep = func(time.Duration) {}
	if err := b.Wake(); err != nil {
		t.Fatal(err)
	}
	if _, err := dw3000.NewSleeping(b, 0).FinishWakeup(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}
