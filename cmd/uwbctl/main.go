// command uwbctl identifies a DW3000 and exercises its sleep and wakeup
// sequence.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"uwbkit.dev/driver/dw3000"
	"uwbkit.dev/driver/dw3000/bridge"
	"uwbkit.dev/driver/dw3000/rpi"
)

var (
	spiPort   = flag.String("spi", "", "SPI port (default first available)")
	wakePin   = flag.String("wake", "GPIO25", "WAKEUP pin")
	bridgeDev = flag.String("bridge", "", "serial bridge device, instead of SPI")
	simulate  = flag.Bool("sim", false, "use a simulated device")
	timer     = flag.Uint("timer", 0x100, "sleep counter for sleep and cycle")
	antd      = flag.Uint("antd", 16385, "TX antenna delay restored after wakeup")
	retries   = flag.Int("retries", 3, "wakeup attempts")
	wait      = flag.Duration("wait", 100*time.Millisecond, "time to wait for the sleep counter when the WAKEUP pin is not wired")
)

// device is a DW3000 bus with a way to trigger wakeup.
type device interface {
	dw3000.Bus
	Wake() error
	Close() error
}

type options struct {
	Timer   uint16
	Antd    uint16
	Retries int
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: uwbctl [flags] id|otp|sleep|deepsleep|wake|cycle\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("uwbctl: ")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}
	if *timer > 0xffff {
		fmt.Fprintf(os.Stderr, "-timer must fit in 16 bits\n")
		os.Exit(2)
	}
	if *antd > 0xffff {
		fmt.Fprintf(os.Stderr, "-antd must fit in 16 bits\n")
		os.Exit(2)
	}
	dev, err := open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uwbctl: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	opts := options{
		Timer:   uint16(*timer),
		Antd:    uint16(*antd),
		Retries: *retries,
	}
	if err := run(dev, flag.Arg(0), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "uwbctl: %v\n", err)
		os.Exit(1)
	}
}

func open() (device, error) {
	switch {
	case *simulate:
		return newSimDevice(), nil
	case *bridgeDev != "":
		s, err := bridge.Open(*bridgeDev)
		if err != nil {
			return nil, err
		}
		b, err := bridge.New(s)
		if err != nil {
			s.Close()
			return nil, err
		}
		return &bridgeDevice{Bus: b, port: s, wait: *wait}, nil
	default:
		b, err := rpi.Open(*spiPort, *wakePin)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// bridgeDevice relies on the sleep counter for wakeup, because
// the bridge doesn't drive the WAKEUP pin.
type bridgeDevice struct {
	*bridge.Bus
	port io.Closer
	wait time.Duration
}

func (b *bridgeDevice) Wake() error {
	time.Sleep(b.wait)
	return nil
}

func (b *bridgeDevice) Close() error {
	return b.port.Close()
}

type simDevice struct {
	*dw3000.Simulator
}

func newSimDevice() *simDevice {
	s := dw3000.NewSimulator(0xdeca0302)
	s.OTP[0x00] = 0x89abcdef
	s.OTP[0x01] = 0x01234567
	s.OTP[0x04] = 0x14141414
	s.OTP[0x06] = 0x0302
	s.OTP[0x1e] = 0x2e
	return &simDevice{s}
}

func (s *simDevice) Close() error {
	return nil
}

func run(dev device, cmd string, opts options, out io.Writer) error {
	switch cmd {
	case "wake":
		r, err := wakeUp(dev, dw3000.NewSleeping(dev, 0), opts.Retries)
		if err != nil {
			return err
		}
		return printID(out, r)
	}
	d, err := dw3000.New(dev)
	if err != nil {
		return err
	}
	switch cmd {
	case "id":
		return printID(out, d)
	case "otp":
		m, err := d.ReadOTPMemory()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "eui:       %016x\n", m.EUI)
		fmt.Fprintf(out, "ldo tune:  %#x\n", m.LDOTune)
		fmt.Fprintf(out, "part id:   %#08x\n", m.PartID)
		fmt.Fprintf(out, "lot id:    %#08x\n", m.LotID)
		fmt.Fprintf(out, "vbat:      %#02x\n", m.VBat)
		fmt.Fprintf(out, "temp:      %#02x\n", m.Temp)
		fmt.Fprintf(out, "bias tune: %#02x\n", m.BiasTune)
		fmt.Fprintf(out, "xtal trim: %#02x\n", m.XtalTrim)
		fmt.Fprintf(out, "revision:  %d\n", m.Revision)
		return nil
	case "sleep", "deepsleep":
		cfg := dw3000.Sleep(opts.Timer)
		if cmd == "deepsleep" {
			cfg = dw3000.DeepSleep()
		}
		if _, err := d.Sleep(cfg); err != nil {
			return err
		}
		log.Printf("device in %v", cfg.Mode)
		return nil
	case "cycle":
		return cycle(dev, d, opts, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// cycle puts the device to sleep and brings it back. The antenna delay
// is not retained during sleep and is restored after wakeup.
func cycle(dev device, d *dw3000.Ready, opts options, out io.Writer) error {
	if err := d.SetTxAntennaDelay(opts.Antd); err != nil {
		return err
	}
	seq := d.NextSeq()
	sl, err := d.Sleep(dw3000.Sleep(opts.Timer))
	if err != nil {
		return err
	}
	log.Printf("device in %v (counter %#x)", sl.Config().Mode, sl.Config().Timer)
	r, err := wakeUp(dev, sl, opts.Retries)
	if err != nil {
		return err
	}
	if err := r.SetTxAntennaDelay(opts.Antd); err != nil {
		return err
	}
	antd, err := r.TxAntennaDelay()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "awake, seq %d -> %d, tx antenna delay %d\n", seq, r.Seq(), antd)
	return nil
}

// wakeUp triggers wakeup and completes it. A device that is still
// asleep is triggered again with a new handle continuing the sequence
// number, up to retries attempts.
func wakeUp(dev device, sl *dw3000.Sleeping, retries int) (*dw3000.Ready, error) {
	for i := 1; ; i++ {
		if err := dev.Wake(); err != nil {
			return nil, err
		}
		seq := sl.Seq()
		r, err := sl.FinishWakeup()
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, dw3000.ErrStillAsleep) || i >= retries {
			return nil, err
		}
		log.Printf("wakeup attempt %d: %v", i, err)
		sl = dw3000.NewSleeping(dev, seq)
	}
}

func printID(out io.Writer, d *dw3000.Ready) error {
	id, err := d.DevID()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "DW3000 ridtag %#04x model %#02x ver %d rev %d\n", id>>16, id>>8&0xff, id>>4&0xf, id&0xf)
	return nil
}
