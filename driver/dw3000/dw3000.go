// package dw3000 implements a driver for the Qorvo (Decawave) [DW3000]
// UWB transceiver.
//
// The device is represented by one of two handle types. A [*Ready]
// handle owns the bus and offers register transactions. A [*Sleeping]
// handle offers nothing but [Sleeping.FinishWakeup], because the SPI
// interface of a sleeping DW3000 is powered down. Transitions consume
// the source handle: it is cleared and any further use of it returns
// [ErrConsumed] without touching the bus.
//
// [DW3000]: https://www.qorvo.com/products/p/DW3000
package dw3000

import (
	"errors"
	"fmt"
)

// Bus is a full-duplex SPI transfer with chip select asserted for the
// duration of the call. periph.io spi.Conn implements it.
type Bus interface {
	Tx(w, r []byte) error
}

var (
	// ErrStillAsleep is returned by FinishWakeup if the device did
	// not identify itself. The wake trigger must be redone.
	ErrStillAsleep = errors.New("dw3000: still asleep")
	// ErrConsumed is returned by operations on a handle that has
	// transitioned to another phase.
	ErrConsumed = errors.New("dw3000: handle consumed by state transition")
	// ErrUnknownDevice is returned by New if the device id is wrong.
	ErrUnknownDevice = errors.New("dw3000: unknown device")
	// ErrOTPAddress is returned for OTP addresses beyond 11 bits.
	ErrOTPAddress = errors.New("dw3000: OTP address out of range")
)

// Ready is a handle to an awake device.
type Ready struct {
	c   *regConn
	seq uint8
}

// New identifies the device on b and returns a handle in the
// Ready phase.
func New(b Bus) (*Ready, error) {
	c := &regConn{bus: b}
	id, err := c.read(DevID)
	if err != nil {
		return nil, fmt.Errorf("dw3000: %w", err)
	}
	if uint16(id>>16) != ridtag {
		return nil, fmt.Errorf("%w: id %#08x", ErrUnknownDevice, id)
	}
	return &Ready{c: c}, nil
}

func (d *Ready) conn() (*regConn, error) {
	if d.c == nil {
		return nil, ErrConsumed
	}
	return d.c, nil
}

// Read a register. Bus errors are returned unchanged.
func (d *Ready) Read(r Register) (uint64, error) {
	c, err := d.conn()
	if err != nil {
		return 0, err
	}
	return c.read(r)
}

// Write a register. Bus errors are returned unchanged.
func (d *Ready) Write(r Register, v uint64) error {
	c, err := d.conn()
	if err != nil {
		return err
	}
	return c.write(r, v)
}

// Modify reads a register, clears the clr bits, sets the set bits
// and writes the result back.
func (d *Ready) Modify(r Register, set, clr uint64) error {
	c, err := d.conn()
	if err != nil {
		return err
	}
	return c.modify(r, set, clr)
}

// DevID reads the device identification register.
func (d *Ready) DevID() (uint32, error) {
	v, err := d.Read(DevID)
	return uint32(v), err
}

// Seq returns the current frame sequence number.
func (d *Ready) Seq() uint8 {
	return d.seq
}

// NextSeq returns the current frame sequence number and advances it.
func (d *Ready) NextSeq() uint8 {
	s := d.seq
	d.seq++
	return s
}

// TxAntennaDelay reads the transmit antenna delay, in device time
// units (~15.65 ps).
func (d *Ready) TxAntennaDelay() (uint16, error) {
	v, err := d.Read(TxAntd)
	return uint16(v), err
}

// SetTxAntennaDelay writes the transmit antenna delay. The value is
// not retained across sleep.
func (d *Ready) SetTxAntennaDelay(delay uint16) error {
	return d.Write(TxAntd, uint64(delay))
}

// Sleep configures the wake sources and the sleep counter, then puts
// the device to sleep. d is consumed, even on error, because a failed
// configuration may have left the device asleep.
func (d *Ready) Sleep(cfg SleepConfig) (*Sleeping, error) {
	c, err := d.conn()
	if err != nil {
		return nil, err
	}
	seq := d.seq
	d.c = nil
	if err := enterSleep(c, cfg); err != nil {
		return nil, fmt.Errorf("dw3000: sleep: %w", err)
	}
	return &Sleeping{c: c, seq: seq, cfg: cfg}, nil
}

func enterSleep(c *regConn, cfg SleepConfig) error {
	wake := uint64(0b1<<wake_csn | 0b1<<wake_wup)
	if cfg.Mode == ModeSleep {
		if err := writeAON(c, aonSleepCntLo, uint8(cfg.Timer)); err != nil {
			return err
		}
		if err := writeAON(c, aonSleepCntHi, uint8(cfg.Timer>>8)); err != nil {
			return err
		}
		wake |= 0b1<<sleep_en | 0b1<<wake_cnt
	}
	// Reload the configuration and go to IDLE on wakeup.
	if err := c.write(AONDigCfg, 0b1<<onw_aon_dld|0b1<<onw_go2idle); err != nil {
		return err
	}
	if err := c.write(AONCfg, wake); err != nil {
		return err
	}
	// The save bit must see a rising edge.
	if err := c.write(AONCtrl, 0); err != nil {
		return err
	}
	return c.write(AONCtrl, 0b1<<aon_save)
}

// writeAON writes a byte to the always-on memory through direct
// access.
func writeAON(c *regConn, addr uint16, val uint8) error {
	if err := c.write(AONAddr, uint64(addr)); err != nil {
		return err
	}
	if err := c.write(AONWData, uint64(val)); err != nil {
		return err
	}
	if err := c.write(AONCtrl, 0b1<<dca_enab|0b1<<dca_write); err != nil {
		return err
	}
	return c.write(AONCtrl, 0)
}
