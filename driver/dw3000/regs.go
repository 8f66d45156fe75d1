package dw3000

import (
	"encoding/binary"
	"fmt"
)

// Register describes a register by its file (base address) and
// offset within the file, in the full-address SPI mode.
type Register struct {
	Name   string
	File   uint8
	Offset uint8
	// Len is the width of the register in bytes, at most 8.
	Len int
}

func (r Register) String() string {
	return fmt.Sprintf("%s(%02x:%02x)", r.Name, r.File, r.Offset)
}

// Registers used by this package. See the DW3000 user manual,
// section 8 "Register map".
var (
	DevID  = Register{"DEV_ID", 0x00, 0x00, 4}
	TxAntd = Register{"TX_ANTD", 0x01, 0x04, 2}

	AONDigCfg = Register{"AON_DIG_CFG", 0x0a, 0x00, 3}
	AONCtrl   = Register{"AON_CTRL", 0x0a, 0x04, 1}
	AONAddr   = Register{"AON_ADDR", 0x0a, 0x0c, 2}
	AONWData  = Register{"AON_WDATA", 0x0a, 0x10, 1}
	AONCfg    = Register{"AON_CFG", 0x0a, 0x14, 1}

	OTPAddr  = Register{"OTP_ADDR", 0x0b, 0x04, 2}
	OTPCfg   = Register{"OTP_CFG", 0x0b, 0x08, 2}
	OTPRData = Register{"OTP_RDATA", 0x0b, 0x10, 4}
)

var knownRegs = []Register{
	DevID, TxAntd,
	AONDigCfg, AONCtrl, AONAddr, AONWData, AONCfg,
	OTPAddr, OTPCfg, OTPRData,
}

const (
	// RIDTAG, the upper half of DEV_ID.
	ridtag = 0xdeca

	// OTP_CFG bits.
	otp_man  = 0
	otp_read = 1
	ldo_kick = 7

	// OTP_ADDR is 11 bits wide.
	otpAddrMask = 0x7ff

	// AON_CTRL bits.
	aon_save  = 1
	dca_write = 3
	dca_enab  = 7

	// AON_CFG bits.
	sleep_en = 0
	wake_cnt = 1
	wake_csn = 3
	wake_wup = 4

	// AON_DIG_CFG bits.
	onw_aon_dld = 0
	onw_go2idle = 8

	// AON memory addresses of the 16-bit sleep counter.
	aonSleepCntLo = 0x102
	aonSleepCntHi = 0x103

	// Full-address SPI header.
	hdrWrite    = 0b1 << 7
	hdrFullAddr = 0b1 << 6
	hdrLen      = 2
)

// regConn implements register transactions on top of a Bus.
type regConn struct {
	bus     Bus
	scratch [hdrLen + 8]byte
	rx      [hdrLen + 8]byte
}

func header(buf []byte, r Register, write bool) {
	buf[0] = hdrFullAddr | (r.File&0x1f)<<1 | (r.Offset>>6)&0b1
	if write {
		buf[0] |= hdrWrite
	}
	buf[1] = (r.Offset & 0x3f) << 2
}

// parseHeader is the inverse of header.
func parseHeader(buf []byte) (file, offset uint8, write bool) {
	write = buf[0]&hdrWrite != 0
	file = (buf[0] >> 1) & 0x1f
	offset = (buf[0]&0b1)<<6 | buf[1]>>2
	return
}

func (c *regConn) read(r Register) (uint64, error) {
	n := hdrLen + r.Len
	w, rx := c.scratch[:n], c.rx[:n]
	clear(w)
	header(w, r, false)
	if err := c.bus.Tx(w, rx); err != nil {
		return 0, err
	}
	var v [8]byte
	copy(v[:], rx[hdrLen:])
	return binary.LittleEndian.Uint64(v[:]), nil
}

func (c *regConn) write(r Register, val uint64) error {
	n := hdrLen + r.Len
	w, rx := c.scratch[:n], c.rx[:n]
	header(w, r, true)
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], val)
	copy(w[hdrLen:], v[:r.Len])
	return c.bus.Tx(w, rx)
}

func (c *regConn) modify(r Register, set, clr uint64) error {
	v, err := c.read(r)
	if err != nil {
		return err
	}
	return c.write(r, v&^clr|set)
}
