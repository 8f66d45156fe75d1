package dw3000

// OTP memory addresses of factory programmed values. Each address holds
// a 32-bit word.
const (
	otpEUILo      = 0x00
	otpEUIHi      = 0x01
	otpLDOTuneLo  = 0x04
	otpLDOTuneHi  = 0x05
	otpPartID     = 0x06
	otpLotID      = 0x07
	otpVBat       = 0x08
	otpTemp       = 0x09
	otpBiasTune   = 0x0a
	otpXtalTrim   = 0x1e
	otpRevision   = 0x1f
	xtalTrimMask  = 0x7f
	revisionMask  = 0xff
	otpTempMask   = 0xff
	otpVBatMask   = 0xff
	biasTuneShift = 16
	biasTuneMask  = 0x1f
)

// OTPMemory holds the factory calibration and identification values
// programmed into the device.
type OTPMemory struct {
	// EUI is the 64-bit extended unique identifier, or zero if not
	// programmed.
	EUI      uint64
	LDOTune  uint64
	PartID   uint32
	LotID    uint32
	VBat     uint8
	Temp     uint8
	BiasTune uint8
	XtalTrim uint8
	Revision uint8
}

// readOTP reads a 32-bit word through manual OTP access.
func readOTP(c *regConn, addr uint16) (uint32, error) {
	if err := c.modify(OTPCfg, 0b1<<otp_man, 0); err != nil {
		return 0, err
	}
	if err := c.write(OTPAddr, uint64(addr)); err != nil {
		return 0, err
	}
	if err := c.modify(OTPCfg, 0b1<<otp_read, 0); err != nil {
		return 0, err
	}
	v, err := c.read(OTPRData)
	return uint32(v), err
}

// ReadOTP reads the 32-bit OTP word at addr.
func (d *Ready) ReadOTP(addr uint16) (uint32, error) {
	c, err := d.conn()
	if err != nil {
		return 0, err
	}
	if addr > otpAddrMask {
		return 0, ErrOTPAddress
	}
	return readOTP(c, addr)
}

// ReadOTPMemory reads the factory programmed OTP values.
func (d *Ready) ReadOTPMemory() (OTPMemory, error) {
	var m OTPMemory
	var words [otpRevision + 1]uint32
	for _, addr := range []uint16{
		otpEUILo, otpEUIHi,
		otpLDOTuneLo, otpLDOTuneHi,
		otpPartID, otpLotID,
		otpVBat, otpTemp, otpBiasTune,
		otpXtalTrim, otpRevision,
	} {
		w, err := d.ReadOTP(addr)
		if err != nil {
			return OTPMemory{}, err
		}
		words[addr] = w
	}
	m.EUI = uint64(words[otpEUIHi])<<32 | uint64(words[otpEUILo])
	m.LDOTune = uint64(words[otpLDOTuneHi])<<32 | uint64(words[otpLDOTuneLo])
	m.PartID = words[otpPartID]
	m.LotID = words[otpLotID]
	m.VBat = uint8(words[otpVBat] & otpVBatMask)
	m.Temp = uint8(words[otpTemp] & otpTempMask)
	m.BiasTune = uint8(words[otpBiasTune] >> biasTuneShift & biasTuneMask)
	m.XtalTrim = uint8(words[otpXtalTrim] & xtalTrimMask)
	m.Revision = uint8(words[otpRevision] & revisionMask)
	return m, nil
}
