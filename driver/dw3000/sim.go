package dw3000

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Simulator is an in-memory DW3000 register file. It implements Bus
// and mimics the side effects of the OTP, always-on and sleep logic.
type Simulator struct {
	// OTP memory contents, by address.
	OTP map[uint16]uint32
	// Log records every transaction, including those made while
	// asleep.
	Log []Access
	// Err, if not nil, fails every transaction.
	Err error
	// LDOKicks counts LDO_KICK writes.
	LDOKicks int
	// SleepCounter is the sleep counter as programmed through the
	// always-on memory.
	SleepCounter uint16

	regs   map[regAddr][]byte
	aon    map[uint16]uint8
	asleep bool
}

// Access is a recorded register transaction.
type Access struct {
	Reg   Register
	Write bool
	Value uint64
}

func (a Access) String() string {
	op := "read"
	if a.Write {
		op = "write"
	}
	return fmt.Sprintf("%s %v %#x", op, a.Reg, a.Value)
}

type regAddr struct {
	file, offset uint8
}

var (
	errShortTx = errors.New("dw3000: simulator: short transfer")
	errLongTx  = errors.New("dw3000: simulator: transfer longer than a register")
)

// NewSimulator returns an awake simulator with the given DEV_ID.
func NewSimulator(id uint32) *Simulator {
	s := &Simulator{
		OTP:  make(map[uint16]uint32),
		regs: make(map[regAddr][]byte),
		aon:  make(map[uint16]uint8),
	}
	s.set(DevID, uint64(id))
	return s
}

// Asleep reports whether the simulated device is asleep.
func (s *Simulator) Asleep() bool {
	return s.asleep
}

// Wake resumes a sleeping device. Registers not retained across sleep
// are reset. A wake trigger fails like any transaction while Err is
// set, and the device stays asleep.
func (s *Simulator) Wake() error {
	if s.Err != nil {
		return s.Err
	}
	if !s.asleep {
		return nil
	}
	s.asleep = false
	s.set(TxAntd, 0)
	s.set(OTPCfg, 0)
	s.set(OTPRData, 0)
	s.set(AONCtrl, 0)
	return nil
}

// Reg returns the current value of a register.
func (s *Simulator) Reg(r Register) uint64 {
	var v [8]byte
	copy(v[:], s.regs[addrOf(r)])
	return binary.LittleEndian.Uint64(v[:])
}

func (s *Simulator) set(r Register, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	s.regs[addrOf(r)] = append([]byte(nil), buf[:r.Len]...)
}

func lookup(file, offset uint8, n int) Register {
	for _, r := range knownRegs {
		if r.File == file && r.Offset == offset {
			return r
		}
	}
	return Register{Name: "UNKNOWN", File: file, Offset: offset, Len: n}
}

func (s *Simulator) Tx(w, r []byte) error {
	if s.Err != nil {
		return s.Err
	}
	if len(w) < hdrLen || len(r) != len(w) {
		return errShortTx
	}
	if len(w)-hdrLen > 8 {
		return errLongTx
	}
	file, offset, write := parseHeader(w)
	reg := lookup(file, offset, len(w)-hdrLen)
	if n := len(w) - hdrLen; n < reg.Len {
		reg.Len = n
	}
	clear(r)
	if write {
		var v [8]byte
		copy(v[:], w[hdrLen:])
		val := binary.LittleEndian.Uint64(v[:])
		s.Log = append(s.Log, Access{Reg: reg, Write: true, Value: val})
		if !s.asleep {
			s.set(reg, val)
			s.effects(reg, val)
		}
		return nil
	}
	var val uint64
	if !s.asleep {
		// The bus is unpowered during sleep and reads as zeros.
		val = s.Reg(reg)
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], val)
		copy(r[hdrLen:], v[:])
	}
	s.Log = append(s.Log, Access{Reg: reg, Value: val})
	return nil
}

func addrOf(r Register) regAddr {
	return regAddr{r.File, r.Offset}
}

// effects applies the side effects of a register write. Registers are
// matched by address, so partial writes trigger them too.
func (s *Simulator) effects(reg Register, val uint64) {
	switch addrOf(reg) {
	case addrOf(OTPCfg):
		if val&(0b1<<otp_read) != 0 {
			if val&(0b1<<otp_man) != 0 {
				addr := uint16(s.Reg(OTPAddr) & otpAddrMask)
				s.set(OTPRData, uint64(s.OTP[addr]))
			}
			val &^= 0b1 << otp_read
		}
		if val&(0b1<<ldo_kick) != 0 {
			s.LDOKicks++
			val &^= 0b1 << ldo_kick
		}
		s.set(OTPCfg, val)
	case addrOf(AONCtrl):
		if val&(0b1<<dca_enab) != 0 && val&(0b1<<dca_write) != 0 {
			addr := uint16(s.Reg(AONAddr))
			s.aon[addr] = uint8(s.Reg(AONWData))
			s.SleepCounter = uint16(s.aon[aonSleepCntHi])<<8 | uint16(s.aon[aonSleepCntLo])
		}
		if val&(0b1<<aon_save) != 0 {
			s.asleep = true
		}
	}
}
