package dw3000

import (
	"errors"
	"testing"
)

const testID = 0xdeca0302

func TestHeader(t *testing.T) {
	for _, r := range knownRegs {
		for _, write := range []bool{false, true} {
			var buf [hdrLen]byte
			header(buf[:], r, write)
			file, offset, w := parseHeader(buf[:])
			if file != r.File || offset != r.Offset || w != write {
				t.Errorf("%v (write %v): header %#x decoded as %02x:%02x (write %v)", r, write, buf, file, offset, w)
			}
		}
	}
	// OTP_CFG read.
	var buf [hdrLen]byte
	header(buf[:], OTPCfg, false)
	if want := [hdrLen]byte{0x56, 0x20}; buf != want {
		t.Errorf("OTP_CFG read header %#x, want %#x", buf, want)
	}
}

func TestNew(t *testing.T) {
	s := NewSimulator(testID)
	d, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.DevID()
	if err != nil {
		t.Fatal(err)
	}
	if id != testID {
		t.Errorf("DevID = %#08x, want %#08x", id, testID)
	}

	if _, err := New(NewSimulator(0x1234_0302)); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("New with wrong id returned %v, want %v", err, ErrUnknownDevice)
	}
	busErr := errors.New("bus error")
	s = NewSimulator(testID)
	s.Err = busErr
	if _, err := New(s); !errors.Is(err, busErr) {
		t.Errorf("New with failing bus returned %v, want %v", err, busErr)
	}
}

func TestRegisterAccess(t *testing.T) {
	s := NewSimulator(testID)
	d, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetTxAntennaDelay(16385); err != nil {
		t.Fatal(err)
	}
	antd, err := d.TxAntennaDelay()
	if err != nil {
		t.Fatal(err)
	}
	if antd != 16385 {
		t.Errorf("antenna delay %d, want 16385", antd)
	}
	if err := d.Write(AONDigCfg, 0xff_00ff); err != nil {
		t.Fatal(err)
	}
	if err := d.Modify(AONDigCfg, 0b1<<8, 0xff); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Reg(AONDigCfg), uint64(0xff_0100); got != want {
		t.Errorf("AON_DIG_CFG = %#x, want %#x", got, want)
	}
	v, err := d.Read(AONDigCfg)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xff_0100 {
		t.Errorf("read AON_DIG_CFG %#x", v)
	}
}

func TestSequenceNumber(t *testing.T) {
	d, err := New(NewSimulator(testID))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		if got, want := d.NextSeq(), uint8(i); got != want {
			t.Fatalf("NextSeq = %d, want %d", got, want)
		}
	}
	if d.Seq() != 300%256 {
		t.Errorf("Seq = %d after 300 frames", d.Seq())
	}
}

func TestSleep(t *testing.T) {
	tests := []struct {
		cfg     SleepConfig
		counter uint16
		aonCfg  uint64
	}{
		{Sleep(0x1234), 0x1234, 0b1<<sleep_en | 0b1<<wake_cnt | 0b1<<wake_csn | 0b1<<wake_wup},
		{DeepSleep(), 0, 0b1<<wake_csn | 0b1<<wake_wup},
	}
	for _, test := range tests {
		s := NewSimulator(testID)
		d, err := New(s)
		if err != nil {
			t.Fatal(err)
		}
		sl, err := d.Sleep(test.cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !s.Asleep() {
			t.Fatalf("%v: device not asleep", test.cfg.Mode)
		}
		if sl.Config() != test.cfg {
			t.Errorf("%v: config %+v, want %+v", test.cfg.Mode, sl.Config(), test.cfg)
		}
		if s.SleepCounter != test.counter {
			t.Errorf("%v: sleep counter %#x, want %#x", test.cfg.Mode, s.SleepCounter, test.counter)
		}
		if got := s.Reg(AONCfg); got != test.aonCfg {
			t.Errorf("%v: AON_CFG %#b, want %#b", test.cfg.Mode, got, test.aonCfg)
		}
		// The Ready handle is gone.
		n := len(s.Log)
		if _, err := d.DevID(); !errors.Is(err, ErrConsumed) {
			t.Errorf("%v: read on consumed handle returned %v", test.cfg.Mode, err)
		}
		if _, err := d.Sleep(test.cfg); !errors.Is(err, ErrConsumed) {
			t.Errorf("%v: sleep on consumed handle returned %v", test.cfg.Mode, err)
		}
		if len(s.Log) != n {
			t.Errorf("%v: consumed handle accessed the bus: %v", test.cfg.Mode, s.Log[n:])
		}
	}
}

func TestSleepWakeCycle(t *testing.T) {
	s := NewSimulator(testID)
	s.OTP[otpLDOTuneLo] = 0x17
	d, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	d.NextSeq()
	d.NextSeq()
	d.NextSeq()
	c := d.c
	sl, err := d.Sleep(Sleep(100))
	if err != nil {
		t.Fatal(err)
	}
	if sl.Seq() != 3 {
		t.Errorf("sleeping handle seq %d, want 3", sl.Seq())
	}
	if err := s.Wake(); err != nil {
		t.Fatal(err)
	}
	r, err := sl.FinishWakeup()
	if err != nil {
		t.Fatal(err)
	}
	if r.Seq() != 3 {
		t.Errorf("ready handle seq %d, want 3", r.Seq())
	}
	if r.c != c || r.c.bus != Bus(s) {
		t.Error("ready handle does not carry the bus it was created with")
	}
	if s.LDOKicks != 1 {
		t.Errorf("%d LDO kicks, want 1", s.LDOKicks)
	}
	if _, err := r.DevID(); err != nil {
		t.Error(err)
	}
}
