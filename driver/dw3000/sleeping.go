package dw3000

import "fmt"

// SleepMode selects how the device sleeps.
type SleepMode int

const (
	// ModeSleep is retention sleep, woken by the sleep counter or
	// the wake pins.
	ModeSleep SleepMode = iota
	// ModeDeepSleep is woken only by the WAKEUP pin or chip select.
	ModeDeepSleep
)

func (m SleepMode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeDeepSleep:
		return "deep sleep"
	default:
		return fmt.Sprintf("SleepMode(%d)", int(m))
	}
}

// SleepConfig describes a sleep request. Construct it with Sleep or
// DeepSleep.
type SleepConfig struct {
	Mode SleepMode
	// Timer is the sleep counter. Its unit depends on the low
	// frequency RC oscillator, which is configurable.
	Timer uint16
}

// Sleep returns a retention sleep configuration with the given counter.
func Sleep(timer uint16) SleepConfig {
	return SleepConfig{Mode: ModeSleep, Timer: timer}
}

// DeepSleep returns a deep sleep configuration.
func DeepSleep() SleepConfig {
	return SleepConfig{Mode: ModeDeepSleep}
}

// Sleeping is a handle to a device with its SPI interface disabled.
// It offers no register access.
type Sleeping struct {
	c   *regConn
	seq uint8
	cfg SleepConfig
}

// NewSleeping returns a handle for a device on b that is known to be
// asleep, such as after a failed wakeup. seq is the frame sequence
// number to continue from, usually the Seq of the handle consumed by
// the failed wakeup. Its Config is the zero SleepConfig.
func NewSleeping(b Bus, seq uint8) *Sleeping {
	return &Sleeping{c: &regConn{bus: b}, seq: seq}
}

// Config returns the configuration the device was put to sleep with.
func (s *Sleeping) Config() SleepConfig {
	return s.cfg
}

// Seq returns the frame sequence number carried by the handle.
func (s *Sleeping) Seq() uint8 {
	return s.seq
}

// FinishWakeup completes a wakeup and returns the Ready handle. The
// caller must have triggered the wakeup and waited for the clocks to
// stabilize. s is consumed whether or not FinishWakeup succeeds; on
// ErrStillAsleep the wakeup must be triggered again from the start.
// Bus errors are returned unchanged.
func (s *Sleeping) FinishWakeup() (*Ready, error) {
	c := s.c
	if c == nil {
		return nil, ErrConsumed
	}
	s.c = nil
	// Nothing else can be trusted before the device has identified
	// itself.
	id, err := c.read(DevID)
	if err != nil {
		return nil, err
	}
	if uint16(id>>16) != ridtag {
		return nil, ErrStillAsleep
	}
	// The LDO tuning value at OTP address 0x04 is what LDO_KICK copies
	// into the configuration. A zero value means the part was not
	// calibrated, and kicking it would replace the configuration with
	// zeros.
	ldo, err := readOTP(c, otpLDOTuneLo)
	if err != nil {
		return nil, err
	}
	if ldo != 0 {
		if err := c.modify(OTPCfg, 0b1<<ldo_kick, 0); err != nil {
			return nil, err
		}
	}
	return &Ready{c: c, seq: s.seq}, nil
}
