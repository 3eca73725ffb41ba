// Package servo holds a hobby servo (0..180 degrees) on a hardware PWM
// channel. One Servo owns one channel; the antenna gimbal uses two, azimuth
// and elevation.
package servo

import (
	"fmt"
	"math"
)

type Config struct {
	// Chip is the sysfs pwmchip name, e.g. "pwmchip0".
	Chip string
	// Channel is the chip's PWM channel index.
	Channel int
	// FrequencyHz is the PWM carrier; hobby servos expect 50 Hz (20 ms).
	FrequencyHz int
	// MinPulseUs / MaxPulseUs are the pulse widths commanding 0 and 180
	// degrees respectively.
	MinPulseUs int
	MaxPulseUs int
}

func (c *Config) applyDefaults() {
	if c.FrequencyHz == 0 {
		c.FrequencyHz = 50
	}
	if c.MinPulseUs == 0 {
		c.MinPulseUs = 500
	}
	if c.MaxPulseUs == 0 {
		c.MaxPulseUs = 2500
	}
}

// Servo is one commanded output channel. Not safe for concurrent use; the
// tracker loop is its single caller.
type Servo struct {
	ch       pwmChannel
	periodNS uint64
	minUs    int
	maxUs    int
	angle    float64
}

// Open claims the sysfs PWM channel and centers the servo at 90 degrees.
func Open(cfg Config) (*Servo, error) {
	cfg.applyDefaults()
	ch, err := openPWM(cfg.Chip, cfg.Channel)
	if err != nil {
		return nil, err
	}
	s, err := newWithChannel(ch, cfg)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return s, nil
}

func newWithChannel(ch pwmChannel, cfg Config) (*Servo, error) {
	cfg.applyDefaults()
	if cfg.MinPulseUs >= cfg.MaxPulseUs {
		return nil, fmt.Errorf("servo: min pulse %dus must be below max %dus", cfg.MinPulseUs, cfg.MaxPulseUs)
	}
	if cfg.FrequencyHz <= 0 {
		return nil, fmt.Errorf("servo: invalid frequency %d", cfg.FrequencyHz)
	}
	periodNS := uint64(1_000_000_000 / cfg.FrequencyHz)
	if uint64(cfg.MaxPulseUs)*1000 > periodNS {
		return nil, fmt.Errorf("servo: max pulse %dus exceeds %d Hz period", cfg.MaxPulseUs, cfg.FrequencyHz)
	}

	s := &Servo{ch: ch, periodNS: periodNS, minUs: cfg.MinPulseUs, maxUs: cfg.MaxPulseUs}
	if err := ch.SetPeriod(periodNS); err != nil {
		return nil, err
	}
	if err := s.SetAngle(90); err != nil {
		return nil, err
	}
	return s, nil
}

// SetAngle commands a position in degrees. Input is clamped to [0, 180]
// and mapped linearly into the configured pulse-width range.
func (s *Servo) SetAngle(deg float64) error {
	if deg < 0 {
		deg = 0
	} else if deg > 180 {
		deg = 180
	}
	pulseUs := float64(s.minUs) + deg/180.0*float64(s.maxUs-s.minUs)
	if err := s.ch.SetDuty(uint64(math.Round(pulseUs * 1000))); err != nil {
		return err
	}
	s.angle = deg
	return nil
}

// Angle returns the last commanded position.
func (s *Servo) Angle() float64 { return s.angle }

// Close zeroes the duty cycle before releasing the channel so the servo is
// not left holding a stale position.
func (s *Servo) Close() error {
	if s == nil || s.ch == nil {
		return nil
	}
	err := s.ch.Close()
	s.ch = nil
	return err
}
