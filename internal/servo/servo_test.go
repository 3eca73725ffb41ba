package servo

import (
	"testing"
)

type fakeChannel struct {
	periodNS uint64
	dutyNS   uint64
	duties   []uint64
	closed   bool
}

func (f *fakeChannel) SetPeriod(ns uint64) error {
	f.periodNS = ns
	return nil
}

func (f *fakeChannel) SetDuty(ns uint64) error {
	f.dutyNS = ns
	f.duties = append(f.duties, ns)
	return nil
}

func (f *fakeChannel) Close() error {
	f.dutyNS = 0
	f.closed = true
	return nil
}

func testServo(t *testing.T) (*Servo, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	s, err := newWithChannel(ch, Config{FrequencyHz: 50, MinPulseUs: 500, MaxPulseUs: 2500})
	if err != nil {
		t.Fatalf("newWithChannel: %v", err)
	}
	return s, ch
}

func TestNew_SetsPeriodAndCenters(t *testing.T) {
	s, ch := testServo(t)
	if ch.periodNS != 20_000_000 {
		t.Fatalf("period=%d want 20ms", ch.periodNS)
	}
	// 90 degrees: midpoint of 500..2500us = 1500us.
	if ch.dutyNS != 1_500_000 {
		t.Fatalf("duty=%d want 1.5ms", ch.dutyNS)
	}
	if s.Angle() != 90 {
		t.Fatalf("angle=%v want 90", s.Angle())
	}
}

func TestSetAngle_EndpointsMapToPulseBounds(t *testing.T) {
	s, ch := testServo(t)

	if err := s.SetAngle(0); err != nil {
		t.Fatalf("set 0: %v", err)
	}
	if ch.dutyNS != 500_000 {
		t.Fatalf("duty=%d want min pulse 500us", ch.dutyNS)
	}

	if err := s.SetAngle(180); err != nil {
		t.Fatalf("set 180: %v", err)
	}
	if ch.dutyNS != 2_500_000 {
		t.Fatalf("duty=%d want max pulse 2500us", ch.dutyNS)
	}
}

func TestSetAngle_ClampsOutOfRange(t *testing.T) {
	s, ch := testServo(t)

	if err := s.SetAngle(-45); err != nil {
		t.Fatalf("set -45: %v", err)
	}
	if ch.dutyNS != 500_000 || s.Angle() != 0 {
		t.Fatalf("duty=%d angle=%v, want clamp to 0", ch.dutyNS, s.Angle())
	}

	if err := s.SetAngle(270); err != nil {
		t.Fatalf("set 270: %v", err)
	}
	if ch.dutyNS != 2_500_000 || s.Angle() != 180 {
		t.Fatalf("duty=%d angle=%v, want clamp to 180", ch.dutyNS, s.Angle())
	}
}

func TestClose_ZeroesDuty(t *testing.T) {
	s, ch := testServo(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Fatalf("channel not closed")
	}
	if ch.dutyNS != 0 {
		t.Fatalf("duty=%d want 0 after close", ch.dutyNS)
	}
	// Second close is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := []Config{
		{FrequencyHz: 50, MinPulseUs: 2500, MaxPulseUs: 500},
		{FrequencyHz: 50, MinPulseUs: 1500, MaxPulseUs: 1500},
		{FrequencyHz: 400, MinPulseUs: 500, MaxPulseUs: 2600},
	}
	for i, cfg := range cases {
		if _, err := newWithChannel(&fakeChannel{}, cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
