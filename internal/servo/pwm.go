package servo

// pwmChannel is the minimal interface the actuator needs from a hardware
// PWM backend. Period and duty are in nanoseconds.
//
// Close should be best-effort and leave the output in a safe state.
type pwmChannel interface {
	SetPeriod(ns uint64) error
	SetDuty(ns uint64) error
	Close() error
}
