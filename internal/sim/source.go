package sim

import (
	"time"

	"loratrack/internal/gps"
)

// Source presents the simulated flight through the same Update/Fix surface as
// a real serial receiver, including the full NMEA round trip through the
// parser. Sentences are produced once per reporting interval.
type Source struct {
	flight   Flight
	parser   *gps.Parser
	interval time.Duration
	next     time.Time
}

var simNow = time.Now

// NewSource builds a source emitting one RMC/GGA pair per interval. Interval
// 0 defaults to the 1 Hz of a typical receiver.
func NewSource(flight Flight, interval time.Duration) *Source {
	if interval <= 0 {
		interval = time.Second
	}
	return &Source{flight: flight, parser: gps.NewParser(), interval: interval}
}

// Update feeds any due sentences into the parser and reports whether the fix
// changed. Like the serial device it never blocks.
func (s *Source) Update() bool {
	now := simNow()
	if now.Before(s.next) {
		return false
	}
	s.next = now.Add(s.interval)
	return s.parser.Feed(s.flight.Sentences(now))
}

func (s *Source) Fix() gps.Fix { return s.parser.Fix() }

func (s *Source) Close() error { return nil }
