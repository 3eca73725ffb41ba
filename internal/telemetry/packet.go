// Package telemetry defines the over-the-air beacon payload and the
// ground-side fan-out of decoded fixes (MQTT).
//
// The radio link carries no framing beyond the chip's own preamble, sync word
// and CRC; the payload is a single ASCII line:
//
//	"<lat>,<lon>,<alt>,<seq>\n"
//
// lat/lon with 6 decimal places (~11 cm), alt with 1, seq an increasing
// unsigned counter maintained by the transmitter.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Packet is one decoded beacon transmission.
type Packet struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
	Seq    uint64
}

// Encode renders the packet in the link wire format.
func (p Packet) Encode() []byte {
	return []byte(fmt.Sprintf("%.6f,%.6f,%.1f,%d\n", p.LatDeg, p.LonDeg, p.AltM, p.Seq))
}

// Decode parses a beacon payload. A trailing newline is accepted but not
// required; anything else malformed is an error.
func Decode(payload []byte) (Packet, error) {
	s := strings.TrimSuffix(string(payload), "\n")
	s = strings.TrimSuffix(s, "\r")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Packet{}, fmt.Errorf("telemetry: expected 4 fields, got %d", len(parts))
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Packet{}, fmt.Errorf("telemetry: bad latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Packet{}, fmt.Errorf("telemetry: bad longitude %q: %w", parts[1], err)
	}
	alt, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Packet{}, fmt.Errorf("telemetry: bad altitude %q: %w", parts[2], err)
	}
	seq, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return Packet{}, fmt.Errorf("telemetry: bad sequence %q: %w", parts[3], err)
	}

	return Packet{LatDeg: lat, LonDeg: lon, AltM: alt, Seq: seq}, nil
}
