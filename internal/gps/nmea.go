package gps

import (
	"strconv"
	"strings"
)

// maxLineLen bounds the accumulation buffer. A well-formed NMEA sentence is
// under 82 characters; anything longer without a terminator is garbage
// (wrong baud rate, line noise) and is discarded wholesale.
const maxLineLen = 120

// Fix is the most recent position estimate. It is overwritten in place as
// sentences arrive; Valid is only true when the last coordinate-bearing
// sentence reported a usable status/quality.
type Fix struct {
	LatDeg     float64
	LonDeg     float64
	AltM       float64 // from GGA only
	SpeedKt    float64
	CourseDeg  float64
	Satellites int
	Quality    int // 0=invalid, 1=GPS, 2=DGPS ...
	Valid      bool
}

// Parser is an incremental NMEA line parser. Feed it raw serial bytes in
// whatever chunks arrive; it maintains its own line buffer and updates the
// fix whenever a complete RMC or GGA sentence passes validation.
//
// Parser is not safe for concurrent use; the tracker loop is its only caller.
type Parser struct {
	buf []byte
	fix Fix
}

func NewParser() *Parser {
	return &Parser{buf: make([]byte, 0, maxLineLen)}
}

// Fix returns a copy of the current fix.
func (p *Parser) Fix() Fix { return p.fix }

// Feed consumes raw bytes and reports whether at least one sentence updated
// the fix. Carriage returns are dropped, a line feed closes the current
// line, and an overlong buffer is discarded rather than grown.
func (p *Parser) Feed(data []byte) bool {
	updated := false
	for _, c := range data {
		switch c {
		case '\r':
			// Dropped; LF alone terminates the line.
		case '\n':
			line := strings.TrimSpace(string(p.buf))
			p.buf = p.buf[:0]
			if strings.HasPrefix(line, "$") {
				if p.parse(line) {
					updated = true
				}
			}
		default:
			p.buf = append(p.buf, c)
			if len(p.buf) > maxLineLen {
				p.buf = p.buf[:0]
			}
		}
	}
	return updated
}

// parse dispatches one complete sentence. Malformed or unsupported sentences
// return false and leave the fix untouched; they are never surfaced as
// errors because noise is expected on the wire.
func (p *Parser) parse(line string) bool {
	// Strip the checksum suffix for easier splitting.
	if star := strings.IndexByte(line, '*'); star != -1 {
		line = line[:star]
	}
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return false
	}
	talker := parts[0] // $GPRMC, $GNRMC, $GPGGA ...
	if len(talker) < 3 {
		return false
	}
	switch talker[len(talker)-3:] {
	case "RMC":
		return p.parseRMC(parts)
	case "GGA":
		return p.parseGGA(parts)
	default:
		return false
	}
}

// RMC: Recommended Minimum Specific GNSS Data
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func (p *Parser) parseRMC(f []string) bool {
	if len(f) < 10 {
		return false
	}
	if strings.TrimSpace(f[2]) != "A" {
		// Void fix: flag invalid but keep the last good coordinates.
		p.fix.Valid = false
		return false
	}

	lat, latOK := nmeaToDecimal(f[3], f[4])
	lon, lonOK := nmeaToDecimal(f[5], f[6])
	if !latOK || !lonOK {
		return false
	}

	p.fix.LatDeg = lat
	p.fix.LonDeg = lon
	p.fix.SpeedKt = toFloat(f[7])
	p.fix.CourseDeg = toFloat(f[8])
	p.fix.Valid = true
	return true
}

// GGA: Global Positioning System Fix Data
//
//	0: talker+type
//	1: time
//	2: latitude
//	3: N/S
//	4: longitude
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
func (p *Parser) parseGGA(f []string) bool {
	if len(f) < 11 {
		return false
	}
	quality := toInt(f[6])
	if quality == 0 {
		return false
	}

	lat, latOK := nmeaToDecimal(f[2], f[3])
	lon, lonOK := nmeaToDecimal(f[4], f[5])
	if !latOK || !lonOK {
		return false
	}

	p.fix.LatDeg = lat
	p.fix.LonDeg = lon
	p.fix.Quality = quality
	p.fix.Satellites = toInt(f[7])
	p.fix.AltM = toFloat(f[9])
	p.fix.Valid = true
	return true
}

// nmeaToDecimal converts NMEA ddmm.mmmm / dddmm.mmmm plus hemisphere to
// signed decimal degrees: degrees are all digits before the two digits
// immediately preceding the decimal point, minutes are the remainder.
func nmeaToDecimal(raw, hemi string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	dot := strings.IndexByte(raw, '.')
	if dot < 3 {
		return 0, false
	}
	deg, err := strconv.Atoi(raw[:dot-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(raw[dot-2:], 64)
	if err != nil {
		return 0, false
	}
	dd := float64(deg) + mins/60.0
	switch strings.TrimSpace(hemi) {
	case "S", "W":
		dd = -dd
	}
	return dd, true
}

func toFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.0
	}
	return v
}

func toInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
