// Package sim produces a deterministic simulated flight as NMEA sentences,
// letting either node run without a GPS receiver or radio hardware attached.
package sim

import (
	"fmt"
	"math"
	"time"
)

// metersPerLatDeg is one degree of latitude (60 NM).
const metersPerLatDeg = 111120.0

type Flight struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
}

// State is the instantaneous simulated position.
type State struct {
	LatDeg   float64
	LonDeg   float64
	AltM     float64
	TrackDeg float64
	SpeedKt  float64
}

// At returns the deterministic state for a wall-clock instant. The path is a
// figure-eight around the center, bounded by the configured radius, with a
// gentle altitude sinusoid on top.
func (f Flight) At(now time.Time) State {
	period := f.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radiusM := f.RadiusM
	if radiusM <= 0 {
		radiusM = 500
	}

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase

	// x: east-west, y: north-south. y stays within [-0.5, 0.5] so the path
	// never leaves the radius bound.
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	radiusDeg := radiusM / metersPerLatDeg
	lat := f.CenterLatDeg + radiusDeg*y
	lon := f.CenterLonDeg + (radiusDeg*x)/math.Cos(f.CenterLatDeg*math.Pi/180.0)

	// Velocity from the path derivative, in m/s.
	omega := 2 * math.Pi / period.Seconds()
	vEast := radiusM * -math.Sin(w) * omega
	vNorth := radiusM * math.Cos(2*w) * omega
	speedKt := math.Hypot(vEast, vNorth) / 0.514444

	track := math.Atan2(vEast, vNorth) * 180 / math.Pi
	track = math.Mod(track+360, 360)

	alt := f.AltM + 20*math.Sin(w)

	return State{LatDeg: lat, LonDeg: lon, AltM: alt, TrackDeg: track, SpeedKt: speedKt}
}

// Sentences renders the state as checksummed RMC and GGA sentences, the pair
// a real receiver emits each reporting cycle.
func (f Flight) Sentences(now time.Time) []byte {
	st := f.At(now)

	ts := now.UTC().Format("150405.00")
	date := now.UTC().Format("020106")
	latStr, latHemi := nmeaLat(st.LatDeg)
	lonStr, lonHemi := nmeaLon(st.LonDeg)

	rmc := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%05.1f,%05.1f,%s,,,A",
		ts, latStr, latHemi, lonStr, lonHemi, st.SpeedKt, st.TrackDeg, date)
	gga := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,1.0,%.1f,M,0.0,M,,",
		ts, latStr, latHemi, lonStr, lonHemi, st.AltM)

	out := make([]byte, 0, 160)
	out = appendSentence(out, rmc)
	out = appendSentence(out, gga)
	return out
}

func appendSentence(dst []byte, body string) []byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return append(dst, fmt.Sprintf("$%s*%02X\r\n", body, sum)...)
}

// nmeaLat renders decimal degrees as ddmm.mmmm plus hemisphere.
func nmeaLat(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
		deg = -deg
	}
	d := int(deg)
	return fmt.Sprintf("%02d%07.4f", d, (deg-float64(d))*60), hemi
}

// nmeaLon renders decimal degrees as dddmm.mmmm plus hemisphere.
func nmeaLon(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
		deg = -deg
	}
	d := int(deg)
	return fmt.Sprintf("%03d%07.4f", d, (deg-float64(d))*60), hemi
}
