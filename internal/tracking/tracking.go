// Package tracking converts pairs of geodetic positions into antenna
// pointing angles for a two-axis servo gimbal.
//
// All functions are pure. Angles are in degrees, distances in meters.
package tracking

import "math"

// earthRadiusM is the WGS-84 mean Earth radius.
const earthRadiusM = 6371000.0

// Position is a geodetic point. Lat/Lon in signed decimal degrees,
// Alt in meters above the same datum for both points being compared.
type Position struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// GimbalAngles are servo-frame angles, both already clamped to the
// actuator's native 0..180 range.
type GimbalAngles struct {
	AzimuthDeg   float64
	ElevationDeg float64
}

// Distance returns the haversine great-circle distance in meters between p1 and p2.
// Distance(p, p) == 0.
func Distance(p1, p2 Position) float64 {
	la1 := radians(p1.LatDeg)
	la2 := radians(p2.LatDeg)
	dLat := radians(p2.LatDeg - p1.LatDeg)
	dLon := radians(p2.LonDeg - p1.LonDeg)

	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	a := sLat*sLat + math.Cos(la1)*math.Cos(la2)*sLon*sLon
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bearing returns the initial great-circle bearing from p1 to p2 in degrees,
// clockwise from north, normalized to [0, 360).
//
// Bearing(p, p) is mathematically undefined; it returns 0 rather than NaN.
func Bearing(p1, p2 Position) float64 {
	la1 := radians(p1.LatDeg)
	la2 := radians(p2.LatDeg)
	dLon := radians(p2.LonDeg - p1.LonDeg)

	x := math.Sin(dLon) * math.Cos(la2)
	y := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)
	b := degrees(math.Atan2(x, y))
	return math.Mod(b+360.0, 360.0)
}

// ElevationAngle returns the signed elevation angle in degrees from p1 to p2,
// positive up. Flat-earth approximation over the great-circle distance, which
// is fine for the sub-50 km ranges a LoRa link covers.
//
// Below 0.1 m of horizontal separation the angle is degenerate and 0 is
// returned to avoid atan2 blowing up on noise.
func ElevationAngle(p1, p2 Position) float64 {
	dist := Distance(p1, p2)
	if dist < 0.1 {
		return 0.0
	}
	return degrees(math.Atan2(p2.AltM-p1.AltM, dist))
}

// Gimbal computes the servo angles pointing the gimbal at transmitter from
// receiver.
//
// headingOffsetDeg is the compass bearing the gimbal's azimuth-90 rest
// position physically faces; it is a deployment-time calibration constant.
// Azimuth: bearing relative to the offset, normalized into (-180, 180],
// shifted by +90 so the rest position is mid-range, clamped to [0, 180].
// Elevation: elevation + 90 (horizontal maps to mid-range), clamped to [0, 180].
func Gimbal(receiver, transmitter Position, headingOffsetDeg float64) GimbalAngles {
	brng := Bearing(receiver, transmitter)
	elev := ElevationAngle(receiver, transmitter)

	rel := brng - headingOffsetDeg
	for rel > 180 {
		rel -= 360
	}
	for rel <= -180 {
		rel += 360
	}

	return GimbalAngles{
		AzimuthDeg:   clamp(rel+90.0, 0, 180),
		ElevationDeg: clamp(elev+90.0, 0, 180),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }
