// Package gps turns the NMEA byte stream of a serial GNSS receiver into
// validated position fixes.
//
// It is intentionally small and poll-driven to fit the single-threaded
// tracker loop:
// - Parse RMC for lat/lon/ground speed/course
// - Parse GGA for fix quality/satellites/altitude
// - Tolerate partial lines, noise and unsupported sentence types
package gps
