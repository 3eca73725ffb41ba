// Package web is the ground-station status surface: a JSON status endpoint,
// a websocket feed of live track updates, and Prometheus metrics.
package web

import (
	"sync/atomic"
	"time"
)

// TrackUpdate is one decoded packet after the pointing math has run. It is
// both the websocket feed payload and the live part of the status snapshot.
type TrackUpdate struct {
	Seq          uint64  `json:"seq"`
	LatDeg       float64 `json:"lat_deg"`
	LonDeg       float64 `json:"lon_deg"`
	AltM         float64 `json:"alt_m"`
	RSSIdBm      int     `json:"rssi_dbm"`
	SNRdB        float64 `json:"snr_db"`
	DistanceM    float64 `json:"distance_m"`
	BearingDeg   float64 `json:"bearing_deg"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	ReceivedUTC  string  `json:"received_utc,omitempty"`
}

// Status aggregates what the ground station knows right now. Writers are the
// tracker loop; readers are HTTP handlers, so everything is atomic.
type Status struct {
	startUnixNano  int64
	packetsTotal   uint64
	lastPacketNano int64
	station        atomic.Value // StationInfo
	track          atomic.Value // TrackUpdate
	staleAfter     time.Duration
}

// StationInfo is the static part of the snapshot, set once at startup.
type StationInfo struct {
	LatDeg           float64 `json:"lat_deg"`
	LonDeg           float64 `json:"lon_deg"`
	AltM             float64 `json:"alt_m"`
	HeadingOffsetDeg float64 `json:"heading_offset_deg"`
	FrequencyHz      int     `json:"frequency_hz"`
	SpreadingFactor  int     `json:"spreading_factor"`
}

func NewStatus(staleAfter time.Duration) *Status {
	s := &Status{staleAfter: staleAfter}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.station.Store(StationInfo{})
	s.track.Store(TrackUpdate{})
	return s
}

func (s *Status) SetStation(info StationInfo) {
	s.station.Store(info)
}

// SetTrack records the latest decoded packet.
func (s *Status) SetTrack(nowUTC time.Time, upd TrackUpdate) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	upd.ReceivedUTC = nowUTC.UTC().Format(time.RFC3339Nano)
	s.track.Store(upd)
	atomic.StoreInt64(&s.lastPacketNano, nowUTC.UnixNano())
	atomic.AddUint64(&s.packetsTotal, 1)
}

type StatusSnapshot struct {
	Service      string      `json:"service"`
	NowUTC       string      `json:"now_utc"`
	UptimeSec    int64       `json:"uptime_sec"`
	Station      StationInfo `json:"station"`
	Track        TrackUpdate `json:"track"`
	PacketsTotal uint64      `json:"packets_total"`
	Stale        bool        `json:"stale"`
}

// Snapshot renders the current state. Stale is true until the first packet
// and again whenever no packet arrived within the stale window.
func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastPacket := atomic.LoadInt64(&s.lastPacketNano)

	snap := StatusSnapshot{
		Service:      "loratrack-ground",
		NowUTC:       nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:    int64(nowUTC.Sub(start).Seconds()),
		Station:      s.station.Load().(StationInfo),
		Track:        s.track.Load().(TrackUpdate),
		PacketsTotal: atomic.LoadUint64(&s.packetsTotal),
		Stale:        true,
	}
	if lastPacket != 0 {
		age := nowUTC.Sub(time.Unix(0, lastPacket))
		snap.Stale = s.staleAfter > 0 && age > s.staleAfter
	}
	return snap
}
