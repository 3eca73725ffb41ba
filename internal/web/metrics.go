package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the ground-station Prometheus series, registered on a caller
// supplied registry so each process (and each test) owns its own set.
type Metrics struct {
	PacketsReceived prometheus.Counter
	DecodeErrors    prometheus.Counter
	RSSI            prometheus.Gauge
	SNR             prometheus.Gauge
	Azimuth         prometheus.Gauge
	Elevation       prometheus.Gauge
	DistanceM       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "loratrack_packets_received_total",
			Help: "Telemetry packets received and decoded",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "loratrack_decode_errors_total",
			Help: "Packets that failed wire-format decoding",
		}),
		RSSI: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loratrack_rssi_dbm",
			Help: "RSSI of the last received packet in dBm",
		}),
		SNR: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loratrack_snr_db",
			Help: "SNR of the last received packet in dB",
		}),
		Azimuth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loratrack_azimuth_deg",
			Help: "Commanded gimbal azimuth in degrees",
		}),
		Elevation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loratrack_elevation_deg",
			Help: "Commanded gimbal elevation in degrees",
		}),
		DistanceM: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loratrack_distance_m",
			Help: "Great-circle distance to the remote node in meters",
		}),
	}
}

// ObserveUpdate records one decoded packet.
func (m *Metrics) ObserveUpdate(upd TrackUpdate) {
	m.PacketsReceived.Inc()
	m.RSSI.Set(float64(upd.RSSIdBm))
	m.SNR.Set(upd.SNRdB)
	m.Azimuth.Set(upd.AzimuthDeg)
	m.Elevation.Set(upd.ElevationDeg)
	m.DistanceM.Set(upd.DistanceM)
}
