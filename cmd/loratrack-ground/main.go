// loratrack-ground is the ground station: it receives telemetry beacons,
// points the antenna gimbal at the remote node, and fans decoded fixes out to
// the web UI, MQTT, UDP dashboard and the sqlite track log.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"loratrack/internal/config"
	"loratrack/internal/servo"
	"loratrack/internal/sx127x"
	"loratrack/internal/telemetry"
	"loratrack/internal/tracking"
	"loratrack/internal/tracklog"
	"loratrack/internal/udp"
	"loratrack/internal/web"
)

// station bundles the ground-side outputs the receive loop drives.
type station struct {
	azimuth   *servo.Servo
	elevation *servo.Servo
	position  tracking.Position
	offsetDeg float64

	status   *web.Status
	tracks   *web.TrackBroadcaster
	metrics  *web.Metrics
	gatherer prometheus.Gatherer
	mqtt     *telemetry.Publisher
	udp      *udp.Sender
	logStore *tracklog.Store
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./loratrack.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transport, err := sx127x.OpenTransport(sx127x.TransportConfig{
		SPIDev:     cfg.Radio.SPIDev,
		SPISpeedHz: uint32(cfg.Radio.SPISpeedHz),
		GPIOChip:   cfg.Radio.GPIOChip,
		ResetPin:   cfg.Radio.ResetPin,
		DIO0Pin:    cfg.Radio.DIO0Pin,
	})
	if err != nil {
		log.Fatalf("radio transport init failed: %v", err)
	}
	defer transport.Close()

	radio, err := sx127x.New(transport, sx127x.Config{
		FrequencyHz:     uint32(cfg.Radio.FrequencyHz),
		BandwidthHz:     cfg.Radio.BandwidthHz,
		SpreadingFactor: cfg.Radio.SF,
		CodingRate:      cfg.Radio.CR,
		TxPowerDBm:      cfg.Radio.TxPowerDBm,
		PreambleLen:     cfg.Radio.Preamble,
		SyncWord:        cfg.Radio.SyncWord,
	})
	if err != nil {
		log.Fatalf("radio init failed: %v", err)
	}
	defer func() {
		if err := radio.Sleep(); err != nil {
			log.Printf("radio sleep: %v", err)
		}
	}()

	st, err := buildStation(ctx, cfg)
	if err != nil {
		log.Fatalf("station init failed: %v", err)
	}
	defer st.close()

	log.Printf("loratrack-ground starting")
	log.Printf("radio freq=%dHz bw=%dHz sf=%d station=%.6f,%.6f offset=%.1f",
		cfg.Radio.FrequencyHz, cfg.Radio.BandwidthHz, cfg.Radio.SF,
		st.position.LatDeg, st.position.LonDeg, st.offsetDeg)

	if cfg.Web.Enable {
		handler := web.Handler(st.status, st.tracks, st.gatherer)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Addr, handler); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
		log.Printf("web ui on %s", cfg.Web.Addr)
	}

	if err := radio.ReceiveContinuous(); err != nil {
		log.Fatalf("radio rx start failed: %v", err)
	}

	runTrackLoop(ctx, radio, st, cfg.Tracking)
	log.Printf("loratrack-ground stopping")
}

func buildStation(ctx context.Context, cfg config.Config) (*station, error) {
	st := &station{
		position: tracking.Position{
			LatDeg: cfg.Tracking.StationLatDeg,
			LonDeg: cfg.Tracking.StationLonDeg,
			AltM:   cfg.Tracking.StationAltM,
		},
		offsetDeg: cfg.Tracking.HeadingOffsetDeg,
		status:    web.NewStatus(cfg.Tracking.StaleAfter),
		tracks:    web.NewTrackBroadcaster(),
	}
	st.status.SetStation(web.StationInfo{
		LatDeg:           cfg.Tracking.StationLatDeg,
		LonDeg:           cfg.Tracking.StationLonDeg,
		AltM:             cfg.Tracking.StationAltM,
		HeadingOffsetDeg: cfg.Tracking.HeadingOffsetDeg,
		FrequencyHz:      cfg.Radio.FrequencyHz,
		SpreadingFactor:  cfg.Radio.SF,
	})

	reg := prometheus.NewRegistry()
	st.metrics = web.NewMetrics(reg)
	st.gatherer = reg

	var err error
	st.azimuth, err = servo.Open(servo.Config{
		Chip:        cfg.Servos.Chip,
		Channel:     cfg.Servos.Azimuth.Channel,
		FrequencyHz: cfg.Servos.FrequencyHz,
		MinPulseUs:  cfg.Servos.MinPulseUs,
		MaxPulseUs:  cfg.Servos.MaxPulseUs,
	})
	if err != nil {
		return nil, err
	}
	st.elevation, err = servo.Open(servo.Config{
		Chip:        cfg.Servos.Chip,
		Channel:     cfg.Servos.Elevation.Channel,
		FrequencyHz: cfg.Servos.FrequencyHz,
		MinPulseUs:  cfg.Servos.MinPulseUs,
		MaxPulseUs:  cfg.Servos.MaxPulseUs,
	})
	if err != nil {
		st.close()
		return nil, err
	}

	if cfg.MQTT.Enable {
		st.mqtt, err = telemetry.NewPublisher(telemetry.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		})
		if err != nil {
			st.close()
			return nil, err
		}
	}
	if cfg.UDP.Enable {
		st.udp, err = udp.NewSender(cfg.UDP.Dest)
		if err != nil {
			st.close()
			return nil, err
		}
	}
	if cfg.TrackLog.Enable {
		st.logStore, err = tracklog.Open(ctx, cfg.TrackLog.Path)
		if err != nil {
			st.close()
			return nil, err
		}
		log.Printf("track log session %s -> %s", st.logStore.SessionID(), cfg.TrackLog.Path)
	}

	return st, nil
}

func (st *station) close() {
	if st.logStore != nil {
		_ = st.logStore.Close()
	}
	if st.udp != nil {
		_ = st.udp.Close()
	}
	st.mqtt.Close()
	if st.elevation != nil {
		_ = st.elevation.Close()
	}
	if st.azimuth != nil {
		_ = st.azimuth.Close()
	}
}

func runTrackLoop(ctx context.Context, radio *sx127x.Device, st *station, cfg config.TrackingConfig) {
	ticker := time.NewTicker(cfg.UpdateInterval)
	defer ticker.Stop()

	var lastPacket time.Time
	staleLogged := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pkt, err := radio.PollReceive()
			if err != nil {
				log.Printf("rx poll failed: %v", err)
				continue
			}
			if pkt == nil {
				if !lastPacket.IsZero() && !staleLogged && time.Since(lastPacket) > cfg.StaleAfter {
					log.Printf("remote position stale, holding gimbal")
					staleLogged = true
				}
				continue
			}

			dec, err := telemetry.Decode(pkt.Payload)
			if err != nil {
				st.metrics.DecodeErrors.Inc()
				log.Printf("packet decode failed: %v", err)
				continue
			}
			lastPacket = time.Now()
			staleLogged = false

			st.handlePacket(ctx, dec, pkt)
		}
	}
}

func (st *station) handlePacket(ctx context.Context, dec telemetry.Packet, pkt *sx127x.Packet) {
	remote := tracking.Position{LatDeg: dec.LatDeg, LonDeg: dec.LonDeg, AltM: dec.AltM}
	angles := tracking.Gimbal(st.position, remote, st.offsetDeg)

	if err := st.azimuth.SetAngle(angles.AzimuthDeg); err != nil {
		log.Printf("azimuth servo: %v", err)
	}
	if err := st.elevation.SetAngle(angles.ElevationDeg); err != nil {
		log.Printf("elevation servo: %v", err)
	}

	now := time.Now().UTC()
	upd := web.TrackUpdate{
		Seq:          dec.Seq,
		LatDeg:       dec.LatDeg,
		LonDeg:       dec.LonDeg,
		AltM:         dec.AltM,
		RSSIdBm:      pkt.RSSIdBm,
		SNRdB:        pkt.SNRdB,
		DistanceM:    tracking.Distance(st.position, remote),
		BearingDeg:   tracking.Bearing(st.position, remote),
		AzimuthDeg:   angles.AzimuthDeg,
		ElevationDeg: angles.ElevationDeg,
	}
	st.status.SetTrack(now, upd)
	upd.ReceivedUTC = now.Format(time.RFC3339Nano)
	st.tracks.Publish(upd)
	st.metrics.ObserveUpdate(upd)

	if st.mqtt != nil {
		fix := telemetry.FixMessage{Seq: dec.Seq, LatDeg: dec.LatDeg, LonDeg: dec.LonDeg, AltM: dec.AltM, ReceivedAt: now}
		if err := st.mqtt.PublishFix(fix); err != nil {
			log.Printf("mqtt fix publish: %v", err)
		}
		link := telemetry.LinkMessage{RSSIdBm: pkt.RSSIdBm, SNRdB: pkt.SNRdB, ReceivedAt: now}
		if err := st.mqtt.PublishLink(link); err != nil {
			log.Printf("mqtt link publish: %v", err)
		}
	}
	if st.udp != nil {
		fix := telemetry.FixMessage{Seq: dec.Seq, LatDeg: dec.LatDeg, LonDeg: dec.LonDeg, AltM: dec.AltM, ReceivedAt: now}
		if err := st.udp.SendFix(fix); err != nil {
			log.Printf("udp fix send: %v", err)
		}
	}
	if st.logStore != nil {
		err := st.logStore.Append(ctx, tracklog.Fix{
			ReceivedAt: now,
			Seq:        dec.Seq,
			LatDeg:     dec.LatDeg,
			LonDeg:     dec.LonDeg,
			AltM:       dec.AltM,
			RSSIdBm:    pkt.RSSIdBm,
			SNRdB:      pkt.SNRdB,
		})
		if err != nil {
			log.Printf("track log append: %v", err)
		}
	}
}
