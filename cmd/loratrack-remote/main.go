// loratrack-remote is the airborne/mobile node: it reads GPS fixes and
// beacons them over the LoRa link once per interval.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loratrack/internal/config"
	"loratrack/internal/gps"
	"loratrack/internal/sim"
	"loratrack/internal/sx127x"
	"loratrack/internal/telemetry"
)

// fixSource is what the transmit loop needs from a GPS provider; both the
// serial device and the simulated flight satisfy it.
type fixSource interface {
	Update() bool
	Fix() gps.Fix
	Close() error
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

	source, err := openFixSource(cfg.GPS)
	if err != nil {
		log.Fatalf("gps init failed: %v", err)
	}
	defer source.Close()

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

	log.Printf("loratrack-remote starting")
	log.Printf("radio freq=%dHz bw=%dHz sf=%d gps=%s", cfg.Radio.FrequencyHz, cfg.Radio.BandwidthHz, cfg.Radio.SF, cfg.GPS.Source)

	if !waitForFix(ctx, source) {
		log.Printf("loratrack-remote stopping before first fix")
		return
	}
	log.Printf("first valid fix acquired")

	runBeaconLoop(ctx, source, radio, cfg.Remote)
	log.Printf("loratrack-remote stopping")
}

func openFixSource(cfg config.GPSConfig) (fixSource, error) {
	if cfg.Source == "sim" {
		flight := sim.Flight{
			CenterLatDeg: cfg.Sim.CenterLatDeg,
			CenterLonDeg: cfg.Sim.CenterLonDeg,
			AltM:         cfg.Sim.AltM,
			RadiusM:      cfg.Sim.RadiusM,
			Period:       cfg.Sim.Period,
		}
		return sim.NewSource(flight, time.Second), nil
	}
	return gps.Open(cfg.Device, cfg.Baud)
}

// waitForFix polls the source until it produces a valid fix, reporting false
// if shutdown arrives first.
func waitForFix(ctx context.Context, source fixSource) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			source.Update()
			if source.Fix().Valid {
				return true
			}
		}
	}
}

func runBeaconLoop(ctx context.Context, source fixSource, radio *sx127x.Device, cfg config.RemoteConfig) {
	ticker := time.NewTicker(cfg.TxInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			source.Update()
			fix := source.Fix()
			if !fix.Valid {
				log.Printf("fix lost, skipping beacon seq=%d", seq+1)
				continue
			}

			pkt := telemetry.Packet{LatDeg: fix.LatDeg, LonDeg: fix.LonDeg, AltM: fix.AltM, Seq: seq + 1}
			err := radio.Send(pkt.Encode(), cfg.TxTimeout)
			switch {
			case errors.Is(err, sx127x.ErrTxTimeout):
				log.Printf("tx timeout, skipping beacon seq=%d", seq+1)
			case err != nil:
				log.Printf("tx failed seq=%d: %v", seq+1, err)
			default:
				seq++
			}
		}
	}
}
