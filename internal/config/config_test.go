package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "radio: {}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Radio.FrequencyHz != 915_000_000 {
		t.Fatalf("frequency=%d want 915 MHz", cfg.Radio.FrequencyHz)
	}
	if cfg.Radio.BandwidthHz != 125_000 || cfg.Radio.SF != 9 || cfg.Radio.CR != 5 {
		t.Fatalf("modem defaults not applied: %+v", cfg.Radio)
	}
	if cfg.Radio.TxPowerDBm != 14 || cfg.Radio.Preamble != 8 || cfg.Radio.SyncWord != 0x12 {
		t.Fatalf("radio defaults not applied: %+v", cfg.Radio)
	}
	if cfg.Radio.DIO0Pin != -1 {
		t.Fatalf("dio0_pin=%d want -1 (unused)", cfg.Radio.DIO0Pin)
	}
	if cfg.GPS.Source != "serial" || cfg.GPS.Device != "/dev/ttyS0" || cfg.GPS.Baud != 9600 {
		t.Fatalf("gps defaults not applied: %+v", cfg.GPS)
	}
	if cfg.Remote.TxInterval != 1*time.Second {
		t.Fatalf("tx_interval=%s want 1s", cfg.Remote.TxInterval)
	}
	if cfg.Tracking.UpdateInterval != 250*time.Millisecond {
		t.Fatalf("update_interval=%s want 250ms", cfg.Tracking.UpdateInterval)
	}
	if cfg.Servos.Chip != "pwmchip0" || cfg.Servos.MinPulseUs != 500 || cfg.Servos.MaxPulseUs != 2500 {
		t.Fatalf("servo defaults not applied: %+v", cfg.Servos)
	}
	if cfg.Servos.Azimuth.Channel == cfg.Servos.Elevation.Channel {
		t.Fatalf("default servo channels must differ: %+v", cfg.Servos)
	}
}

func TestLoad_StaleAfterDerivedFromTxInterval(t *testing.T) {
	path := writeTempConfig(t, "remote:\n  tx_interval: 2s\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracking.StaleAfter != 10*time.Second {
		t.Fatalf("stale_after=%s want 10s", cfg.Tracking.StaleAfter)
	}
}

func TestLoad_StaleAfterExplicitWins(t *testing.T) {
	path := writeTempConfig(t, "tracking:\n  stale_after: 30s\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracking.StaleAfter != 30*time.Second {
		t.Fatalf("stale_after=%s want 30s", cfg.Tracking.StaleAfter)
	}
}

func TestLoad_InvalidGPSSource(t *testing.T) {
	path := writeTempConfig(t, "gps:\n  source: tcp\n")
	_, err := Load(path)
	requireErrEq(t, err, `gps.source must be serial or sim, got "tcp"`)
}

func TestLoad_HeadingOffsetRange(t *testing.T) {
	path := writeTempConfig(t, "tracking:\n  heading_offset_deg: 360\n")
	_, err := Load(path)
	requireErrEq(t, err, "tracking.heading_offset_deg must be in [0, 360), got 360")
}

func TestLoad_ServoChannelsMustDiffer(t *testing.T) {
	path := writeTempConfig(t, "servos:\n  azimuth:\n    channel: 1\n  elevation:\n    channel: 1\n")
	_, err := Load(path)
	requireErrEq(t, err, "servos.azimuth and servos.elevation cannot share channel 1")
}

func TestLoad_ServoPulseOrdering(t *testing.T) {
	path := writeTempConfig(t, "servos:\n  min_pulse_us: 2500\n  max_pulse_us: 500\n")
	_, err := Load(path)
	requireErrEq(t, err, "servos.min_pulse_us must be below servos.max_pulse_us")
}

func TestLoad_MQTTRequiresBroker(t *testing.T) {
	path := writeTempConfig(t, "mqtt:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "mqtt.broker is required when mqtt.enable is true")
}

func TestLoad_MQTTDefaults(t *testing.T) {
	path := writeTempConfig(t, "mqtt:\n  enable: true\n  broker: 'tcp://localhost:1883'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.ClientID != "loratrack-ground" || cfg.MQTT.TopicPrefix != "loratrack" {
		t.Fatalf("mqtt defaults not applied: %+v", cfg.MQTT)
	}
}

func TestLoad_UDPRequiresDest(t *testing.T) {
	path := writeTempConfig(t, "udp:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "udp.dest is required when udp.enable is true")
}

func TestLoad_WebAddrDefault(t *testing.T) {
	path := writeTempConfig(t, "web:\n  enable: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Web.Addr != ":8080" {
		t.Fatalf("addr=%q want :8080", cfg.Web.Addr)
	}
}

func TestLoad_TrackLogPathDefault(t *testing.T) {
	path := writeTempConfig(t, "tracklog:\n  enable: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TrackLog.Path != "loratrack.db" {
		t.Fatalf("path=%q want loratrack.db", cfg.TrackLog.Path)
	}
}

func TestLoad_SimDefaults(t *testing.T) {
	path := writeTempConfig(t, "gps:\n  source: sim\n  sim:\n    center_lat_deg: 48.1\n    center_lon_deg: 11.5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GPS.Sim.RadiusM != 500 || cfg.GPS.Sim.Period != 120*time.Second || cfg.GPS.Sim.AltM != 100 {
		t.Fatalf("sim defaults not applied: %+v", cfg.GPS.Sim)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
