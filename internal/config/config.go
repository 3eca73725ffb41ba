// Package config loads the YAML configuration for both nodes. The remote
// transmitter and the ground station share the radio and GPS sections; the
// tracking, servo and fan-out sections only matter on the ground side.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Radio    RadioConfig    `yaml:"radio"`
	GPS      GPSConfig      `yaml:"gps"`
	Remote   RemoteConfig   `yaml:"remote"`
	Tracking TrackingConfig `yaml:"tracking"`
	Servos   ServosConfig   `yaml:"servos"`
	Web      WebConfig      `yaml:"web"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	UDP      UDPConfig      `yaml:"udp"`
	TrackLog TrackLogConfig `yaml:"tracklog"`
}

type RadioConfig struct {
	SPIDev      string `yaml:"spi_dev"`
	SPISpeedHz  int    `yaml:"spi_speed_hz"`
	GPIOChip    string `yaml:"gpio_chip"`
	ResetPin    int    `yaml:"reset_pin"`
	DIO0Pin     int    `yaml:"dio0_pin"`
	FrequencyHz int    `yaml:"frequency_hz"`
	BandwidthHz int    `yaml:"bandwidth_hz"`
	SF          int    `yaml:"spreading_factor"`
	CR          int    `yaml:"coding_rate"`
	TxPowerDBm  int    `yaml:"tx_power_dbm"`
	Preamble    int    `yaml:"preamble_length"`
	SyncWord    byte   `yaml:"sync_word"`
}

type GPSConfig struct {
	// Source selects the fix provider: "serial" or "sim".
	Source string          `yaml:"source"`
	Device string          `yaml:"device"`
	Baud   int             `yaml:"baud"`
	Sim    SimFlightConfig `yaml:"sim"`
}

type SimFlightConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
}

type RemoteConfig struct {
	TxInterval time.Duration `yaml:"tx_interval"`
	TxTimeout  time.Duration `yaml:"tx_timeout"`
}

type TrackingConfig struct {
	UpdateInterval   time.Duration `yaml:"update_interval"`
	HeadingOffsetDeg float64       `yaml:"heading_offset_deg"`
	// Station is the fixed ground antenna position. Required on the ground
	// node unless the GPS source provides it.
	StationLatDeg float64 `yaml:"station_lat_deg"`
	StationLonDeg float64 `yaml:"station_lon_deg"`
	StationAltM   float64 `yaml:"station_alt_m"`
	// StaleAfter marks the remote position stale when no packet arrives
	// for this long. Zero derives 5x the remote tx_interval.
	StaleAfter time.Duration `yaml:"stale_after"`
}

type ServosConfig struct {
	Chip        string      `yaml:"chip"`
	FrequencyHz int         `yaml:"frequency_hz"`
	MinPulseUs  int         `yaml:"min_pulse_us"`
	MaxPulseUs  int         `yaml:"max_pulse_us"`
	Azimuth     ServoConfig `yaml:"azimuth"`
	Elevation   ServoConfig `yaml:"elevation"`
}

type ServoConfig struct {
	Channel int `yaml:"channel"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type TrackLogConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	// Radio defaults match the SX127x bring-up for the US 915 MHz band.
	if cfg.Radio.SPIDev == "" {
		cfg.Radio.SPIDev = "/dev/spidev0.0"
	}
	if cfg.Radio.GPIOChip == "" {
		cfg.Radio.GPIOChip = "gpiochip0"
	}
	if cfg.Radio.DIO0Pin == 0 {
		cfg.Radio.DIO0Pin = -1
	}
	if cfg.Radio.FrequencyHz == 0 {
		cfg.Radio.FrequencyHz = 915_000_000
	}
	if cfg.Radio.BandwidthHz == 0 {
		cfg.Radio.BandwidthHz = 125_000
	}
	if cfg.Radio.SF == 0 {
		cfg.Radio.SF = 9
	}
	if cfg.Radio.CR == 0 {
		cfg.Radio.CR = 5
	}
	if cfg.Radio.TxPowerDBm == 0 {
		cfg.Radio.TxPowerDBm = 14
	}
	if cfg.Radio.Preamble == 0 {
		cfg.Radio.Preamble = 8
	}
	if cfg.Radio.SyncWord == 0 {
		cfg.Radio.SyncWord = 0x12
	}

	switch cfg.GPS.Source {
	case "":
		cfg.GPS.Source = "serial"
	case "serial", "sim":
	default:
		return Config{}, fmt.Errorf("gps.source must be serial or sim, got %q", cfg.GPS.Source)
	}
	if cfg.GPS.Device == "" {
		cfg.GPS.Device = "/dev/ttyS0"
	}
	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 9600
	}
	if cfg.GPS.Sim.RadiusM <= 0 {
		cfg.GPS.Sim.RadiusM = 500
	}
	if cfg.GPS.Sim.Period <= 0 {
		cfg.GPS.Sim.Period = 120 * time.Second
	}
	if cfg.GPS.Sim.AltM == 0 {
		cfg.GPS.Sim.AltM = 100
	}

	if cfg.Remote.TxInterval <= 0 {
		cfg.Remote.TxInterval = 1 * time.Second
	}
	if cfg.Remote.TxTimeout <= 0 {
		cfg.Remote.TxTimeout = 5 * time.Second
	}

	if cfg.Tracking.UpdateInterval <= 0 {
		cfg.Tracking.UpdateInterval = 250 * time.Millisecond
	}
	if cfg.Tracking.HeadingOffsetDeg < 0 || cfg.Tracking.HeadingOffsetDeg >= 360 {
		return Config{}, fmt.Errorf("tracking.heading_offset_deg must be in [0, 360), got %v", cfg.Tracking.HeadingOffsetDeg)
	}
	if cfg.Tracking.StaleAfter <= 0 {
		cfg.Tracking.StaleAfter = 5 * cfg.Remote.TxInterval
	}

	if cfg.Servos.Chip == "" {
		cfg.Servos.Chip = "pwmchip0"
	}
	if cfg.Servos.FrequencyHz == 0 {
		cfg.Servos.FrequencyHz = 50
	}
	if cfg.Servos.MinPulseUs == 0 {
		cfg.Servos.MinPulseUs = 500
	}
	if cfg.Servos.MaxPulseUs == 0 {
		cfg.Servos.MaxPulseUs = 2500
	}
	if cfg.Servos.MinPulseUs >= cfg.Servos.MaxPulseUs {
		return Config{}, fmt.Errorf("servos.min_pulse_us must be below servos.max_pulse_us")
	}
	if cfg.Servos.Azimuth.Channel == 0 && cfg.Servos.Elevation.Channel == 0 {
		cfg.Servos.Elevation.Channel = 1
	}
	if cfg.Servos.Azimuth.Channel == cfg.Servos.Elevation.Channel {
		return Config{}, fmt.Errorf("servos.azimuth and servos.elevation cannot share channel %d", cfg.Servos.Azimuth.Channel)
	}

	if cfg.Web.Enable && cfg.Web.Addr == "" {
		cfg.Web.Addr = ":8080"
	}
	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "loratrack-ground"
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = "loratrack"
		}
	}
	if cfg.UDP.Enable && cfg.UDP.Dest == "" {
		return Config{}, fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	if cfg.TrackLog.Enable && cfg.TrackLog.Path == "" {
		cfg.TrackLog.Path = "loratrack.db"
	}

	return cfg, nil
}
