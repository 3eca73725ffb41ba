// Package sx127x drives a Semtech SX1276/77/78/79 LoRa transceiver through
// its SPI register interface.
//
// The driver is deliberately synchronous: Send and Receive busy-poll the IRQ
// flags register with a caller-supplied timeout, because the chip offers no
// other completion primitive over SPI. DIO0 exists physically but is only
// read as a level, never trapped as an interrupt. After every timeout the
// chip is forced back to Standby so a stalled radio can never wedge the
// driver in Transmitting or Receiving across calls.
package sx127x

import (
	"errors"
	"fmt"
	"time"
)

var sleep = time.Sleep

// ErrDeviceNotFound is returned from New when the chip identity register
// does not answer with the expected silicon revision (wiring fault, absent
// module, or a hung chip).
var ErrDeviceNotFound = errors.New("sx127x: device not found")

// ErrTxTimeout is returned from Send when TxDone did not assert within the
// caller's timeout. The chip has been forced back to Standby; the caller may
// retry or skip the cycle.
var ErrTxTimeout = errors.New("sx127x: tx timeout")

// maxPayloadLen is the largest payload the single-byte length register and
// 256-byte FIFO can carry.
const maxPayloadLen = 255

// Transport is the register-level access the driver needs. The production
// implementation runs over spidev plus GPIO reset; tests substitute a
// simulated chip.
type Transport interface {
	ReadReg(addr uint8) (uint8, error)
	WriteReg(addr, value uint8) error
	// ReadFIFO reads len(dst) bytes from the FIFO in one burst.
	ReadFIFO(dst []byte) error
	// WriteFIFO writes p into the FIFO in one burst.
	WriteFIFO(p []byte) error
	// Reset pulses the hardware reset line (>=10 ms low, >=10 ms settle).
	Reset() error
}

// rxReadier is an optional Transport upgrade: a level read of the DIO0 pin,
// which is mapped to RxDone. PollReceive uses it to skip the SPI round trip
// when nothing is pending.
type rxReadier interface {
	RxReady() (bool, error)
}

// Mode is the chip operating mode last commanded by this driver.
type Mode uint8

const (
	ModeSleep Mode = iota
	ModeStandby
	ModeTx
	ModeRxContinuous
	ModeRxSingle
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeStandby:
		return "standby"
	case ModeTx:
		return "tx"
	case ModeRxContinuous:
		return "rx-continuous"
	case ModeRxSingle:
		return "rx-single"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

var modeBits = map[Mode]uint8{
	ModeSleep:        opModeSleep,
	ModeStandby:      opModeStandby,
	ModeTx:           opModeTx,
	ModeRxContinuous: opModeRxContinuous,
	ModeRxSingle:     opModeRxSingle,
}

// Config is the radio's physical-layer parameterization. It is applied once
// at New; changing it requires constructing a new Device.
type Config struct {
	// FrequencyHz is the carrier center frequency, e.g. 915_000_000.
	FrequencyHz uint32
	// BandwidthHz must be one of the chip's enumerated signal bandwidths
	// (7800 ... 500000).
	BandwidthHz int
	// SpreadingFactor 6..12.
	SpreadingFactor int
	// CodingRate is the denominator of the 4/x coding rate, 5..8.
	CodingRate int
	// TxPowerDBm is the PA_BOOST output power. The register field is 4 bits;
	// out-of-range values are clamped.
	TxPowerDBm int
	// PreambleLen is the preamble symbol count (16-bit).
	PreambleLen int
	// SyncWord distinguishes networks; 0x12 is the conventional private
	// default, 0x34 is reserved for LoRaWAN.
	SyncWord byte
}

func (c Config) validate() error {
	if c.FrequencyHz == 0 {
		return fmt.Errorf("sx127x: frequency is required")
	}
	if _, ok := bwCodes[c.BandwidthHz]; !ok {
		return fmt.Errorf("sx127x: unsupported bandwidth %d Hz", c.BandwidthHz)
	}
	if c.SpreadingFactor < 6 || c.SpreadingFactor > 12 {
		return fmt.Errorf("sx127x: spreading factor %d out of range 6..12", c.SpreadingFactor)
	}
	if c.CodingRate < 5 || c.CodingRate > 8 {
		return fmt.Errorf("sx127x: coding rate 4/%d out of range 4/5..4/8", c.CodingRate)
	}
	if c.PreambleLen < 0 || c.PreambleLen > 0xFFFF {
		return fmt.Errorf("sx127x: preamble length %d out of range", c.PreambleLen)
	}
	return nil
}

// Packet is one received frame with its link-quality metrics. It has no
// identity beyond the loop iteration that consumed it.
type Packet struct {
	Payload []byte
	RSSIdBm int
	SNRdB   float64
}

// Device owns one radio chip. It is not safe for concurrent use; the
// tracker loop is the single owner of the SPI bus.
type Device struct {
	t    Transport
	cfg  Config
	mode Mode
}

// New resets the chip, verifies its identity and programs the full modem
// configuration, leaving the chip in Standby.
func New(t Transport, cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := &Device{t: t, cfg: cfg}

	if err := t.Reset(); err != nil {
		return nil, fmt.Errorf("sx127x: reset: %w", err)
	}

	ver, err := t.ReadReg(regVersion)
	if err != nil {
		return nil, fmt.Errorf("sx127x: version read: %w", err)
	}
	if ver != chipVersion {
		return nil, fmt.Errorf("%w: version=0x%02X want 0x%02X", ErrDeviceNotFound, ver, chipVersion)
	}

	// The LoRa page bit may only be flipped in sleep.
	if err := d.setMode(ModeSleep); err != nil {
		return nil, err
	}
	sleep(10 * time.Millisecond)

	if err := d.configure(); err != nil {
		return nil, err
	}

	if err := d.setMode(ModeStandby); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) configure() error {
	// Carrier frequency: Hz / synthesizer step, truncated, 24-bit big endian.
	frf := uint32(float64(d.cfg.FrequencyHz) / fStepHz)
	writes := []struct{ reg, val uint8 }{
		{regFrfMsb, uint8(frf >> 16)},
		{regFrfMid, uint8(frf >> 8)},
		{regFrfLsb, uint8(frf)},

		{regFifoTxBase, 0x00},
		{regFifoRxBase, 0x00},

		{regModemConfig3, agcAutoOn},

		// BW code | CR code | explicit header.
		{regModemConfig1, bwCodes[d.cfg.BandwidthHz]<<4 | uint8(d.cfg.CodingRate-4)<<1},
		// SF | CRC on.
		{regModemConfig2, uint8(d.cfg.SpreadingFactor)<<4 | crcOn},

		{regPreambleMsb, uint8(d.cfg.PreambleLen >> 8)},
		{regPreambleLsb, uint8(d.cfg.PreambleLen)},

		{regSyncWord, d.cfg.SyncWord},

		{regPaConfig, paBoost | paPowerField(d.cfg.TxPowerDBm)},
		{regOcp, ocp100mA},
	}

	// LNA boost keeps the read-modify-write of the datasheet.
	lna, err := d.t.ReadReg(regLna)
	if err != nil {
		return fmt.Errorf("sx127x: lna read: %w", err)
	}
	if err := d.t.WriteReg(regLna, lna|lnaBoostHF); err != nil {
		return fmt.Errorf("sx127x: lna write: %w", err)
	}

	for _, w := range writes {
		if err := d.t.WriteReg(w.reg, w.val); err != nil {
			return fmt.Errorf("sx127x: config reg 0x%02X: %w", w.reg, err)
		}
	}
	return nil
}

// paPowerField clamps PA_BOOST dBm into the 4-bit OutputPower field
// (OutputPower = dBm - 2).
func paPowerField(dBm int) uint8 {
	p := dBm - 2
	if p < 0 {
		p = 0
	}
	if p > 15 {
		p = 15
	}
	return uint8(p)
}

func (d *Device) setMode(m Mode) error {
	if err := d.t.WriteReg(regOpMode, opModeLoRa|modeBits[m]); err != nil {
		return fmt.Errorf("sx127x: set mode %s: %w", m, err)
	}
	d.mode = m
	return nil
}

// Mode returns the mode last commanded by this driver.
func (d *Device) Mode() Mode { return d.mode }

// Standby commands Standby. Safe to call in any state, idempotent.
func (d *Device) Standby() error { return d.setMode(ModeStandby) }

// Sleep commands Sleep, the chip's lowest-power state.
func (d *Device) Sleep() error { return d.setMode(ModeSleep) }

// Send transmits payload and blocks until TxDone or timeout, busy-polling
// the IRQ flags register. On timeout the chip is forced to Standby and
// ErrTxTimeout is returned.
func (d *Device) Send(payload []byte, timeout time.Duration) error {
	if len(payload) == 0 {
		return fmt.Errorf("sx127x: empty payload")
	}
	if len(payload) > maxPayloadLen {
		return fmt.Errorf("sx127x: payload %d bytes exceeds %d", len(payload), maxPayloadLen)
	}

	if err := d.setMode(ModeStandby); err != nil {
		return err
	}
	if err := d.t.WriteReg(regFifoAddrPtr, 0x00); err != nil {
		return fmt.Errorf("sx127x: fifo ptr: %w", err)
	}
	if err := d.t.WriteFIFO(payload); err != nil {
		return fmt.Errorf("sx127x: fifo write: %w", err)
	}
	if err := d.t.WriteReg(regPayloadLen, uint8(len(payload))); err != nil {
		return fmt.Errorf("sx127x: payload len: %w", err)
	}
	if err := d.clearIRQ(); err != nil {
		return err
	}
	if err := d.setMode(ModeTx); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		flags, err := d.t.ReadReg(regIrqFlags)
		if err != nil {
			_ = d.setMode(ModeStandby)
			return fmt.Errorf("sx127x: irq read: %w", err)
		}
		if flags&irqTxDone != 0 {
			if err := d.clearIRQ(); err != nil {
				return err
			}
			return d.setMode(ModeStandby)
		}
		if time.Now().After(deadline) {
			_ = d.setMode(ModeStandby)
			return fmt.Errorf("%w after %s", ErrTxTimeout, timeout)
		}
	}
}

// Receive enters single-shot receive and blocks until a frame arrives or
// timeout elapses. A frame with a failed CRC is dropped and reported as no
// packet, not as an error: (nil, nil). The chip is back in Standby when
// Receive returns, whatever happened.
func (d *Device) Receive(timeout time.Duration) (*Packet, error) {
	if err := d.enterRx(ModeRxSingle); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		flags, err := d.t.ReadReg(regIrqFlags)
		if err != nil {
			_ = d.setMode(ModeStandby)
			return nil, fmt.Errorf("sx127x: irq read: %w", err)
		}
		if flags&irqRxDone != 0 {
			pkt, err := d.readPacket(flags)
			if serr := d.setMode(ModeStandby); serr != nil && err == nil {
				return nil, serr
			}
			return pkt, err
		}
		if time.Now().After(deadline) {
			_ = d.setMode(ModeStandby)
			return nil, nil
		}
	}
}

// ReceiveContinuous switches the chip into continuous receive and returns
// immediately. Pair with PollReceive.
func (d *Device) ReceiveContinuous() error {
	return d.enterRx(ModeRxContinuous)
}

// PollReceive is a single non-blocking check for a pending frame while in
// continuous receive. It never changes the mode, so the caller can keep
// polling every loop iteration. CRC failures are dropped as (nil, nil).
func (d *Device) PollReceive() (*Packet, error) {
	if lr, ok := d.t.(rxReadier); ok {
		ready, err := lr.RxReady()
		if err == nil && !ready {
			return nil, nil
		}
		// On a line read error fall through to the register, which is
		// authoritative.
	}

	flags, err := d.t.ReadReg(regIrqFlags)
	if err != nil {
		return nil, fmt.Errorf("sx127x: irq read: %w", err)
	}
	if flags&irqRxDone == 0 {
		return nil, nil
	}
	return d.readPacket(flags)
}

// enterRx preps FIFO/IRQ state and commands the given receive mode.
func (d *Device) enterRx(m Mode) error {
	if err := d.setMode(ModeStandby); err != nil {
		return err
	}
	if err := d.t.WriteReg(regFifoAddrPtr, 0x00); err != nil {
		return fmt.Errorf("sx127x: fifo ptr: %w", err)
	}
	if err := d.clearIRQ(); err != nil {
		return err
	}
	// DIO0 = RxDone.
	if err := d.t.WriteReg(regDioMapping1, 0x00); err != nil {
		return fmt.Errorf("sx127x: dio mapping: %w", err)
	}
	return d.setMode(m)
}

// readPacket consumes the frame the RxDone flags describe. The caller has
// already seen RxDone set.
func (d *Device) readPacket(flags uint8) (*Packet, error) {
	if flags&irqCrcError != 0 {
		// Corrupted frame: drop silently, the link is expected to be lossy.
		if err := d.clearIRQ(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	n, err := d.t.ReadReg(regRxNbBytes)
	if err != nil {
		return nil, fmt.Errorf("sx127x: rx byte count: %w", err)
	}
	cur, err := d.t.ReadReg(regFifoRxCurrent)
	if err != nil {
		return nil, fmt.Errorf("sx127x: rx current addr: %w", err)
	}
	if err := d.t.WriteReg(regFifoAddrPtr, cur); err != nil {
		return nil, fmt.Errorf("sx127x: fifo ptr: %w", err)
	}
	payload := make([]byte, int(n))
	if err := d.t.ReadFIFO(payload); err != nil {
		return nil, fmt.Errorf("sx127x: fifo read: %w", err)
	}

	snr, err := d.readSNR()
	if err != nil {
		return nil, err
	}
	rssi, err := d.readRSSI()
	if err != nil {
		return nil, err
	}
	if err := d.clearIRQ(); err != nil {
		return nil, err
	}

	return &Packet{Payload: payload, RSSIdBm: rssi, SNRdB: snr}, nil
}

// LinkQuality reads the packet RSSI/SNR registers without consuming a
// frame. Diagnostics only; values refer to the last received packet.
func (d *Device) LinkQuality() (rssiDBm int, snrDB float64, err error) {
	snrDB, err = d.readSNR()
	if err != nil {
		return 0, 0, err
	}
	rssiDBm, err = d.readRSSI()
	if err != nil {
		return 0, 0, err
	}
	return rssiDBm, snrDB, nil
}

func (d *Device) readSNR() (float64, error) {
	raw, err := d.t.ReadReg(regPktSnr)
	if err != nil {
		return 0, fmt.Errorf("sx127x: snr read: %w", err)
	}
	// Unsigned register reinterpreted as two's complement, quarter-dB steps.
	v := int(raw)
	if v > 127 {
		v -= 256
	}
	return float64(v) / 4.0, nil
}

func (d *Device) readRSSI() (int, error) {
	raw, err := d.t.ReadReg(regPktRssi)
	if err != nil {
		return 0, fmt.Errorf("sx127x: rssi read: %w", err)
	}
	return int(raw) - rssiOffsetHF, nil
}

func (d *Device) clearIRQ() error {
	if err := d.t.WriteReg(regIrqFlags, 0xFF); err != nil {
		return fmt.Errorf("sx127x: irq clear: %w", err)
	}
	return nil
}
