//go:build linux

package sx127x

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"loratrack/internal/spi"
)

// TransportConfig wires the chip to the host: a spidev node plus the reset
// line, and optionally DIO0 for the PollReceive fast path.
type TransportConfig struct {
	// SPIDev is the spidev node, e.g. /dev/spidev0.0 (CS handled by spidev).
	SPIDev string
	// SPISpeedHz 0 defaults to 5 MHz.
	SPISpeedHz uint32
	// GPIOChip is the gpiochip device, e.g. /dev/gpiochip0.
	GPIOChip string
	// ResetPin is the BCM offset of the radio reset line (active low).
	ResetPin int
	// DIO0Pin is the BCM offset of DIO0, or negative if not wired. The line
	// is read as a level only.
	DIO0Pin int
}

// SPITransport is the production Transport over spidev and the GPIO
// character device.
type SPITransport struct {
	port *spi.Port
	chip *gpiocdev.Chip
	rst  *gpiocdev.Line
	dio0 *gpiocdev.Line
}

func OpenTransport(cfg TransportConfig) (*SPITransport, error) {
	if cfg.SPIDev == "" {
		return nil, fmt.Errorf("sx127x: spi device is required")
	}
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = "/dev/gpiochip0"
	}

	port, err := spi.Open(cfg.SPIDev, cfg.SPISpeedHz)
	if err != nil {
		return nil, fmt.Errorf("sx127x: open %s: %w", cfg.SPIDev, err)
	}

	t := &SPITransport{port: port}
	ok := false
	defer func() {
		if !ok {
			_ = t.Close()
		}
	}()

	t.chip, err = gpiocdev.NewChip(cfg.GPIOChip)
	if err != nil {
		return nil, fmt.Errorf("sx127x: open %s: %w", cfg.GPIOChip, err)
	}

	// Reset idles high; Reset() pulses it low.
	t.rst, err = t.chip.RequestLine(cfg.ResetPin, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("loratrack-radio-rst"))
	if err != nil {
		return nil, fmt.Errorf("sx127x: request reset line %d: %w", cfg.ResetPin, err)
	}

	if cfg.DIO0Pin >= 0 {
		t.dio0, err = t.chip.RequestLine(cfg.DIO0Pin, gpiocdev.AsInput, gpiocdev.WithConsumer("loratrack-radio-dio0"))
		if err != nil {
			return nil, fmt.Errorf("sx127x: request dio0 line %d: %w", cfg.DIO0Pin, err)
		}
	}

	ok = true
	return t, nil
}

func (t *SPITransport) ReadReg(addr uint8) (uint8, error) {
	tx := [2]byte{addr & 0x7F, 0}
	var rx [2]byte
	if err := t.port.Transfer(tx[:], rx[:]); err != nil {
		return 0, err
	}
	return rx[1], nil
}

func (t *SPITransport) WriteReg(addr, value uint8) error {
	tx := [2]byte{addr | 0x80, value}
	var rx [2]byte
	return t.port.Transfer(tx[:], rx[:])
}

func (t *SPITransport) ReadFIFO(dst []byte) error {
	tx := make([]byte, len(dst)+1)
	tx[0] = regFifo & 0x7F
	rx := make([]byte, len(dst)+1)
	if err := t.port.Transfer(tx, rx); err != nil {
		return err
	}
	copy(dst, rx[1:])
	return nil
}

func (t *SPITransport) WriteFIFO(p []byte) error {
	tx := make([]byte, len(p)+1)
	tx[0] = regFifo | 0x80
	copy(tx[1:], p)
	rx := make([]byte, len(p)+1)
	return t.port.Transfer(tx, rx)
}

// Reset holds the reset line low for 10 ms and gives the chip 10 ms to come
// back up, per the datasheet's manual reset sequence.
func (t *SPITransport) Reset() error {
	if err := t.rst.SetValue(0); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)
	if err := t.rst.SetValue(1); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)
	return nil
}

// RxReady reports the DIO0 level (mapped to RxDone). Only meaningful when
// DIO0 is wired; the driver falls back to the IRQ register otherwise.
func (t *SPITransport) RxReady() (bool, error) {
	if t.dio0 == nil {
		return true, nil
	}
	v, err := t.dio0.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (t *SPITransport) Close() error {
	var first error
	if t.dio0 != nil {
		if err := t.dio0.Close(); err != nil && first == nil {
			first = err
		}
		t.dio0 = nil
	}
	if t.rst != nil {
		if err := t.rst.Close(); err != nil && first == nil {
			first = err
		}
		t.rst = nil
	}
	if t.chip != nil {
		if err := t.chip.Close(); err != nil && first == nil {
			first = err
		}
		t.chip = nil
	}
	if t.port != nil {
		if err := t.port.Close(); err != nil && first == nil {
			first = err
		}
		t.port = nil
	}
	return first
}
