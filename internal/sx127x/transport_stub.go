//go:build !linux

package sx127x

import "fmt"

type TransportConfig struct {
	SPIDev     string
	SPISpeedHz uint32
	GPIOChip   string
	ResetPin   int
	DIO0Pin    int
}

type SPITransport struct{}

func OpenTransport(cfg TransportConfig) (*SPITransport, error) {
	return nil, fmt.Errorf("sx127x: spi transport not supported on this platform")
}

func (t *SPITransport) ReadReg(addr uint8) (uint8, error) { return 0, fmt.Errorf("sx127x: unsupported OS") }
func (t *SPITransport) WriteReg(addr, value uint8) error  { return fmt.Errorf("sx127x: unsupported OS") }
func (t *SPITransport) ReadFIFO(dst []byte) error         { return fmt.Errorf("sx127x: unsupported OS") }
func (t *SPITransport) WriteFIFO(p []byte) error          { return fmt.Errorf("sx127x: unsupported OS") }
func (t *SPITransport) Reset() error                      { return fmt.Errorf("sx127x: unsupported OS") }
func (t *SPITransport) Close() error                      { return nil }
