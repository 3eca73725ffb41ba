package gps

import "fmt"

// Device couples a serial port with a Parser. There is exactly one owner of
// the port; Update and Fix must be called from a single loop.
type Device struct {
	port    *Port
	parser  *Parser
	scratch [256]byte
}

// Open opens the serial device in raw non-blocking 8N1 mode. Baud 0 defaults
// to the 9600 most GNSS modules ship with.
func Open(path string, baud int) (*Device, error) {
	if baud == 0 {
		baud = 9600
	}
	port, err := openSerial(path, baud)
	if err != nil {
		return nil, fmt.Errorf("gps open failed device=%s baud=%d: %w", path, baud, err)
	}
	return &Device{port: port, parser: NewParser()}, nil
}

// Update drains all currently pending serial bytes into the parser and
// reports whether any complete sentence updated the fix. It never blocks.
func (d *Device) Update() bool {
	updated := false
	for {
		n, err := d.port.Read(d.scratch[:])
		if err != nil || n == 0 {
			return updated
		}
		if d.parser.Feed(d.scratch[:n]) {
			updated = true
		}
	}
}

func (d *Device) Fix() Fix { return d.parser.Fix() }

func (d *Device) Close() error {
	if d == nil || d.port == nil {
		return nil
	}
	return d.port.Close()
}
