//go:build !linux

package gps

import "fmt"

type Port struct{}

func openSerial(path string, baud int) (*Port, error) {
	return nil, fmt.Errorf("gps serial not supported on this platform")
}

func (p *Port) Read(buf []byte) (int, error) {
	return 0, fmt.Errorf("gps serial not supported on this platform")
}

func (p *Port) Close() error { return nil }
