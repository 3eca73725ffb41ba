//go:build !linux

package spi

import "fmt"

type Port struct{}

func Open(path string, speedHz uint32) (*Port, error) {
	return nil, fmt.Errorf("spi: unsupported OS (need linux)")
}

func (p *Port) Close() error { return nil }

func (p *Port) Transfer(tx, rx []byte) error { return fmt.Errorf("spi: unsupported OS") }
