//go:build linux

package spi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Minimal Linux SPI implementation backed by /dev/spidev*.
//
// We use SPI_IOC_MESSAGE with a single full-duplex transfer, which is what a
// register-style radio chip needs (address byte clocked out while the reply
// is clocked in, chip select held for the whole transfer).

const (
	// _IOW('k', 1, u8) etc.; spidev has no useful constants in x/sys/unix.
	spiIOCWrMode        = 0x40016B01
	spiIOCWrBitsPerWord = 0x40016B03
	spiIOCWrMaxSpeedHz  = 0x40046B04

	// _IOW('k', 0, char[32]) for one spiTransfer.
	spiIOCMessage1 = 0x40206B00
)

type spiTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNbits        uint8
	rxNbits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

// Port is an opened SPI slave (e.g., /dev/spidev0.0).
//
// Port is not safe for concurrent transfers; the owning driver serializes
// access, matching the single-threaded tracker loop.
type Port struct {
	f       *os.File
	path    string
	speedHz uint32
}

// Open opens the spidev node and programs mode 0, 8 bits per word and the
// given clock speed. speedHz 0 defaults to 5 MHz, comfortably within what
// an SX127x supports.
func Open(path string, speedHz uint32) (*Port, error) {
	path = filepath.Clean(path)
	if speedHz == 0 {
		speedHz = 5_000_000
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	p := &Port{f: f, path: path, speedHz: speedHz}

	mode := uint8(0) // CPOL=0, CPHA=0
	if err := p.ioctl(spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("spi: set mode: %w", err)
	}
	bits := uint8(8)
	if err := p.ioctl(spiIOCWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("spi: set bits per word: %w", err)
	}
	if err := p.ioctl(spiIOCWrMaxSpeedHz, unsafe.Pointer(&p.speedHz)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("spi: set speed: %w", err)
	}

	return p, nil
}

func (p *Port) Close() error {
	if p == nil || p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// Transfer performs one full-duplex transfer. tx and rx must be the same
// length; chip select is asserted for the duration of the transfer.
func (p *Port) Transfer(tx, rx []byte) error {
	if p == nil || p.f == nil {
		return errors.New("spi port is nil")
	}
	if len(tx) != len(rx) {
		return fmt.Errorf("spi: tx/rx length mismatch %d != %d", len(tx), len(rx))
	}
	if len(tx) == 0 {
		return nil
	}

	tr := spiTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(len(tx)),
		speedHz:     p.speedHz,
		bitsPerWord: 8,
	}
	return p.ioctl(spiIOCMessage1, unsafe.Pointer(&tr))
}

func (p *Port) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, p.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
