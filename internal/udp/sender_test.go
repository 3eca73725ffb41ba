package udp

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"loratrack/internal/telemetry"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNewSender_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	resolve := func(network, address string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr(network, address)
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	s, err := newSender("127.0.0.1:4000", resolve, dial)
	if err != nil {
		t.Fatalf("newSender() error: %v", err)
	}
	defer s.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 4000 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:4000", gotRaddr)
	}
}

func TestNewSender_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}

	_, err := newSender("bad:addr", resolve, dial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestSend_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}

	if err := s.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if err := s.Send([]byte{}); err != nil {
		t.Fatalf("Send(empty) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestSendFix_JSONDatagram(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}

	msg := telemetry.FixMessage{
		Seq:        7,
		LatDeg:     48.1173,
		LonDeg:     11.5167,
		AltM:       545.4,
		ReceivedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SendFix(msg); err != nil {
		t.Fatalf("SendFix() error: %v", err)
	}
	if len(fc.writes) != 1 {
		t.Fatalf("expected 1 datagram, got %d", len(fc.writes))
	}
	raw := fc.writes[0]
	if raw[len(raw)-1] != '\n' {
		t.Fatalf("datagram not newline-terminated: %q", raw)
	}
	var got telemetry.FixMessage
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("datagram not JSON: %v", err)
	}
	if got != msg {
		t.Fatalf("got %+v want %+v", got, msg)
	}
}

func TestSend_WriteError(t *testing.T) {
	writeErr := errors.New("conn gone")
	fc := &fakeConn{writeErr: writeErr}
	s := &Sender{dest: "x", conn: fc}

	if err := s.Send([]byte{0x01}); !errors.Is(err, writeErr) {
		t.Fatalf("err=%v want %v", err, writeErr)
	}
}

func TestClose(t *testing.T) {
	fc := &fakeConn{}
	s := &Sender{dest: "x", conn: fc}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fc.closed {
		t.Fatalf("conn not closed")
	}
}
