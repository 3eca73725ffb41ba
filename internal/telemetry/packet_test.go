package telemetry

import (
	"math"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	in := Packet{LatDeg: 48.117302, LonDeg: -11.516667, AltM: 545.4, Seq: 1041}
	out, err := Decode(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(out.LatDeg-in.LatDeg) > 5e-7 {
		t.Fatalf("lat=%v want %v", out.LatDeg, in.LatDeg)
	}
	if math.Abs(out.LonDeg-in.LonDeg) > 5e-7 {
		t.Fatalf("lon=%v want %v", out.LonDeg, in.LonDeg)
	}
	if math.Abs(out.AltM-in.AltM) > 0.05 {
		t.Fatalf("alt=%v want %v", out.AltM, in.AltM)
	}
	if out.Seq != in.Seq {
		t.Fatalf("seq=%d want %d", out.Seq, in.Seq)
	}
}

func TestEncodeFormat(t *testing.T) {
	p := Packet{LatDeg: 48.1173, LonDeg: 11.5167, AltM: 520, Seq: 7}
	got := string(p.Encode())
	want := "48.117300,11.516700,520.0,7\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"48.1,11.5,520.0",
		"48.1,11.5,520.0,7,extra",
		"abc,11.5,520.0,7",
		"48.1,def,520.0,7",
		"48.1,11.5,xyz,7",
		"48.1,11.5,520.0,-7",
		"48.1,11.5,520.0,7.5",
	}
	for _, c := range cases {
		if _, err := Decode([]byte(c)); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
