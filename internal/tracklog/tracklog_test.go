package tracklog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSession(t *testing.T) {
	s := openTestStore(t)
	if s.SessionID() == "" {
		t.Fatalf("expected non-empty session id")
	}
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d want 0 for fresh session", n)
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Append(ctx, Fix{
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
			Seq:        uint64(i + 1),
			LatDeg:     48.1 + float64(i)*0.001,
			LonDeg:     11.5,
			AltM:       120,
			RSSIdBm:    -80 - i,
			SNRdB:      7.5,
		})
		if err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	fixes, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(fixes) != 3 {
		t.Fatalf("len=%d want 3", len(fixes))
	}
	// Newest first.
	if fixes[0].Seq != 3 || fixes[2].Seq != 1 {
		t.Fatalf("unexpected order: %d,%d,%d", fixes[0].Seq, fixes[1].Seq, fixes[2].Seq)
	}
	if fixes[0].RSSIdBm != -82 || fixes[0].SNRdB != 7.5 {
		t.Fatalf("link metrics not stored: %+v", fixes[0])
	}
}

func TestRecent_LimitApplied(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, Fix{ReceivedAt: base.Add(time.Duration(i) * time.Second), Seq: uint64(i)}); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}
	fixes, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(fixes) != 2 {
		t.Fatalf("len=%d want 2", len(fixes))
	}
}

func TestSessionsIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s1.Append(ctx, Fix{Seq: 1, ReceivedAt: time.Now()}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()

	if s2.SessionID() == s1.SessionID() {
		t.Fatalf("expected distinct session ids")
	}
	n, err := s2.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d want 0 in new session", n)
	}
}
