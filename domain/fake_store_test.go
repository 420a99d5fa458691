package domain

import (
	"context"
	"time"
)

type fakeStore struct {
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func (f *fakeStore) Load(context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.data == nil {
		return nil, nil
	}
	return append([]byte(nil), f.data...), nil
}

func (f *fakeStore) Save(_ context.Context, raw []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data = append([]byte(nil), raw...)
	return nil
}

func (f *fakeStore) board(t interface{ Fatalf(string, ...any) }) *Board {
	b, err := DecodeBoard(f.data)
	if err != nil {
		t.Fatalf("decode stored board: %v", err)
	}
	return b
}

type fakeNotifier struct {
	entries []ArchiveEntry
	err     error
}

func (n *fakeNotifier) WeekArchived(_ context.Context, e ArchiveEntry) error {
	n.entries = append(n.entries, e)
	return n.err
}

// fixedClock returns a clock frozen at a Wednesday.
func fixedClock() func() time.Time {
	at := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}
