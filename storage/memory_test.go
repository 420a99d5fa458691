package storage

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if raw, err := m.Load(ctx); err != nil || raw != nil {
		t.Fatalf("empty store returned %q, %v", raw, err)
	}
	doc := []byte(`{"version":"2.0"}`)
	if err := m.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc[0] = 'x'
	raw, err := m.Load(ctx)
	if err != nil || string(raw) != `{"version":"2.0"}` {
		t.Fatalf("load returned %q, %v", raw, err)
	}
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if raw, _ := m.Load(ctx); raw != nil {
		t.Fatalf("expected nothing after delete, got %q", raw)
	}
}
