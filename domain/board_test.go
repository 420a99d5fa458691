package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultBoardEncoding(t *testing.T) {
	data, err := EncodeBoard(DefaultBoard())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["version"] != "2.0" || got["weekLabel"] != "" {
		t.Fatalf("unexpected default: %s", data)
	}
	for _, k := range []string{"weekId", "lastUpdated", "created"} {
		if v, ok := got[k]; !ok || v != nil {
			t.Fatalf("expected %s to be null, got %#v", k, v)
		}
	}
	if _, ok := got["tiers"]; ok {
		t.Fatalf("default board must not carry tiers: %s", data)
	}
	if !strings.Contains(string(data), `"tasks":{}`) || !strings.Contains(string(data), `"taskList":[]`) || !strings.Contains(string(data), `"history":[]`) {
		t.Fatalf("expected empty collections, got %s", data)
	}
}

func TestBoardPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{"version":"2.0","theme":"dark","tasks":{},"taskList":[{"id":1,"text":"a","detail":"","xp":10,"tier":0,"pinned":true}],"history":[{"weekId":"2026-10-05","custom":1}]}`)
	b, err := DecodeBoard(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := EncodeBoard(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got["theme"] != "dark" {
		t.Fatalf("lost top-level field: %s", out)
	}
	task := got["taskList"].([]any)[0].(map[string]any)
	if task["pinned"] != true {
		t.Fatalf("lost task field: %s", out)
	}
	entry := got["history"].([]any)[0].(map[string]any)
	if entry["custom"] != float64(1) {
		t.Fatalf("history entry changed: %s", out)
	}
}

func TestBoardRoundTripKeepsKeySet(t *testing.T) {
	raw := `{"tasks":{"2":{"completedAt":"x","by":"me"}},"taskList":[{"id":1,"text":"a"}],"tiers":[{"index":0,"name":"Quick","glow":"blue"}]}`
	b, err := DecodeBoard([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := EncodeBoard(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !jsonEqual(t, out, []byte(raw)) {
		t.Fatalf("round trip changed the document:\n got %s\nwant %s", out, raw)
	}
}

func TestBoardKeepsEmptyTiers(t *testing.T) {
	b, err := DecodeBoard([]byte(`{"tasks":{},"taskList":[],"tiers":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := EncodeBoard(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `"tiers":[]`) {
		t.Fatalf("empty tiers dropped: %s", out)
	}
}

func TestRenumberedTaskGainsOnlyID(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"text":"a"}`), &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := json.Marshal(task.renumbered(3))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"id":3,"text":"a"}` {
		t.Fatalf("got %s", out)
	}
	if orig, _ := json.Marshal(task); string(orig) != `{"text":"a"}` {
		t.Fatalf("renumbering changed the original: %s", orig)
	}
}

func jsonEqual(t *testing.T, a, b []byte) bool {
	t.Helper()
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		t.Fatalf("decode %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &y); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return reflect.DeepEqual(x, y)
}

func TestDecodeBoardFillsMissingCollections(t *testing.T) {
	b, err := DecodeBoard([]byte(`{"version":"1.0"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Tasks == nil || b.TaskList == nil || b.History == nil {
		t.Fatalf("expected empty collections, got %+v", b)
	}
}

func TestDecodeBoardRejectsNull(t *testing.T) {
	if _, err := DecodeBoard([]byte(`null`)); err == nil {
		t.Fatal("expected error for null document")
	}
}

func TestNextTaskID(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
		want int
	}{
		{name: "empty", want: 1},
		{name: "sequential", ids: []int{1, 2, 3}, want: 4},
		{name: "gap is not reused", ids: []int{1, 7, 3}, want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBoard()
			for _, id := range tt.ids {
				b.TaskList = append(b.TaskList, Task{ID: id})
			}
			if got := b.NextTaskID(); got != tt.want {
				t.Fatalf("NextTaskID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		raw     string
		want    TaskID
		wantErr bool
	}{
		{raw: ``, want: ""},
		{raw: `null`, want: ""},
		{raw: `0`, want: ""},
		{raw: `false`, want: ""},
		{raw: `""`, want: ""},
		{raw: `3`, want: "3"},
		{raw: `"3"`, want: "3"},
		{raw: `"03"`, want: "3"},
		{raw: `"0"`, want: "0"},
		{raw: `2.5`, want: "2.5"},
		{raw: `"abc"`, want: "abc"},
		{raw: `{}`, wantErr: true},
		{raw: `[1]`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTaskID(json.RawMessage(tt.raw))
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTaskID(%s) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTaskID(%s): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTaskID(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
