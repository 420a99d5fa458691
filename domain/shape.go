package domain

import (
	"bytes"
	"encoding/json"
	"slices"
)

// shape records the keys a decoded object carried so that re-encoding
// writes back the same key set. A nil present set belongs to a value built
// in code and emits every modelled field.
type shape struct {
	present map[string]bool
	unknown map[string]json.RawMessage
}

// touch adds keys to the emitted set. The set is copied first because
// values holding a shape are copied freely.
func (s *shape) touch(keys ...string) {
	if s.present == nil {
		return
	}
	next := make(map[string]bool, len(s.present)+len(keys))
	for k := range s.present {
		next[k] = true
	}
	for _, k := range keys {
		next[k] = true
	}
	s.present = next
}

func shapeOf(keys ...string) shape {
	s := shape{present: map[string]bool{}}
	for _, k := range keys {
		s.present[k] = true
	}
	return s
}

// decodeShaped decodes data into v and reports which of the modelled keys
// were present and which keys were not modelled at all.
func decodeShaped(data []byte, v any, modelled []string) (shape, error) {
	if err := codec.Unmarshal(data, v); err != nil {
		return shape{}, err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return shape{}, nil
	}
	var all map[string]json.RawMessage
	if err := codec.Unmarshal(data, &all); err != nil {
		return shape{}, err
	}
	s := shape{present: make(map[string]bool, len(all))}
	for k, raw := range all {
		if slices.Contains(modelled, k) {
			s.present[k] = true
			continue
		}
		if s.unknown == nil {
			s.unknown = map[string]json.RawMessage{}
		}
		s.unknown[k] = raw
	}
	return s, nil
}

// encodeShaped encodes v keeping only the keys in s and adding back the
// unknown ones.
func encodeShaped(v any, s shape) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil || (s.present == nil && len(s.unknown) == 0) {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := codec.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	if s.present != nil {
		for k := range merged {
			if !s.present[k] {
				delete(merged, k)
			}
		}
	}
	for k, raw := range s.unknown {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return codec.Marshal(merged)
}
