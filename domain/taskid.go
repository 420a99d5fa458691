package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// TaskID is the canonical string identity of a task. Completion keys and
// task list lookups both use it, so numeric ids sent as 3, "3" or "03" all
// address the same task.
type TaskID string

func (id TaskID) String() string { return string(id) }

// Empty reports whether no id was supplied.
func (id TaskID) Empty() bool { return id == "" }

// Matches reports whether t carries this id.
func (id TaskID) Matches(t Task) bool {
	return string(id) == strconv.Itoa(t.ID)
}

// TaskIDOf returns the canonical id of a task in the list.
func TaskIDOf(t Task) TaskID {
	return TaskID(strconv.Itoa(t.ID))
}

// ParseTaskID converts an id as sent by a client into its canonical form.
// Absent, null, false, zero and empty ids yield an empty TaskID. Objects and
// arrays are rejected.
func ParseTaskID(raw json.RawMessage) (TaskID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case 'n', 'f':
		return "", nil
	case 't':
		return "true", nil
	case '"':
		var s string
		if err := codec.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return canonicalString(s), nil
	case '{', '[':
		return "", &ValidationError{Message: "Invalid task id"}
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return "", err
	}
	if f == 0 {
		return "", nil
	}
	return canonicalNumber(f), nil
}

func canonicalString(s string) TaskID {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return TaskID(strconv.FormatInt(n, 10))
	}
	return TaskID(s)
}

func canonicalNumber(f float64) TaskID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return TaskID(strconv.FormatInt(int64(f), 10))
	}
	return TaskID(strconv.FormatFloat(f, 'f', -1, 64))
}
