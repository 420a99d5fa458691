package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// BoardKey is the only key the board document is ever stored under.
	BoardKey = "board-state"
	// BoardVersion is written by seed and rollover.
	BoardVersion = "2.0"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// codec sorts map keys so that re-encoding a document is stable.
var codec = sonic.ConfigStd

// Completion marks a task as done for the current week.
type Completion struct {
	CompletedAt string `json:"completedAt"`

	shape shape
}

type completionFields Completion

var completionKeys = []string{"completedAt"}

func (c *Completion) UnmarshalJSON(data []byte) error {
	var f completionFields
	sh, err := decodeShaped(data, &f, completionKeys)
	if err != nil {
		return err
	}
	*c = Completion(f)
	c.shape = sh
	return nil
}

func (c Completion) MarshalJSON() ([]byte, error) {
	return encodeShaped(completionFields(c), c.shape)
}

// Tier groups tasks by effort. It is display metadata only.
type Tier struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Meta  string `json:"meta"`

	shape shape
}

type tierFields Tier

var tierKeys = []string{"index", "name", "icon", "meta"}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var f tierFields
	sh, err := decodeShaped(data, &f, tierKeys)
	if err != nil {
		return err
	}
	*t = Tier(f)
	t.shape = sh
	return nil
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return encodeShaped(tierFields(t), t.shape)
}

// Task is one entry of the board's task list. A decoded task writes back
// only the keys it was read with.
type Task struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Detail string `json:"detail"`
	XP     int    `json:"xp"`
	Tier   int    `json:"tier"`

	shape shape
}

type taskFields Task

var taskKeys = []string{"id", "text", "detail", "xp", "tier"}

func (t *Task) UnmarshalJSON(data []byte) error {
	var f taskFields
	sh, err := decodeShaped(data, &f, taskKeys)
	if err != nil {
		return err
	}
	*t = Task(f)
	t.shape = sh
	return nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	return encodeShaped(taskFields(t), t.shape)
}

// renumbered returns a copy of t carrying id.
func (t Task) renumbered(id int) Task {
	t.ID = id
	t.shape.touch("id")
	return t
}

// ArchiveEntry is the summary of a finished week appended to the history.
type ArchiveEntry struct {
	WeekID         *string `json:"weekId"`
	WeekLabel      string  `json:"weekLabel"`
	Version        string  `json:"version"`
	Completed      int     `json:"completed"`
	Total          int     `json:"total"`
	Percent        int     `json:"percent"`
	Rank           string  `json:"rank"`
	RankClass      string  `json:"rankClass"`
	CompletedTasks []Task  `json:"completedTasks"`
	ArchivedAt     string  `json:"archivedAt"`
}

// Board is the whole persisted state.
//
// History entries are kept as raw JSON: they are never modified once
// appended, so they are written back byte for byte. Top-level keys that
// were absent stay absent unless an operation sets them with Touch.
type Board struct {
	Version     string                `json:"version"`
	WeekID      *string               `json:"weekId"`
	WeekLabel   string                `json:"weekLabel"`
	LastUpdated *string               `json:"lastUpdated"`
	Created     *string               `json:"created"`
	Tasks       map[string]Completion `json:"tasks"`
	TaskList    []Task                `json:"taskList"`
	History     []json.RawMessage     `json:"history"`
	Tiers       []Tier                `json:"tiers"`

	shape shape
}

type boardFields Board

var boardKeys = []string{"version", "weekId", "weekLabel", "lastUpdated", "created", "tasks", "taskList", "history", "tiers"}

func (b *Board) UnmarshalJSON(data []byte) error {
	var f boardFields
	sh, err := decodeShaped(data, &f, boardKeys)
	if err != nil {
		return err
	}
	*b = Board(f)
	b.shape = sh
	return nil
}

func (b Board) MarshalJSON() ([]byte, error) {
	return encodeShaped(boardFields(b), b.shape)
}

// Touch marks top-level keys as written by the current operation.
func (b *Board) Touch(keys ...string) {
	b.shape.touch(keys...)
}

// DefaultBoard is what readers see before anything was stored.
func DefaultBoard() *Board {
	return &Board{
		Version:  BoardVersion,
		Tasks:    map[string]Completion{},
		TaskList: []Task{},
		History:  []json.RawMessage{},
		shape:    shapeOf("version", "weekId", "weekLabel", "lastUpdated", "created", "tasks", "taskList", "history"),
	}
}

// DecodeBoard parses a stored document. Missing collections come back empty.
func DecodeBoard(raw []byte) (*Board, error) {
	var b *Board
	if err := codec.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("board document is null")
	}
	if b.Tasks == nil {
		b.Tasks = map[string]Completion{}
	}
	if b.TaskList == nil {
		b.TaskList = []Task{}
	}
	if b.History == nil {
		b.History = []json.RawMessage{}
	}
	return b, nil
}

// EncodeBoard serialises the board for storage.
func EncodeBoard(b *Board) ([]byte, error) {
	return codec.Marshal(b)
}

// IsCompleted reports whether the task id is in the completion set.
func (b *Board) IsCompleted(t Task) bool {
	_, ok := b.Tasks[TaskIDOf(t).String()]
	return ok
}

// NextTaskID is one past the highest id in the list, or 1 for an empty list.
func (b *Board) NextTaskID() int {
	if len(b.TaskList) == 0 {
		return 1
	}
	highest := b.TaskList[0].ID
	for _, t := range b.TaskList[1:] {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest + 1
}

// Timestamp formats t the way every board timestamp is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
