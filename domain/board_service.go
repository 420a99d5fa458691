package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// BoardStorage reads and writes the raw board document. Load returns a nil
// slice and no error when nothing is stored.
type BoardStorage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
}

// WeekNotifier is told about every archived week.
type WeekNotifier interface {
	WeekArchived(ctx context.Context, entry ArchiveEntry) error
}

// NewTask is the client supplied part of a task being added.
type NewTask struct {
	Text   string `json:"text"`
	Detail string `json:"detail"`
	XP     *int   `json:"xp"`
	Tier   *int   `json:"tier"`
}

// ToggleResult reports the completion state after a toggle.
type ToggleResult struct {
	ID          TaskID
	Completed   bool
	LastUpdated string
}

// NewWeek summarises the week that a rollover starts.
type NewWeek struct {
	WeekID         string `json:"weekId"`
	WeekLabel      string `json:"weekLabel"`
	TaskCount      int    `json:"taskCount"`
	CarriedForward int    `json:"carriedForward"`
}

// RolloverResult is what Rollover archived and what it started.
type RolloverResult struct {
	Archived ArchiveEntry
	NewWeek  NewWeek
}

// SeedResult describes a freshly seeded board.
type SeedResult struct {
	WeekLabel string
	Tasks     int
}

// BoardService owns the board document. Every mutation is one
// read-modify-write of the whole document through mutate.
//
// Writes are unconditional: two requests that read the same version both
// write back their own copy and the later Save wins, dropping the other
// change. There is no locking or version check.
type BoardService struct {
	st       BoardStorage
	notifier WeekNotifier
	now      func() time.Time
}

// Option customises a BoardService.
type Option func(*BoardService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *BoardService) { s.now = now }
}

// WithNotifier publishes archived weeks after each rollover.
func WithNotifier(n WeekNotifier) Option {
	return func(s *BoardService) { s.notifier = n }
}

func NewBoardService(st BoardStorage, opts ...Option) *BoardService {
	s := &BoardService{st: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadOrDefault returns the stored document untouched, or the encoded
// default board when nothing is stored. The default is never saved.
func (s *BoardService) LoadOrDefault(ctx context.Context) ([]byte, error) {
	raw, err := s.st.Load(ctx)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	if raw != nil {
		return raw, nil
	}
	data, err := EncodeBoard(DefaultBoard())
	if err != nil {
		return nil, &StoreError{Op: "encode", Err: err}
	}
	return data, nil
}

// Replace stores body as the whole document with lastUpdated stamped.
// Apart from requiring a JSON object the body is not validated.
func (s *BoardService) Replace(ctx context.Context, body []byte) (string, error) {
	var doc map[string]json.RawMessage
	if err := codec.Unmarshal(body, &doc); err != nil {
		return "", &StoreError{Op: "parse", Err: err}
	}
	if doc == nil {
		return "", &StoreError{Op: "parse", Err: errors.New("board document must be a JSON object")}
	}
	ts := Timestamp(s.now())
	stamp, err := codec.Marshal(ts)
	if err != nil {
		return "", &StoreError{Op: "encode", Err: err}
	}
	doc["lastUpdated"] = stamp
	data, err := codec.Marshal(doc)
	if err != nil {
		return "", &StoreError{Op: "encode", Err: err}
	}
	if err := s.st.Save(ctx, data); err != nil {
		return "", &StoreError{Op: "save", Err: err}
	}
	return ts, nil
}

// ToggleTask flips the completion state of id.
func (s *BoardService) ToggleTask(ctx context.Context, id TaskID) (ToggleResult, error) {
	if id.Empty() {
		return ToggleResult{}, errMissingTaskID
	}
	var completed bool
	b, err := s.mutate(ctx, errTasksNotInitialized, func(b *Board, now time.Time) error {
		key := id.String()
		b.Touch("tasks")
		if _, ok := b.Tasks[key]; ok {
			delete(b.Tasks, key)
			return nil
		}
		b.Tasks[key] = Completion{CompletedAt: Timestamp(now)}
		completed = true
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{ID: id, Completed: completed, LastUpdated: *b.LastUpdated}, nil
}

// AddTask appends a task with the next free id. Missing detail defaults
// to "", missing tier to 0, and a missing or zero xp to 10.
func (s *BoardService) AddTask(ctx context.Context, in NewTask) (Task, string, error) {
	if in.Text == "" {
		return Task{}, "", errMissingTaskText
	}
	var task Task
	b, err := s.mutate(ctx, errTasksNotInitialized, func(b *Board, _ time.Time) error {
		task = Task{
			ID:     b.NextTaskID(),
			Text:   in.Text,
			Detail: in.Detail,
			XP:     10,
		}
		if in.XP != nil && *in.XP != 0 {
			task.XP = *in.XP
		}
		if in.Tier != nil {
			task.Tier = *in.Tier
		}
		b.TaskList = append(b.TaskList, task)
		b.Touch("taskList")
		return nil
	})
	if err != nil {
		return Task{}, "", err
	}
	return task, *b.LastUpdated, nil
}

// RemoveTask drops every task carrying id and its completion entry.
func (s *BoardService) RemoveTask(ctx context.Context, id TaskID) (string, error) {
	if id.Empty() {
		return "", errMissingTaskID
	}
	b, err := s.mutate(ctx, errTasksNotInitialized, func(b *Board, _ time.Time) error {
		kept := b.TaskList[:0]
		for _, t := range b.TaskList {
			if !id.Matches(t) {
				kept = append(kept, t)
			}
		}
		b.TaskList = kept
		delete(b.Tasks, id.String())
		b.Touch("taskList", "tasks")
		return nil
	})
	if err != nil {
		return "", err
	}
	return *b.LastUpdated, nil
}

// Rollover archives the current week and starts a new one. When next is
// nil the uncompleted tasks are carried forward; otherwise next replaces
// the list. Either way the new list is renumbered from 1.
func (s *BoardService) Rollover(ctx context.Context, next []Task) (RolloverResult, error) {
	var res RolloverResult
	_, err := s.mutate(ctx, errWeekNotInitialized, func(b *Board, now time.Time) error {
		total := len(b.TaskList)
		done := len(b.Tasks)
		percent := CompletionPercent(done, total)
		rank := RankForPercent(percent)

		completed := []Task{}
		uncompleted := []Task{}
		for _, t := range b.TaskList {
			if b.IsCompleted(t) {
				completed = append(completed, t)
			} else {
				uncompleted = append(uncompleted, t)
			}
		}

		entry := ArchiveEntry{
			WeekID:         b.WeekID,
			WeekLabel:      b.WeekLabel,
			Version:        b.Version,
			Completed:      done,
			Total:          total,
			Percent:        percent,
			Rank:           rank.Name,
			RankClass:      rank.Class,
			CompletedTasks: completed,
			ArchivedAt:     Timestamp(now),
		}
		raw, err := codec.Marshal(entry)
		if err != nil {
			return &StoreError{Op: "encode", Err: err}
		}
		b.History = append(b.History, raw)

		if next == nil {
			next = uncompleted
		}
		renumbered := make([]Task, len(next))
		for i, t := range next {
			renumbered[i] = t.renumbered(i + 1)
		}

		weekID := WeekID(now)
		b.Version = BoardVersion
		b.WeekID = &weekID
		b.WeekLabel = WeekLabel(now)
		b.Tasks = map[string]Completion{}
		b.TaskList = renumbered
		b.Touch("version", "weekId", "weekLabel", "tasks", "taskList", "history")

		res = RolloverResult{
			Archived: entry,
			NewWeek: NewWeek{
				WeekID:         weekID,
				WeekLabel:      b.WeekLabel,
				TaskCount:      len(renumbered),
				CarriedForward: len(uncompleted),
			},
		}
		return nil
	})
	if err != nil {
		return RolloverResult{}, err
	}

	log.WithFields(log.Fields{
		"archivedWeek": res.Archived.WeekLabel,
		"percent":      res.Archived.Percent,
		"rank":         res.Archived.Rank,
		"newWeek":      res.NewWeek.WeekID,
		"taskCount":    res.NewWeek.TaskCount,
	}).Info("week rolled over")

	if s.notifier != nil {
		if nerr := s.notifier.WeekArchived(ctx, res.Archived); nerr != nil {
			log.WithError(nerr).WithField("week", res.Archived.WeekLabel).Warn("publish archived week failed")
		}
	}
	return res, nil
}

// Seed writes the starting board. It refuses to touch a board that
// already has tasks.
func (s *BoardService) Seed(ctx context.Context) (SeedResult, error) {
	raw, err := s.st.Load(ctx)
	if err != nil {
		return SeedResult{}, &StoreError{Op: "load", Err: err}
	}
	if raw != nil {
		var existing struct {
			TaskList []json.RawMessage `json:"taskList"`
		}
		if err := codec.Unmarshal(raw, &existing); err != nil {
			return SeedResult{}, &StoreError{Op: "parse", Err: err}
		}
		if n := len(existing.TaskList); n > 0 {
			return SeedResult{}, &ConflictError{
				Message:      "Board already has data. To force re-migrate, delete the board-state key first.",
				CurrentTasks: n,
			}
		}
	}

	now := s.now()
	ts := Timestamp(now)
	weekID := WeekID(now)
	b := DefaultBoard()
	b.WeekID = &weekID
	b.WeekLabel = WeekLabel(now)
	b.LastUpdated = &ts
	b.Created = &ts
	b.TaskList = append([]Task(nil), SeedTasks...)
	b.Tiers = append([]Tier(nil), SeedTiers...)
	b.Touch("tiers")

	if err := s.save(ctx, b); err != nil {
		return SeedResult{}, err
	}
	log.WithFields(log.Fields{"week": weekID, "tasks": len(b.TaskList)}).Info("board seeded")
	return SeedResult{WeekLabel: b.WeekLabel, Tasks: len(b.TaskList)}, nil
}

// Ping checks that the store answers.
func (s *BoardService) Ping(ctx context.Context) error {
	if _, err := s.st.Load(ctx); err != nil {
		return &StoreError{Op: "load", Err: err}
	}
	return nil
}

func (s *BoardService) mutate(ctx context.Context, missing error, fn func(b *Board, now time.Time) error) (*Board, error) {
	raw, err := s.st.Load(ctx)
	if err != nil {
		return nil, &StoreError{Op: "load", Err: err}
	}
	if raw == nil {
		return nil, missing
	}
	b, err := DecodeBoard(raw)
	if err != nil {
		return nil, &StoreError{Op: "parse", Err: err}
	}
	now := s.now()
	if err := fn(b, now); err != nil {
		return nil, err
	}
	ts := Timestamp(now)
	b.LastUpdated = &ts
	b.Touch("lastUpdated")
	if err := s.save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BoardService) save(ctx context.Context, b *Board) error {
	data, err := EncodeBoard(b)
	if err != nil {
		return &StoreError{Op: "encode", Err: err}
	}
	if err := s.st.Save(ctx, data); err != nil {
		return &StoreError{Op: "save", Err: fmt.Errorf("key %s: %w", BoardKey, err)}
	}
	return nil
}
