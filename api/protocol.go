package api

import (
	"encoding/json"

	"mission-board/domain"
)

// HeaderIdempotencyKey lets clients make POST requests safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

type errorResponse struct {
	Error        string `json:"error"`
	CurrentTasks *int   `json:"currentTasks,omitempty"`
}

// PUT /api/board response body
type replaceBoardResponse struct {
	OK          bool   `json:"ok"`
	LastUpdated string `json:"lastUpdated"`
}

// PUT and DELETE /api/tasks request body
type taskIDRequest struct {
	ID json.RawMessage `json:"id"`
}

// PUT /api/tasks response body
type toggleTaskResponse struct {
	OK          bool   `json:"ok"`
	ID          string `json:"id"`
	Completed   bool   `json:"completed"`
	LastUpdated string `json:"lastUpdated"`
}

// POST /api/tasks response body
type addTaskResponse struct {
	OK          bool        `json:"ok"`
	Task        domain.Task `json:"task"`
	LastUpdated string      `json:"lastUpdated"`
}

// DELETE /api/tasks response body; Removed echoes the id as sent.
type removeTaskResponse struct {
	OK          bool            `json:"ok"`
	Removed     json.RawMessage `json:"removed"`
	LastUpdated string          `json:"lastUpdated"`
}

// POST /api/week request body
type rolloverRequest struct {
	Tasks *[]domain.Task `json:"tasks"`
}

// POST /api/week response body
type rolloverResponse struct {
	OK       bool                `json:"ok"`
	Archived domain.ArchiveEntry `json:"archived"`
	NewWeek  domain.NewWeek      `json:"newWeek"`
}

// POST /api/migrate response body
type seedResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	WeekLabel string `json:"weekLabel"`
	Tasks     int    `json:"tasks"`
}
