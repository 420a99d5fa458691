package domain

import "fmt"

// ValidationError means a required request field was missing or unusable.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotInitializedError is returned when an operation needs a stored board
// and there is none.
type NotInitializedError struct {
	Message string
}

func (e *NotInitializedError) Error() string { return e.Message }

// ConflictError is returned by Seed when the board already holds tasks.
type ConflictError struct {
	Message      string
	CurrentTasks int
}

func (e *ConflictError) Error() string { return e.Message }

// StoreError wraps failures to read, parse or write the document.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s board: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

var (
	errMissingTaskID   = &ValidationError{Message: "Missing task id"}
	errMissingTaskText = &ValidationError{Message: "Missing task text"}

	errTasksNotInitialized = &NotInitializedError{Message: "Board not initialized. Run /api/migrate first."}
	errWeekNotInitialized  = &NotInitializedError{Message: "Board not initialized"}
)
