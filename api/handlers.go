package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"mission-board/domain"
)

// DefaultMaxBodyBytes caps inflated request bodies when Register is not
// given WithMaxBodyBytes.
const DefaultMaxBodyBytes int64 = 1 << 20

type registerConfig struct {
	maxBodyBytes int64
}

// RegisterOption tunes Register.
type RegisterOption func(*registerConfig)

// WithMaxBodyBytes caps the size of a gzip request body after inflation.
func WithMaxBodyBytes(n int64) RegisterOption {
	return func(rc *registerConfig) { rc.maxBodyBytes = n }
}

// Register wires up all API routes on the provided Echo instance. deduper
// may be nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, board Board, deduper Deduper, logger *log.Logger, opts ...RegisterOption) {
	rc := registerConfig{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&rc)
	}

	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(RequestMetricsMiddleware(logger))
	e.Use(GzipRequestMiddleware(rc.maxBodyBytes))

	idem := IdempotencyMiddleware(deduper, logger)

	e.GET("/api/board", getBoard(board))
	e.PUT("/api/board", putBoard(board))
	e.PUT("/api/tasks", toggleTask(board))
	e.POST("/api/tasks", addTask(board), idem)
	e.DELETE("/api/tasks", removeTask(board))
	e.POST("/api/week", rollWeek(board), idem)
	e.POST("/api/migrate", migrate(board))
	e.GET("/healthz", healthz(board))
}

func healthz(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := board.Ping(c.Request().Context()); err != nil {
			setErrorStage(c, "store")
			recordError(c, err)
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		}
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		raw, err := board.LoadOrDefault(c.Request().Context())
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, raw)
	}
}

func putBoard(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return writeError(c, requestError("read", err))
		}
		start := time.Now()
		ts, err := board.Replace(c.Request().Context(), body)
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, replaceBoardResponse{OK: true, LastUpdated: ts})
	}
}

func toggleTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req taskIDRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		id, err := domain.ParseTaskID(req.ID)
		if err != nil {
			return writeError(c, err)
		}
		start := time.Now()
		res, err := board.ToggleTask(c.Request().Context(), id)
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, toggleTaskResponse{
			OK:          true,
			ID:          res.ID.String(),
			Completed:   res.Completed,
			LastUpdated: res.LastUpdated,
		})
	}
}

func addTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req domain.NewTask
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		start := time.Now()
		task, ts, err := board.AddTask(c.Request().Context(), req)
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, addTaskResponse{OK: true, Task: task, LastUpdated: ts})
	}
}

func removeTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req taskIDRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		id, err := domain.ParseTaskID(req.ID)
		if err != nil {
			return writeError(c, err)
		}
		start := time.Now()
		ts, err := board.RemoveTask(c.Request().Context(), id)
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, removeTaskResponse{OK: true, Removed: req.ID, LastUpdated: ts})
	}
}

func rollWeek(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		// The body is optional; anything unparsable counts as empty.
		var req rolloverRequest
		if err := decodeBody(c, &req); err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return writeError(c, err)
			}
			req = rolloverRequest{}
		}

		var next []domain.Task
		if req.Tasks != nil {
			next = *req.Tasks
			if next == nil {
				next = []domain.Task{}
			}
		}
		start := time.Now()
		res, err := board.Rollover(c.Request().Context(), next)
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, rolloverResponse{OK: true, Archived: res.Archived, NewWeek: res.NewWeek})
	}
}

func migrate(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		res, err := board.Seed(c.Request().Context())
		observeService(c, start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, seedResponse{
			OK:        true,
			Message:   fmt.Sprintf("Board seeded with %d tasks", res.Tasks),
			WeekLabel: res.WeekLabel,
			Tasks:     res.Tasks,
		})
	}
}

func decodeBody(c echo.Context, v any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return requestError("read", err)
	}
	if err := sonic.ConfigStd.Unmarshal(body, v); err != nil {
		return &domain.StoreError{Op: "parse", Err: err}
	}
	return nil
}

// requestError keeps echo's own errors (body too large) intact so they
// reach the client with their status.
func requestError(op string, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return &domain.StoreError{Op: op, Err: err}
}

// writeError maps domain errors to their status code and {error} body.
func writeError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		setErrorStage(c, "request")
		return he
	}
	var (
		validation *domain.ValidationError
		notInit    *domain.NotInitializedError
		conflict   *domain.ConflictError
	)
	body := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	stage := "store"
	switch {
	case errors.As(err, &validation):
		status, stage = http.StatusBadRequest, "validation"
	case errors.As(err, &notInit):
		status, stage = http.StatusNotFound, "not_initialized"
	case errors.As(err, &conflict):
		status, stage = http.StatusConflict, "conflict"
		n := conflict.CurrentTasks
		body.CurrentTasks = &n
	}
	setErrorStage(c, stage)
	recordError(c, err)
	return c.JSON(status, body)
}

// httpErrorHandler renders echo's own errors (unknown route, body too
// large) in the same {error} shape as the handlers.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorResponse{Error: msg})
}
