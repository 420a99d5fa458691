package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"mission-board/api"
	"mission-board/domain"
	"mission-board/storage"
)

type boardStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
	Delete(ctx context.Context) error
	Close() error
}

// app holds everything built from the environment.
type app struct {
	cfg     config
	store   boardStore
	redis   *redis.Client
	service *domain.BoardService
	deduper api.Deduper
}

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "mission-board",
		Short:         "APEX mission board backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(serveCmd(), seedCmd(), rolloverCmd(), showCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the starting board if none exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				res, err := a.service.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Board seeded with %d tasks (%s)\n", res.Tasks, res.WeekLabel)
				return nil
			})
		},
	}
}

func rolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Archive the current week and carry uncompleted tasks forward",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				res, err := a.service.Rollover(ctx, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived %s: %d/%d (%d%%) %s\nNew week %s with %d tasks\n",
					res.Archived.WeekLabel, res.Archived.Completed, res.Archived.Total, res.Archived.Percent,
					res.Archived.Rank, res.NewWeek.WeekLabel, res.NewWeek.TaskCount)
				return nil
			})
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				raw, err := a.service.LoadOrDefault(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			})
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored board so it can be seeded again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes the board; pass --yes to confirm")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.store.Delete(ctx); err != nil {
					return fmt.Errorf("delete board: %w", err)
				}
				log.WithField("key", domain.BoardKey).Info("board deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.WithError(err).Warn("tracer shutdown")
			}
		}()

		e := echo.New()
		e.HideBanner = true
		e.Pre(api.CORS())
		e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
		e.Use(middleware.BodyLimit(strconv.Itoa(a.cfg.maxBodyBytes)))
		if a.cfg.pprof {
			pprof.Register(e)
		}

		logger := log.StandardLogger()
		api.Register(e, a.service, a.deduper, logger, api.WithMaxBodyBytes(int64(a.cfg.maxBodyBytes)))

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{"addr": a.cfg.listenAddr, "store": a.cfg.store}).Info("listening")
			errCh <- e.Start(a.cfg.listenAddr)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
}

// withApp builds the app from the environment, runs fn and releases the
// store and Redis connections.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	configureLogging(cfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func configureLogging(cfg config) {
	if cfg.debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.jsonLogFormat {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func newApp(ctx context.Context, cfg config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.redisConn != "" {
		opts, err := storage.ParseRedisOptions(cfg.redisConn)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = redis.NewClient(opts)
		a.deduper = api.NewRedisDeduper(a.redis, cfg.deduperTTL)
	}

	st, err := openStore(ctx, cfg, a.redis)
	if err != nil {
		a.close()
		return nil, err
	}
	if a.redis != nil && cfg.store != "redis" && cfg.cacheTTL > 0 {
		st = storage.NewCache(st, a.redis, domain.BoardKey, cfg.cacheTTL)
	}
	a.store = st

	opts := []domain.Option{}
	if cfg.eventsQueue != "" {
		if cfg.storageConn == "" {
			a.close()
			return nil, errors.New("WEEK_EVENTS_QUEUE requires STORAGE_CONNECTION_STRING")
		}
		if err := storage.EnsureQueue(ctx, cfg.storageConn, cfg.eventsQueue); err != nil {
			a.close()
			return nil, fmt.Errorf("queue: %w", err)
		}
		notifier, err := storage.NewQueueNotifier(cfg.storageConn, cfg.eventsQueue, domain.BoardKey)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("queue: %w", err)
		}
		opts = append(opts, domain.WithNotifier(notifier))
	}
	a.service = domain.NewBoardService(a.store, opts...)
	return a, nil
}

func openStore(ctx context.Context, cfg config, rc *redis.Client) (boardStore, error) {
	switch cfg.store {
	case "memory":
		return storage.NewMemory(), nil
	case "sqlite":
		return storage.NewSQLiteStore(cfg.sqlitePath, domain.BoardKey)
	case "postgres":
		if cfg.databaseURL == "" {
			return nil, errors.New("BOARD_STORE=postgres requires DATABASE_URL")
		}
		return storage.NewPostgresStore(cfg.databaseURL, domain.BoardKey)
	case "table":
		if cfg.storageConn == "" {
			return nil, errors.New("BOARD_STORE=table requires STORAGE_CONNECTION_STRING")
		}
		if err := storage.EnsureTable(ctx, cfg.storageConn, cfg.boardTable); err != nil {
			return nil, fmt.Errorf("table: %w", err)
		}
		return storage.NewTableStore(cfg.storageConn, cfg.boardTable, domain.BoardKey)
	case "redis":
		if rc == nil {
			return nil, errors.New("BOARD_STORE=redis requires REDIS_CONNECTION_STRING")
		}
		return storage.NewRedisStore(rc, domain.BoardKey), nil
	default:
		return nil, fmt.Errorf("unknown BOARD_STORE %q", cfg.store)
	}
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
	if a.redis != nil && a.cfg.store != "redis" {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
}
