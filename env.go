package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type config struct {
	store         string
	sqlitePath    string
	databaseURL   string
	storageConn   string
	boardTable    string
	redisConn     string
	cacheTTL      time.Duration
	deduperTTL    time.Duration
	eventsQueue   string
	listenAddr    string
	maxBodyBytes  int
	pprof         bool
	debug         bool
	jsonLogFormat bool
}

func loadConfig() (config, error) {
	cfg := config{
		store:         envString("BOARD_STORE", "sqlite"),
		sqlitePath:    envString("SQLITE_PATH", "board.db"),
		databaseURL:   os.Getenv("DATABASE_URL"),
		storageConn:   os.Getenv("STORAGE_CONNECTION_STRING"),
		boardTable:    envString("BOARD_TABLE", "board"),
		redisConn:     os.Getenv("REDIS_CONNECTION_STRING"),
		eventsQueue:   os.Getenv("WEEK_EVENTS_QUEUE"),
		pprof:         os.Getenv("PPROF") == "1",
		jsonLogFormat: os.Getenv("LOG_FORMAT") == "json",
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		cfg.debug = true
	}

	port := envString("PORT", "8080")
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		port = val
	}
	cfg.listenAddr = ":" + port

	var err error
	if cfg.cacheTTL, err = envDuration("BOARD_CACHE_TTL", 0); err != nil {
		return cfg, err
	}
	if cfg.deduperTTL, err = envDuration("DEDUPER_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.deduperTTL <= 0 {
		return cfg, fmt.Errorf("invalid DEDUPER_TTL: must be greater than zero")
	}
	if cfg.maxBodyBytes, err = envInt("REQUEST_MAX_BYTES", 1<<20); err != nil {
		return cfg, err
	}
	if cfg.maxBodyBytes <= 0 {
		return cfg, fmt.Errorf("invalid REQUEST_MAX_BYTES: must be greater than zero")
	}
	return cfg, nil
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
