package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"harvest-and-haul/server/internal/harvest"
	servernet "harvest-and-haul/server/internal/net"
	"harvest-and-haul/server/internal/telemetry"
	"harvest-and-haul/server/logging"
	loggingSinks "harvest-and-haul/server/logging/sinks"
)

type Config struct {
	Logger telemetry.Logger
}

// Run wires the event router, the simulation runner, and the HTTP surface,
// then serves until the listener fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	logConfig := logging.DefaultConfig()
	if raw := os.Getenv("EVENT_SINKS"); raw != "" {
		logConfig.EnabledSinks = splitCSV(raw)
	}

	feed := servernet.NewFeed(logger)
	sinks, err := buildSinks(logConfig, feed)
	if err != nil {
		return err
	}

	router, err := logging.NewRouter(nil, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("construct event router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("close event router: %v", cerr)
		}
	}()

	harvestCfg := harvest.DefaultConfig()
	if path := os.Getenv("HARVEST_CONFIG"); path != "" {
		harvestCfg, err = harvest.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load harvest config: %w", err)
		}
		logger.Printf("harvest tuning loaded from %s", path)
	}

	runner, err := NewRunner(&harvestCfg, router, router, logger)
	if err != nil {
		return fmt.Errorf("construct runner: %w", err)
	}

	stop := make(chan struct{})
	go runner.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(runner, servernet.HTTPHandlerConfig{
		Logger: logger,
		Feed:   feed,
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildSinks assembles the enabled sinks. The websocket feed is always
// registered; it costs nothing without subscribers.
func buildSinks(cfg logging.Config, feed *servernet.Feed) ([]logging.NamedSink, error) {
	sinks := []logging.NamedSink{{Name: "ws", Sink: feed}}
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(os.Stdout)})
		case "jsonl":
			path := cfg.JSON.FilePath
			if path == "" {
				path = os.Getenv("EVENT_LOG_PATH")
			}
			if path == "" {
				path = "events.jsonl"
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open event log: %w", err)
			}
			flush := cfg.JSON.FlushInterval
			if flush <= 0 {
				flush = 2 * time.Second
			}
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(file, flush)})
		case "zstd":
			path := os.Getenv("EVENT_LOG_PATH")
			if path == "" {
				path = "events.jsonl.zst"
			}
			sink, err := loggingSinks.NewZstdJSONL(path)
			if err != nil {
				return nil, fmt.Errorf("open compressed event log: %w", err)
			}
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: sink})
		case "sqlite":
			path := cfg.SQLite.FilePath
			if path == "" {
				path = os.Getenv("EVENT_DB_PATH")
			}
			if path == "" {
				path = "events.db"
			}
			sink, err := loggingSinks.NewSQLite(path)
			if err != nil {
				return nil, fmt.Errorf("open event database: %w", err)
			}
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: sink})
		case "ws":
			// already registered
		default:
			return nil, fmt.Errorf("unknown event sink %q", name)
		}
	}
	return sinks, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
