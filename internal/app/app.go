package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"hauntsim/server/internal/config"
	"hauntsim/server/internal/house"
	servernet "hauntsim/server/internal/net"
	"hauntsim/server/internal/net/proto"
	"hauntsim/server/internal/net/ws"
	"hauntsim/server/internal/random"
	"hauntsim/server/internal/sim"
	"hauntsim/server/internal/telemetry"
	"hauntsim/server/logging"
	loggingSinks "hauntsim/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Config wires one run.
type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// Stdout receives the console event sink and the final report.
	Stdout io.Writer
	// ReportJSON writes the report as JSON to this path; "-" means Stdout.
	ReportJSON string
	// Sinks are added to the router and enabled alongside the configured ones.
	Sinks map[string]logging.Sink
}

// Diagnostics is the live snapshot served at /diagnostics.
type Diagnostics struct {
	RunID        string              `json:"runId"`
	ActiveAgents int                 `json:"activeAgents"`
	Evidence     string              `json:"evidence"`
	Solved       bool                `json:"solved"`
	Router       logging.RouterStats `json:"router"`
	Feed         ws.FeedStats        `json:"feed"`
	Metrics      map[string]uint64   `json:"metrics"`
}

// Run builds the house, starts the agents and blocks until the run ends or
// ctx is cancelled, then prints the report.
func Run(ctx context.Context, cfg Config) (sim.Report, error) {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	settings := cfg.Settings
	runID := uuid.NewString()

	logConfig := settings.Logging
	logConfig.Fields = logConfig.CloneFields()
	if logConfig.Fields == nil {
		logConfig.Fields = make(map[string]any, 1)
	}
	logConfig.Fields["run"] = runID

	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsoleSink(stdout, logConfig.Console),
	}
	var jsonFile *os.File
	if path := logConfig.JSON.FilePath; path != "" && logConfig.HasSink("json") {
		file, err := os.Create(path)
		if err != nil {
			return sim.Report{}, fmt.Errorf("open json log %s: %w", path, err)
		}
		jsonFile = file
		sinks["json"] = loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)
	}
	var (
		feed *ws.Feed
		h    *house.House
	)
	if settings.Listen != "" {
		// Spectators only connect once the server is up, after h is built.
		feed = ws.NewFeed(ws.FeedConfig{
			Logger: telemetryLogger,
			Hello:  func() proto.HelloV1 { return helloFor(runID, h) },
		})
		sinks["websocket"] = feed
		logConfig = enableSink(logConfig, "websocket")
	}
	for name, sink := range cfg.Sinks {
		sinks[name] = sink
		logConfig = enableSink(logConfig, name)
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return sim.Report{}, fmt.Errorf("failed to construct logging router: %w", err)
	}
	logsClosed := false
	closeLogs := func() {
		if logsClosed {
			return
		}
		logsClosed = true
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
		if jsonFile != nil {
			if cerr := jsonFile.Close(); cerr != nil {
				telemetryLogger.Printf("failed to close json log: %v", cerr)
			}
		}
	}
	defer closeLogs()

	metrics := telemetry.NewPrometheusMetrics()

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	telemetryLogger.Printf("run %s seeded with %d", runID, seed)

	h = house.New(settings.Limits(), house.Deps{
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Random:    random.NewLocked(seed),
	})
	layout, err := settings.HouseLayout()
	if err != nil {
		return sim.Report{}, err
	}
	if err := layout.Populate(h); err != nil {
		return sim.Report{}, fmt.Errorf("populate house: %w", err)
	}
	telemetryLogger.Printf("house populated with %d rooms", len(h.Rooms()))

	simConfig, err := settings.Simulation()
	if err != nil {
		return sim.Report{}, err
	}
	simulation, err := sim.New(h, simConfig,
		sim.WithRunID(runID),
		sim.WithSpawner(sim.NewGroupSpawner(settings.MaxAgents)),
	)
	if err != nil {
		return sim.Report{}, err
	}

	if settings.Listen != "" {
		handler := servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
			Feed:    feed,
			Metrics: metrics.Handler(),
			Diagnostics: func() any {
				collected, solved := h.CaseFile().Snapshot()
				return Diagnostics{
					RunID:        runID,
					ActiveAgents: simulation.Active(),
					Evidence:     collected.String(),
					Solved:       solved,
					Router:       router.Stats(),
					Feed:         feed.Stats(),
					Metrics:      metrics.Snapshot(),
				}
			},
			Logger:        telemetryLogger,
			Observability: settings.Observability,
		})
		stop, err := serve(settings.Listen, handler, telemetryLogger)
		if err != nil {
			return sim.Report{}, err
		}
		defer stop()
	}

	report, err := simulation.Run(ctx)
	// Flush every event before the summary so the report prints last.
	closeLogs()
	if errors.Is(err, sim.ErrNoHunters) {
		fmt.Fprintln(stdout, "No hunters created. Simulation ending.")
		return report, nil
	}
	if werr := report.WriteText(stdout); werr != nil {
		telemetryLogger.Printf("failed to write report: %v", werr)
	}
	if cfg.ReportJSON != "" {
		if werr := writeReportJSON(cfg.ReportJSON, stdout, report); werr != nil {
			telemetryLogger.Printf("failed to write json report: %v", werr)
		}
	}
	return report, err
}

// enableSink adds name to an explicit sink list. An empty list already
// enables every provided sink.
func enableSink(cfg logging.Config, name string) logging.Config {
	if len(cfg.EnabledSinks) == 0 {
		return cfg
	}
	return cfg.WithSink(name)
}

func serve(addr string, handler http.Handler, logger telemetry.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	logger.Printf("spectator feed listening on %s", listener.Addr())
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server failed: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Printf("http shutdown: %v", err)
		}
	}, nil
}

func helloFor(runID string, h *house.House) proto.HelloV1 {
	rooms := h.Rooms()
	out := make([]proto.Room, 0, len(rooms))
	for _, room := range rooms {
		connections := room.Connections()
		names := make([]string, 0, len(connections))
		for _, c := range connections {
			names = append(names, c.Name())
		}
		out = append(out, proto.Room{Name: room.Name(), Exit: room.IsExit(), Connections: names})
	}
	return proto.HelloV1{RunID: runID, Rooms: out}
}

func writeReportJSON(path string, stdout io.Writer, report sim.Report) error {
	if path == "-" {
		return report.WriteJSON(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteJSON(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
