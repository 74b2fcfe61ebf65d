package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"hdmictl/internal/config"
	"hdmictl/internal/daemon"
	"hdmictl/internal/ddc"
	"hdmictl/internal/encoder"
	"hdmictl/internal/ipc"
	"hdmictl/internal/journal"
	"hdmictl/internal/logging"
	"hdmictl/internal/pipeline"
	"hdmictl/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// SocketPath overrides the control socket location from cfg.
	SocketPath string
}

// NewEncoder attaches an encoder described by cfg. The CLI uses it with a nil
// notifier for one-shot detection; the daemon passes its pipeline.
func NewEncoder(cfg *config.Config, notifier encoder.Notifier, logger *slog.Logger) (*encoder.Encoder, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return encoder.New(encoder.Options{
		Name:        cfg.Encoder.Connector,
		Store:       cfg.PropertyStore(),
		Prefix:      cfg.Encoder.Prefix,
		DDC:         ddc.Options{Timeout: cfg.DDCTimeout()},
		ProbeBudget: cfg.ProbeBudget(),
		Notifier:    notifier,
		Logger:      logger,
	})
}

// Run starts the hdmictl daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(signalCtx, logger, cfg)

	var sinks []pipeline.Sink
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.JournalPath(), cfg.Journal.HistoryLimit)
		if err != nil {
			logger.Error("open journal", logging.Error(err))
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	pipe := pipeline.New(logger, sinks...)

	enc, err := NewEncoder(cfg, pipe, logger)
	if err != nil {
		return fmt.Errorf("attach encoder: %w", err)
	}
	logRuntimeSnapshot(logger, cfg, enc)

	d, err := daemon.New(cfg, enc, pipe, logger)
	if err != nil {
		_ = enc.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The PID file and socket belong to the lock holder.
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	socketPath := cfg.SocketPath()
	if opts.SocketPath != "" {
		socketPath = opts.SocketPath
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("hdmictl daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnEvent(logger, logging.EventPreflightFailed, "preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config, enc *encoder.Encoder) {
	if logger == nil || cfg == nil || enc == nil {
		return
	}
	env := enc.Envelope()
	logger.Info("runtime snapshot",
		logging.String(logging.FieldEventType, "runtime_snapshot"),
		logging.String(logging.FieldConnector, enc.Name()),
		logging.String("property_source", cfg.Encoder.PropertySource),
		logging.String("prefix", cfg.Encoder.Prefix),
		logging.Bool("ddc_available", enc.HasChannel()),
		logging.Int64("max_pixel_clock_khz", int64(env.MaxPixelClockKHz)),
		logging.String("max_resolution", fmt.Sprintf("%dx%d", env.MaxHorizontal, env.MaxVertical)),
		logging.String("preferred_resolution", fmt.Sprintf("%dx%d", env.PreferredHorizontal, env.PreferredVertical)),
		logging.Bool("udev_enabled", cfg.Hotplug.Udev),
		logging.Bool("logind_enabled", cfg.Hotplug.Logind),
		logging.Bool("journal_enabled", cfg.Journal.Enabled),
	)
}
