package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"hdmictl/internal/config"
	"hdmictl/internal/daemonrun"
	"hdmictl/internal/encoder"
	"hdmictl/internal/ipc"
	"hdmictl/internal/logging"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a stderr logger for one-shot commands. Negotiation
// diagnostics only surface with --verbose so they never mix with output.
func (c *commandContext) logger() *slog.Logger {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	format := "console"
	if cfg, err := c.ensureConfig(); err == nil && cfg.Logging.Format != "" {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withEncoder attaches the configured encoder for the duration of fn.
func (c *commandContext) withEncoder(fn func(*encoder.Encoder) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	enc, err := daemonrun.NewEncoder(cfg, nil, c.logger())
	if err != nil {
		return fmt.Errorf("attach encoder: %w", err)
	}
	defer enc.Close()
	return fn(enc)
}

// socketPath prefers --socket, then the socket in the configured state
// directory. A config that fails to load falls back to the default location so
// lifecycle commands can still reach a running daemon.
func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if path := strings.TrimSpace(*c.socketFlag); path != "" {
			return path
		}
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.SocketPath()
	}
	if stateDir, err := config.ExpandPath("~/.local/share/hdmictl"); err == nil {
		return filepath.Join(stateDir, "hdmictld.sock")
	}
	return filepath.Join(os.TempDir(), "hdmictld.sock")
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// wrapDialError turns socket errors into a hint about starting the daemon.
func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("no daemon at %s; run `hdmictl start` or `hdmictl daemon`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("daemon socket %s refused the connection; it may have exited, run `hdmictl restart`", socket)
	default:
		return fmt.Errorf("connect to daemon at %s: %w", socket, err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
