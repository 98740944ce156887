// Command dittomount talks to an NFS MOUNT v3 server: it mounts and
// unmounts exports, lists exports and active mounts, and probes the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marmos91/dittomount/internal/logger"
	"github.com/marmos91/dittomount/pkg/config"
	"github.com/marmos91/dittomount/pkg/mountclient"
	"github.com/marmos91/dittomount/pkg/store/mounttab"
)

// errUsage is returned for command line mistakes; usage has been printed.
var errUsage = errors.New("usage error")

const usageText = `DittoMount - NFS MOUNT v3 client

Usage:
  dittomount [global flags] <command> [command flags] [args]

Commands:
  mount <path>     Mount an export and record it in the mount table
  umount <path>    Unmount an export
  umountall        Unmount every export mounted by this host
  dump             List the server's active mounts
  export           List the server's exports
  null             Ping the server
  probe            Ping the server periodically until interrupted
  mounts           List the mounts recorded in the local mount table
  init             Write a default configuration file

Global flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command. Command output goes to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("dittomount", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittomount/config.yaml)")
	server := global.String("server", "", "mountd address as host:port (overrides config)")
	logLevel := global.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR) (overrides config)")
	global.Usage = func() {
		fmt.Fprint(stderr, usageText)
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}
	name, cmdArgs := global.Arg(0), global.Args()[1:]

	if name == "init" {
		return runInit(cmdArgs, *configPath, stdout, stderr)
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command %q\n\n", name)
		global.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Client.Server = *server
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg.Logging, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.SetDefault(log)

	env, err := newEnv(ctx, cfg, log, stdout)
	if err != nil {
		return err
	}
	defer env.close()

	return cmd(ctx, env, cmdArgs)
}

// env is what commands work with.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	out     io.Writer
	client  *mountclient.Client
	store   mounttab.Store
	metrics *config.MetricsResult
}

func newEnv(ctx context.Context, cfg *config.Config, log *logger.Logger, out io.Writer) (*env, error) {
	store, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	m := config.InitializeMetrics(cfg, log)

	client, err := mountclient.New(cfg.Client,
		mountclient.WithLogger(log),
		mountclient.WithMetrics(m.ClientMetrics),
		mountclient.WithMountTable(store),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &env{cfg: cfg, log: log, out: out, client: client, store: store, metrics: m}, nil
}

func (e *env) close() {
	if err := e.client.Close(); err != nil {
		e.log.Warn("Failed to close client: %v", err)
	}
	if err := e.store.Close(); err != nil {
		e.log.Warn("Failed to close mount table: %v", err)
	}
}

// newLogger builds the logger described by cfg. The returned func closes
// the log file, if any.
func newLogger(cfg config.LoggingConfig, stdout, stderr io.Writer) (*logger.Logger, func(), error) {
	level, ok := logger.ParseLevel(cfg.Level)
	if !ok {
		return nil, nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	format, ok := logger.ParseFormat(cfg.Format)
	if !ok {
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	switch cfg.Output {
	case "", "stdout":
		return logger.New(stdout, level, format), func() {}, nil
	case "stderr":
		return logger.New(stderr, level, format), func() {}, nil
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return logger.New(f, level, format), func() { _ = f.Close() }, nil
	}
}
