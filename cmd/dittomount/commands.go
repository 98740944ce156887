package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/pkg/config"
)

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"mount":     runMount,
	"umount":    runUmount,
	"umountall": runUmountAll,
	"dump":      runDump,
	"export":    runExport,
	"null":      runNull,
	"probe":     runProbe,
	"mounts":    runMounts,
}

// onePath parses a command taking exactly one export path.
func onePath(name string, args []string, out io.Writer) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprintf(out, "Usage: dittomount %s <path>\n", name) }
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

// noArgs parses a command taking no arguments.
func noArgs(name string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(out, "Usage: dittomount %s\n", name)
		return errUsage
	}
	return nil
}

func runMount(ctx context.Context, e *env, args []string) error {
	path, err := onePath("mount", args, e.out)
	if err != nil {
		return err
	}

	result, err := e.client.Mount(ctx, path)
	if err != nil {
		return err
	}

	flavors := make([]string, len(result.AuthFlavors))
	for i, f := range result.AuthFlavors {
		flavors[i] = f.String()
	}
	fmt.Fprintf(e.out, "%s:%s\n", e.client.Server(), path)
	fmt.Fprintf(e.out, "  handle:  %s\n", result.Handle)
	fmt.Fprintf(e.out, "  flavors: %s\n", strings.Join(flavors, ", "))
	return nil
}

func runUmount(ctx context.Context, e *env, args []string) error {
	path, err := onePath("umount", args, e.out)
	if err != nil {
		return err
	}
	if err := e.client.Umount(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Unmounted %s:%s\n", e.client.Server(), path)
	return nil
}

func runUmountAll(ctx context.Context, e *env, args []string) error {
	if err := noArgs("umountall", args, e.out); err != nil {
		return err
	}
	if err := e.client.UmountAll(ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Unmounted all exports from %s\n", e.client.Server())
	return nil
}

func runDump(ctx context.Context, e *env, args []string) error {
	if err := noArgs("dump", args, e.out); err != nil {
		return err
	}
	entries, err := e.client.Dump(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tDIRECTORY")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", entry.Hostname, entry.Directory)
	}
	return tw.Flush()
}

func runExport(ctx context.Context, e *env, args []string) error {
	if err := noArgs("export", args, e.out); err != nil {
		return err
	}
	entries, err := e.client.Export(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIRECTORY\tGROUPS")
	for _, entry := range entries {
		groups := "(everyone)"
		if len(entry.Groups) > 0 {
			groups = strings.Join(entry.Groups, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\n", entry.Directory, groups)
	}
	return tw.Flush()
}

func runNull(ctx context.Context, e *env, args []string) error {
	if err := noArgs("null", args, e.out); err != nil {
		return err
	}
	start := time.Now()
	if err := e.client.Null(ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s is alive (%s)\n", e.client.Server(), time.Since(start).Round(time.Microsecond))
	return nil
}

// runProbe calls NULL every interval until ctx is cancelled (SIGINT/SIGTERM)
// or count probes have been sent. Failed probes are logged and the next one
// reconnects. The metrics endpoint is served meanwhile when enabled.
func runProbe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(e.out)
	interval := fs.Duration("interval", 10*time.Second, "Time between probes")
	count := fs.Int("count", 0, "Stop after this many probes (0 = until interrupted)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *interval <= 0 {
		return errUsage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// lastErr backs /healthz: the result of the most recent probe.
	var lastErr atomic.Pointer[error]
	metricsDone := make(chan struct{})
	if srv := e.metrics.Server; srv != nil {
		srv.SetHealthCheck(func() error {
			if p := lastErr.Load(); p != nil {
				return *p
			}
			return nil
		})
		go func() {
			defer close(metricsDone)
			if err := srv.Start(ctx); err != nil {
				e.log.Error("Metrics server error: %v", err)
			}
		}()
	} else {
		close(metricsDone)
	}
	defer func() {
		cancel()
		<-metricsDone
	}()

	e.log.Info("Probing %s every %s", e.client.Server(), *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var sent, failed int
	for *count == 0 || sent < *count {
		start := time.Now()
		err := e.client.Null(ctx)
		if err != nil && ctx.Err() != nil {
			break
		}
		sent++
		lastErr.Store(&err)
		if err != nil {
			failed++
			fmt.Fprintf(e.out, "probe %d: %s error: %v\n", sent, rpc.KindOf(err), err)
		} else {
			fmt.Fprintf(e.out, "probe %d: ok (%s)\n", sent, time.Since(start).Round(time.Microsecond))
		}

		if *count > 0 && sent >= *count {
			break
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	e.log.Info("Probe finished: %d probes (%d failed)", sent, failed)
	if failed == sent && sent > 0 {
		return errors.New("every probe failed")
	}
	return nil
}

func runMounts(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("mounts", flag.ContinueOnError)
	fs.SetOutput(e.out)
	all := fs.Bool("all", false, "List mounts of every server, not only the configured one")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	server := e.client.Server()
	if *all {
		server = ""
	}
	entries, err := e.store.List(ctx, server)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tPATH\tHANDLE\tMOUNTED")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t0x%016x\t%s\n", entry.Server, entry.ExportPath, entry.Handle, entry.MountedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runInit(args []string, configPath string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Configuration written to %s\n", path)
	return nil
}
