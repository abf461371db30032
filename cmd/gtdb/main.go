// Command gtdb builds and inspects ground-truth object databases for
// augmentation sampling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/banshee-data/gtdb/internal/logging"
	"github.com/banshee-data/gtdb/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return
	}
	logger, _ := logging.New(logging.Options{})
	logging.Ops(logger).Error("gtdb failed", zap.Error(err))
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errors.New("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "create":
		return runCreate(ctx, rest, stdout)
	case "info":
		return runInfo(ctx, rest, stdout)
	case "filter":
		return runFilter(rest, stdout)
	case "catalog":
		return runCatalog(ctx, rest, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `gtdb - ground-truth database builder for point cloud augmentation

Usage: gtdb <command> [options]

Commands:
  create     Extract every annotated object into a ground-truth database
  info       Report per-class object counts without writing anything
  filter     Drop entries from an index by point count or difficulty
  catalog    List recorded builds, query their entries or count their classes
  version    Show gtdb version
  help       Show this help message

Settings are read from -config (json, yaml or toml), GTDB_* environment
variables and flags, with flags taking precedence.

Examples:
  # Build a 10-sweep nuScenes database with 8 workers
  gtdb create -data-root /data/nuscenes -info-path /data/nuscenes/infos_train_10sweeps_withvelo_filter_True.json -nsweeps 10 -workers 8

  # Upload object blobs to S3 and record the run
  gtdb create -config gtdb.yaml -blob-url s3://gt-bucket/nusc -catalog gtdb.db

  # Keep cars with at least 5 points
  gtdb filter -in dbinfos_train.json -out dbinfos_filtered.json -min-points car=5`)
}
