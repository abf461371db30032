package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/banshee-data/gtdb/internal/config"
	"github.com/banshee-data/gtdb/internal/logging"
)

// datasetKeys maps the dataset flags shared by create and info onto config
// keys.
var datasetKeys = map[string]string{
	"family":         "family",
	"data-root":      "data_root",
	"info-path":      "info_path",
	"classes":        "classes",
	"nsweeps":        "nsweeps",
	"num-features":   "num_features",
	"max-frames":     "max_frames",
	"progress-every": "progress_every",
	"report-png":     "report_png",
	"report-html":    "report_html",
	"log-level":      "log.level",
	"log-encoding":   "log.encoding",
}

// createKeys adds the flags that only affect a build.
var createKeys = map[string]string{
	"db-path":         "db_path",
	"index-path":      "index_path",
	"absolute-paths":  "absolute_paths",
	"virtual":         "virtual",
	"sensor":          "sensor",
	"workers":         "workers",
	"format":          "format",
	"catalog":         "catalog",
	"blob-url":        "blob.url",
	"blob-region":     "blob.region",
	"blob-endpoint":   "blob.endpoint",
	"puts-per-second": "blob.puts_per_second",
}

// configFlags registers the config-backed flags of a command. Defaults live
// in the config package, so flag defaults here are zero values and only flags
// that were set override the lower layers.
type configFlags struct {
	fs   *flag.FlagSet
	path *string
	keys map[string]string
}

func newConfigFlags(fs *flag.FlagSet, withBuild bool) *configFlags {
	cf := &configFlags{
		fs:   fs,
		path: fs.String("config", "", "Config file (.json, .yaml, .yml or .toml)"),
		keys: make(map[string]string, len(datasetKeys)+len(createKeys)),
	}
	for k, v := range datasetKeys {
		cf.keys[k] = v
	}

	fs.String("family", "", "Dataset family: NUSC, WAYMO or NIA (default NUSC)")
	fs.String("data-root", "", "Dataset root directory")
	fs.String("info-path", "", "Infos file describing the frames")
	fs.String("classes", "", "Comma-separated class allow-list")
	fs.Int("nsweeps", 0, "Sweeps aggregated per frame (default 1)")
	fs.Int("num-features", 0, "Channels per point in the .bin files (default 5)")
	fs.Int("max-frames", 0, "Process only the first N frames")
	fs.Int("progress-every", 0, "Log progress every N frames")
	fs.String("report-png", "", "Write a class distribution bar chart (png, svg or pdf)")
	fs.String("report-html", "", "Write an interactive class distribution page")
	fs.String("log-level", "", "Log level: debug, info, warn or error")
	fs.String("log-encoding", "", "Log encoding: console or json")

	if withBuild {
		for k, v := range createKeys {
			cf.keys[k] = v
		}
		fs.String("db-path", "", "Object blob directory (default derived from the family)")
		fs.String("index-path", "", "Index file (default derived from the family)")
		fs.Bool("absolute-paths", false, "Store absolute blob locations in the index")
		fs.Bool("virtual", false, "Name outputs for a virtual-point dataset")
		fs.String("sensor", "", "Sensor name used by sensor-named families")
		fs.Int("workers", 0, "Parallel extraction workers (default 4)")
		fs.String("format", "", "Index format: json, zstd or lz4")
		fs.String("catalog", "", "SQLite catalog recording the run")
		fs.String("blob-url", "", "Remote blob prefix, s3://bucket/prefix or minio://bucket/prefix")
		fs.String("blob-region", "", "Object store region")
		fs.String("blob-endpoint", "", "Object store endpoint")
		fs.Float64("puts-per-second", 0, "Limit blob uploads per second")
	}
	return cf
}

// load parses args and resolves the configuration and logger.
func (cf *configFlags) load(args []string) (*config.Config, *zap.Logger, error) {
	if err := cf.fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if cf.fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", cf.fs.Args())
	}
	cfg, err := config.Load(*cf.path, config.FlagOverrides(cf.fs, cf.keys))
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogOptions())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// parseMinPoints parses "car=5,bus=10".
func parseMinPoints(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range splitList(s) {
		class, n, ok := strings.Cut(part, "=")
		if !ok || class == "" {
			return nil, fmt.Errorf("invalid min points %q (want class=n)", part)
		}
		v, err := strconv.Atoi(n)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid min points for %s: %q", class, n)
		}
		out[class] = v
	}
	return out, nil
}

// parseInts parses "-1,0".
func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
