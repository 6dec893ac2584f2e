package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/app"
	"github.com/kailas-cloud/prodsearch/internal/config"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	productrepo "github.com/kailas-cloud/prodsearch/internal/repository/product"
	"github.com/kailas-cloud/prodsearch/internal/usecase/ingest"
	"github.com/kailas-cloud/prodsearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "prodsearch-ingest",
		Usage:   "Load a product catalog into the hybrid search index",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: config/<ENV>.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Embed and index every product of a CSV feed",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "CSV feed with id,title,brand,description,category,price,rating columns",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent embed+write batches",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Products per embedding request",
					},
					&cli.IntFlag{
						Name:  "report-every",
						Usage: "Log progress every N rows",
					},
					&cli.BoolFlag{
						Name:  "recreate-index",
						Usage: "Drop and recreate the search index before loading",
					},
				},
			},
			{
				Name:   "create-index",
				Usage:  "Create the product search index",
				Action: createIndexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "recreate",
						Usage: "Drop the existing index first (product records are kept)",
					},
				},
			},
		},
	}
}

// env bundles what every command needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

func setup(c *cli.Context) (*env, error) {
	name := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(name)
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("load config: %v", err), 2)
	}

	level := cfg.Logging.Level
	if l := c.String("log-level"); l != "" {
		level = l
	}
	logger, err := logpkg.NewLogger(name, level)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("create logger: %v", err), 2)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// ingestSettings merges command flags over the ingest config section.
func ingestSettings(c *cli.Context, ic config.IngestConfig) (string, ingest.Config) {
	file := ic.File
	if f := c.String("file"); f != "" {
		file = f
	}
	out := ingest.Config{
		Workers:     ic.Workers,
		BatchSize:   ic.BatchSize,
		ReportEvery: ic.ReportEvery,
	}
	if n := c.Int("workers"); n > 0 {
		out.Workers = n
	}
	if n := c.Int("batch-size"); n > 0 {
		out.BatchSize = n
	}
	if n := c.Int("report-every"); n > 0 {
		out.ReportEvery = n
	}
	return file, out
}

func ingestCommand(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	file, ingestCfg := ingestSettings(c, e.cfg.Ingest)
	if file == "" {
		return cli.Exit("no feed file: pass --file or set ingest.file", 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, e.cfg.Database)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer store.Close()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	indexRepo, err := app.IndexRepo(store, &e.cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if _, err := indexRepo.EnsureIndex(ctx, c.Bool("recreate-index")); err != nil {
		return cli.Exit(fmt.Sprintf("ensure index: %v", err), 1)
	}

	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open feed: %v", err), 2)
	}
	defer func() { _ = f.Close() }()

	embedder, _ := app.BuildEmbedder(store, &e.cfg, e.logger)
	writer := productrepo.New(store, app.Keyspace(&e.cfg), e.logger)
	svc := ingest.New(writer, embedder, ingestCfg, e.logger)

	e.logger.Info("Ingestion started",
		zap.String("file", file),
		zap.Int("workers", ingestCfg.Workers),
		zap.Int("batch_size", ingestCfg.BatchSize),
	)

	start := time.Now()
	stats, err := svc.Run(ctx, f)
	e.logger.Info("Ingestion finished",
		zap.Int64("read", stats.Read),
		zap.Int64("indexed", stats.Indexed),
		zap.Int64("invalid", stats.Invalid),
		zap.Int64("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ingest: %v", err), 1)
	}
	if stats.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d products failed to index", stats.Failed), 1)
	}
	return nil
}

func createIndexCommand(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.logger.Sync() }()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := app.OpenStore(ctx, e.cfg.Database)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer store.Close()

	indexRepo, err := app.IndexRepo(store, &e.cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	created, err := indexRepo.EnsureIndex(ctx, c.Bool("recreate"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("ensure index: %v", err), 1)
	}
	e.logger.Info("Product index ready",
		zap.String("index", app.Keyspace(&e.cfg).IndexName()),
		zap.Bool("created", created),
	)
	return nil
}
