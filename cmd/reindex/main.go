// Package main 提供全量重建题目索引的命令行工具。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"problem-search-go/internal/backend"
	"problem-search-go/internal/config"
	"problem-search-go/internal/pipeline"
	"problem-search-go/internal/repository"
	"problem-search-go/internal/service"
	"problem-search-go/pkg/database"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/storage"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		domainID   string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the problem search index from MySQL",
		Long: `Purge the problem index (one domain or everything) and rebuild it
from the problem table. Progress is printed every reindex.report_every problems.
A failed run leaves the index partially rebuilt; run it again.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Reindex.Workers = workers
			}
			log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, domainID, cmd)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.ConfigPath(), "config file path (env PSEARCH_CONFIG)")
	cmd.Flags().StringVar(&domainID, "domain", "", "rebuild only this domain (default: all domains)")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent index writers")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, domainID string, cmd *cobra.Command) error {
	db, err := database.InitMySQL(cfg.Database.MySQL)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	searchBackend, closeBackend, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	normalizer, err := pipeline.NewNormalizer(cfg.Elasticsearch.IndexOmit)
	if err != nil {
		return err
	}
	problemRepo := repository.NewProblemRepository(db, cfg.Reindex.BatchSize)
	total, err := problemRepo.Count(ctx, domainID)
	if err != nil {
		return fmt.Errorf("count problems: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d problems to index\n", total)

	reindexer := pipeline.NewReindexer(
		problemRepo,
		searchBackend, normalizer,
		pipeline.ReindexOptions{ReportEvery: cfg.Reindex.ReportEvery, Workers: cfg.Reindex.Workers},
	)

	var archiver service.ReportArchiver
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewReportStore(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		archiver = store
	}

	report, err := service.NewReindexService(reindexer, archiver).Reindex(ctx, domainID,
		pipeline.ReporterFunc(func(message string) { fmt.Fprintln(out, message) }))
	if err != nil {
		return fmt.Errorf("reindex %s failed: %w", report.Scope, err)
	}
	fmt.Fprintf(out, "reindex %s finished\n", report.Scope)
	if report.ArchiveObject != "" {
		fmt.Fprintf(out, "report archived to %s\n", report.ArchiveObject)
	}
	return nil
}
