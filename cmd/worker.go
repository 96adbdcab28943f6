package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/attachment"
	"github.com/satriajat/helpdesk-management/internal/attachment/clamav"
	attachmentdb "github.com/satriajat/helpdesk-management/internal/attachment/postgres"
	"github.com/satriajat/helpdesk-management/internal/audit"
	auditdb "github.com/satriajat/helpdesk-management/internal/audit/postgres"
	"github.com/satriajat/helpdesk-management/internal/storage"
	"github.com/satriajat/helpdesk-management/pkg/logger"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers: malware scanning and attachment retention`,
}

var scannerWorkerCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Start the attachment malware scanner",
	Long:  `Poll for attachments awaiting a scan verdict and stream them through ClamAV`,
	Run: func(cmd *cobra.Command, args []string) {
		startScannerWorker()
	},
}

var retentionWorkerCmd = &cobra.Command{
	Use:   "retention",
	Short: "Start the attachment retention sweeper",
	Long:  `Soft-delete attachments whose retention window has expired and remove their objects from storage`,
	Run: func(cmd *cobra.Command, args []string) {
		startRetentionWorker()
	},
}

func startScannerWorker() {
	runWorker("scanner", func(deps *workerDeps) runnable {
		scanner := clamav.New(
			deps.config.Scanner.ClamAVHost,
			deps.config.Scanner.ClamAVPort,
			deps.config.Scanner.DialTimeout,
		)
		return attachment.NewScanWorker(
			deps.attachments,
			deps.store,
			scanner,
			deps.auditor,
			deps.config.Scanner,
			deps.logger,
		)
	})
}

func startRetentionWorker() {
	runWorker("retention", func(deps *workerDeps) runnable {
		return attachment.NewRetentionSweeper(
			deps.attachments,
			deps.store,
			deps.auditor,
			deps.config.Attachments,
			deps.logger,
		)
	})
}

type runnable interface {
	Run(ctx context.Context) error
}

type workerDeps struct {
	config      *internal.Config
	attachments attachment.Repository
	store       storage.Client
	auditor     audit.Recorder
	logger      *slog.Logger
}

func runWorker(name string, build func(deps *workerDeps) runnable) {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithOptions(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewMinioClient(config.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize object storage: %v\n", err)
		os.Exit(1)
	}

	worker := build(&workerDeps{
		config:      config,
		attachments: attachmentdb.NewRepository(gormDB),
		store:       store,
		auditor:     audit.NewService(auditdb.NewRepository(gormDB), log),
		logger:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())

	workerErrChan := make(chan error, 1)
	go func() {
		workerErrChan <- worker.Run(ctx)
	}()

	log.Info("worker is running. Press Ctrl+C to stop.", "worker", name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down worker", "worker", name, "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		select {
		case <-workerErrChan:
			log.Info("worker shutdown complete", "worker", name)
		case <-shutdownCtx.Done():
			log.Warn("shutdown timeout reached, forcing exit", "worker", name)
		}
	case err := <-workerErrChan:
		cancel()
		if err != nil && err != context.Canceled {
			log.Error("worker stopped with error", "worker", name, "error", err)
			os.Exit(1)
		}
		log.Info("worker stopped", "worker", name)
	}
}

func init() {
	workerCmd.AddCommand(scannerWorkerCmd)
	workerCmd.AddCommand(retentionWorkerCmd)
}
