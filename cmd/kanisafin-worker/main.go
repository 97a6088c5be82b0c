package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"kanisafin/internal/amqp"
	"kanisafin/internal/cli"
	"kanisafin/internal/config"
	applog "kanisafin/internal/log"
	"kanisafin/internal/sheets"
	gsheet "kanisafin/internal/sheets/google"
	"kanisafin/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting kanisafin-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		ledger = client
		logger.Info("Ledger mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Ledger mirror disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	w := worker.NewAuditWorker(repo, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) { cancel() })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeRecordEvents(gctx, w.HandleRecordEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := w.Stats()
				logger.Info("Worker stats", "processed", st.Processed, "mirrored", st.Mirrored, "failed", st.Failed)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		cancel()
	}

	select {
	case <-sigCtx.Done():
		<-done
	default:
	}
	st := w.Stats()
	logger.Info("Worker stopped", "processed", st.Processed, "mirrored", st.Mirrored, "failed", st.Failed)
}
