package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"kanisafin/internal/amqp"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
	"kanisafin/internal/sheets"
)

// AuditStore is where record events become audit rows.
type AuditStore interface {
	AppendAudit(ctx context.Context, e core.AuditEntry) error
}

// AuditWorker consumes record events. Each event is written to the audit
// trail and, when a ledger is configured, mirrored to the spreadsheet.
type AuditWorker struct {
	audit  AuditStore
	ledger sheets.LedgerWriter

	processed atomic.Int64
	mirrored  atomic.Int64
	failed    atomic.Int64
}

// NewAuditWorker builds a worker. ledger may be nil.
func NewAuditWorker(audit AuditStore, ledger sheets.LedgerWriter) *AuditWorker {
	return &AuditWorker{audit: audit, ledger: ledger}
}

// HandleRecordEvent returns an error only when the audit write fails, so the
// delivery is requeued. Audit rows are keyed by event id and a redelivered
// event is written once. Ledger failures are logged and dropped.
func (w *AuditWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	if err := w.audit.AppendAudit(ctx, ev.AuditEntry()); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append audit for %s %s: %w", ev.Entity, ev.RecordID, err)
	}
	w.processed.Add(1)

	slog.InfoContext(ctx, "Audit entry written",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEntity, ev.Entity,
		applog.FieldRecordID, ev.RecordID,
		applog.FieldOperation, string(ev.Operation))

	if w.ledger == nil {
		return nil
	}
	ref, err := w.ledger.AppendLedger(ctx, LedgerLine(ev))
	if err != nil {
		slog.ErrorContext(ctx, "Ledger mirror failed",
			applog.FieldComponent, applog.ComponentSheets,
			applog.FieldError, err,
			applog.FieldRecordID, ev.RecordID)
		return nil
	}
	w.mirrored.Add(1)
	slog.DebugContext(ctx, "Ledger line appended", applog.FieldComponent, applog.ComponentSheets, "ref", ref)
	return nil
}

// LedgerLine converts an event into its spreadsheet row.
func LedgerLine(ev *amqp.RecordEvent) sheets.LedgerLine {
	return sheets.LedgerLine{
		EventID:    ev.ID,
		OccurredAt: ev.Timestamp,
		Entity:     ev.Entity,
		Operation:  string(ev.Operation),
		RecordID:   ev.RecordID,
		Actor:      ev.Actor,
		Date:       ev.Date,
		Label:      ev.Label,
		Amount:     core.Money{Cents: ev.AmountCents},
	}
}

// Stats counts handled events since start.
type Stats struct {
	Processed int64
	Mirrored  int64
	Failed    int64
}

func (w *AuditWorker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Mirrored:  w.mirrored.Load(),
		Failed:    w.failed.Load(),
	}
}
