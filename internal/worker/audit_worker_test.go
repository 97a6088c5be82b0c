package worker

import (
	"context"
	"errors"
	"testing"

	"kanisafin/internal/amqp"
	"kanisafin/internal/core"
	"kanisafin/internal/gateway/memory"
	"kanisafin/internal/sheets"
)

type failingAudit struct{}

func (failingAudit) AppendAudit(context.Context, core.AuditEntry) error {
	return errors.New("disk full")
}

type fakeLedger struct {
	lines []sheets.LedgerLine
	err   error
}

func (l *fakeLedger) AppendLedger(_ context.Context, line sheets.LedgerLine) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.lines = append(l.lines, line)
	return "Ledger!A2:I2", nil
}

func event() *amqp.RecordEvent {
	d, _ := core.ParseDate("2024-04-07")
	return amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityRegularOffering, "r-1", "u-1", core.Money{Cents: 9000000}).
		WithDetail(d, string(core.ServiceSecond))
}

func TestHandleRecordEvent_WritesAuditAndLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := &fakeLedger{}
	w := NewAuditWorker(store, ledger)

	ev := event()
	if err := w.HandleRecordEvent(ctx, ev); err != nil {
		t.Fatalf("HandleRecordEvent() error = %v", err)
	}

	entries, _ := store.ListAudit(ctx, 10)
	if len(entries) != 1 || entries[0].ID != ev.ID || entries[0].Operation != "created" {
		t.Fatalf("audit = %+v", entries)
	}
	if len(ledger.lines) != 1 || ledger.lines[0].Label != string(core.ServiceSecond) || ledger.lines[0].Date != "2024-04-07" {
		t.Fatalf("ledger = %+v", ledger.lines)
	}
	if s := w.Stats(); s.Processed != 1 || s.Mirrored != 1 || s.Failed != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestHandleRecordEvent_AuditFailureRequeues(t *testing.T) {
	ledger := &fakeLedger{}
	w := NewAuditWorker(failingAudit{}, ledger)

	if err := w.HandleRecordEvent(context.Background(), event()); err == nil {
		t.Fatal("expected an error so the delivery is requeued")
	}
	if len(ledger.lines) != 0 {
		t.Error("ledger written although the audit write failed")
	}
	if w.Stats().Failed != 1 {
		t.Errorf("Failed = %d", w.Stats().Failed)
	}
}

func TestHandleRecordEvent_LedgerFailureIsNotFatal(t *testing.T) {
	w := NewAuditWorker(memory.New(), &fakeLedger{err: errors.New("quota exceeded")})
	if err := w.HandleRecordEvent(context.Background(), event()); err != nil {
		t.Fatalf("HandleRecordEvent() error = %v", err)
	}
	if s := w.Stats(); s.Processed != 1 || s.Mirrored != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestHandleRecordEvent_NoLedger(t *testing.T) {
	w := NewAuditWorker(memory.New(), nil)
	if err := w.HandleRecordEvent(context.Background(), event()); err != nil {
		t.Fatalf("HandleRecordEvent() error = %v", err)
	}
}
