// Package sheets defines the optional spreadsheet mirror of the ledger.
package sheets

import (
	"context"
	"time"

	"kanisafin/internal/core"
)

// LedgerLine is one row of the mirrored ledger: a single committed change.
type LedgerLine struct {
	EventID    string
	OccurredAt time.Time
	Entity     string
	Operation  string
	RecordID   string
	Actor      string
	Date       string
	Label      string
	Amount     core.Money
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendLedger(ctx context.Context, line LedgerLine) (rowRef string, err error)
	}

	LedgerReader interface {
		ReadLedger(ctx context.Context) ([]LedgerLine, error)
	}
)
