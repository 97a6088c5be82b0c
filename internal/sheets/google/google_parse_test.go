package google

import (
	"testing"
	"time"

	"kanisafin/internal/core"
	"kanisafin/internal/sheets"
)

func TestParseLedger_RoundTrip(t *testing.T) {
	occurred := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)
	line := sheets.LedgerLine{
		EventID:    "ev-1",
		OccurredAt: occurred,
		Entity:     "envelope_offering",
		Operation:  "created",
		RecordID:   "o-1",
		Actor:      "u-1",
		Date:       "2024-06-02",
		Label:      "Bahasha #12",
		Amount:     core.Money{Cents: 2500050},
	}

	header := make([]any, len(ledgerHeader))
	for i, h := range ledgerHeader {
		header[i] = h
	}
	lines, err := parseLedger([][]any{header, lineToRow(line)})
	if err != nil {
		t.Fatalf("parseLedger() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	got := lines[0]
	if got.EventID != "ev-1" || got.Label != "Bahasha #12" || !got.OccurredAt.Equal(occurred) {
		t.Errorf("line = %+v", got)
	}
	if got.Amount.Cents != 2500050 {
		t.Errorf("Amount = %d, want 2500050", got.Amount.Cents)
	}
}

func TestParseLedger_ReorderedColumnsAndBlankRows(t *testing.T) {
	values := [][]any{
		{"Amount", "Event", "Entity", "Operation", "Record", "Actor", "Date", "Label", "Occurred"},
		{"1,200.5", "ev-2", "expense", "deleted", "e-9", "u-2", "", "", "not a time"},
		{"", "", "", "", "", "", "", "", ""},
	}
	lines, err := parseLedger(values)
	if err != nil {
		t.Fatalf("parseLedger() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Amount.Cents != 120050 || !lines[0].OccurredAt.IsZero() {
		t.Errorf("line = %+v", lines[0])
	}
}

func TestParseLedger_MissingHeader(t *testing.T) {
	if _, err := parseLedger([][]any{{"Event", "Amount"}}); err == nil {
		t.Fatal("expected an error for a sheet without the ledger header")
	}
}

func TestParseShillingsToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"15000", 1500000, true},
		{"1,500.25", 150025, true},
		{"-20", -2000, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseShillingsToCents(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseShillingsToCents(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
