package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"kanisafin/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("error = %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("error = %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet", sheetName: "Ledger"}
	if _, err := c.AppendLedger(context.Background(), sheets.LedgerLine{EventID: "x"}); err == nil {
		t.Error("AppendLedger() should fail without a service")
	}
	if _, err := c.ReadLedger(context.Background()); err == nil {
		t.Error("ReadLedger() should fail without a service")
	}
}

func TestClient_Columns(t *testing.T) {
	c := &Client{sheetName: "Ledger"}
	if got := c.columns(); got != "Ledger!A:I" {
		t.Errorf("columns() = %q", got)
	}
}
