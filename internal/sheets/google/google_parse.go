package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kanisafin/internal/core"
	"kanisafin/internal/sheets"
)

// ledgerHeader is the first row of the ledger sheet, in column order A..I.
var ledgerHeader = []string{"Event", "Occurred", "Entity", "Operation", "Record", "Actor", "Date", "Label", "Amount"}

func lineToRow(l sheets.LedgerLine) []any {
	return []any{
		l.EventID,
		l.OccurredAt.UTC().Format(time.RFC3339),
		l.Entity,
		l.Operation,
		l.RecordID,
		l.Actor,
		l.Date,
		l.Label,
		l.Amount.Shillings(),
	}
}

// parseLedger converts a values matrix, header first, into ledger lines.
// Columns are located by header name so reordered sheets still parse.
func parseLedger(values [][]any) ([]sheets.LedgerLine, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(ledgerHeader))
	var missing []string
	for _, h := range ledgerHeader {
		idx := indexOf(headers, h)
		if idx == -1 {
			missing = append(missing, h)
		}
		cols[h] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected ledger header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]sheets.LedgerLine, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := strings.TrimSpace(safeGet(row, cols["Event"]))
		if id == "" {
			continue
		}
		line := sheets.LedgerLine{
			EventID:   id,
			Entity:    safeGet(row, cols["Entity"]),
			Operation: safeGet(row, cols["Operation"]),
			RecordID:  safeGet(row, cols["Record"]),
			Actor:     safeGet(row, cols["Actor"]),
			Date:      safeGet(row, cols["Date"]),
			Label:     safeGet(row, cols["Label"]),
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(safeGet(row, cols["Occurred"]))); err == nil {
			line.OccurredAt = t
		}
		if cents, ok := parseShillingsToCents(safeGet(row, cols["Amount"])); ok {
			line.Amount = core.Money{Cents: cents}
		}
		out = append(out, line)
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseShillingsToCents reads an amount cell. Sheets may render thousands
// separators, so those are stripped before parsing.
func parseShillingsToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < 0 {
		return int64(f*100.0 - 0.5), true
	}
	return int64(f*100.0 + 0.5), true
}
