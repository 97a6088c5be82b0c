// Package report builds the filtered, totaled tables behind the reports page.
package report

import (
	"context"
	"fmt"
	"time"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
)

// Kind selects which list a report is built from.
type Kind string

const (
	Envelope Kind = "envelope"
	Regular  Kind = "regular"
	Expenses Kind = "expenses"
	Jengo    Kind = "jengo"
)

// Kinds lists every report kind in selector order.
func Kinds() []Kind {
	return []Kind{Envelope, Regular, Expenses, Jengo}
}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func (k Kind) Title() string {
	switch k {
	case Envelope:
		return "Sadaka za Bahasha"
	case Regular:
		return "Sadaka za Ibada"
	case Expenses:
		return "Matumizi"
	case Jengo:
		return "Ahadi za Jengo"
	}
	return string(k)
}

// UsesDates is false for the pledge snapshot.
func (k Kind) UsesDates() bool { return k != Jengo }

// UsesFellowship is true where rows carry a fellowship name.
func (k Kind) UsesFellowship() bool { return k == Envelope || k == Jengo }

// Role columns: admin, accountant, mzee wa kanisa, pastor.
var available = access.RoleTable[[]Kind]{
	[]Kind{Envelope, Regular, Expenses, Jengo},
	[]Kind{Regular, Expenses, Jengo},
	[]Kind{Envelope},
	[]Kind{Envelope, Regular, Expenses, Jengo},
}

// Available returns the report kinds r may generate.
func Available(r core.Role) []Kind {
	return available.For(r)
}

// Allowed reports whether r may generate k.
func Allowed(r core.Role, k Kind) bool {
	for _, a := range Available(r) {
		if a == k {
			return true
		}
	}
	return false
}

// DefaultKind is the kind preselected for r, or "" when r has none.
// Envelope comes first wherever it is available.
func DefaultKind(r core.Role) Kind {
	if Allowed(r, Envelope) {
		return Envelope
	}
	if kinds := Available(r); len(kinds) > 0 {
		return kinds[0]
	}
	return ""
}

// Filter is the report parameter set. Fields that do not apply to the
// selected kind are ignored.
type Filter struct {
	Start        core.Date
	End          core.Date
	FellowshipID string
	EnvelopeType core.EnvelopeType // empty means all
	ServiceType  core.ServiceType  // empty means all
}

// Default report bounds when a date is left empty.
var (
	DefaultStart = core.NewDate(1970, 1, 1)
	DefaultEnd   = core.NewDate(2100, 1, 1)
)

func (f Filter) bounds() (core.Date, core.Date) {
	start, end := f.Start, f.End
	if start.IsZero() {
		start = DefaultStart
	}
	if end.IsZero() {
		end = DefaultEnd
	}
	return start, end
}

func (f Filter) inRange(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	start, end := f.bounds()
	return !d.Before(start.Time) && !d.After(end.Time)
}

// Source is the read side of the data gateway a report needs.
type Source interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListRegularOfferings(ctx context.Context) ([]core.RegularOffering, error)
	ListEnvelopeOfferings(ctx context.Context) ([]core.EnvelopeOffering, error)
	ListPledges(ctx context.Context) ([]core.JengoPledge, error)
	ListFellowships(ctx context.Context) ([]core.Fellowship, error)
}

// Report is a generated dataset with its totals. Exactly one of the row
// slices is populated, matching Kind.
type Report struct {
	Kind        Kind
	Filter      Filter
	Fellowship  string
	GeneratedAt time.Time

	Expenses  []core.Expense
	Regular   []core.RegularOffering
	Envelopes []core.EnvelopeOffering
	Pledges   []core.JengoPledge

	// Total is the headline figure: amounts, or paid amounts for pledges.
	Total core.Money
	// Pledged is the secondary figure of the pledge report.
	Pledged core.Money
}

// Len is the number of rows.
func (r *Report) Len() int {
	return len(r.Expenses) + len(r.Regular) + len(r.Envelopes) + len(r.Pledges)
}

// Empty selects the no-data placeholder.
func (r *Report) Empty() bool { return r.Len() == 0 }

// Generate fetches the full list for kind and applies every filter that
// applies to it.
func Generate(ctx context.Context, src Source, kind Kind, f Filter, now time.Time) (*Report, error) {
	rep := &Report{Kind: kind, Filter: f, GeneratedAt: now}

	fellowship := ""
	if kind.UsesFellowship() && f.FellowshipID != "" {
		fs, err := src.ListFellowships(ctx)
		if err != nil {
			return nil, fmt.Errorf("list fellowships: %w", err)
		}
		fellowship = resolveFellowship(fs, f.FellowshipID)
		rep.Fellowship = fellowship
	}
	matchFellowship := func(name string) bool {
		if f.FellowshipID == "" {
			return true
		}
		// an unknown id resolves to "" and matches nothing
		return fellowship != "" && name == fellowship
	}

	switch kind {
	case Envelope:
		rows, err := src.ListEnvelopeOfferings(ctx)
		if err != nil {
			return nil, fmt.Errorf("list envelope offerings: %w", err)
		}
		for _, o := range rows {
			if !f.inRange(o.Date) || !matchFellowship(o.FellowshipName) {
				continue
			}
			if f.EnvelopeType != "" && o.Type != f.EnvelopeType {
				continue
			}
			rep.Envelopes = append(rep.Envelopes, o)
			rep.Total = rep.Total.Add(o.Amount)
		}
	case Regular:
		rows, err := src.ListRegularOfferings(ctx)
		if err != nil {
			return nil, fmt.Errorf("list regular offerings: %w", err)
		}
		for _, o := range rows {
			if !f.inRange(o.Date) {
				continue
			}
			if f.ServiceType != "" && o.ServiceType != f.ServiceType {
				continue
			}
			rep.Regular = append(rep.Regular, o)
			rep.Total = rep.Total.Add(o.Amount)
		}
	case Expenses:
		rows, err := src.ListExpenses(ctx)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		for _, e := range rows {
			if !f.inRange(e.Date) {
				continue
			}
			rep.Expenses = append(rep.Expenses, e)
			rep.Total = rep.Total.Add(e.Amount)
		}
	case Jengo:
		rows, err := src.ListPledges(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pledges: %w", err)
		}
		for _, p := range rows {
			if !matchFellowship(p.FellowshipName) {
				continue
			}
			rep.Pledges = append(rep.Pledges, p)
			rep.Total = rep.Total.Add(p.Paid)
			rep.Pledged = rep.Pledged.Add(p.Pledged)
		}
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	return rep, nil
}

func resolveFellowship(fs []core.Fellowship, id string) string {
	for _, f := range fs {
		if f.ID == id {
			return f.Name
		}
	}
	return ""
}
