package aggregate

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"kanisafin/internal/core"
)

// Dataset is one load of everything the dashboard reads.
type Dataset struct {
	Expenses  []core.Expense
	Regular   []core.RegularOffering
	Envelopes []core.EnvelopeOffering
	Donors    int
}

// Totals are the headline cards. They cover the whole dataset and never
// depend on the chart window.
type Totals struct {
	Expenses core.Money
	Regular  core.Money
	Envelope core.Money
	Income   core.Money
	Balance  core.Money
	Donors   int
}

func Lifetime(d Dataset) Totals {
	var t Totals
	for _, e := range d.Expenses {
		t.Expenses = t.Expenses.Add(e.Amount)
	}
	for _, o := range d.Regular {
		t.Regular = t.Regular.Add(o.Amount)
	}
	for _, o := range d.Envelopes {
		t.Envelope = t.Envelope.Add(o.Amount)
	}
	t.Income = t.Regular.Add(t.Envelope)
	t.Balance = t.Income.Sub(t.Expenses)
	t.Donors = d.Donors
	return t
}

// Point is one calendar day of the income/expense chart.
type Point struct {
	Date    core.Date
	Label   string
	Income  core.Money
	Expense core.Money
}

// Series sums windowed amounts per calendar day, ascending by date.
func Series(w Window, d Dataset) []Point {
	byDay := map[string]*Point{}
	point := func(day core.Date) *Point {
		key := day.String()
		p, ok := byDay[key]
		if !ok {
			p = &Point{Date: day, Label: day.Format("02 Jan")}
			byDay[key] = p
		}
		return p
	}
	for _, o := range d.Regular {
		if w.Contains(o.Date) {
			p := point(o.Date)
			p.Income = p.Income.Add(o.Amount)
		}
	}
	for _, o := range d.Envelopes {
		if w.Contains(o.Date) {
			p := point(o.Date)
			p.Income = p.Income.Add(o.Amount)
		}
	}
	for _, e := range d.Expenses {
		if w.Contains(e.Date) {
			p := point(e.Date)
			p.Expense = p.Expense.Add(e.Amount)
		}
	}

	out := make([]Point, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Slice is one wedge of the income pie.
type Slice struct {
	Name    string
	Value   core.Money
	Percent float64
}

const (
	SliceRegular  = "Sadaka"
	SliceEnvelope = "Bahasha"
)

// Pie splits windowed income into regular and envelope giving. Percentages
// divide by the sum of both, or by 1 when both are zero.
func Pie(w Window, d Dataset) []Slice {
	var regular, envelope core.Money
	for _, o := range d.Regular {
		if w.Contains(o.Date) {
			regular = regular.Add(o.Amount)
		}
	}
	for _, o := range d.Envelopes {
		if w.Contains(o.Date) {
			envelope = envelope.Add(o.Amount)
		}
	}
	total := regular.Cents + envelope.Cents
	if total == 0 {
		total = 1
	}
	pct := func(m core.Money) float64 { return float64(m.Cents) / float64(total) * 100 }
	return []Slice{
		{Name: SliceRegular, Value: regular, Percent: pct(regular)},
		{Name: SliceEnvelope, Value: envelope, Percent: pct(envelope)},
	}
}

// Direction tells income from expense in the activity feed.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// Activity is one line of the recent activity feed.
type Activity struct {
	Date      core.Date
	Label     string
	Amount    core.Money
	Direction Direction
}

// RecentLimit is how many feed entries the dashboard shows.
const RecentLimit = 5

// Recent merges all transactions, keeps those whose label or amount contains
// query (case-insensitive), and returns the newest limit entries. It ignores
// the chart window. Undated entries sort last.
func Recent(d Dataset, query string, limit int) []Activity {
	all := make([]Activity, 0, len(d.Expenses)+len(d.Regular)+len(d.Envelopes))
	for _, o := range d.Regular {
		all = append(all, Activity{Date: o.Date, Label: string(o.ServiceType), Amount: o.Amount, Direction: Income})
	}
	for _, o := range d.Envelopes {
		all = append(all, Activity{Date: o.Date, Label: "Bahasha #" + o.EnvelopeNumber, Amount: o.Amount, Direction: Income})
	}
	for _, e := range d.Expenses {
		all = append(all, Activity{Date: e.Date, Label: e.Description, Amount: e.Amount, Direction: Expense})
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := all[:0]
	for _, a := range all {
		if q == "" || matches(a, q) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b.Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matches(a Activity, q string) bool {
	if strings.Contains(strings.ToLower(a.Label), q) {
		return true
	}
	if strings.Contains(a.Amount.Plain(), q) {
		return true
	}
	whole := strconv.FormatInt(a.Amount.Cents/100, 10)
	return strings.Contains(whole, q)
}

// Selection is the dashboard's user-controlled state.
type Selection struct {
	Range Range
	Start *core.Date
	End   *core.Date
	Query string
}

// Dashboard is everything the dashboard view renders.
type Dashboard struct {
	Totals Totals
	Range  Range
	Window Window
	Series []Point
	Pie    []Slice
	Recent []Activity
}

// Build runs the lifetime, windowed and feed passes independently.
func Build(d Dataset, sel Selection, now time.Time) Dashboard {
	w := NewWindow(sel.Range, sel.Start, sel.End, now)
	return Dashboard{
		Totals: Lifetime(d),
		Range:  sel.Range,
		Window: w,
		Series: Series(w, d),
		Pie:    Pie(w, d),
		Recent: Recent(d, sel.Query, RecentLimit),
	}
}
