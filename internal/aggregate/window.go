// Package aggregate derives dashboard figures from raw transaction lists.
// Every function is pure: inputs are never modified and nothing is cached.
package aggregate

import (
	"time"

	"kanisafin/internal/core"
)

// Range is a dashboard time-range preset.
type Range string

const (
	Last7Days   Range = "7d"
	LastMonth   Range = "1m"
	Last3Months Range = "3m"
	Last6Months Range = "6m"
	AllTime     Range = "all"

	DefaultRange = LastMonth
)

// Ranges lists the presets in selector order.
func Ranges() []Range {
	return []Range{Last7Days, LastMonth, Last3Months, Last6Months, AllTime}
}

// ParseRange falls back to DefaultRange for unknown input.
func ParseRange(s string) Range {
	for _, r := range Ranges() {
		if string(r) == s {
			return r
		}
	}
	return DefaultRange
}

func (r Range) Label() string {
	switch r {
	case Last7Days:
		return "Siku 7"
	case LastMonth:
		return "Mwezi 1"
	case Last3Months:
		return "Miezi 3"
	case Last6Months:
		return "Miezi 6"
	case AllTime:
		return "Zote"
	}
	return string(r)
}

// Epoch is the start of an open-ended window.
var Epoch = core.NewDate(1970, 1, 1)

// Window is an inclusive range of calendar days.
type Window struct {
	From core.Date
	To   core.Date
}

// NewWindow resolves a preset or custom dates against now. When either custom
// date is set the preset is ignored; a missing start is the epoch and a
// missing end is today.
func NewWindow(r Range, customStart, customEnd *core.Date, now time.Time) Window {
	today := core.DateOf(now)
	if customStart != nil || customEnd != nil {
		w := Window{From: Epoch, To: today}
		if customStart != nil && !customStart.IsZero() {
			w.From = *customStart
		}
		if customEnd != nil && !customEnd.IsZero() {
			w.To = *customEnd
		}
		return w
	}
	from := Epoch
	switch r {
	case Last7Days:
		from = core.Date{Time: today.AddDate(0, 0, -7)}
	case LastMonth:
		from = core.Date{Time: today.AddDate(0, -1, 0)}
	case Last3Months:
		from = core.Date{Time: today.AddDate(0, -3, 0)}
	case Last6Months:
		from = core.Date{Time: today.AddDate(0, -6, 0)}
	}
	return Window{From: from, To: today}
}

// Contains reports whether d falls inside the window. The zero date, which
// stands for a missing or unparseable date, is never inside.
func (w Window) Contains(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	return !d.Before(w.From.Time) && !d.After(w.To.Time)
}
