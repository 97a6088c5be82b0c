package core

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// JengoPledge is a donor's building-fund commitment with what they paid so far.
// Paid is the sum of Jengo envelope offerings for the envelope number.
type JengoPledge struct {
	EnvelopeNumber string
	DonorName      string
	FellowshipName string
	Pledged        Money
	Paid           Money
	UpdatedAt      time.Time
}

// Remaining never goes below zero; overpayment counts as complete.
func (p JengoPledge) Remaining() Money {
	if p.Paid.Cents >= p.Pledged.Cents {
		return Money{}
	}
	return p.Pledged.Sub(p.Paid)
}

func (p JengoPledge) Complete() bool {
	return p.Pledged.Cents > 0 && p.Paid.Cents >= p.Pledged.Cents
}

// Progress is paid over pledged, capped at 1. A zero pledge has zero progress.
func (p JengoPledge) Progress() float64 {
	if p.Pledged.Cents <= 0 {
		return 0
	}
	r := float64(p.Paid.Cents) / float64(p.Pledged.Cents)
	if r > 1 {
		return 1
	}
	return r
}

// PledgeSummary totals a pledge list for the Jengo page header.
type PledgeSummary struct {
	Pledged   Money
	Paid      Money
	Remaining Money
	Percent   float64
	Complete  int
}

func SummarizePledges(pledges []JengoPledge) PledgeSummary {
	var s PledgeSummary
	for _, p := range pledges {
		s.Pledged = s.Pledged.Add(p.Pledged)
		s.Paid = s.Paid.Add(p.Paid)
		s.Remaining = s.Remaining.Add(p.Remaining())
		if p.Complete() {
			s.Complete++
		}
	}
	if s.Pledged.Cents > 0 {
		s.Percent = float64(s.Paid.Cents) / float64(s.Pledged.Cents) * 100
	}
	return s
}

// LessEnvelope orders envelope numbers numerically, so "2" sorts before "10".
// Non-numeric numbers follow all numeric ones in lexical order.
func LessEnvelope(a, b string) bool {
	ai, aerr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bi, berr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// SortDonors sorts in place by envelope number.
func SortDonors(donors []Donor) {
	sort.SliceStable(donors, func(i, j int) bool {
		return LessEnvelope(donors[i].EnvelopeNumber, donors[j].EnvelopeNumber)
	})
}

// SortPledges sorts in place by envelope number.
func SortPledges(pledges []JengoPledge) {
	sort.SliceStable(pledges, func(i, j int) bool {
		return LessEnvelope(pledges[i].EnvelopeNumber, pledges[j].EnvelopeNumber)
	})
}

// AuditEntry records one change to a financial record.
type AuditEntry struct {
	ID         string
	Entity     string
	Operation  string
	RecordID   string
	Actor      string
	Amount     Money
	OccurredAt time.Time
}
