// Package access decides which sections and record actions each role may use.
//
// Grants are kept in RoleTable values written as positional composite
// literals: adding a role to RoleTable without extending every table is a
// compile error. Sections form an explicit parent/child relation; an
// identifier is never matched by prefix.
package access

import "kanisafin/internal/core"

// RoleTable holds one value per role.
type RoleTable[T any] struct {
	Admin      T
	Accountant T
	Elder      T
	Pastor     T
}

// For returns the value for r, or the zero value for an unknown role.
func (t RoleTable[T]) For(r core.Role) T {
	switch r {
	case core.RoleAdmin:
		return t.Admin
	case core.RoleAccountant:
		return t.Accountant
	case core.RoleElder:
		return t.Elder
	case core.RolePastor:
		return t.Pastor
	}
	var zero T
	return zero
}

// Section identifies a navigable part of the application.
type Section string

// Separator joins a parent section identifier to a child suffix.
const Separator = "-"

const (
	Dashboard     Section = "dashboard"
	Expenses      Section = "expenses"
	ExpensesList  Section = "expenses-list"
	ExpensesAdd   Section = "expenses-add"
	Offerings     Section = "offerings"
	OfferingsList Section = "offerings-list"
	OfferingsAdd  Section = "offerings-add"
	Donors        Section = "donors"
	DonorsList    Section = "donors-list"
	DonorsAdd     Section = "donors-add"
	Jengo         Section = "jengo"
	Reports       Section = "reports"
	Admin         Section = "admin"
	Profile       Section = "profile"
)

type sectionInfo struct {
	parent  Section
	title   string
	actions []Action // a child listing actions needs at least one of them
}

var sections = map[Section]sectionInfo{
	Dashboard:     {title: "Dashibodi"},
	Expenses:      {title: "Matumizi"},
	ExpensesList:  {parent: Expenses, title: "Orodha ya Matumizi"},
	ExpensesAdd:   {parent: Expenses, title: "Ongeza Matumizi", actions: []Action{CreateExpense}},
	Offerings:     {title: "Sadaka"},
	OfferingsList: {parent: Offerings, title: "Orodha ya Sadaka"},
	OfferingsAdd:  {parent: Offerings, title: "Rekodi Sadaka", actions: []Action{RecordRegularOffering, RecordEnvelopeOffering}},
	Donors:        {title: "Wahumini"},
	DonorsList:    {parent: Donors, title: "Orodha ya Wahumini"},
	DonorsAdd:     {parent: Donors, title: "Sajili Mhumini", actions: []Action{RegisterDonor}},
	Jengo:         {title: "Ahadi za Jengo"},
	Reports:       {title: "Ripoti"},
	Admin:         {title: "Usimamizi"},
	Profile:       {title: "Wasifu"},
}

// navigation is the menu order: top-level sections, each followed by its children.
var navigation = []Section{
	Dashboard,
	Expenses, ExpensesList, ExpensesAdd,
	Offerings, OfferingsList, OfferingsAdd,
	Donors, DonorsList, DonorsAdd,
	Jengo,
	Reports,
	Admin,
}

var grants = RoleTable[[]Section]{
	// admin
	[]Section{Dashboard, Expenses, Offerings, Donors, Jengo, Reports, Admin, Profile},
	// accountant
	[]Section{Dashboard, Expenses, Offerings, Donors, Reports, Profile},
	// mzee wa kanisa
	[]Section{Dashboard, Offerings, Donors, Jengo, Reports, Profile},
	// pastor
	[]Section{Dashboard, Expenses, Offerings, Donors, Jengo, Reports, Profile},
}

// ParseSection returns the section named s, if it exists.
func ParseSection(s string) (Section, bool) {
	sec := Section(s)
	_, ok := sections[sec]
	return sec, ok
}

// Parent returns the declared parent of s.
func (s Section) Parent() (Section, bool) {
	info, ok := sections[s]
	if !ok || info.parent == "" {
		return "", false
	}
	return info.parent, true
}

func (s Section) Title() string {
	if info, ok := sections[s]; ok {
		return info.title
	}
	return string(s)
}

func (s Section) IsChild() bool {
	_, ok := s.Parent()
	return ok
}

func granted(r core.Role, s Section) bool {
	for _, g := range grants.For(r) {
		if g == s {
			return true
		}
	}
	return false
}

// Permits is the coarse check: s is granted to r, or one of its declared
// ancestors is. Unknown sections are denied.
func Permits(r core.Role, s Section) bool {
	if _, ok := sections[s]; !ok {
		return false
	}
	for cur, ok := s, true; ok; cur, ok = cur.Parent() {
		if granted(r, cur) {
			return true
		}
	}
	return false
}

// CanNavigate is Permits plus the action gate of sections that exist only
// to perform an action, such as expenses-add.
func CanNavigate(r core.Role, s Section) bool {
	if !Permits(r, s) {
		return false
	}
	acts := sections[s].actions
	if len(acts) == 0 {
		return true
	}
	for _, a := range acts {
		if CanPerform(r, a) {
			return true
		}
	}
	return false
}

// Landing keeps current when r may navigate to it and otherwise falls back
// to the dashboard.
func Landing(r core.Role, current Section) Section {
	if CanNavigate(r, current) {
		return current
	}
	return Dashboard
}

// Navigation returns the menu entries r may use, in menu order.
func Navigation(r core.Role) []Section {
	out := make([]Section, 0, len(navigation))
	for _, s := range navigation {
		if CanNavigate(r, s) {
			out = append(out, s)
		}
	}
	return out
}
