package access

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanisafin/internal/core"
)

func TestDeclaredChildrenUseSeparator(t *testing.T) {
	for s := range sections {
		parent, ok := s.Parent()
		if !ok {
			continue
		}
		assert.True(t, strings.HasPrefix(string(s), string(parent)+Separator), "child %s of %s", s, parent)
		_, parentKnown := sections[parent]
		assert.True(t, parentKnown, "parent %s of %s is declared", parent, s)
	}
}

func TestPermitsMatchesGrantOrAllowedParent(t *testing.T) {
	for _, r := range core.Roles() {
		for s := range sections {
			want := granted(r, s)
			if p, ok := s.Parent(); ok && granted(r, p) {
				want = true
			}
			assert.Equal(t, want, Permits(r, s), "role %s section %s", r, s)
		}
	}
}

func TestPermitsNoSubstringMatch(t *testing.T) {
	assert.True(t, Permits(core.RoleAdmin, ExpensesAdd))
	assert.False(t, Permits(core.RoleAdmin, Section("expensesX")))
	assert.False(t, Permits(core.RoleAdmin, Section("expenses-")))
	assert.False(t, Permits(core.RoleAdmin, Section("expenses-archive")))
}

func TestUnknownRoleDenied(t *testing.T) {
	ghost := core.Role("treasurer")
	assert.Empty(t, Navigation(ghost))
	assert.False(t, Permits(ghost, Dashboard))
	assert.False(t, CanPerform(ghost, CreateExpense))
	assert.Equal(t, Dashboard, Landing(ghost, Reports))
}

func TestAccountantBlockedFromJengo(t *testing.T) {
	assert.False(t, CanNavigate(core.RoleAccountant, Jengo))
	assert.Equal(t, Dashboard, Landing(core.RoleAccountant, Jengo))
	assert.Equal(t, Reports, Landing(core.RoleAccountant, Reports))
}

func TestFineGrainedActionsAreConjunctive(t *testing.T) {
	cases := []struct {
		role   core.Role
		action Action
		want   bool
	}{
		{core.RoleAdmin, CreateExpense, true},
		{core.RoleAccountant, CreateExpense, true},
		// pastor sees expenses but may not create them
		{core.RolePastor, CreateExpense, false},
		// mzee has no expenses section at all
		{core.RoleElder, CreateExpense, false},
		{core.RoleElder, RecordEnvelopeOffering, true},
		{core.RoleAccountant, RecordEnvelopeOffering, false},
		{core.RoleAccountant, RecordRegularOffering, true},
		{core.RoleAccountant, EditRegularOffering, true},
		{core.RoleElder, EditRegularOffering, false},
		{core.RoleAccountant, DeleteRegularOffering, true},
		// envelope records belong to admin and mzee only
		{core.RoleElder, EditEnvelopeOffering, true},
		{core.RoleElder, DeleteEnvelopeOffering, true},
		{core.RoleAccountant, EditEnvelopeOffering, false},
		{core.RoleAccountant, DeleteEnvelopeOffering, false},
		{core.RolePastor, DeleteEnvelopeOffering, false},
		{core.RoleElder, RegisterDonor, true},
		{core.RolePastor, RegisterDonor, false},
		// accountant lacks jengo, so no pledge edits
		{core.RoleAccountant, EditPledge, false},
		{core.RoleElder, EditPledge, true},
		{core.RoleAdmin, ManageUsers, true},
		{core.RolePastor, ManageUsers, false},
		{core.RoleAdmin, Action("expense.archive"), false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+string(tc.action), func(t *testing.T) {
			assert.Equal(t, tc.want, CanPerform(tc.role, tc.action))
		})
	}
}

func TestAddSectionsNeedAnAction(t *testing.T) {
	assert.True(t, Permits(core.RolePastor, ExpensesAdd))
	assert.False(t, CanNavigate(core.RolePastor, ExpensesAdd))
	assert.True(t, CanNavigate(core.RolePastor, ExpensesList))

	assert.True(t, CanNavigate(core.RoleElder, OfferingsAdd))
	assert.True(t, CanNavigate(core.RoleAccountant, OfferingsAdd))
	assert.False(t, CanNavigate(core.RolePastor, OfferingsAdd))
	assert.False(t, CanNavigate(core.RoleAccountant, DonorsAdd))
}

func TestNavigationOrder(t *testing.T) {
	nav := Navigation(core.RoleElder)
	require.NotEmpty(t, nav)
	assert.Equal(t, Dashboard, nav[0])
	assert.NotContains(t, nav, Expenses)
	assert.NotContains(t, nav, Admin)
	assert.Contains(t, nav, Jengo)
	assert.Contains(t, nav, DonorsAdd)

	for _, r := range core.Roles() {
		for _, s := range Navigation(r) {
			assert.True(t, CanNavigate(r, s))
		}
	}
}

func TestParseSection(t *testing.T) {
	s, ok := ParseSection("donors-list")
	require.True(t, ok)
	assert.Equal(t, DonorsList, s)
	assert.Equal(t, Donors, func() Section { p, _ := s.Parent(); return p }())

	_, ok = ParseSection("../etc")
	assert.False(t, ok)
}
