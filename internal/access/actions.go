package access

import "kanisafin/internal/core"

// Action is a record mutation gated beyond section visibility.
type Action string

const (
	CreateExpense          Action = "expense.create"
	EditExpense            Action = "expense.edit"
	DeleteExpense          Action = "expense.delete"
	RecordRegularOffering  Action = "offering.regular.record"
	RecordEnvelopeOffering Action = "offering.envelope.record"
	EditRegularOffering    Action = "offering.regular.edit"
	DeleteRegularOffering  Action = "offering.regular.delete"
	EditEnvelopeOffering   Action = "offering.envelope.edit"
	DeleteEnvelopeOffering Action = "offering.envelope.delete"
	RegisterDonor          Action = "donor.register"
	EditDonor              Action = "donor.edit"
	EditPledge             Action = "pledge.edit"
	ManageUsers            Action = "users.manage"
)

type actionRule struct {
	section Section
	roles   RoleTable[bool]
}

// Role columns: admin, accountant, mzee wa kanisa, pastor.
var actions = map[Action]actionRule{
	CreateExpense:          {Expenses, RoleTable[bool]{true, true, false, false}},
	EditExpense:            {Expenses, RoleTable[bool]{true, true, false, false}},
	DeleteExpense:          {Expenses, RoleTable[bool]{true, true, false, false}},
	RecordRegularOffering:  {Offerings, RoleTable[bool]{true, true, false, false}},
	RecordEnvelopeOffering: {Offerings, RoleTable[bool]{true, false, true, false}},
	EditRegularOffering:    {Offerings, RoleTable[bool]{true, true, false, false}},
	DeleteRegularOffering:  {Offerings, RoleTable[bool]{true, true, false, false}},
	EditEnvelopeOffering:   {Offerings, RoleTable[bool]{true, false, true, false}},
	DeleteEnvelopeOffering: {Offerings, RoleTable[bool]{true, false, true, false}},
	RegisterDonor:          {Donors, RoleTable[bool]{true, false, true, false}},
	EditDonor:              {Donors, RoleTable[bool]{true, false, true, false}},
	EditPledge:             {Jengo, RoleTable[bool]{true, false, true, false}},
	ManageUsers:            {Admin, RoleTable[bool]{true, false, false, false}},
}

// CanPerform requires both the coarse section grant and the action's own
// role set. Unknown actions are denied.
func CanPerform(r core.Role, a Action) bool {
	rule, ok := actions[a]
	if !ok {
		return false
	}
	return Permits(r, rule.section) && rule.roles.For(r)
}

// Section returns the section an action belongs to.
func (a Action) Section() Section {
	return actions[a].section
}
