// Package gateway defines the data backend the application talks to. Each
// store maps one entity to fetch-all, create, update and delete calls; the
// auth procedures live on UserStore.
package gateway

import (
	"context"

	"kanisafin/internal/core"
)

type (
	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// UpdateExpense fails with core.ErrStaleRecord when e.Version is not current.
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	RegularOfferingStore interface {
		ListRegularOfferings(ctx context.Context) ([]core.RegularOffering, error)
		CreateRegularOffering(ctx context.Context, o core.RegularOffering) (core.RegularOffering, error)
		UpdateRegularOffering(ctx context.Context, o core.RegularOffering) (core.RegularOffering, error)
		DeleteRegularOffering(ctx context.Context, id string) error
	}

	// EnvelopeOfferingStore reads are joined with the donor and fellowship names.
	EnvelopeOfferingStore interface {
		ListEnvelopeOfferings(ctx context.Context) ([]core.EnvelopeOffering, error)
		CreateEnvelopeOffering(ctx context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error)
		UpdateEnvelopeOffering(ctx context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error)
		DeleteEnvelopeOffering(ctx context.Context, id string) error
	}

	// DonorStore lists donors ordered numerically by envelope number.
	DonorStore interface {
		ListDonors(ctx context.Context) ([]core.Donor, error)
		// GetDonor returns *core.DonorNotFoundError for an unknown number.
		GetDonor(ctx context.Context, envelopeNumber string) (core.Donor, error)
		// CreateDonor returns *core.ConflictError for a taken envelope number.
		CreateDonor(ctx context.Context, d core.Donor) (core.Donor, error)
		UpdateDonor(ctx context.Context, d core.Donor) (core.Donor, error)
	}

	FellowshipStore interface {
		ListFellowships(ctx context.Context) ([]core.Fellowship, error)
	}

	// PledgeStore computes paid amounts from Jengo envelope offerings.
	PledgeStore interface {
		ListPledges(ctx context.Context) ([]core.JengoPledge, error)
		UpsertPledge(ctx context.Context, envelopeNumber string, amount core.Money) error
		DonorHistory(ctx context.Context, envelopeNumber string) ([]core.EnvelopeOffering, error)
	}

	// UserStore holds accounts and the authentication procedures.
	UserStore interface {
		// Authenticate returns core.ErrInvalidCredentials for any mismatch.
		Authenticate(ctx context.Context, email, password string) (core.User, error)
		ChangePassword(ctx context.Context, userID, password string) error
		ListUsers(ctx context.Context) ([]core.User, error)
		CreateUser(ctx context.Context, u core.NewUser) (string, error)
		DeleteUser(ctx context.Context, id string) error
	}

	AuditStore interface {
		AppendAudit(ctx context.Context, e core.AuditEntry) error
		ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error)
	}
)

// Gateway is the full backend surface.
type Gateway interface {
	ExpenseStore
	RegularOfferingStore
	EnvelopeOfferingStore
	DonorStore
	FellowshipStore
	PledgeStore
	UserStore
	AuditStore
}
