package memory

import (
	"context"
	"errors"
	"testing"

	"kanisafin/internal/core"
)

func seededStore(t *testing.T) (*Store, core.Fellowship) {
	t.Helper()
	s := New("Mt. Petro", "Mt. Paulo", "Mt. Petro")
	fs, _ := s.ListFellowships(context.Background())
	if len(fs) != 2 {
		t.Fatalf("expected 2 deduped fellowships, got %d", len(fs))
	}
	return s, fs[0]
}

func TestDonorsSortedNumericallyWithFellowship(t *testing.T) {
	ctx := context.Background()
	s, f := seededStore(t)
	for _, n := range []string{"10", "2", "33"} {
		if _, err := s.CreateDonor(ctx, core.Donor{EnvelopeNumber: n, FullName: "Mhumini " + n, FellowshipID: f.ID}); err != nil {
			t.Fatalf("create donor %s: %v", n, err)
		}
	}
	donors, err := s.ListDonors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2", "10", "33"}
	for i, d := range donors {
		if d.EnvelopeNumber != want[i] {
			t.Fatalf("donor %d = %s, want %s", i, d.EnvelopeNumber, want[i])
		}
		if d.FellowshipName != f.Name {
			t.Errorf("fellowship = %q, want %q", d.FellowshipName, f.Name)
		}
	}
}

func TestCreateDonorConflict(t *testing.T) {
	ctx := context.Background()
	s, f := seededStore(t)
	d := core.Donor{EnvelopeNumber: "5", FullName: "Asha", FellowshipID: f.ID}
	if _, err := s.CreateDonor(ctx, d); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateDonor(ctx, d)
	var conflict *core.ConflictError
	if !errors.As(err, &conflict) || conflict.Key != "5" {
		t.Fatalf("expected conflict on 5, got %v", err)
	}
}

func TestEnvelopeOfferingRequiresDonor(t *testing.T) {
	ctx := context.Background()
	s, _ := seededStore(t)
	_, err := s.CreateEnvelopeOffering(ctx, core.EnvelopeOffering{
		Date: core.NewDate(2025, 1, 1), EnvelopeNumber: "999", Amount: core.Money{Cents: 100}, Type: core.EnvelopeAhadi,
	})
	var nf *core.DonorNotFoundError
	if !errors.As(err, &nf) || nf.EnvelopeNumber != "999" {
		t.Fatalf("expected donor-not-found for 999, got %v", err)
	}
	list, _ := s.ListEnvelopeOfferings(ctx)
	if len(list) != 0 {
		t.Fatalf("nothing should be persisted, got %d rows", len(list))
	}
}

func TestPledgePaidFromJengoOfferings(t *testing.T) {
	ctx := context.Background()
	s, f := seededStore(t)
	if _, err := s.CreateDonor(ctx, core.Donor{EnvelopeNumber: "7", FullName: "Yusufu", FellowshipID: f.ID}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertPledge(ctx, "7", core.Money{Cents: 100000}); err != nil {
		t.Fatal(err)
	}
	for _, o := range []core.EnvelopeOffering{
		{Date: core.NewDate(2025, 1, 1), EnvelopeNumber: "7", Amount: core.Money{Cents: 70000}, Type: core.EnvelopeJengo},
		{Date: core.NewDate(2025, 2, 1), EnvelopeNumber: "7", Amount: core.Money{Cents: 50000}, Type: core.EnvelopeJengo},
		{Date: core.NewDate(2025, 2, 1), EnvelopeNumber: "7", Amount: core.Money{Cents: 9000}, Type: core.EnvelopeAhadi},
	} {
		if _, err := s.CreateEnvelopeOffering(ctx, o); err != nil {
			t.Fatal(err)
		}
	}
	pledges, err := s.ListPledges(ctx)
	if err != nil || len(pledges) != 1 {
		t.Fatalf("pledges = %v, %v", pledges, err)
	}
	p := pledges[0]
	if p.Paid.Cents != 120000 || !p.Complete() || p.Remaining().Cents != 0 {
		t.Errorf("unexpected pledge %+v", p)
	}
	if p.DonorName != "Yusufu" {
		t.Errorf("donor name = %q", p.DonorName)
	}

	history, _ := s.DonorHistory(ctx, "7")
	if len(history) != 3 || !history[0].Date.Equal(core.NewDate(2025, 2, 1).Time) {
		t.Errorf("history not newest first: %+v", history)
	}
}

func TestUpdateExpenseVersion(t *testing.T) {
	ctx := context.Background()
	s, _ := seededStore(t)
	e, err := s.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 1, 1), Description: "Umeme", Amount: core.Money{Cents: 100}})
	if err != nil {
		t.Fatal(err)
	}
	e.Description = "Umeme Januari"
	updated, err := s.UpdateExpense(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
	if _, err := s.UpdateExpense(ctx, e); !errors.Is(err, core.ErrStaleRecord) {
		t.Errorf("expected stale record, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.CreateUser(ctx, core.NewUser{Email: "Mhasibu@Kanisa.org", FullName: "Mhasibu", Role: core.RoleAccountant, Password: "siri123"})
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.Authenticate(ctx, "mhasibu@kanisa.org", "siri123")
	if err != nil || u.ID != id || !u.MustChangePassword {
		t.Fatalf("authenticate = %+v, %v", u, err)
	}
	if _, err := s.Authenticate(ctx, "mhasibu@kanisa.org", "wrong"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, id, "mpya1234"); err != nil {
		t.Fatal(err)
	}
	u, err = s.Authenticate(ctx, "mhasibu@kanisa.org", "mpya1234")
	if err != nil || u.MustChangePassword {
		t.Fatalf("after change = %+v, %v", u, err)
	}
}
