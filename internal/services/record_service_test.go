package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"kanisafin/internal/amqp"
	"kanisafin/internal/core"
	"kanisafin/internal/gateway"
	"kanisafin/internal/gateway/memory"
	"kanisafin/internal/report"
)

// untouchable panics on any backend call.
type untouchable struct{ gateway.Gateway }

type spyPublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
}

func (p *spyPublisher) PublishRecordEvent(_ context.Context, ev *amqp.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var (
	admin      = core.User{ID: "admin-1", Role: core.RoleAdmin}
	accountant = core.User{ID: "acc-1", Role: core.RoleAccountant}
	elder      = core.User{ID: "mzee-1", Role: core.RoleElder}
	pastor     = core.User{ID: "pastor-1", Role: core.RolePastor}
)

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newService(t *testing.T) (*RecordService, *memory.Store, *spyPublisher, core.Fellowship) {
	t.Helper()
	store := memory.New("Mt. Petro", "Mt. Paulo")
	fs, err := store.ListFellowships(context.Background())
	if err != nil || len(fs) == 0 {
		t.Fatalf("fellowships: %v", err)
	}
	pub := &spyPublisher{}
	return NewRecordService(store, pub), store, pub, fs[0]
}

func TestForbiddenNeverReachesGateway(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(untouchable{}, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"elder creates expense", func() error {
			_, err := svc.CreateExpense(ctx, elder, core.Expense{})
			return err
		}},
		{"pastor edits expense", func() error {
			_, err := svc.UpdateExpense(ctx, pastor, core.Expense{})
			return err
		}},
		{"elder records regular offering", func() error {
			_, err := svc.RecordRegularOffering(ctx, elder, core.RegularOffering{})
			return err
		}},
		{"elder corrects regular offering", func() error {
			_, err := svc.UpdateRegularOffering(ctx, elder, core.RegularOffering{})
			return err
		}},
		{"accountant records envelope", func() error {
			_, err := svc.RecordEnvelopeOffering(ctx, accountant, core.EnvelopeOffering{})
			return err
		}},
		{"accountant corrects envelope", func() error {
			_, err := svc.UpdateEnvelopeOffering(ctx, accountant, core.EnvelopeOffering{})
			return err
		}},
		{"accountant deletes envelope", func() error {
			return svc.DeleteEnvelopeOffering(ctx, accountant, "x")
		}},
		{"elder deletes regular offering", func() error {
			return svc.DeleteRegularOffering(ctx, elder, "x")
		}},
		{"accountant registers donor", func() error {
			_, err := svc.RegisterDonor(ctx, accountant, core.Donor{})
			return err
		}},
		{"pastor edits pledge", func() error {
			return svc.SetPledge(ctx, pastor, "1", core.Money{})
		}},
		{"accountant deletes user", func() error {
			return svc.DeleteUser(ctx, accountant, "x")
		}},
		{"elder report on expenses", func() error {
			return svc.GenerateReport(ctx, elder, report.NewState(report.Expenses))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrForbidden) {
				t.Errorf("error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestValidationRunsBeforeGateway(t *testing.T) {
	svc := NewRecordService(untouchable{}, nil)
	_, err := svc.CreateExpense(context.Background(), accountant, core.Expense{Description: "  "})

	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *core.ValidationError", err)
	}
	for _, field := range []string{"date", "description", "amount"} {
		if verr.Fields[field] == nil {
			t.Errorf("missing field error for %s", field)
		}
	}
}

func TestCreateExpensePublishes(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, _ := newService(t)

	saved, err := svc.CreateExpense(ctx, accountant, core.Expense{
		Date:        date(t, "2024-05-01"),
		Description: " Umeme ",
		Amount:      core.Money{Cents: 5000000},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if saved.ID == "" || saved.Description != "Umeme" || saved.CreatedBy != accountant.ID {
		t.Errorf("saved = %+v", saved)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Operation != amqp.OpCreated || ev.Entity != amqp.EntityExpense || ev.RecordID != saved.ID {
		t.Errorf("event = %+v", ev)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, store, pub, _ := newService(t)
	pub.err = errors.New("broker down")

	_, err := svc.RecordRegularOffering(ctx, admin, core.RegularOffering{
		Date:        date(t, "2024-05-05"),
		ServiceType: core.ServiceFirst,
		Amount:      core.Money{Cents: 12000000},
	})
	if err != nil {
		t.Fatalf("RecordRegularOffering() error = %v", err)
	}
	rows, _ := store.ListRegularOfferings(ctx)
	if len(rows) != 1 {
		t.Errorf("stored %d offerings, want 1", len(rows))
	}
}

func TestUpdateRegularOfferingVersion(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, _ := newService(t)

	saved, err := svc.RecordRegularOffering(ctx, accountant, core.RegularOffering{
		Date:        date(t, "2024-06-02"),
		ServiceType: core.ServiceFirst,
		Amount:      core.Money{Cents: 8000000},
	})
	if err != nil {
		t.Fatal(err)
	}

	fixed := saved
	fixed.Amount = core.Money{Cents: 8500000}
	updated, err := svc.UpdateRegularOffering(ctx, accountant, fixed)
	if err != nil {
		t.Fatalf("UpdateRegularOffering() error = %v", err)
	}
	if updated.Amount.Cents != 8500000 || updated.Version != saved.Version+1 {
		t.Errorf("updated = %+v", updated)
	}
	if last := pub.events[len(pub.events)-1]; last.Operation != amqp.OpUpdated {
		t.Errorf("last event = %+v, want update", last)
	}

	// the first copy still carries the old version
	if _, err := svc.UpdateRegularOffering(ctx, accountant, fixed); !errors.Is(err, core.ErrStaleRecord) {
		t.Errorf("stale update error = %v, want ErrStaleRecord", err)
	}
}

func TestRecordEnvelopeOffering(t *testing.T) {
	ctx := context.Background()
	svc, store, _, f := newService(t)

	t.Run("unknown donor is referential error", func(t *testing.T) {
		_, err := svc.RecordEnvelopeOffering(ctx, elder, core.EnvelopeOffering{
			Date: date(t, "2024-05-05"), EnvelopeNumber: "404", Amount: core.Money{Cents: 100}, Type: core.EnvelopeAhadi,
		})
		var nf *core.DonorNotFoundError
		if !errors.As(err, &nf) || nf.EnvelopeNumber != "404" {
			t.Fatalf("error = %v, want DonorNotFoundError for 404", err)
		}
		rows, _ := store.ListEnvelopeOfferings(ctx)
		if len(rows) != 0 {
			t.Errorf("offering written despite missing donor")
		}
	})

	t.Run("jengo refreshes pledge", func(t *testing.T) {
		if _, err := svc.RegisterDonor(ctx, elder, core.Donor{EnvelopeNumber: "12", FullName: "Neema", FellowshipID: f.ID}); err != nil {
			t.Fatal(err)
		}
		if err := svc.SetPledge(ctx, elder, "12", core.Money{Cents: 50000000}); err != nil {
			t.Fatal(err)
		}
		got, err := svc.RecordEnvelopeOffering(ctx, elder, core.EnvelopeOffering{
			Date: date(t, "2024-05-05"), EnvelopeNumber: "12", Amount: core.Money{Cents: 20000000}, Type: core.EnvelopeJengo,
		})
		if err != nil {
			t.Fatalf("RecordEnvelopeOffering() error = %v", err)
		}
		if got.Offering.DonorName != "Neema" {
			t.Errorf("DonorName = %q", got.Offering.DonorName)
		}
		if got.Pledge == nil || got.Pledge.Paid.Cents != 20000000 {
			t.Errorf("Pledge = %+v", got.Pledge)
		}
	})
}

func TestEnvelopeCorrectionsBelongToElders(t *testing.T) {
	ctx := context.Background()
	svc, store, pub, f := newService(t)

	for _, d := range []core.Donor{
		{EnvelopeNumber: "7", FullName: "Baraka", FellowshipID: f.ID},
		{EnvelopeNumber: "8", FullName: "Rehema", FellowshipID: f.ID},
	} {
		if _, err := svc.RegisterDonor(ctx, elder, d); err != nil {
			t.Fatal(err)
		}
	}
	rec, err := svc.RecordEnvelopeOffering(ctx, elder, core.EnvelopeOffering{
		Date: date(t, "2024-07-07"), EnvelopeNumber: "7", Amount: core.Money{Cents: 1000000}, Type: core.EnvelopeAhadi,
	})
	if err != nil {
		t.Fatal(err)
	}

	fixed := rec.Offering
	fixed.EnvelopeNumber = "8"
	updated, err := svc.UpdateEnvelopeOffering(ctx, elder, fixed)
	if err != nil {
		t.Fatalf("UpdateEnvelopeOffering() error = %v", err)
	}
	if updated.DonorName != "Rehema" || updated.Version != rec.Offering.Version+1 {
		t.Errorf("updated = %+v", updated)
	}
	if last := pub.events[len(pub.events)-1]; last.Operation != amqp.OpUpdated || last.Entity != amqp.EntityEnvelopeOffering {
		t.Errorf("last event = %+v", last)
	}

	t.Run("stale version", func(t *testing.T) {
		if _, err := svc.UpdateEnvelopeOffering(ctx, elder, fixed); !errors.Is(err, core.ErrStaleRecord) {
			t.Errorf("error = %v, want ErrStaleRecord", err)
		}
	})

	t.Run("unknown envelope number", func(t *testing.T) {
		moved := updated
		moved.EnvelopeNumber = "999"
		var nf *core.DonorNotFoundError
		if _, err := svc.UpdateEnvelopeOffering(ctx, elder, moved); !errors.As(err, &nf) {
			t.Errorf("error = %v, want DonorNotFoundError", err)
		}
	})

	t.Run("elder deletes", func(t *testing.T) {
		if err := svc.DeleteEnvelopeOffering(ctx, elder, updated.ID); err != nil {
			t.Fatalf("DeleteEnvelopeOffering() error = %v", err)
		}
		rows, _ := store.ListEnvelopeOfferings(ctx)
		if len(rows) != 0 {
			t.Errorf("%d envelopes left, want 0", len(rows))
		}
	})
}

func TestRegisterDonor(t *testing.T) {
	ctx := context.Background()
	svc, _, _, f := newService(t)

	t.Run("unknown fellowship", func(t *testing.T) {
		_, err := svc.RegisterDonor(ctx, admin, core.Donor{EnvelopeNumber: "1", FullName: "Juma", FellowshipID: "nope"})
		if !errors.Is(err, core.ErrMissingFellowship) {
			t.Errorf("error = %v, want ErrMissingFellowship", err)
		}
	})

	t.Run("duplicate envelope", func(t *testing.T) {
		d := core.Donor{EnvelopeNumber: "7", FullName: "Juma", FellowshipID: f.ID}
		if _, err := svc.RegisterDonor(ctx, admin, d); err != nil {
			t.Fatal(err)
		}
		_, err := svc.RegisterDonor(ctx, admin, d)
		var conflict *core.ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("error = %v, want ConflictError", err)
		}
	})
}

func TestSetPledgeRejectsNegative(t *testing.T) {
	svc := NewRecordService(untouchable{}, nil)
	err := svc.SetPledge(context.Background(), admin, "3", core.Money{Cents: -1})
	if !errors.Is(err, core.ErrNegativePledge) {
		t.Errorf("error = %v, want ErrNegativePledge", err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	id, err := svc.CreateUser(ctx, admin, core.NewUser{
		Email: "mhasibu@kanisa.org", FullName: "Mhasibu", Role: core.RoleAccountant, Password: "siri123",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	u, err := svc.Login(ctx, "mhasibu@kanisa.org", "siri123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !u.MustChangePassword {
		t.Error("new users must change their password")
	}
	if _, err := svc.Login(ctx, "mhasibu@kanisa.org", "wrong"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("Login(wrong) error = %v", err)
	}
	if _, err := svc.Login(ctx, "", ""); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("Login(blank) error = %v", err)
	}

	if err := svc.ChangePassword(ctx, u, "abc", "abc"); !errors.Is(err, core.ErrPasswordTooShort) {
		t.Errorf("short password error = %v", err)
	}
	if err := svc.ChangePassword(ctx, u, "mpya1234", "mpya12345"); !errors.Is(err, core.ErrPasswordMismatch) {
		t.Errorf("mismatch error = %v", err)
	}
	if err := svc.ChangePassword(ctx, u, "mpya1234", "mpya1234"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Login(ctx, "mhasibu@kanisa.org", "mpya1234"); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}

	self := core.User{ID: id, Role: core.RoleAdmin}
	if err := svc.DeleteUser(ctx, self, id); !errors.Is(err, ErrSelfDelete) {
		t.Errorf("self delete error = %v", err)
	}
	if err := svc.DeleteUser(ctx, admin, id); err != nil {
		t.Errorf("DeleteUser() error = %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	ctx := context.Background()
	svc, _, _, f := newService(t)
	if _, err := svc.CreateExpense(ctx, admin, core.Expense{Date: date(t, "2024-01-02"), Description: "Maji", Amount: core.Money{Cents: 100}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RegisterDonor(ctx, admin, core.Donor{EnvelopeNumber: "1", FullName: "Asha", FellowshipID: f.ID}); err != nil {
		t.Fatal(err)
	}

	d, err := svc.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if len(d.Expenses) != 1 || d.Donors != 1 {
		t.Errorf("dataset = %+v", d)
	}
}
