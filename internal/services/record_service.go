package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kanisafin/internal/access"
	"kanisafin/internal/amqp"
	"kanisafin/internal/core"
	"kanisafin/internal/gateway"
	applog "kanisafin/internal/log"
)

var (
	// ErrForbidden is returned before any backend call when the actor's role
	// may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this role")
	// ErrSelfDelete stops an administrator from removing their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
)

// EventPublisher announces committed record changes.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// RecordService runs every mutation as: access check, validation,
// referential check, write, then a best-effort event publish.
type RecordService struct {
	gw        gateway.Gateway
	publisher EventPublisher
	logger    *applog.StructuredLogger
	now       func() time.Time
}

// NewRecordService wires the service. publisher may be nil when AMQP is off.
func NewRecordService(gw gateway.Gateway, publisher EventPublisher) *RecordService {
	return &RecordService{
		gw:        gw,
		publisher: publisher,
		logger:    applog.NewStructuredLogger(applog.FromContext(context.Background())),
		now:       time.Now,
	}
}

// Gateway exposes the backend for read paths.
func (s *RecordService) Gateway() gateway.Gateway {
	return s.gw
}

func authorize(actor core.User, a access.Action) error {
	if !access.CanPerform(actor.Role, a) {
		return fmt.Errorf("%w: %s", ErrForbidden, a)
	}
	return nil
}

func (s *RecordService) publish(ctx context.Context, ev *amqp.RecordEvent) {
	s.logger.LogRecordChanged(ctx, string(ev.Operation), ev.Entity, ev.RecordID, ev.AmountCents, ev.Actor)
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping record event", "entity", ev.Entity)
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, ev); err != nil {
		// the write is already committed
		slog.ErrorContext(ctx, "Failed to publish record event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldError, err,
			applog.FieldEntity, ev.Entity,
			applog.FieldRecordID, ev.RecordID)
	}
}

// CreateExpense records a new expense attributed to actor.
func (s *RecordService) CreateExpense(ctx context.Context, actor core.User, e core.Expense) (core.Expense, error) {
	if err := authorize(actor, access.CreateExpense); err != nil {
		return core.Expense{}, err
	}
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedBy = actor.ID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.gw.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityExpense, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, saved.Description))
	return saved, nil
}

// UpdateExpense saves an edited expense. A non-zero Version must still be current.
func (s *RecordService) UpdateExpense(ctx context.Context, actor core.User, e core.Expense) (core.Expense, error) {
	if err := authorize(actor, access.EditExpense); err != nil {
		return core.Expense{}, err
	}
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.gw.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.EntityExpense, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, saved.Description))
	return saved, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, actor core.User, id string) error {
	if err := authorize(actor, access.DeleteExpense); err != nil {
		return err
	}
	if err := s.gw.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.EntityExpense, id, actor.ID, core.Money{}))
	return nil
}

// RecordRegularOffering records an anonymous service collection.
func (s *RecordService) RecordRegularOffering(ctx context.Context, actor core.User, o core.RegularOffering) (core.RegularOffering, error) {
	if err := authorize(actor, access.RecordRegularOffering); err != nil {
		return core.RegularOffering{}, err
	}
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	saved, err := s.gw.CreateRegularOffering(ctx, o)
	if err != nil {
		return core.RegularOffering{}, fmt.Errorf("create regular offering: %w", err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityRegularOffering, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, string(saved.ServiceType)))
	return saved, nil
}

// UpdateRegularOffering corrects a recorded collection under the same
// version rule as expenses.
func (s *RecordService) UpdateRegularOffering(ctx context.Context, actor core.User, o core.RegularOffering) (core.RegularOffering, error) {
	if err := authorize(actor, access.EditRegularOffering); err != nil {
		return core.RegularOffering{}, err
	}
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	saved, err := s.gw.UpdateRegularOffering(ctx, o)
	if err != nil {
		return core.RegularOffering{}, fmt.Errorf("update regular offering %s: %w", o.ID, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.EntityRegularOffering, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, string(saved.ServiceType)))
	return saved, nil
}

func (s *RecordService) DeleteRegularOffering(ctx context.Context, actor core.User, id string) error {
	if err := authorize(actor, access.DeleteRegularOffering); err != nil {
		return err
	}
	if err := s.gw.DeleteRegularOffering(ctx, id); err != nil {
		return fmt.Errorf("delete regular offering %s: %w", id, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.EntityRegularOffering, id, actor.ID, core.Money{}))
	return nil
}

// EnvelopeRecorded is the result of RecordEnvelopeOffering. Pledge is set
// for Jengo offerings when the follow-up pledge read succeeded.
type EnvelopeRecorded struct {
	Offering core.EnvelopeOffering
	Pledge   *core.JengoPledge
}

// RecordEnvelopeOffering records a donor's envelope. The donor lookup runs
// before the write; for Jengo envelopes the donor's pledge is re-read after
// it. A failed re-read leaves the offering committed.
func (s *RecordService) RecordEnvelopeOffering(ctx context.Context, actor core.User, o core.EnvelopeOffering) (EnvelopeRecorded, error) {
	if err := authorize(actor, access.RecordEnvelopeOffering); err != nil {
		return EnvelopeRecorded{}, err
	}
	o.EnvelopeNumber = strings.TrimSpace(o.EnvelopeNumber)
	if err := o.Validate(); err != nil {
		return EnvelopeRecorded{}, err
	}
	donor, err := s.gw.GetDonor(ctx, o.EnvelopeNumber)
	if err != nil {
		return EnvelopeRecorded{}, fmt.Errorf("look up donor: %w", err)
	}
	saved, err := s.gw.CreateEnvelopeOffering(ctx, o)
	if err != nil {
		return EnvelopeRecorded{}, fmt.Errorf("create envelope offering: %w", err)
	}
	if saved.DonorName == "" {
		saved.DonorName = donor.FullName
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityEnvelopeOffering, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, "Bahasha #"+saved.EnvelopeNumber))

	out := EnvelopeRecorded{Offering: saved}
	if saved.Type != core.EnvelopeJengo {
		return out, nil
	}
	pledges, err := s.gw.ListPledges(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Envelope recorded but pledge refresh failed",
			applog.FieldError, err, applog.FieldEnvelope, saved.EnvelopeNumber)
		return out, nil
	}
	for i := range pledges {
		if pledges[i].EnvelopeNumber == saved.EnvelopeNumber {
			out.Pledge = &pledges[i]
			break
		}
	}
	return out, nil
}

// UpdateEnvelopeOffering corrects a recorded envelope. The envelope number
// is checked against the donor list first, as on recording.
func (s *RecordService) UpdateEnvelopeOffering(ctx context.Context, actor core.User, o core.EnvelopeOffering) (core.EnvelopeOffering, error) {
	if err := authorize(actor, access.EditEnvelopeOffering); err != nil {
		return core.EnvelopeOffering{}, err
	}
	o.EnvelopeNumber = strings.TrimSpace(o.EnvelopeNumber)
	if err := o.Validate(); err != nil {
		return core.EnvelopeOffering{}, err
	}
	if _, err := s.gw.GetDonor(ctx, o.EnvelopeNumber); err != nil {
		return core.EnvelopeOffering{}, fmt.Errorf("look up donor: %w", err)
	}
	saved, err := s.gw.UpdateEnvelopeOffering(ctx, o)
	if err != nil {
		return core.EnvelopeOffering{}, fmt.Errorf("update envelope offering %s: %w", o.ID, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.EntityEnvelopeOffering, saved.ID, actor.ID, saved.Amount).
		WithDetail(saved.Date, "Bahasha #"+saved.EnvelopeNumber))
	return saved, nil
}

func (s *RecordService) DeleteEnvelopeOffering(ctx context.Context, actor core.User, id string) error {
	if err := authorize(actor, access.DeleteEnvelopeOffering); err != nil {
		return err
	}
	if err := s.gw.DeleteEnvelopeOffering(ctx, id); err != nil {
		return fmt.Errorf("delete envelope offering %s: %w", id, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.EntityEnvelopeOffering, id, actor.ID, core.Money{}))
	return nil
}

// checkFellowship turns an unknown fellowship id into a field error.
func (s *RecordService) checkFellowship(ctx context.Context, id string) error {
	fs, err := s.gw.ListFellowships(ctx)
	if err != nil {
		return fmt.Errorf("list fellowships: %w", err)
	}
	for _, f := range fs {
		if f.ID == id {
			return nil
		}
	}
	v := core.NewValidation()
	v.Add("fellowship_id", core.ErrMissingFellowship)
	return v.Err()
}

// RegisterDonor enrolls a donor. A taken envelope number is a *core.ConflictError.
func (s *RecordService) RegisterDonor(ctx context.Context, actor core.User, d core.Donor) (core.Donor, error) {
	if err := authorize(actor, access.RegisterDonor); err != nil {
		return core.Donor{}, err
	}
	d.EnvelopeNumber = strings.TrimSpace(d.EnvelopeNumber)
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	if err := s.checkFellowship(ctx, d.FellowshipID); err != nil {
		return core.Donor{}, err
	}
	saved, err := s.gw.CreateDonor(ctx, d)
	if err != nil {
		return core.Donor{}, fmt.Errorf("create donor: %w", err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityDonor, saved.ID, actor.ID, core.Money{}).
		WithDetail(core.Date{}, saved.FullName))
	return saved, nil
}

func (s *RecordService) UpdateDonor(ctx context.Context, actor core.User, d core.Donor) (core.Donor, error) {
	if err := authorize(actor, access.EditDonor); err != nil {
		return core.Donor{}, err
	}
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	if err := s.checkFellowship(ctx, d.FellowshipID); err != nil {
		return core.Donor{}, err
	}
	saved, err := s.gw.UpdateDonor(ctx, d)
	if err != nil {
		return core.Donor{}, fmt.Errorf("update donor %s: %w", d.EnvelopeNumber, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.EntityDonor, saved.ID, actor.ID, core.Money{}).
		WithDetail(core.Date{}, saved.FullName))
	return saved, nil
}

// SetPledge creates or replaces a donor's building pledge.
func (s *RecordService) SetPledge(ctx context.Context, actor core.User, envelopeNumber string, amount core.Money) error {
	if err := authorize(actor, access.EditPledge); err != nil {
		return err
	}
	envelopeNumber = strings.TrimSpace(envelopeNumber)
	v := core.NewValidation()
	if envelopeNumber == "" {
		v.Add("envelope_number", core.ErrInvalidEnvelope)
	}
	if amount.Cents < 0 {
		v.Add("amount", core.ErrNegativePledge)
	}
	if err := v.Err(); err != nil {
		return err
	}
	if _, err := s.gw.GetDonor(ctx, envelopeNumber); err != nil {
		return fmt.Errorf("look up donor: %w", err)
	}
	if err := s.gw.UpsertPledge(ctx, envelopeNumber, amount); err != nil {
		return fmt.Errorf("upsert pledge: %w", err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.EntityPledge, envelopeNumber, actor.ID, amount).
		WithDetail(core.Date{}, "Ahadi #"+envelopeNumber))
	return nil
}
