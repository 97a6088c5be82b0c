package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"kanisafin/internal/core"
)

// Operation is the kind of change a RecordEvent reports.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

// Entities carried by record events.
const (
	EntityExpense          = "expense"
	EntityRegularOffering  = "regular_offering"
	EntityEnvelopeOffering = "envelope_offering"
	EntityDonor            = "donor"
	EntityPledge           = "jengo_pledge"
	EntityUser             = "user"
)

// RoutingKey returns the topic routing key for op, e.g. "record.created".
func (op Operation) RoutingKey() string {
	return "record." + string(op)
}

// BindingKey matches every record event routing key.
const BindingKey = "record.*"

// RecordEvent announces a committed change to a financial record. The worker
// turns each event into an audit row and, optionally, a ledger line.
type RecordEvent struct {
	ID          string    `json:"id"`
	Operation   Operation `json:"operation"`
	Entity      string    `json:"entity"`
	RecordID    string    `json:"record_id"`
	Actor       string    `json:"actor"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date,omitempty"`
	Label       string    `json:"label,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRecordEvent creates an event stamped with a fresh id and the current time.
func NewRecordEvent(op Operation, entity, recordID, actor string, amount core.Money) *RecordEvent {
	return &RecordEvent{
		ID:          uuid.NewString(),
		Operation:   op,
		Entity:      entity,
		RecordID:    recordID,
		Actor:       actor,
		AmountCents: amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// WithDetail sets the ledger date and label.
func (m *RecordEvent) WithDetail(date core.Date, label string) *RecordEvent {
	if !date.IsZero() {
		m.Date = date.String()
	}
	m.Label = label
	return m
}

// Validate rejects events the worker cannot process.
func (m *RecordEvent) Validate() error {
	switch m.Operation {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return errors.New("unknown operation")
	}
	if m.Entity == "" || m.RecordID == "" {
		return errors.New("entity and record id are required")
	}
	return nil
}

// AuditEntry converts the event into its audit trail row.
func (m *RecordEvent) AuditEntry() core.AuditEntry {
	return core.AuditEntry{
		ID:         m.ID,
		Entity:     m.Entity,
		Operation:  string(m.Operation),
		RecordID:   m.RecordID,
		Actor:      m.Actor,
		Amount:     core.Money{Cents: m.AmountCents},
		OccurredAt: m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and validates an event body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
