package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Expense struct {
	ID          string
	Date        string
	Description string
	AmountCents int64
	CreatedBy   string
	Version     int64
	CreatedAt   int64
	UpdatedAt   int64
}

type RegularOffering struct {
	ID          string
	Date        string
	ServiceType string
	AmountCents int64
	Version     int64
	CreatedAt   int64
}

type EnvelopeOfferingRow struct {
	ID             string
	Date           string
	EnvelopeNumber string
	AmountCents    int64
	BahashaType    string
	Version        int64
	CreatedAt      int64
	DonorName      sql.NullString
	FellowshipName sql.NullString
}

type DonorRow struct {
	ID             string
	EnvelopeNumber string
	FullName       string
	Phone          string
	FellowshipID   sql.NullString
	Version        int64
	CreatedAt      int64
	FellowshipName sql.NullString
}

type Fellowship struct {
	ID   string
	Name string
}

type PledgeRow struct {
	EnvelopeNumber string
	AmountCents    int64
	UpdatedAt      int64
	DonorName      sql.NullString
	FellowshipName sql.NullString
	PaidCents      int64
}

type User struct {
	ID                 string
	Email              string
	FullName           string
	Role               string
	PasswordHash       string
	MustChangePassword bool
	CreatedAt          int64
	UpdatedAt          int64
}

type AuditLog struct {
	ID          string
	Entity      string
	Operation   string
	RecordID    string
	Actor       string
	AmountCents int64
	OccurredAt  int64
}
