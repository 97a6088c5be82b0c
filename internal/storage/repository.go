package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"kanisafin/internal/core"
	"kanisafin/internal/gateway"
)

// bcryptCost matches the cost used for every stored password.
const bcryptCost = 12

var _ gateway.Gateway = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// dsn enables foreign keys on every pooled connection.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// parseStoredDate tolerates rows written by other tools: a malformed date
// becomes the zero Date, which sorts last and is outside every window.
func parseStoredDate(ctx context.Context, table, id, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable date in stored row", "table", table, "id", id, "date", s)
		return core.Date{}
	}
	return d
}

func unix(t int64) time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).UTC()
}

func nullString(s sql.NullString, fallback string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return fallback
}

// staleOrMissing tells a failed versioned update apart.
func (r *SQLiteRepository) staleOrMissing(ctx context.Context, table, id string) error {
	if _, err := r.queries.versionOf(ctx, table, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		return fmt.Errorf("read %s version: %w", table, err)
	}
	return core.ErrStaleRecord
}

func (r *SQLiteRepository) ListFellowships(ctx context.Context) ([]core.Fellowship, error) {
	rows, err := r.queries.ListFellowships(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fellowships: %w", err)
	}
	out := make([]core.Fellowship, 0, len(rows))
	for _, f := range rows {
		out = append(out, core.Fellowship{ID: f.ID, Name: f.Name})
	}
	return out, nil
}

func toExpense(ctx context.Context, e Expense) core.Expense {
	return core.Expense{
		ID:          e.ID,
		Date:        parseStoredDate(ctx, "expenses", e.ID, e.Date),
		Description: e.Description,
		Amount:      core.Money{Cents: e.AmountCents},
		CreatedBy:   e.CreatedBy,
		Version:     e.Version,
		CreatedAt:   unix(e.CreatedAt),
		UpdatedAt:   unix(e.UpdatedAt),
	}
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, e := range rows {
		out = append(out, toExpense(ctx, e))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	now := r.now().Unix()
	row := Expense{
		ID:          uuid.NewString(),
		Date:        e.Date.String(),
		Description: strings.TrimSpace(e.Description),
		AmountCents: e.Amount.Cents,
		CreatedBy:   e.CreatedBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.queries.CreateExpense(ctx, row); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return toExpense(ctx, row), nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.UpdateExpense(ctx, Expense{
		ID:          e.ID,
		Date:        e.Date.String(),
		Description: strings.TrimSpace(e.Description),
		AmountCents: e.Amount.Cents,
		Version:     e.Version,
		UpdatedAt:   r.now().Unix(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, r.staleOrMissing(ctx, "expenses", e.ID)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return toExpense(ctx, row), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func toRegular(ctx context.Context, o RegularOffering) core.RegularOffering {
	return core.RegularOffering{
		ID:          o.ID,
		Date:        parseStoredDate(ctx, "regular_offerings", o.ID, o.Date),
		ServiceType: core.ServiceType(o.ServiceType),
		Amount:      core.Money{Cents: o.AmountCents},
		Version:     o.Version,
		CreatedAt:   unix(o.CreatedAt),
	}
}

func (r *SQLiteRepository) ListRegularOfferings(ctx context.Context) ([]core.RegularOffering, error) {
	rows, err := r.queries.ListRegularOfferings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regular offerings: %w", err)
	}
	out := make([]core.RegularOffering, 0, len(rows))
	for _, o := range rows {
		out = append(out, toRegular(ctx, o))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateRegularOffering(ctx context.Context, o core.RegularOffering) (core.RegularOffering, error) {
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	row := RegularOffering{
		ID:          uuid.NewString(),
		Date:        o.Date.String(),
		ServiceType: string(o.ServiceType),
		AmountCents: o.Amount.Cents,
		Version:     1,
		CreatedAt:   r.now().Unix(),
	}
	if err := r.queries.CreateRegularOffering(ctx, row); err != nil {
		return core.RegularOffering{}, fmt.Errorf("create regular offering: %w", err)
	}
	slog.InfoContext(ctx, "Regular offering saved to SQLite", "id", row.ID, "service_type", row.ServiceType, "amount_cents", row.AmountCents)
	return toRegular(ctx, row), nil
}

func (r *SQLiteRepository) UpdateRegularOffering(ctx context.Context, o core.RegularOffering) (core.RegularOffering, error) {
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	row, err := r.queries.UpdateRegularOffering(ctx, RegularOffering{
		ID:          o.ID,
		Date:        o.Date.String(),
		ServiceType: string(o.ServiceType),
		AmountCents: o.Amount.Cents,
		Version:     o.Version,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.RegularOffering{}, r.staleOrMissing(ctx, "regular_offerings", o.ID)
	}
	if err != nil {
		return core.RegularOffering{}, fmt.Errorf("update regular offering: %w", err)
	}
	return toRegular(ctx, row), nil
}

func (r *SQLiteRepository) DeleteRegularOffering(ctx context.Context, id string) error {
	n, err := r.queries.DeleteRegularOffering(ctx, id)
	if err != nil {
		return fmt.Errorf("delete regular offering: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func toEnvelope(ctx context.Context, o EnvelopeOfferingRow) core.EnvelopeOffering {
	return core.EnvelopeOffering{
		ID:             o.ID,
		Date:           parseStoredDate(ctx, "envelope_offerings", o.ID, o.Date),
		EnvelopeNumber: o.EnvelopeNumber,
		Amount:         core.Money{Cents: o.AmountCents},
		Type:           core.EnvelopeType(o.BahashaType),
		Version:        o.Version,
		CreatedAt:      unix(o.CreatedAt),
		DonorName:      nullString(o.DonorName, core.UnknownDonor),
		FellowshipName: nullString(o.FellowshipName, core.NoFellowship),
	}
}

func (r *SQLiteRepository) ListEnvelopeOfferings(ctx context.Context) ([]core.EnvelopeOffering, error) {
	rows, err := r.queries.ListEnvelopeOfferings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelope offerings: %w", err)
	}
	out := make([]core.EnvelopeOffering, 0, len(rows))
	for _, o := range rows {
		out = append(out, toEnvelope(ctx, o))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateEnvelopeOffering(ctx context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error) {
	if err := o.Validate(); err != nil {
		return core.EnvelopeOffering{}, err
	}
	if _, err := r.GetDonor(ctx, o.EnvelopeNumber); err != nil {
		return core.EnvelopeOffering{}, err
	}
	row := EnvelopeOfferingRow{
		ID:             uuid.NewString(),
		Date:           o.Date.String(),
		EnvelopeNumber: o.EnvelopeNumber,
		AmountCents:    o.Amount.Cents,
		BahashaType:    string(o.Type),
		CreatedAt:      r.now().Unix(),
	}
	if err := r.queries.CreateEnvelopeOffering(ctx, row); err != nil {
		if isForeignKeyViolation(err) {
			return core.EnvelopeOffering{}, &core.DonorNotFoundError{EnvelopeNumber: o.EnvelopeNumber}
		}
		return core.EnvelopeOffering{}, fmt.Errorf("create envelope offering: %w", err)
	}
	slog.InfoContext(ctx, "Envelope offering saved to SQLite",
		"id", row.ID,
		"envelope_number", row.EnvelopeNumber,
		"type", row.BahashaType,
		"amount_cents", row.AmountCents)

	saved, err := r.queries.GetEnvelopeOffering(ctx, row.ID)
	if err != nil {
		return core.EnvelopeOffering{}, fmt.Errorf("read envelope offering: %w", err)
	}
	return toEnvelope(ctx, saved), nil
}

// UpdateEnvelopeOffering rewrites an envelope under the version rule. The
// new envelope number must still belong to a donor.
func (r *SQLiteRepository) UpdateEnvelopeOffering(ctx context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error) {
	if err := o.Validate(); err != nil {
		return core.EnvelopeOffering{}, err
	}
	if _, err := r.GetDonor(ctx, o.EnvelopeNumber); err != nil {
		return core.EnvelopeOffering{}, err
	}
	_, err := r.queries.UpdateEnvelopeOffering(ctx, EnvelopeOfferingRow{
		ID:             o.ID,
		Date:           o.Date.String(),
		EnvelopeNumber: o.EnvelopeNumber,
		AmountCents:    o.Amount.Cents,
		BahashaType:    string(o.Type),
		Version:        o.Version,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.EnvelopeOffering{}, r.staleOrMissing(ctx, "envelope_offerings", o.ID)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.EnvelopeOffering{}, &core.DonorNotFoundError{EnvelopeNumber: o.EnvelopeNumber}
		}
		return core.EnvelopeOffering{}, fmt.Errorf("update envelope offering: %w", err)
	}
	saved, err := r.queries.GetEnvelopeOffering(ctx, o.ID)
	if err != nil {
		return core.EnvelopeOffering{}, fmt.Errorf("read envelope offering: %w", err)
	}
	return toEnvelope(ctx, saved), nil
}

func (r *SQLiteRepository) DeleteEnvelopeOffering(ctx context.Context, id string) error {
	n, err := r.queries.DeleteEnvelopeOffering(ctx, id)
	if err != nil {
		return fmt.Errorf("delete envelope offering: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func toDonor(d DonorRow) core.Donor {
	return core.Donor{
		ID:             d.ID,
		EnvelopeNumber: d.EnvelopeNumber,
		FullName:       d.FullName,
		Phone:          d.Phone,
		FellowshipID:   d.FellowshipID.String,
		Version:        d.Version,
		CreatedAt:      unix(d.CreatedAt),
		FellowshipName: nullString(d.FellowshipName, core.NoFellowship),
	}
}

func (r *SQLiteRepository) ListDonors(ctx context.Context) ([]core.Donor, error) {
	rows, err := r.queries.ListDonors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	out := make([]core.Donor, 0, len(rows))
	for _, d := range rows {
		out = append(out, toDonor(d))
	}
	core.SortDonors(out)
	return out, nil
}

func (r *SQLiteRepository) GetDonor(ctx context.Context, envelopeNumber string) (core.Donor, error) {
	row, err := r.queries.GetDonorByEnvelope(ctx, envelopeNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Donor{}, &core.DonorNotFoundError{EnvelopeNumber: envelopeNumber}
	}
	if err != nil {
		return core.Donor{}, fmt.Errorf("get donor %s: %w", envelopeNumber, err)
	}
	return toDonor(row), nil
}

func (r *SQLiteRepository) CreateDonor(ctx context.Context, d core.Donor) (core.Donor, error) {
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	row := DonorRow{
		ID:             uuid.NewString(),
		EnvelopeNumber: strings.TrimSpace(d.EnvelopeNumber),
		FullName:       strings.TrimSpace(d.FullName),
		Phone:          strings.TrimSpace(d.Phone),
		FellowshipID:   sql.NullString{String: d.FellowshipID, Valid: d.FellowshipID != ""},
		CreatedAt:      r.now().Unix(),
	}
	if err := r.queries.CreateDonor(ctx, row); err != nil {
		if isUniqueViolation(err) {
			return core.Donor{}, &core.ConflictError{Entity: "donor", Key: row.EnvelopeNumber}
		}
		return core.Donor{}, fmt.Errorf("create donor: %w", err)
	}
	slog.InfoContext(ctx, "Donor registered", "id", row.ID, "envelope_number", row.EnvelopeNumber)
	return r.GetDonor(ctx, row.EnvelopeNumber)
}

func (r *SQLiteRepository) UpdateDonor(ctx context.Context, d core.Donor) (core.Donor, error) {
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	row, err := r.queries.UpdateDonor(ctx, DonorRow{
		ID:             d.ID,
		EnvelopeNumber: strings.TrimSpace(d.EnvelopeNumber),
		FullName:       strings.TrimSpace(d.FullName),
		Phone:          strings.TrimSpace(d.Phone),
		FellowshipID:   sql.NullString{String: d.FellowshipID, Valid: d.FellowshipID != ""},
		Version:        d.Version,
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.Donor{}, r.staleOrMissing(ctx, "donors", d.ID)
	case isUniqueViolation(err):
		return core.Donor{}, &core.ConflictError{Entity: "donor", Key: d.EnvelopeNumber}
	case err != nil:
		return core.Donor{}, fmt.Errorf("update donor: %w", err)
	}
	return r.GetDonor(ctx, row.EnvelopeNumber)
}

func (r *SQLiteRepository) ListPledges(ctx context.Context) ([]core.JengoPledge, error) {
	rows, err := r.queries.ListPledges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	out := make([]core.JengoPledge, 0, len(rows))
	for _, p := range rows {
		out = append(out, core.JengoPledge{
			EnvelopeNumber: p.EnvelopeNumber,
			DonorName:      nullString(p.DonorName, core.UnknownDonor),
			FellowshipName: nullString(p.FellowshipName, core.NoFellowship),
			Pledged:        core.Money{Cents: p.AmountCents},
			Paid:           core.Money{Cents: p.PaidCents},
			UpdatedAt:      unix(p.UpdatedAt),
		})
	}
	core.SortPledges(out)
	return out, nil
}

func (r *SQLiteRepository) UpsertPledge(ctx context.Context, envelopeNumber string, amount core.Money) error {
	if amount.Cents < 0 {
		return core.ErrNegativePledge
	}
	// donor check and write share one transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pledge tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if _, err := q.GetDonorByEnvelope(ctx, envelopeNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &core.DonorNotFoundError{EnvelopeNumber: envelopeNumber}
		}
		return fmt.Errorf("get donor %s: %w", envelopeNumber, err)
	}
	if err := q.UpsertPledge(ctx, envelopeNumber, amount.Cents, r.now().Unix()); err != nil {
		return fmt.Errorf("upsert pledge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pledge: %w", err)
	}
	slog.InfoContext(ctx, "Pledge saved", "envelope_number", envelopeNumber, "amount_cents", amount.Cents)
	return nil
}

func (r *SQLiteRepository) DonorHistory(ctx context.Context, envelopeNumber string) ([]core.EnvelopeOffering, error) {
	rows, err := r.queries.ListEnvelopeOfferingsByNumber(ctx, envelopeNumber)
	if err != nil {
		return nil, fmt.Errorf("donor history %s: %w", envelopeNumber, err)
	}
	out := make([]core.EnvelopeOffering, 0, len(rows))
	for _, o := range rows {
		out = append(out, toEnvelope(ctx, o))
	}
	return out, nil
}

func toUser(u User) core.User {
	role, err := core.ParseRole(u.Role)
	if err != nil {
		role = core.Role(u.Role)
	}
	return core.User{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               role,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          unix(u.CreatedAt),
		UpdatedAt:          unix(u.UpdatedAt),
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (r *SQLiteRepository) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return toUser(u), nil
}

func (r *SQLiteRepository) ChangePassword(ctx context.Context, userID, password string) error {
	if len(password) < core.MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	n, err := r.queries.UpdatePassword(ctx, userID, string(hash), r.now().Unix())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUser(u))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, nu core.NewUser) (string, error) {
	if err := nu.Validate(); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	now := r.now().Unix()
	u := User{
		ID:                 uuid.NewString(),
		Email:              normalizeEmail(nu.Email),
		FullName:           strings.TrimSpace(nu.FullName),
		Role:               string(nu.Role),
		PasswordHash:       string(hash),
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.queries.CreateUser(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return "", &core.ConflictError{Entity: "user", Key: u.Email}
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "role", u.Role)
	return u.ID, nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	n, err := r.queries.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := r.queries.InsertAudit(ctx, AuditLog{
		ID:          e.ID,
		Entity:      e.Entity,
		Operation:   e.Operation,
		RecordID:    e.RecordID,
		Actor:       e.Actor,
		AmountCents: e.Amount.Cents,
		OccurredAt:  e.OccurredAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListAudit(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	out := make([]core.AuditEntry, 0, len(rows))
	for _, a := range rows {
		out = append(out, core.AuditEntry{
			ID:         a.ID,
			Entity:     a.Entity,
			Operation:  a.Operation,
			RecordID:   a.RecordID,
			Actor:      a.Actor,
			Amount:     core.Money{Cents: a.AmountCents},
			OccurredAt: unix(a.OccurredAt),
		})
	}
	return out, nil
}
