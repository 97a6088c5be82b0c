package storage

import (
	"context"
	"database/sql"
)

const listFellowships = `SELECT id, name FROM fellowships ORDER BY name`

func (q *Queries) ListFellowships(ctx context.Context) ([]Fellowship, error) {
	rows, err := q.db.QueryContext(ctx, listFellowships)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Fellowship
	for rows.Next() {
		var i Fellowship
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Expenses

const listExpenses = `SELECT id, date, description, amount_cents, created_by, version, created_at, updated_at
FROM expenses ORDER BY date DESC, created_at DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.Date, &i.Description, &i.AmountCents, &i.CreatedBy, &i.Version, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createExpense = `INSERT INTO expenses (id, date, description, amount_cents, created_by, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense, e.ID, e.Date, e.Description, e.AmountCents, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	return err
}

// A zero expected version skips the version check.
const updateExpense = `UPDATE expenses
SET date = ?, description = ?, amount_cents = ?, updated_at = ?, version = version + 1
WHERE id = ? AND (? = 0 OR version = ?)
RETURNING created_by, version, created_at`

func (q *Queries) UpdateExpense(ctx context.Context, e Expense) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense, e.Date, e.Description, e.AmountCents, e.UpdatedAt, e.ID, e.Version, e.Version)
	err := row.Scan(&e.CreatedBy, &e.Version, &e.CreatedAt)
	return e, err
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Regular offerings

const listRegularOfferings = `SELECT id, date, service_type, amount_cents, version, created_at
FROM regular_offerings ORDER BY date DESC, created_at DESC`

func (q *Queries) ListRegularOfferings(ctx context.Context) ([]RegularOffering, error) {
	rows, err := q.db.QueryContext(ctx, listRegularOfferings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RegularOffering
	for rows.Next() {
		var i RegularOffering
		if err := rows.Scan(&i.ID, &i.Date, &i.ServiceType, &i.AmountCents, &i.Version, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createRegularOffering = `INSERT INTO regular_offerings (id, date, service_type, amount_cents, version, created_at)
VALUES (?, ?, ?, ?, 1, ?)`

func (q *Queries) CreateRegularOffering(ctx context.Context, o RegularOffering) error {
	_, err := q.db.ExecContext(ctx, createRegularOffering, o.ID, o.Date, o.ServiceType, o.AmountCents, o.CreatedAt)
	return err
}

const updateRegularOffering = `UPDATE regular_offerings
SET date = ?, service_type = ?, amount_cents = ?, version = version + 1
WHERE id = ? AND (? = 0 OR version = ?)
RETURNING version, created_at`

func (q *Queries) UpdateRegularOffering(ctx context.Context, o RegularOffering) (RegularOffering, error) {
	row := q.db.QueryRowContext(ctx, updateRegularOffering, o.Date, o.ServiceType, o.AmountCents, o.ID, o.Version, o.Version)
	err := row.Scan(&o.Version, &o.CreatedAt)
	return o, err
}

const deleteRegularOffering = `DELETE FROM regular_offerings WHERE id = ?`

func (q *Queries) DeleteRegularOffering(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRegularOffering, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Envelope offerings

const envelopeSelect = `SELECT e.id, e.date, e.envelope_number, e.amount_cents, e.bahasha_type, e.version, e.created_at,
       d.full_name, f.name
FROM envelope_offerings e
LEFT JOIN donors d ON d.envelope_number = e.envelope_number
LEFT JOIN fellowships f ON f.id = d.fellowship_id`

const listEnvelopeOfferings = envelopeSelect + `
ORDER BY e.date DESC, e.created_at DESC`

const listEnvelopeOfferingsByNumber = envelopeSelect + `
WHERE e.envelope_number = ?
ORDER BY e.date DESC, e.created_at DESC`

const getEnvelopeOffering = envelopeSelect + `
WHERE e.id = ?`

func scanEnvelopes(rows *sql.Rows) ([]EnvelopeOfferingRow, error) {
	defer rows.Close()
	var items []EnvelopeOfferingRow
	for rows.Next() {
		var i EnvelopeOfferingRow
		if err := rows.Scan(&i.ID, &i.Date, &i.EnvelopeNumber, &i.AmountCents, &i.BahashaType, &i.Version, &i.CreatedAt, &i.DonorName, &i.FellowshipName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListEnvelopeOfferings(ctx context.Context) ([]EnvelopeOfferingRow, error) {
	rows, err := q.db.QueryContext(ctx, listEnvelopeOfferings)
	if err != nil {
		return nil, err
	}
	return scanEnvelopes(rows)
}

func (q *Queries) ListEnvelopeOfferingsByNumber(ctx context.Context, envelopeNumber string) ([]EnvelopeOfferingRow, error) {
	rows, err := q.db.QueryContext(ctx, listEnvelopeOfferingsByNumber, envelopeNumber)
	if err != nil {
		return nil, err
	}
	return scanEnvelopes(rows)
}

func (q *Queries) GetEnvelopeOffering(ctx context.Context, id string) (EnvelopeOfferingRow, error) {
	var i EnvelopeOfferingRow
	err := q.db.QueryRowContext(ctx, getEnvelopeOffering, id).Scan(&i.ID, &i.Date, &i.EnvelopeNumber, &i.AmountCents, &i.BahashaType, &i.Version, &i.CreatedAt, &i.DonorName, &i.FellowshipName)
	return i, err
}

const createEnvelopeOffering = `INSERT INTO envelope_offerings (id, date, envelope_number, amount_cents, bahasha_type, version, created_at)
VALUES (?, ?, ?, ?, ?, 1, ?)`

func (q *Queries) CreateEnvelopeOffering(ctx context.Context, o EnvelopeOfferingRow) error {
	_, err := q.db.ExecContext(ctx, createEnvelopeOffering, o.ID, o.Date, o.EnvelopeNumber, o.AmountCents, o.BahashaType, o.CreatedAt)
	return err
}

const updateEnvelopeOffering = `UPDATE envelope_offerings
SET date = ?, envelope_number = ?, amount_cents = ?, bahasha_type = ?, version = version + 1
WHERE id = ? AND (? = 0 OR version = ?)
RETURNING version`

func (q *Queries) UpdateEnvelopeOffering(ctx context.Context, o EnvelopeOfferingRow) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, updateEnvelopeOffering, o.Date, o.EnvelopeNumber, o.AmountCents, o.BahashaType, o.ID, o.Version, o.Version).Scan(&version)
	return version, err
}

const deleteEnvelopeOffering = `DELETE FROM envelope_offerings WHERE id = ?`

func (q *Queries) DeleteEnvelopeOffering(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEnvelopeOffering, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Donors

const donorSelect = `SELECT d.id, d.envelope_number, d.full_name, d.phone, d.fellowship_id, d.version, d.created_at, f.name
FROM donors d
LEFT JOIN fellowships f ON f.id = d.fellowship_id`

func scanDonor(s interface{ Scan(...any) error }) (DonorRow, error) {
	var i DonorRow
	err := s.Scan(&i.ID, &i.EnvelopeNumber, &i.FullName, &i.Phone, &i.FellowshipID, &i.Version, &i.CreatedAt, &i.FellowshipName)
	return i, err
}

func (q *Queries) ListDonors(ctx context.Context) ([]DonorRow, error) {
	rows, err := q.db.QueryContext(ctx, donorSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DonorRow
	for rows.Next() {
		i, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getDonorByEnvelope = donorSelect + `
WHERE d.envelope_number = ?`

func (q *Queries) GetDonorByEnvelope(ctx context.Context, envelopeNumber string) (DonorRow, error) {
	return scanDonor(q.db.QueryRowContext(ctx, getDonorByEnvelope, envelopeNumber))
}

const getDonor = donorSelect + `
WHERE d.id = ?`

func (q *Queries) GetDonor(ctx context.Context, id string) (DonorRow, error) {
	return scanDonor(q.db.QueryRowContext(ctx, getDonor, id))
}

const createDonor = `INSERT INTO donors (id, envelope_number, full_name, phone, fellowship_id, version, created_at)
VALUES (?, ?, ?, ?, ?, 1, ?)`

func (q *Queries) CreateDonor(ctx context.Context, d DonorRow) error {
	_, err := q.db.ExecContext(ctx, createDonor, d.ID, d.EnvelopeNumber, d.FullName, d.Phone, d.FellowshipID, d.CreatedAt)
	return err
}

const updateDonor = `UPDATE donors
SET envelope_number = ?, full_name = ?, phone = ?, fellowship_id = ?, version = version + 1
WHERE id = ? AND (? = 0 OR version = ?)
RETURNING version, created_at`

func (q *Queries) UpdateDonor(ctx context.Context, d DonorRow) (DonorRow, error) {
	err := q.db.QueryRowContext(ctx, updateDonor, d.EnvelopeNumber, d.FullName, d.Phone, d.FellowshipID, d.ID, d.Version, d.Version).Scan(&d.Version, &d.CreatedAt)
	return d, err
}

// Pledges

const listPledges = `SELECT p.envelope_number, p.amount_cents, p.updated_at, d.full_name, f.name,
       COALESCE((SELECT SUM(e.amount_cents) FROM envelope_offerings e
                 WHERE e.envelope_number = p.envelope_number AND e.bahasha_type = 'Jengo'), 0) AS paid_cents
FROM jengo_pledges p
LEFT JOIN donors d ON d.envelope_number = p.envelope_number
LEFT JOIN fellowships f ON f.id = d.fellowship_id`

func (q *Queries) ListPledges(ctx context.Context) ([]PledgeRow, error) {
	rows, err := q.db.QueryContext(ctx, listPledges)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PledgeRow
	for rows.Next() {
		var i PledgeRow
		if err := rows.Scan(&i.EnvelopeNumber, &i.AmountCents, &i.UpdatedAt, &i.DonorName, &i.FellowshipName, &i.PaidCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertPledge = `INSERT INTO jengo_pledges (envelope_number, amount_cents, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(envelope_number) DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = excluded.updated_at`

func (q *Queries) UpsertPledge(ctx context.Context, envelopeNumber string, amountCents, updatedAt int64) error {
	_, err := q.db.ExecContext(ctx, upsertPledge, envelopeNumber, amountCents, updatedAt)
	return err
}

// Users

const userColumns = `id, email, full_name, role, password_hash, must_change_password, created_at, updated_at`

func scanUser(s interface{ Scan(...any) error }) (User, error) {
	var i User
	err := s.Scan(&i.ID, &i.Email, &i.FullName, &i.Role, &i.PasswordHash, &i.MustChangePassword, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY full_name`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.MustChangePassword, u.CreatedAt, u.UpdatedAt)
	return err
}

const updatePassword = `UPDATE users SET password_hash = ?, must_change_password = 0, updated_at = ? WHERE id = ?`

func (q *Queries) UpdatePassword(ctx context.Context, id, hash string, updatedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePassword, hash, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Audit

const insertAudit = `INSERT INTO audit_log (id, entity, operation, record_id, actor, amount_cents, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

func (q *Queries) InsertAudit(ctx context.Context, a AuditLog) error {
	_, err := q.db.ExecContext(ctx, insertAudit, a.ID, a.Entity, a.Operation, a.RecordID, a.Actor, a.AmountCents, a.OccurredAt)
	return err
}

const listAudit = `SELECT id, entity, operation, record_id, actor, amount_cents, occurred_at
FROM audit_log ORDER BY occurred_at DESC LIMIT ?`

func (q *Queries) ListAudit(ctx context.Context, limit int64) ([]AuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAudit, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		if err := rows.Scan(&i.ID, &i.Entity, &i.Operation, &i.RecordID, &i.Actor, &i.AmountCents, &i.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Version lookups used to tell a stale update from a missing row.

func (q *Queries) versionOf(ctx context.Context, table, id string) (int64, error) {
	var v int64
	// table is always one of the package's own constants
	err := q.db.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE id = ?`, id).Scan(&v)
	return v, err
}
