// Package memory is an in-process gateway used for development and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kanisafin/internal/core"
	"kanisafin/internal/gateway"
)

var _ gateway.Gateway = (*Store)(nil)

type account struct {
	user core.User
	hash []byte
}

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	fellowships []core.Fellowship
	expenses    []core.Expense
	regular     []core.RegularOffering
	envelopes   []core.EnvelopeOffering
	donors      []core.Donor
	pledges     map[string]core.Money
	pledgedAt   map[string]time.Time
	users       []account
	audit       []core.AuditEntry
}

// New returns an empty store with the given fellowship names.
func New(fellowships ...string) *Store {
	s := &Store{
		now:       time.Now,
		pledges:   map[string]core.Money{},
		pledgedAt: map[string]time.Time{},
	}
	for _, name := range dedupe(fellowships) {
		s.fellowships = append(s.fellowships, core.Fellowship{ID: uuid.NewString(), Name: name})
	}
	return s
}

// NewFromFiles seeds fellowships from base/seed_fellowships.txt, one per line.
func NewFromFiles(base string) *Store {
	names := readLines(filepath.Join(base, "seed_fellowships.txt"))
	if len(names) == 0 {
		names = []string{"Mt. Petro", "Mt. Paulo", "Mt. Maria"}
	}
	return New(names...)
}

func (s *Store) ListFellowships(_ context.Context) ([]core.Fellowship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Fellowship(nil), s.fellowships...), nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Expense(nil), s.expenses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	e.Version = 1
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.ID != e.ID {
			continue
		}
		if e.Version != 0 && e.Version != cur.Version {
			return core.Expense{}, core.ErrStaleRecord
		}
		e.Version = cur.Version + 1
		e.CreatedAt = cur.CreatedAt
		e.CreatedBy = cur.CreatedBy
		e.UpdatedAt = s.now()
		s.expenses[i] = e
		return e, nil
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListRegularOfferings(_ context.Context) ([]core.RegularOffering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.RegularOffering(nil), s.regular...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) CreateRegularOffering(_ context.Context, o core.RegularOffering) (core.RegularOffering, error) {
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = uuid.NewString()
	o.Version = 1
	o.CreatedAt = s.now()
	s.regular = append(s.regular, o)
	return o, nil
}

func (s *Store) UpdateRegularOffering(_ context.Context, o core.RegularOffering) (core.RegularOffering, error) {
	if err := o.Validate(); err != nil {
		return core.RegularOffering{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.regular {
		if cur.ID != o.ID {
			continue
		}
		if o.Version != 0 && o.Version != cur.Version {
			return core.RegularOffering{}, core.ErrStaleRecord
		}
		o.Version = cur.Version + 1
		o.CreatedAt = cur.CreatedAt
		s.regular[i] = o
		return o, nil
	}
	return core.RegularOffering{}, core.ErrNotFound
}

func (s *Store) DeleteRegularOffering(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.regular {
		if cur.ID == id {
			s.regular = append(s.regular[:i], s.regular[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListEnvelopeOfferings(_ context.Context) ([]core.EnvelopeOffering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EnvelopeOffering, 0, len(s.envelopes))
	for _, o := range s.envelopes {
		out = append(out, s.joinEnvelope(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) CreateEnvelopeOffering(_ context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error) {
	if err := o.Validate(); err != nil {
		return core.EnvelopeOffering{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donorLocked(o.EnvelopeNumber); !ok {
		return core.EnvelopeOffering{}, &core.DonorNotFoundError{EnvelopeNumber: o.EnvelopeNumber}
	}
	o.ID = uuid.NewString()
	o.Version = 1
	o.CreatedAt = s.now()
	o.DonorName, o.FellowshipName = "", ""
	s.envelopes = append(s.envelopes, o)
	return s.joinEnvelope(o), nil
}

func (s *Store) UpdateEnvelopeOffering(_ context.Context, o core.EnvelopeOffering) (core.EnvelopeOffering, error) {
	if err := o.Validate(); err != nil {
		return core.EnvelopeOffering{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donorLocked(o.EnvelopeNumber); !ok {
		return core.EnvelopeOffering{}, &core.DonorNotFoundError{EnvelopeNumber: o.EnvelopeNumber}
	}
	for i, cur := range s.envelopes {
		if cur.ID != o.ID {
			continue
		}
		if o.Version != 0 && o.Version != cur.Version {
			return core.EnvelopeOffering{}, core.ErrStaleRecord
		}
		o.Version = cur.Version + 1
		o.CreatedAt = cur.CreatedAt
		o.DonorName, o.FellowshipName = "", ""
		s.envelopes[i] = o
		return s.joinEnvelope(o), nil
	}
	return core.EnvelopeOffering{}, core.ErrNotFound
}

func (s *Store) DeleteEnvelopeOffering(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.envelopes {
		if cur.ID == id {
			s.envelopes = append(s.envelopes[:i], s.envelopes[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) joinEnvelope(o core.EnvelopeOffering) core.EnvelopeOffering {
	o.DonorName = core.UnknownDonor
	o.FellowshipName = core.NoFellowship
	if d, ok := s.donorLocked(o.EnvelopeNumber); ok {
		o.DonorName = d.FullName
		o.FellowshipName = d.FellowshipName
	}
	return o
}

func (s *Store) ListDonors(_ context.Context) ([]core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Donor, 0, len(s.donors))
	for _, d := range s.donors {
		out = append(out, s.joinDonor(d))
	}
	core.SortDonors(out)
	return out, nil
}

func (s *Store) GetDonor(_ context.Context, envelopeNumber string) (core.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donorLocked(envelopeNumber)
	if !ok {
		return core.Donor{}, &core.DonorNotFoundError{EnvelopeNumber: envelopeNumber}
	}
	return d, nil
}

func (s *Store) CreateDonor(_ context.Context, d core.Donor) (core.Donor, error) {
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donorLocked(d.EnvelopeNumber); ok {
		return core.Donor{}, &core.ConflictError{Entity: "donor", Key: d.EnvelopeNumber}
	}
	d.ID = uuid.NewString()
	d.Version = 1
	d.CreatedAt = s.now()
	d.FellowshipName = ""
	s.donors = append(s.donors, d)
	return s.joinDonor(d), nil
}

func (s *Store) UpdateDonor(_ context.Context, d core.Donor) (core.Donor, error) {
	if err := d.Validate(); err != nil {
		return core.Donor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, cur := range s.donors {
		if cur.ID == d.ID {
			idx = i
		} else if cur.EnvelopeNumber == d.EnvelopeNumber {
			return core.Donor{}, &core.ConflictError{Entity: "donor", Key: d.EnvelopeNumber}
		}
	}
	if idx < 0 {
		return core.Donor{}, core.ErrNotFound
	}
	cur := s.donors[idx]
	if d.Version != 0 && d.Version != cur.Version {
		return core.Donor{}, core.ErrStaleRecord
	}
	d.Version = cur.Version + 1
	d.CreatedAt = cur.CreatedAt
	d.FellowshipName = ""
	s.donors[idx] = d
	return s.joinDonor(d), nil
}

func (s *Store) donorLocked(envelopeNumber string) (core.Donor, bool) {
	for _, d := range s.donors {
		if d.EnvelopeNumber == envelopeNumber {
			return s.joinDonor(d), true
		}
	}
	return core.Donor{}, false
}

func (s *Store) joinDonor(d core.Donor) core.Donor {
	d.FellowshipName = core.NoFellowship
	for _, f := range s.fellowships {
		if f.ID == d.FellowshipID {
			d.FellowshipName = f.Name
			break
		}
	}
	return d
}

func (s *Store) ListPledges(_ context.Context) ([]core.JengoPledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paid := map[string]core.Money{}
	for _, o := range s.envelopes {
		if o.Type == core.EnvelopeJengo {
			paid[o.EnvelopeNumber] = paid[o.EnvelopeNumber].Add(o.Amount)
		}
	}
	out := make([]core.JengoPledge, 0, len(s.pledges))
	for number, amount := range s.pledges {
		p := core.JengoPledge{
			EnvelopeNumber: number,
			DonorName:      core.UnknownDonor,
			FellowshipName: core.NoFellowship,
			Pledged:        amount,
			Paid:           paid[number],
			UpdatedAt:      s.pledgedAt[number],
		}
		if d, ok := s.donorLocked(number); ok {
			p.DonorName = d.FullName
			p.FellowshipName = d.FellowshipName
		}
		out = append(out, p)
	}
	core.SortPledges(out)
	return out, nil
}

func (s *Store) UpsertPledge(_ context.Context, envelopeNumber string, amount core.Money) error {
	if amount.Cents < 0 {
		return core.ErrNegativePledge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donorLocked(envelopeNumber); !ok {
		return &core.DonorNotFoundError{EnvelopeNumber: envelopeNumber}
	}
	s.pledges[envelopeNumber] = amount
	s.pledgedAt[envelopeNumber] = s.now()
	return nil
}

func (s *Store) DonorHistory(_ context.Context, envelopeNumber string) ([]core.EnvelopeOffering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EnvelopeOffering
	for _, o := range s.envelopes {
		if o.EnvelopeNumber == envelopeNumber {
			out = append(out, s.joinEnvelope(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) Authenticate(_ context.Context, email, password string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	for _, a := range s.users {
		if a.user.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
			return core.User{}, core.ErrInvalidCredentials
		}
		return a.user, nil
	}
	return core.User{}, core.ErrInvalidCredentials
}

func (s *Store) ChangePassword(_ context.Context, userID, password string) error {
	if len(password) < core.MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].user.ID == userID {
			s.users[i].hash = hash
			s.users[i].user.MustChangePassword = false
			s.users[i].user.UpdatedAt = s.now()
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, a := range s.users {
		out = append(out, a.user)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.NewUser) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(u.Email)
	for _, a := range s.users {
		if a.user.Email == email {
			return "", &core.ConflictError{Entity: "user", Key: email}
		}
	}
	now := s.now()
	user := core.User{
		ID:                 uuid.NewString(),
		Email:              email,
		FullName:           strings.TrimSpace(u.FullName),
		Role:               u.Role,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.users = append(s.users, account{user: user, hash: hash})
	return user.ID, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.users {
		if a.user.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) AppendAudit(_ context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]core.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.AuditEntry(nil), s.audit...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
