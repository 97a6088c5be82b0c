package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanisafin/internal/core"
)

type fakeSource struct {
	expenses    []core.Expense
	regular     []core.RegularOffering
	envelopes   []core.EnvelopeOffering
	pledges     []core.JengoPledge
	fellowships []core.Fellowship
	err         error
	calls       int
}

func (f *fakeSource) ListExpenses(context.Context) ([]core.Expense, error) {
	f.calls++
	return f.expenses, f.err
}

func (f *fakeSource) ListRegularOfferings(context.Context) ([]core.RegularOffering, error) {
	f.calls++
	return f.regular, f.err
}

func (f *fakeSource) ListEnvelopeOfferings(context.Context) ([]core.EnvelopeOffering, error) {
	f.calls++
	return f.envelopes, f.err
}

func (f *fakeSource) ListPledges(context.Context) ([]core.JengoPledge, error) {
	f.calls++
	return f.pledges, f.err
}

func (f *fakeSource) ListFellowships(context.Context) ([]core.Fellowship, error) {
	return f.fellowships, nil
}

func tzs(shillings int64) core.Money { return core.Money{Cents: shillings * 100} }

var now = time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)

func source() *fakeSource {
	return &fakeSource{
		fellowships: []core.Fellowship{{ID: "f1", Name: "Mt. Petro"}, {ID: "f2", Name: "Mt. Paulo"}},
		envelopes: []core.EnvelopeOffering{
			{Date: core.NewDate(2025, 1, 5), EnvelopeNumber: "1", Amount: tzs(10000), Type: core.EnvelopeAhadi, FellowshipName: "Mt. Petro"},
			{Date: core.NewDate(2025, 2, 5), EnvelopeNumber: "2", Amount: tzs(20000), Type: core.EnvelopeJengo, FellowshipName: "Mt. Paulo"},
			{Date: core.NewDate(2025, 3, 5), EnvelopeNumber: "1", Amount: tzs(30000), Type: core.EnvelopeJengo, FellowshipName: "Mt. Petro"},
		},
		regular: []core.RegularOffering{
			{Date: core.NewDate(2025, 1, 5), ServiceType: core.ServiceFirst, Amount: tzs(100000)},
			{Date: core.NewDate(2025, 1, 5), ServiceType: core.ServiceSecond, Amount: tzs(60000)},
		},
		expenses: []core.Expense{
			{Date: core.NewDate(2024, 12, 31), Description: "Umeme", Amount: tzs(5000)},
			{Date: core.NewDate(2025, 1, 1), Description: "Maji", Amount: tzs(7000)},
		},
		pledges: []core.JengoPledge{
			{EnvelopeNumber: "1", FellowshipName: "Mt. Petro", Pledged: tzs(100000), Paid: tzs(30000)},
			{EnvelopeNumber: "2", FellowshipName: "Mt. Paulo", Pledged: tzs(50000), Paid: tzs(20000)},
		},
	}
}

func TestGenerateEnvelopeFilters(t *testing.T) {
	ctx := context.Background()
	src := source()

	rep, err := Generate(ctx, src, Envelope, Filter{}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Len())
	assert.Equal(t, tzs(60000), rep.Total)

	rep, err = Generate(ctx, src, Envelope, Filter{FellowshipID: "f1", EnvelopeType: core.EnvelopeJengo}, now)
	require.NoError(t, err)
	require.Len(t, rep.Envelopes, 1)
	assert.Equal(t, tzs(30000), rep.Total)
	assert.Equal(t, "Mt. Petro", rep.Fellowship)

	rep, err = Generate(ctx, src, Envelope, Filter{Start: core.NewDate(2025, 2, 1), End: core.NewDate(2025, 2, 28)}, now)
	require.NoError(t, err)
	require.Len(t, rep.Envelopes, 1)
	assert.Equal(t, "2", rep.Envelopes[0].EnvelopeNumber)
}

func TestGenerateUnknownFellowshipMatchesNothing(t *testing.T) {
	rep, err := Generate(context.Background(), source(), Envelope, Filter{FellowshipID: "missing"}, now)
	require.NoError(t, err)
	assert.True(t, rep.Empty())
	assert.Zero(t, rep.Total.Cents)
}

func TestGenerateRegularByServiceType(t *testing.T) {
	rep, err := Generate(context.Background(), source(), Regular, Filter{ServiceType: core.ServiceSecond, FellowshipID: "f1"}, now)
	require.NoError(t, err)
	require.Len(t, rep.Regular, 1)
	assert.Equal(t, tzs(60000), rep.Total)
}

func TestGenerateExpensesDateRangeInclusive(t *testing.T) {
	rep, err := Generate(context.Background(), source(), Expenses, Filter{End: core.NewDate(2024, 12, 31)}, now)
	require.NoError(t, err)
	require.Len(t, rep.Expenses, 1)
	assert.Equal(t, "Umeme", rep.Expenses[0].Description)
}

func TestGenerateJengoTotalsPaid(t *testing.T) {
	f := Filter{Start: core.NewDate(2030, 1, 1)} // ignored for pledges
	rep, err := Generate(context.Background(), source(), Jengo, f, now)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Len())
	assert.Equal(t, tzs(50000), rep.Total)
	assert.Equal(t, tzs(150000), rep.Pledged)

	rep, err = Generate(context.Background(), source(), Jengo, Filter{FellowshipID: "f2"}, now)
	require.NoError(t, err)
	assert.Equal(t, tzs(20000), rep.Total)
}

func TestRegenerateIsDeterministic(t *testing.T) {
	src := source()
	f := Filter{FellowshipID: "f1"}
	a, err := Generate(context.Background(), src, Envelope, f, now)
	require.NoError(t, err)
	b, err := Generate(context.Background(), src, Envelope, f, now)
	require.NoError(t, err)
	assert.Equal(t, a.Total, b.Total)
	assert.Equal(t, a.Envelopes, b.Envelopes)
}

func TestStateTransitions(t *testing.T) {
	ctx := context.Background()
	src := source()
	s := NewState(Regular)

	require.NoError(t, s.Generate(ctx, src, now))
	require.NotNil(t, s.Output)
	calls := src.calls

	s.SetFilter(Filter{ServiceType: core.ServiceFirst})
	assert.Equal(t, tzs(160000), s.Output.Total, "filter change must not regenerate")
	assert.Equal(t, calls, src.calls)

	s.SelectKind(Regular)
	assert.NotNil(t, s.Output, "same kind keeps output")

	s.SelectKind(Expenses)
	assert.Nil(t, s.Output)
}

func TestStateKeepsOutputOnError(t *testing.T) {
	ctx := context.Background()
	src := source()
	s := NewState(Expenses)
	require.NoError(t, s.Generate(ctx, src, now))
	prev := s.Output

	src.err = errors.New("backend down")
	assert.Error(t, s.Generate(ctx, src, now))
	assert.Same(t, prev, s.Output)
	assert.Error(t, s.Err)
}

func TestAvailableKinds(t *testing.T) {
	assert.Equal(t, Regular, DefaultKind(core.RoleAccountant))
	assert.Equal(t, Envelope, DefaultKind(core.RoleElder))
	assert.Equal(t, Envelope, DefaultKind(core.RolePastor))
	assert.Equal(t, Envelope, DefaultKind(core.RoleAdmin))
	assert.False(t, Allowed(core.RoleAccountant, Envelope))
	assert.False(t, Allowed(core.RoleElder, Expenses))
	// the building-fund report is not shown to elders
	assert.False(t, Allowed(core.RoleElder, Jengo))
	assert.True(t, Allowed(core.RoleAccountant, Jengo))
	assert.Equal(t, []Kind{Envelope}, Available(core.RoleElder))
	assert.Empty(t, Available(core.Role("guest")))
	assert.Equal(t, Kind(""), DefaultKind(core.Role("guest")))
}
