package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"kanisafin/internal/aggregate"
	"kanisafin/internal/core"
	"kanisafin/internal/report"
)

// LoadDataset fetches the dashboard's four lists concurrently.
func (s *RecordService) LoadDataset(ctx context.Context) (aggregate.Dataset, error) {
	var d aggregate.Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.gw.ListExpenses(gctx)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		d.Expenses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.gw.ListRegularOfferings(gctx)
		if err != nil {
			return fmt.Errorf("list regular offerings: %w", err)
		}
		d.Regular = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.gw.ListEnvelopeOfferings(gctx)
		if err != nil {
			return fmt.Errorf("list envelope offerings: %w", err)
		}
		d.Envelopes = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.gw.ListDonors(gctx)
		if err != nil {
			return fmt.Errorf("list donors: %w", err)
		}
		d.Donors = len(rows)
		return nil
	})

	if err := g.Wait(); err != nil {
		return aggregate.Dataset{}, err
	}
	return d, nil
}

// JengoOverview is the pledge page: every pledge plus the campaign summary.
type JengoOverview struct {
	Pledges []core.JengoPledge
	Summary core.PledgeSummary
}

func (s *RecordService) LoadJengo(ctx context.Context) (JengoOverview, error) {
	pledges, err := s.gw.ListPledges(ctx)
	if err != nil {
		return JengoOverview{}, fmt.Errorf("list pledges: %w", err)
	}
	core.SortPledges(pledges)
	return JengoOverview{Pledges: pledges, Summary: core.SummarizePledges(pledges)}, nil
}

// DonorHistory returns a donor and their envelope offerings, newest first.
func (s *RecordService) DonorHistory(ctx context.Context, envelopeNumber string) (core.Donor, []core.EnvelopeOffering, error) {
	var (
		donor   core.Donor
		history []core.EnvelopeOffering
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donor, err = s.gw.GetDonor(gctx, envelopeNumber)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.gw.DonorHistory(gctx, envelopeNumber)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Donor{}, nil, fmt.Errorf("donor history %s: %w", envelopeNumber, err)
	}
	return donor, history, nil
}

// GenerateReport regenerates st for actor. Kinds outside the actor's role
// are refused without touching the backend.
func (s *RecordService) GenerateReport(ctx context.Context, actor core.User, st *report.State) error {
	if !report.Allowed(actor.Role, st.Kind) {
		return fmt.Errorf("%w: report %s", ErrForbidden, st.Kind)
	}
	return st.Generate(ctx, s.gw, s.now())
}
