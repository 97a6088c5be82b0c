package report

import (
	"context"
	"time"
)

// State is one user's report page: the selected kind, the pending filter
// and the last generated output. Only Generate produces output.
type State struct {
	Kind   Kind
	Filter Filter
	Output *Report
	Err    error
}

// NewState starts with kind selected and nothing generated.
func NewState(kind Kind) *State {
	return &State{Kind: kind}
}

// SelectKind switches kind. The output is cleared only when the kind changes.
func (s *State) SelectKind(k Kind) {
	if k == s.Kind {
		return
	}
	s.Kind = k
	s.Output = nil
	s.Err = nil
}

// SetFilter stores new parameters without regenerating.
func (s *State) SetFilter(f Filter) {
	s.Filter = f
}

// Generate rebuilds the output from the current kind and filter. On error
// the previous output is kept and Err is set.
func (s *State) Generate(ctx context.Context, src Source, now time.Time) error {
	rep, err := Generate(ctx, src, s.Kind, s.Filter, now)
	if err != nil {
		s.Err = err
		return err
	}
	s.Output = rep
	s.Err = nil
	return nil
}

// Clone copies the state so cached values are never mutated in place.
func (s *State) Clone() *State {
	c := *s
	return &c
}
