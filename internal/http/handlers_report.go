package http

import (
	"context"
	"errors"
	"net/http"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
	"kanisafin/internal/report"
	"kanisafin/internal/services"
)

type reportView struct {
	Kind        report.Kind
	Kinds       []report.Kind
	Filter      report.Filter
	Output      *report.Report
	Fellowships []core.Fellowship
	Message     string
}

// reportState returns a copy of the user's cached report state, starting a
// new one when none is cached or the cached kind is no longer allowed.
func (s *Server) reportState(u core.User) *report.State {
	st := s.reports.Update(u.ID, func(cur *report.State, found bool) *report.State {
		if found && cur != nil && report.Allowed(u.Role, cur.Kind) {
			return cur
		}
		return report.NewState(report.DefaultKind(u.Role))
	})
	return st.Clone()
}

func (s *Server) selectReportKind(u core.User, k report.Kind) *report.State {
	st := s.reportState(u)
	st.SelectKind(k)
	s.reports.Set(u.ID, st)
	return st.Clone()
}

func (s *Server) reportPanel(ctx context.Context, u core.User, st *report.State, message string) (reportView, error) {
	v := reportView{
		Kind:    st.Kind,
		Kinds:   report.Available(u.Role),
		Filter:  st.Filter,
		Output:  st.Output,
		Message: message,
	}
	if st.Kind.UsesFellowship() {
		fs, err := s.svc.Gateway().ListFellowships(ctx)
		if err != nil {
			return reportView{}, err
		}
		v.Fellowships = fs
	}
	return v, nil
}

// handleReportPanel switches the report kind. The previous output is kept
// when the kind does not change.
func (s *Server) handleReportPanel(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.Reports) {
		return
	}
	u := currentSession(r).User
	st := s.reportState(u)
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := report.ParseKind(raw)
		if !ok || !report.Allowed(u.Role, k) {
			s.fail(w, r, services.ErrForbidden, "report "+raw)
			return
		}
		st = s.selectReportKind(u, k)
	}
	v, err := s.reportPanel(r.Context(), u, st, "")
	if err != nil {
		s.fail(w, r, err, "report panel")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "report_panel", v)
}

// handleReportFilter stores the parameters only; nothing is regenerated.
func (s *Server) handleReportFilter(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.Reports) {
		return
	}
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	u := currentSession(r).User
	st := s.reportState(u)
	st.SetFilter(ParseReportFilter(r.PostForm))
	s.reports.Set(u.ID, st)
	NewHTMXResponse().Status(http.StatusNoContent).Write(w)
}

// handleReportGenerate regenerates the output with the submitted filter. On
// failure the previous output stays and an error is shown above it.
func (s *Server) handleReportGenerate(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	ctx := r.Context()
	u := currentSession(r).User
	st := s.reportState(u)
	st.SetFilter(ParseReportFilter(r.PostForm))

	err := s.svc.GenerateReport(ctx, u, st)
	if errors.Is(err, services.ErrForbidden) {
		s.fail(w, r, err, "generate report")
		return
	}
	s.reports.Set(u.ID, st)

	status, message := http.StatusOK, ""
	if err != nil {
		status, _, _ = classify(err)
		logFailure(r, status, err, "generate report")
		message = MsgReportFailed
	}
	v, perr := s.reportPanel(ctx, u, st, message)
	if perr != nil {
		s.fail(w, r, perr, "report panel")
		return
	}
	b := NewHTMXResponse().Status(status)
	if message != "" {
		b.TriggerNotification(NotificationError, message, 5000)
	}
	s.renderFragment(w, r, b, "report_output", v)
}

// handleReportPrint renders the last generated output as a standalone page
// that opens the browser's print dialog.
func (s *Server) handleReportPrint(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.Reports) {
		return
	}
	st := s.reportState(currentSession(r).User)
	s.renderFragment(w, r, NewHTMXResponse(), "report_print", reportView{
		Kind:   st.Kind,
		Filter: st.Filter,
		Output: st.Output,
	})
}
