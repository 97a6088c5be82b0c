// This file is the view router: it turns the requested section and the
// user's role into the view to render.

package http

import (
	"net/http"
	"net/url"

	"kanisafin/internal/access"
	"kanisafin/internal/aggregate"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
	"kanisafin/internal/report"
	"kanisafin/internal/services"
	"kanisafin/internal/session"
)

// sectionView loads the data of one section and names its template.
type sectionView struct {
	template string
	load     func(s *Server, r *http.Request, sess *session.Session) (any, error)
}

var sectionViews = map[access.Section]sectionView{
	access.Dashboard:     {"section_dashboard", (*Server).loadDashboard},
	access.ExpensesList:  {"section_expenses_list", (*Server).loadExpenseList},
	access.ExpensesAdd:   {"section_expenses_add", (*Server).loadExpenseAdd},
	access.OfferingsList: {"section_offerings_list", (*Server).loadOfferingList},
	access.OfferingsAdd:  {"section_offerings_add", (*Server).loadOfferingAdd},
	access.DonorsList:    {"section_donors_list", (*Server).loadDonorList},
	access.DonorsAdd:     {"section_donors_add", (*Server).loadDonorAdd},
	access.Jengo:         {"section_jengo", (*Server).loadJengo},
	access.Reports:       {"section_reports", (*Server).loadReports},
	access.Admin:         {"section_admin", (*Server).loadAdmin},
	access.Profile:       {"section_profile", (*Server).loadProfile},
}

// openOn maps a parent section to the child it opens on.
var openOn = map[access.Section]access.Section{
	access.Expenses:  access.ExpensesList,
	access.Offerings: access.OfferingsList,
	access.Donors:    access.DonorsList,
}

// resolveSection returns the section to render for requested. ok is false
// for unknown identifiers and for sections role may not navigate to.
func resolveSection(role core.Role, requested string) (access.Section, bool) {
	sec, ok := access.ParseSection(requested)
	if !ok {
		return "", false
	}
	if child, ok := openOn[sec]; ok {
		sec = child
	}
	if !access.CanNavigate(role, sec) {
		return sec, false
	}
	return sec, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/app/"+string(sess.ActiveSection), http.StatusSeeOther)
}

// handleSection renders a section inside the layout and remembers it as the
// active section. A disallowed section renders the not-authorized view.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)
	requested := r.PathValue("section")

	sec, ok := resolveSection(sess.User.Role, requested)
	if !ok {
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogAccessDenied(ctx, sess.User.ID, string(sess.User.Role), requested)
		s.renderPage(w, r, http.StatusForbidden, sess, "", "section_not_authorized", nil)
		return
	}

	view := sectionViews[sec]
	data, err := view.load(s, r, sess)
	if err != nil {
		status, msg, _ := classify(err)
		logFailure(r, status, err, "load "+string(sec))
		s.renderPage(w, r, status, sess, sec, "section_failed", struct{ Message string }{msg})
		return
	}

	if sess.ActiveSection != sec {
		sess.ActiveSection = sec
		s.saveSession(w, r, sess)
	}
	s.renderPage(w, r, http.StatusOK, sess, sec, view.template, data)
}

// today is the default date of new records.
func (s *Server) today() string {
	return core.DateOf(s.now()).String()
}

type dashboardView struct {
	aggregate.Dashboard
	Selection aggregate.Selection
	Ranges    []aggregate.Range
}

func (s *Server) loadDashboard(r *http.Request, _ *session.Session) (any, error) {
	d, err := s.svc.LoadDataset(r.Context())
	if err != nil {
		return nil, err
	}
	sel := ParseSelection(r.URL.Query())
	return dashboardView{
		Dashboard: aggregate.Build(d, sel, s.now()),
		Selection: sel,
		Ranges:    aggregate.Ranges(),
	}, nil
}

func (s *Server) loadExpenseList(r *http.Request, sess *session.Session) (any, error) {
	return s.expenseList(r.Context(), sess.User.Role, sanitizeInput(r.URL.Query().Get("q")))
}

func (s *Server) loadExpenseAdd(_ *http.Request, _ *session.Session) (any, error) {
	return newForm(url.Values{"date": {s.today()}}), nil
}

func (s *Server) loadOfferingList(r *http.Request, sess *session.Session) (any, error) {
	return s.offeringList(r.Context(), sess.User.Role, r.URL.Query().Get("tab"))
}

type offeringAddView struct {
	Regular  *formState
	Envelope *formState
}

func (s *Server) loadOfferingAdd(_ *http.Request, sess *session.Session) (any, error) {
	var v offeringAddView
	if access.CanPerform(sess.User.Role, access.RecordRegularOffering) {
		v.Regular = newForm(url.Values{"date": {s.today()}})
	}
	if access.CanPerform(sess.User.Role, access.RecordEnvelopeOffering) {
		v.Envelope = newForm(url.Values{"date": {s.today()}, "type": {string(core.EnvelopeAhadi)}})
	}
	return v, nil
}

func (s *Server) loadDonorList(r *http.Request, sess *session.Session) (any, error) {
	return s.donorList(r.Context(), sess.User.Role, sanitizeInput(r.URL.Query().Get("q")))
}

func (s *Server) loadDonorAdd(r *http.Request, _ *session.Session) (any, error) {
	return s.donorForm(r.Context(), nil)
}

type jengoView struct {
	services.JengoOverview
	CanEdit bool
	Form    *formState
}

func (s *Server) loadJengo(r *http.Request, sess *session.Session) (any, error) {
	ov, err := s.svc.LoadJengo(r.Context())
	if err != nil {
		return nil, err
	}
	v := jengoView{JengoOverview: ov}
	if access.CanPerform(sess.User.Role, access.EditPledge) {
		v.CanEdit = true
		v.Form = newForm(nil)
	}
	return v, nil
}

func (s *Server) loadReports(r *http.Request, sess *session.Session) (any, error) {
	st := s.reportState(sess.User)
	if k, ok := report.ParseKind(r.URL.Query().Get("kind")); ok && report.Allowed(sess.User.Role, k) {
		st = s.selectReportKind(sess.User, k)
	}
	return s.reportPanel(r.Context(), sess.User, st, "")
}

func (s *Server) loadAdmin(r *http.Request, sess *session.Session) (any, error) {
	return s.adminView(r.Context(), sess.User, newForm(url.Values{"role": {string(core.RoleAccountant)}}))
}

type profileView struct {
	User core.User
	Form *formState
}

func (s *Server) loadProfile(_ *http.Request, sess *session.Session) (any, error) {
	return profileView{User: sess.User, Form: newForm(nil)}, nil
}
