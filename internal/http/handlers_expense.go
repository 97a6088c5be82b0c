package http

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
	"kanisafin/internal/services"
)

// newer orders dates newest first; the zero date sorts last.
func newer(a, b core.Date) bool {
	if a.IsZero() || b.IsZero() {
		return !a.IsZero() && b.IsZero()
	}
	return a.After(b.Time)
}

// permit refuses the request when role may not see sec.
func (s *Server) permit(w http.ResponseWriter, r *http.Request, sec access.Section) bool {
	if access.Permits(currentSession(r).User.Role, sec) {
		return true
	}
	s.fail(w, r, services.ErrForbidden, "view "+string(sec))
	return false
}

// allow refuses the request when role may not perform a.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, a access.Action) bool {
	if access.CanPerform(currentSession(r).User.Role, a) {
		return true
	}
	s.fail(w, r, services.ErrForbidden, string(a))
	return false
}

// matchAmount reports whether q appears in the formatted or whole amount.
func matchAmount(m core.Money, q string) bool {
	return strings.Contains(m.Plain(), q) || strings.Contains(strconv.FormatInt(m.Cents/100, 10), q)
}

type expenseListView struct {
	Expenses  []core.Expense
	Query     string
	Total     core.Money
	CanEdit   bool
	CanDelete bool
}

func (s *Server) expenseList(ctx context.Context, role core.Role, q string) (expenseListView, error) {
	rows, err := s.svc.Gateway().ListExpenses(ctx)
	if err != nil {
		return expenseListView{}, err
	}
	v := expenseListView{
		Query:     q,
		CanEdit:   access.CanPerform(role, access.EditExpense),
		CanDelete: access.CanPerform(role, access.DeleteExpense),
	}
	needle := strings.ToLower(q)
	for _, e := range rows {
		if needle != "" && !strings.Contains(strings.ToLower(e.Description), needle) && !matchAmount(e.Amount, needle) {
			continue
		}
		v.Expenses = append(v.Expenses, e)
		v.Total = v.Total.Add(e.Amount)
	}
	sort.SliceStable(v.Expenses, func(i, j int) bool { return newer(v.Expenses[i].Date, v.Expenses[j].Date) })
	return v, nil
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.ExpensesList) {
		return
	}
	v, err := s.expenseList(r.Context(), currentSession(r).User.Role, sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		s.fail(w, r, err, "list expenses")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "expense_list", v)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	form := newForm(r.PostForm)
	_, err := s.svc.CreateExpense(r.Context(), currentSession(r).User, ParseExpenseForm(r.PostForm))
	if err != nil {
		s.failForm(w, r, err, "create expense", "form_expense", form)
		return
	}
	// keep the date for the next entry of the same day
	next := newForm(url.Values{"date": {r.PostForm.Get("date")}})
	b := NewHTMXResponse().
		TriggerRecordSaved("expense").
		TriggerFormReset().
		TriggerSuccessNotification(MsgExpenseSaved)
	s.renderFragment(w, r, b, "form_expense", next)
}

// expenseByID scans the list; the gateway has no single-row read.
func (s *Server) expenseByID(ctx context.Context, id string) (core.Expense, error) {
	rows, err := s.svc.Gateway().ListExpenses(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range rows {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, access.EditExpense) {
		return
	}
	e, err := s.expenseByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "edit expense")
		return
	}
	form := newForm(url.Values{
		"id":          {e.ID},
		"date":        {e.Date.String()},
		"description": {e.Description},
		"amount":      {e.Amount.Plain()},
		"version":     {strconv.FormatInt(e.Version, 10)},
	})
	s.renderFragment(w, r, NewHTMXResponse(), "expense_editor", form)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	id := r.PathValue("id")
	form := newForm(r.PostForm)
	form.Values.Set("id", id)

	e := ParseExpenseForm(r.PostForm)
	e.ID = id
	if _, err := s.svc.UpdateExpense(r.Context(), currentSession(r).User, e); err != nil {
		s.failForm(w, r, err, "update expense", "expense_editor", form)
		return
	}
	NewHTMXResponse().
		TriggerRecordSaved("expense").
		TriggerSuccessNotification(MsgExpenseUpdated).
		BodyHTML(`<div id="expense-editor"></div>`).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteExpense(r.Context(), currentSession(r).User, id); err != nil {
		s.fail(w, r, err, "delete expense")
		return
	}
	NewHTMXResponse().
		TriggerRecordDeleted("expense", id).
		TriggerSuccessNotification(MsgExpenseDeleted).
		Write(w)
}
