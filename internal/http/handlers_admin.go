package http

import (
	"context"
	"net/http"
	"net/url"

	"kanisafin/internal/core"
)

const auditLimit = 20

type adminView struct {
	Users []core.User
	Audit []core.AuditEntry
	Me    string
	Form  *formState
}

// adminView lists users and the latest audit entries. ListUsers enforces
// the admin-only rule.
func (s *Server) adminView(ctx context.Context, actor core.User, form *formState) (adminView, error) {
	users, err := s.svc.ListUsers(ctx, actor)
	if err != nil {
		return adminView{}, err
	}
	audit, err := s.svc.Gateway().ListAudit(ctx, auditLimit)
	if err != nil {
		return adminView{}, err
	}
	return adminView{Users: users, Audit: audit, Me: actor.ID, Form: form}, nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	actor := currentSession(r).User
	values := r.PostForm
	if _, err := s.svc.CreateUser(r.Context(), actor, ParseNewUserForm(values)); err != nil {
		form := newForm(url.Values{
			"email":     {values.Get("email")},
			"full_name": {values.Get("full_name")},
			"role":      {values.Get("role")},
		})
		s.failForm(w, r, err, "create user", "form_user", form)
		return
	}
	b := NewHTMXResponse().
		TriggerRecordSaved("user").
		TriggerFormReset().
		TriggerSuccessNotification(MsgUserCreated)
	s.renderFragment(w, r, b, "form_user", newForm(url.Values{"role": {string(core.RoleAccountant)}}))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteUser(r.Context(), currentSession(r).User, id); err != nil {
		s.fail(w, r, err, "delete user")
		return
	}
	NewHTMXResponse().
		TriggerRecordDeleted("user", id).
		TriggerSuccessNotification(MsgUserDeleted).
		Write(w)
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	v, err := s.adminView(r.Context(), currentSession(r).User, nil)
	if err != nil {
		s.fail(w, r, err, "list users")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "user_list", v)
}
