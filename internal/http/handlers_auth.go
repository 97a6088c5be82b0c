package http

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
	"kanisafin/internal/session"
)

type loginView struct {
	Email     string
	Error     string
	CSRFField template.HTML
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, v loginView) {
	v.CSRFField = csrf.TemplateField(r)
	body, err := s.execute("login", v)
	if err != nil {
		s.templateFailure(w, r, err)
		return
	}
	NewHTMXResponse().Status(status).
		Header("Content-Type", "text/html; charset=utf-8").
		Body(body).
		Write(w)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/app/"+string(sess.ActiveSection), http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, loginView{})
}

// handleLogin signs the user in. Every failure shows the same message, keeps
// the email and clears the password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))

	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	u, err := s.svc.Login(ctx, email, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, core.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
			logFailure(r, status, err, "login")
		}
		s.renderLogin(w, r, status, loginView{Email: email, Error: MsgLoginFailed})
		return
	}

	s.limiter.Reset(s.detector.ExtractClientIP(r))
	sess := session.New(u)
	if err := s.sessions.Save(w, sess); err != nil {
		logFailure(r, http.StatusInternalServerError, err, "login")
		s.renderLogin(w, r, http.StatusInternalServerError, loginView{Email: email, Error: MsgGeneric})
		return
	}
	target := "/app/" + string(sess.ActiveSection)
	if u.MustChangePassword {
		target = "/app/" + string(access.Profile)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		s.reports.Delete(sess.User.ID)
		applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed out",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldUserID, sess.User.ID)
	}
	s.sessions.Clear(w)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleChangePassword replaces the user's password. A forced change sends
// the user on to the dashboard.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	sess := currentSession(r)
	form := newForm(nil)

	err := s.svc.ChangePassword(r.Context(), sess.User, r.PostForm.Get("password"), r.PostForm.Get("confirm"))
	if err != nil {
		s.failForm(w, r, err, "change password", "form_password", form)
		return
	}

	forced := sess.User.MustChangePassword
	sess.User.MustChangePassword = false
	if forced {
		sess.ActiveSection = access.Dashboard
	}
	s.saveSession(w, r, sess)

	b := NewHTMXResponse().TriggerSuccessNotification(MsgPasswordChanged)
	if forced {
		b.Redirect("/app/" + string(access.Dashboard))
	}
	s.renderFragment(w, r, b, "form_password", form)
}
