package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/csrf"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
	"kanisafin/internal/services"
	"kanisafin/internal/session"
	appweb "kanisafin/web"
)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"plain": func(m core.Money) string { return m.Plain() },
	"date": func(d core.Date) string {
		if d.IsZero() {
			return "—"
		}
		return d.Format("02/01/2006")
	},
	"isodate": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.String()
	},
	"pct":     func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "—"
		}
		return humanize.Time(t)
	},
	"count":         func(n int) string { return humanize.Comma(int64(n)) },
	"roles":         core.Roles,
	"serviceTypes":  core.ServiceTypes,
	"envelopeTypes": core.EnvelopeTypes,
	"isChild":       func(s access.Section) bool { return s.IsChild() },
}

// parseTemplates loads every embedded page and fragment.
func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// page is the layout's data. Content is the rendered section.
type page struct {
	Title     string
	User      core.User
	Nav       []access.Section
	Active    access.Section
	Content   template.HTML
	CSRFField template.HTML
	CSRFToken string
}

// formState carries submitted values back into a re-rendered form.
type formState struct {
	Values  url.Values
	Errors  map[string]string
	Message string
	Data    any
}

func newForm(values url.Values) *formState {
	if values == nil {
		values = url.Values{}
	}
	return &formState{Values: values, Errors: map[string]string{}}
}

// Value returns the submitted value for a field.
func (f *formState) Value(name string) string {
	if f == nil {
		return ""
	}
	return f.Values.Get(name)
}

func (f *formState) Error(name string) string {
	if f == nil {
		return ""
	}
	return f.Errors[name]
}

// execute renders a named template into a buffer so a failure never leaves
// a half-written response.
func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// renderFragment writes a template with status through the response builder.
func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.templateFailure(w, r, err)
		return
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(body).Write(w)
}

// renderPage wraps a section template in the layout.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, sess *session.Session, active access.Section, name string, data any) {
	content, err := s.execute(name, data)
	if err != nil {
		s.templateFailure(w, r, err)
		return
	}
	p := page{
		Title:     active.Title(),
		Active:    active,
		Content:   template.HTML(content),
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
	}
	if sess != nil {
		p.User = sess.User
		p.Nav = access.Navigation(sess.User.Role)
	}
	body, err := s.execute("layout", p)
	if err != nil {
		s.templateFailure(w, r, err)
		return
	}
	NewHTMXResponse().Status(status).
		Header("Content-Type", "text/html; charset=utf-8").
		Body(body).
		Write(w)
}

func (s *Server) templateFailure(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).
		ErrorContext(r.Context(), "Template execution failed", applog.FieldError, err)
	InternalServerError(MsgGeneric).Write(w)
}

// classify maps a service error to a status and a form-level message.
// Validation errors return their field messages instead.
func classify(err error) (status int, message string, fields map[string]string) {
	var (
		verr     *core.ValidationError
		conflict *core.ConflictError
		missing  *core.DonorNotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "", fieldErrors(verr)
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, MsgForbidden, nil
	case errors.As(err, &conflict):
		return http.StatusConflict, conflictMessage(conflict), nil
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, donorNotFoundMessage(missing), nil
	case errors.Is(err, core.ErrStaleRecord):
		return http.StatusConflict, MsgStale, nil
	case errors.Is(err, services.ErrSelfDelete):
		return http.StatusBadRequest, MsgSelfDelete, nil
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, MsgNotFound, nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, MsgTimeout, nil
	}
	return http.StatusInternalServerError, MsgGeneric, nil
}

// logFailure records errors the user cannot fix themselves.
func logFailure(r *http.Request, status int, err error, operation string) {
	ctx := r.Context()
	events := applog.NewStructuredLogger(applog.FromContext(ctx))
	switch {
	case status == http.StatusForbidden:
		if sess, ok := session.FromContext(ctx); ok {
			events.LogAccessDenied(ctx, sess.User.ID, string(sess.User.Role), operation)
		}
	case status >= http.StatusInternalServerError:
		events.LogError(ctx, "Request failed", err, applog.ComponentHTTP, operation, nil)
	}
}

// fail renders an error as an inline block.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, operation string) {
	status, msg, fields := classify(err)
	logFailure(r, status, err, operation)
	if keys := slices.Sorted(maps.Keys(fields)); len(keys) > 0 {
		msg = fields[keys[0]]
	}
	ErrorResponse(status, msg).Write(w)
}

// failForm re-renders a form fragment with field errors or a form-level
// message.
func (s *Server) failForm(w http.ResponseWriter, r *http.Request, err error, operation, tmpl string, form *formState) {
	status, msg, fields := classify(err)
	logFailure(r, status, err, operation)
	form.Message = msg
	for k, v := range fields {
		form.Errors[k] = v
	}
	s.renderFragment(w, r, NewHTMXResponse().Status(status), tmpl, form)
}
