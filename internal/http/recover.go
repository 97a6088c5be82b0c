package http

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applog "kanisafin/internal/log"
)

// recoverer is the application's error boundary. A panic in any handler is
// logged with its stack and the whole page is replaced by the error screen,
// which offers a reload.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked",
				applog.FieldComponent, applog.ComponentHTTP,
				applog.FieldPath, r.URL.Path,
				applog.FieldError, fmt.Sprint(rec),
				"stack", string(debug.Stack()))
			s.renderErrorScreen(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}

// renderErrorScreen replaces the document body for htmx requests and writes
// a standalone page otherwise.
func (s *Server) renderErrorScreen(w http.ResponseWriter, r *http.Request) {
	b := NewHTMXResponse().Status(http.StatusInternalServerError)
	name := "error_page"
	if isHTMX(r) {
		b.Retarget("body", "innerHTML")
		name = "error_screen"
	}
	body, err := s.execute(name, struct{ Message string }{MsgGeneric})
	if err != nil {
		InternalServerError(MsgGeneric).Write(w)
		return
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(body).Write(w)
}
