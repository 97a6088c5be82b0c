// Package session keeps the signed-in user and their active section in a
// signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
)

// CookieName is the persisted client-side key for the session.
const CookieName = "kanisa_user"

// ErrNoSession is returned by Load when the request carries no usable session.
var ErrNoSession = errors.New("no session")

// Session is the state kept between requests.
type Session struct {
	User          core.User      `json:"user"`
	ActiveSection access.Section `json:"active_section"`
}

// New returns a session for a freshly authenticated user.
func New(u core.User) *Session {
	s := &Session{User: u, ActiveSection: access.Dashboard}
	s.Reconcile()
	return s
}

// Reconcile moves the active section back to the landing section when the
// user's role may not navigate to it.
func (s *Session) Reconcile() {
	if _, ok := access.ParseSection(string(s.ActiveSection)); !ok {
		s.ActiveSection = access.Dashboard
	}
	s.ActiveSection = access.Landing(s.User.Role, s.ActiveSection)
}

// Store encodes sessions into cookies with securecookie.
type Store struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// Options configures a Store.
type Options struct {
	HashKey  []byte
	BlockKey []byte // optional; enables encryption
	MaxAge   time.Duration
	Secure   bool
}

// NewStore builds a Store. A missing hash key is replaced with a random one,
// so sessions will not survive a restart.
func NewStore(opts Options) *Store {
	hashKey := opts.HashKey
	if len(hashKey) == 0 {
		slog.Warn("SESSION_HASH_KEY not set, generating an ephemeral key", "component", "session")
		hashKey = securecookie.GenerateRandomKey(64)
	}
	var blockKey []byte
	if len(opts.BlockKey) > 0 {
		blockKey = opts.BlockKey
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Store{codec: codec, maxAge: maxAge, secure: opts.Secure}
}

// Load decodes the session cookie on r and reconciles its active section.
func (st *Store) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	var s Session
	if err := st.codec.Decode(CookieName, c.Value, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if s.User.ID == "" || !s.User.Role.IsValid() {
		return nil, ErrNoSession
	}
	s.Reconcile()
	return &s, nil
}

// Save writes s to the response as the session cookie.
func (st *Store) Save(w http.ResponseWriter, s *Session) error {
	value, err := st.codec.Encode(CookieName, s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(st.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (st *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session loaded by Middleware, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// Middleware loads the session, when present, into the request context.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := st.Load(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// redirect sends the client to target, using HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequireAuth redirects requests without a session to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// passwordChangeAllowed lists the paths a user with a pending password
// change may still reach.
var passwordChangeAllowed = map[string]bool{
	"/app/" + string(access.Profile): true,
	"/profile/password":              true,
	"/logout":                        true,
}

// RequirePasswordCurrent sends users who must change their password to the
// profile section until they do.
func RequirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if ok && s.User.MustChangePassword && !passwordChangeAllowed[r.URL.Path] {
			redirect(w, r, "/app/"+string(access.Profile))
			return
		}
		next.ServeHTTP(w, r)
	})
}
