package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		path    string
		tls     bool
		noStore bool
	}{
		{"/app/dashboard", false, true},
		{"/reports/print", true, true},
		{"/static/app.css", false, false},
		{"/application", false, false},
		{"/login", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			csp := rec.Header().Get("Content-Security-Policy")
			if !strings.Contains(csp, HTMXOrigin) || !strings.Contains(csp, ChartOrigin) {
				t.Errorf("CSP = %q", csp)
			}
			if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
				t.Errorf("X-Frame-Options = %q", got)
			}
			if (rec.Header().Get("Cache-Control") == "no-store") != tt.noStore {
				t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
			}
			if (rec.Header().Get("Strict-Transport-Security") != "") != tt.tls {
				t.Errorf("HSTS = %q", rec.Header().Get("Strict-Transport-Security"))
			}
		})
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted peer ignores xff", "203.0.113.5:4000", "1.1.1.1", "", "203.0.113.5"},
		{"trusted proxy xff", "10.0.0.2:80", "198.51.100.7, 10.0.0.2", "", "198.51.100.7"},
		{"trusted proxy x-real-ip", "127.0.0.1:80", "", "198.51.100.8", "198.51.100.8"},
		{"garbage xff", "192.168.1.1:80", "nonsense", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		target string
		ua     string
		want   int
	}{
		{"/app/dashboard?range=7d", "Mozilla/5.0", http.StatusOK},
		{"/.env", "Mozilla/5.0", http.StatusNotFound},
		{"/static/../../etc/passwd", "", http.StatusNotFound},
		{"/login", "sqlmap/1.7", http.StatusNotFound},
		{"/wp-login.php", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.target, nil)
		req.Header.Set("User-Agent", tt.ua)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}
	if d.Blocked() != 4 {
		t.Errorf("Blocked() = %d, want 4", d.Blocked())
	}
}
