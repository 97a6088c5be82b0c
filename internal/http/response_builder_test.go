package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		Body([]byte("sawa")).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "sawa" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerRecordSaved("expense").
		TriggerFormReset().
		TriggerSuccessNotification(MsgExpenseSaved).
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, ev := range []string{EventRecordSaved, EventFormReset, EventNotification} {
		if _, ok := got[ev]; !ok {
			t.Errorf("HX-Trigger missing %q", ev)
		}
	}
	var note struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(got[EventNotification], &note); err != nil {
		t.Fatal(err)
	}
	if note.Type != "success" || note.Message != MsgExpenseSaved || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestHTMXResponseBuilder_RedirectAndRetarget(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/app/dashboard").Retarget("body", "innerHTML").Write(w)

	if got := w.Header().Get("HX-Redirect"); got != "/app/dashboard" {
		t.Errorf("HX-Redirect = %q", got)
	}
	if w.Header().Get("HX-Retarget") != "body" || w.Header().Get("HX-Reswap") != "innerHTML" {
		t.Errorf("retarget headers = %v", w.Header())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"forbidden", ForbiddenError("x"), http.StatusForbidden},
		{"too many", ErrorResponse(http.StatusTooManyRequests, "x"), http.StatusTooManyRequests},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Body.String(), `class="error"`) {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestErrorResponse_Escapes(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert(1)</script>`).Write(w)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Errorf("got %d Allow=%q", w.Code, w.Header().Get("Allow"))
	}
}
