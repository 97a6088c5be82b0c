package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"kanisafin/internal/core"
)

// seedEnvelope registers donor "Baraka" under envelope 7 and records one
// Ahadi envelope for them.
func (a *testApp) seedEnvelope(t *testing.T) core.EnvelopeOffering {
	t.Helper()
	ctx := context.Background()
	fs, err := a.store.ListFellowships(ctx)
	if err != nil || len(fs) == 0 {
		t.Fatalf("fellowships: %v", err)
	}
	if _, err := a.store.CreateDonor(ctx, core.Donor{EnvelopeNumber: "7", FullName: "Baraka", FellowshipID: fs[0].ID}); err != nil {
		t.Fatal(err)
	}
	d, _ := core.ParseDate("2024-07-07")
	o, err := a.store.CreateEnvelopeOffering(ctx, core.EnvelopeOffering{
		Date: d, EnvelopeNumber: "7", Amount: core.Money{Cents: 1_000_000}, Type: core.EnvelopeAhadi,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOfferingTabsFollowRole(t *testing.T) {
	app := newTestApp(t, nil)
	app.seedEnvelope(t)

	tests := []struct {
		role         core.Role
		path         string
		wantEnvelope bool
		wantTabs     bool
	}{
		{core.RoleAccountant, "/app/offerings-list?tab=envelope", false, false},
		{core.RoleAccountant, "/offerings/list?tab=envelope", false, false},
		{core.RoleElder, "/app/offerings-list", true, false},
		{core.RoleElder, "/app/offerings-list?tab=regular", true, false},
		{core.RoleAdmin, "/app/offerings-list", false, true},
		{core.RoleAdmin, "/app/offerings-list?tab=envelope", true, true},
		{core.RolePastor, "/app/offerings-list?tab=envelope", true, true},
	}
	clients := map[core.Role]*client{}
	for _, tt := range tests {
		if clients[tt.role] == nil {
			clients[tt.role] = app.loggedIn(t, tt.role)
		}
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.path, func(t *testing.T) {
			res, body := clients[tt.role].get(tt.path)
			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", res.StatusCode)
			}
			if got := strings.Contains(body, "Baraka"); got != tt.wantEnvelope {
				t.Errorf("envelope rows shown = %v, want %v", got, tt.wantEnvelope)
			}
			if got := strings.Contains(body, `role="tablist"`); got != tt.wantTabs && strings.HasPrefix(tt.path, "/app/") {
				t.Errorf("tab switcher shown = %v, want %v", got, tt.wantTabs)
			}
		})
	}
}

func TestEnvelopeRowActionsFollowRole(t *testing.T) {
	app := newTestApp(t, nil)
	o := app.seedEnvelope(t)
	deletePath := "/offerings/envelope/" + o.ID + "/delete"

	_, body := app.loggedIn(t, core.RolePastor).get("/offerings/list?tab=envelope")
	if strings.Contains(body, deletePath) {
		t.Error("pastor offered an envelope delete button")
	}

	acc := app.loggedIn(t, core.RoleAccountant)
	if res, _ := acc.post(deletePath, nil); res.StatusCode != http.StatusForbidden {
		t.Errorf("accountant delete status = %d, want 403", res.StatusCode)
	}

	elder := app.loggedIn(t, core.RoleElder)
	_, body = elder.get("/offerings/list")
	if !strings.Contains(body, deletePath) || !strings.Contains(body, "/offerings/envelope/"+o.ID+"/edit") {
		t.Errorf("elder row lacks edit or delete: %s", body)
	}
	if res, body := elder.post(deletePath, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("elder delete status = %d body = %s", res.StatusCode, body)
	}
	rows, _ := app.store.ListEnvelopeOfferings(context.Background())
	if len(rows) != 0 {
		t.Errorf("%d envelopes left, want 0", len(rows))
	}
}

func TestEditEnvelopeOffering(t *testing.T) {
	app := newTestApp(t, nil)
	o := app.seedEnvelope(t)
	c := app.loggedIn(t, core.RoleElder)

	res, body := c.get("/offerings/envelope/" + o.ID + "/edit")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("editor status = %d", res.StatusCode)
	}
	if !strings.Contains(body, `name="version" value="1"`) {
		t.Errorf("editor lacks the read version: %s", body)
	}

	form := url.Values{
		"date":            {"2024-07-07"},
		"envelope_number": {"7"},
		"type":            {string(core.EnvelopeJengo)},
		"amount":          {"15,000"},
		"version":         {"1"},
	}
	res, body = c.post("/offerings/envelope/"+o.ID+"/edit", form)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d body = %s", res.StatusCode, body)
	}
	trigger := res.Header.Get("HX-Trigger")
	for _, ev := range []string{EventRecordSaved, EventPledgeChanged} {
		if !strings.Contains(trigger, ev) {
			t.Errorf("HX-Trigger %s missing %s", trigger, ev)
		}
	}

	form.Set("envelope_number", "404")
	form.Set("version", "2")
	res, _ = c.post("/offerings/envelope/"+o.ID+"/edit", form)
	if res.StatusCode == http.StatusOK {
		t.Error("moving the envelope to an unknown donor succeeded")
	}

	// version 1 was already superseded
	form.Set("envelope_number", "7")
	form.Set("version", "1")
	res, body = c.post("/offerings/envelope/"+o.ID+"/edit", form)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("stale status = %d, want 409", res.StatusCode)
	}
	if !strings.Contains(body, MsgStale) {
		t.Errorf("stale body = %s", body)
	}

	acc := app.loggedIn(t, core.RoleAccountant)
	if res, _ := acc.get("/offerings/envelope/" + o.ID + "/edit"); res.StatusCode != http.StatusForbidden {
		t.Errorf("accountant editor status = %d, want 403", res.StatusCode)
	}
}

func TestReportKinds_ElderLacksJengo(t *testing.T) {
	app := newTestApp(t, nil)
	c := app.loggedIn(t, core.RoleElder)

	if res, _ := c.get("/reports?kind=jengo"); res.StatusCode != http.StatusForbidden {
		t.Errorf("jengo report status = %d, want 403", res.StatusCode)
	}
	res, body := c.get("/reports?kind=envelope")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("envelope report status = %d", res.StatusCode)
	}
	if strings.Contains(body, "kind=jengo") {
		t.Error("jengo tab offered to elder")
	}
}
