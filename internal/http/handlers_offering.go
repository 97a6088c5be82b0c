package http

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
	"kanisafin/internal/services"
)

const (
	tabRegular  = "regular"
	tabEnvelope = "envelope"
)

// offeringTabs lists the tabs each role may open, default first. Accountants
// only handle service collections and mzee only handles envelopes.
// Role columns: admin, accountant, mzee wa kanisa, pastor.
var offeringTabs = access.RoleTable[[]string]{
	[]string{tabRegular, tabEnvelope},
	[]string{tabRegular},
	[]string{tabEnvelope},
	[]string{tabRegular, tabEnvelope},
}

// resolveTab returns requested when role may open it and the role's
// default tab otherwise. ok is false for roles without any tab.
func resolveTab(role core.Role, requested string) (tab string, ok bool) {
	tabs := offeringTabs.For(role)
	if len(tabs) == 0 {
		return "", false
	}
	for _, t := range tabs {
		if t == requested {
			return t, true
		}
	}
	return tabs[0], true
}

type offeringListView struct {
	Tab       string
	ShowTabs  bool
	Regular   []core.RegularOffering
	Envelopes []core.EnvelopeOffering
	Total     core.Money
	CanEdit   bool
	CanDelete bool
}

// offeringList loads one tab, newest first.
func (s *Server) offeringList(ctx context.Context, role core.Role, tab string) (offeringListView, error) {
	tab, ok := resolveTab(role, tab)
	if !ok {
		return offeringListView{}, services.ErrForbidden
	}
	v := offeringListView{
		Tab:       tab,
		ShowTabs:  len(offeringTabs.For(role)) > 1,
		CanEdit:   access.CanPerform(role, access.EditRegularOffering),
		CanDelete: access.CanPerform(role, access.DeleteRegularOffering),
	}
	gw := s.svc.Gateway()
	if tab == tabEnvelope {
		v.CanEdit = access.CanPerform(role, access.EditEnvelopeOffering)
		v.CanDelete = access.CanPerform(role, access.DeleteEnvelopeOffering)
		rows, err := gw.ListEnvelopeOfferings(ctx)
		if err != nil {
			return offeringListView{}, err
		}
		sort.SliceStable(rows, func(i, j int) bool { return newer(rows[i].Date, rows[j].Date) })
		for _, o := range rows {
			v.Total = v.Total.Add(o.Amount)
		}
		v.Envelopes = rows
		return v, nil
	}
	rows, err := gw.ListRegularOfferings(ctx)
	if err != nil {
		return offeringListView{}, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return newer(rows[i].Date, rows[j].Date) })
	for _, o := range rows {
		v.Total = v.Total.Add(o.Amount)
	}
	v.Regular = rows
	return v, nil
}

func (s *Server) handleOfferingList(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.OfferingsList) {
		return
	}
	v, err := s.offeringList(r.Context(), currentSession(r).User.Role, r.URL.Query().Get("tab"))
	if err != nil {
		s.fail(w, r, err, "list offerings")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "offering_list", v)
}

func (s *Server) handleCreateRegularOffering(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	form := newForm(r.PostForm)
	_, err := s.svc.RecordRegularOffering(r.Context(), currentSession(r).User, ParseRegularOfferingForm(r.PostForm))
	if err != nil {
		s.failForm(w, r, err, "record regular offering", "form_regular", form)
		return
	}
	next := newForm(url.Values{"date": {r.PostForm.Get("date")}})
	b := NewHTMXResponse().
		TriggerRecordSaved("regular_offering").
		TriggerFormReset().
		TriggerSuccessNotification(MsgOfferingSaved)
	s.renderFragment(w, r, b, "form_regular", next)
}

// handleCreateEnvelopeOffering records an envelope. The fresh form keeps the
// date and type and shows what was just recorded, including the donor's
// pledge progress for Jengo envelopes.
func (s *Server) handleCreateEnvelopeOffering(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	form := newForm(r.PostForm)
	rec, err := s.svc.RecordEnvelopeOffering(r.Context(), currentSession(r).User, ParseEnvelopeOfferingForm(r.PostForm))
	if err != nil {
		s.failForm(w, r, err, "record envelope offering", "form_envelope", form)
		return
	}
	next := newForm(url.Values{
		"date": {r.PostForm.Get("date")},
		"type": {string(rec.Offering.Type)},
	})
	next.Data = rec

	b := NewHTMXResponse().
		TriggerRecordSaved("envelope_offering").
		TriggerFormReset().
		TriggerSuccessNotification(MsgEnvelopeSaved)
	if rec.Offering.Type == core.EnvelopeJengo {
		b.TriggerPledgeChanged(rec.Offering.EnvelopeNumber)
	}
	s.renderFragment(w, r, b, "form_envelope", next)
}

func (s *Server) regularByID(ctx context.Context, id string) (core.RegularOffering, error) {
	rows, err := s.svc.Gateway().ListRegularOfferings(ctx)
	if err != nil {
		return core.RegularOffering{}, err
	}
	for _, o := range rows {
		if o.ID == id {
			return o, nil
		}
	}
	return core.RegularOffering{}, core.ErrNotFound
}

func (s *Server) handleEditRegularForm(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, access.EditRegularOffering) {
		return
	}
	o, err := s.regularByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "edit regular offering")
		return
	}
	form := newForm(url.Values{
		"id":           {o.ID},
		"date":         {o.Date.String()},
		"service_type": {string(o.ServiceType)},
		"amount":       {o.Amount.Plain()},
		"version":      {strconv.FormatInt(o.Version, 10)},
	})
	s.renderFragment(w, r, NewHTMXResponse(), "regular_editor", form)
}

func (s *Server) handleUpdateRegularOffering(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	id := r.PathValue("id")
	form := newForm(r.PostForm)
	form.Values.Set("id", id)

	o := ParseRegularOfferingForm(r.PostForm)
	o.ID = id
	if _, err := s.svc.UpdateRegularOffering(r.Context(), currentSession(r).User, o); err != nil {
		s.failForm(w, r, err, "update regular offering", "regular_editor", form)
		return
	}
	NewHTMXResponse().
		TriggerRecordSaved("regular_offering").
		TriggerSuccessNotification(MsgOfferingUpdated).
		BodyHTML(`<div id="regular-editor"></div>`).
		Write(w)
}

func (s *Server) envelopeByID(ctx context.Context, id string) (core.EnvelopeOffering, error) {
	rows, err := s.svc.Gateway().ListEnvelopeOfferings(ctx)
	if err != nil {
		return core.EnvelopeOffering{}, err
	}
	for _, o := range rows {
		if o.ID == id {
			return o, nil
		}
	}
	return core.EnvelopeOffering{}, core.ErrNotFound
}

func (s *Server) handleEditEnvelopeForm(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, access.EditEnvelopeOffering) {
		return
	}
	o, err := s.envelopeByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "edit envelope offering")
		return
	}
	form := newForm(url.Values{
		"id":              {o.ID},
		"date":            {o.Date.String()},
		"envelope_number": {o.EnvelopeNumber},
		"type":            {string(o.Type)},
		"amount":          {o.Amount.Plain()},
		"version":         {strconv.FormatInt(o.Version, 10)},
	})
	s.renderFragment(w, r, NewHTMXResponse(), "envelope_editor", form)
}

func (s *Server) handleUpdateEnvelopeOffering(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	id := r.PathValue("id")
	form := newForm(r.PostForm)
	form.Values.Set("id", id)

	o := ParseEnvelopeOfferingForm(r.PostForm)
	o.ID = id
	saved, err := s.svc.UpdateEnvelopeOffering(r.Context(), currentSession(r).User, o)
	if err != nil {
		s.failForm(w, r, err, "update envelope offering", "envelope_editor", form)
		return
	}
	b := NewHTMXResponse().
		TriggerRecordSaved("envelope_offering").
		TriggerSuccessNotification(MsgOfferingUpdated).
		BodyHTML(`<div id="envelope-editor"></div>`)
	if saved.Type == core.EnvelopeJengo {
		b.TriggerPledgeChanged(saved.EnvelopeNumber)
	}
	b.Write(w)
}

func (s *Server) handleDeleteRegularOffering(w http.ResponseWriter, r *http.Request) {
	s.deleteOffering(w, r, "regular_offering", s.svc.DeleteRegularOffering)
}

func (s *Server) handleDeleteEnvelopeOffering(w http.ResponseWriter, r *http.Request) {
	s.deleteOffering(w, r, "envelope_offering", s.svc.DeleteEnvelopeOffering)
}

func (s *Server) deleteOffering(w http.ResponseWriter, r *http.Request, entity string,
	del func(ctx context.Context, actor core.User, id string) error) {
	id := r.PathValue("id")
	if err := del(r.Context(), currentSession(r).User, id); err != nil {
		s.fail(w, r, err, "delete "+entity)
		return
	}
	NewHTMXResponse().
		TriggerRecordDeleted(entity, id).
		TriggerSuccessNotification(MsgOfferingDeleted).
		Write(w)
}
