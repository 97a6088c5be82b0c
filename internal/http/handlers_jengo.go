package http

import (
	"net/http"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
)

func (s *Server) handlePledgeList(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.Jengo) {
		return
	}
	ov, err := s.svc.LoadJengo(r.Context())
	if err != nil {
		s.fail(w, r, err, "list pledges")
		return
	}
	v := jengoView{
		JengoOverview: ov,
		CanEdit:       access.CanPerform(currentSession(r).User.Role, access.EditPledge),
	}
	s.renderFragment(w, r, NewHTMXResponse(), "pledge_list", v)
}

// handleSetPledge creates or replaces a pledge. Zero is a valid amount.
func (s *Server) handleSetPledge(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	form := newForm(r.PostForm)
	envelope := formGet(r.PostForm, "envelope_number")
	amount, err := parsePledgeAmount(r.PostForm.Get("amount"))
	if err != nil {
		v := core.NewValidation()
		v.Add("amount", core.ErrInvalidAmount)
		s.failForm(w, r, v.Err(), "set pledge", "form_pledge", form)
		return
	}
	if err := s.svc.SetPledge(r.Context(), currentSession(r).User, envelope, amount); err != nil {
		s.failForm(w, r, err, "set pledge", "form_pledge", form)
		return
	}
	b := NewHTMXResponse().
		TriggerPledgeChanged(envelope).
		TriggerFormReset().
		TriggerSuccessNotification(MsgPledgeSaved)
	s.renderFragment(w, r, b, "form_pledge", newForm(nil))
}

type historyView struct {
	Donor    core.Donor
	Pledge   *core.JengoPledge
	Ahadi    []core.EnvelopeOffering
	Jengo    []core.EnvelopeOffering
	AhadiSum core.Money
	JengoSum core.Money
}

// handleDonorHistory shows one donor's envelopes split by type, with their
// pledge when they have one.
func (s *Server) handleDonorHistory(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.Jengo) {
		return
	}
	ctx := r.Context()
	envelope := sanitizeInput(r.URL.Query().Get("envelope"))
	if envelope == "" {
		s.renderFragment(w, r, NewHTMXResponse(), "donor_history", nil)
		return
	}
	donor, rows, err := s.svc.DonorHistory(ctx, envelope)
	if err != nil {
		s.fail(w, r, err, "donor history")
		return
	}
	v := historyView{Donor: donor}
	for _, o := range rows {
		if o.Type == core.EnvelopeJengo {
			v.Jengo = append(v.Jengo, o)
			v.JengoSum = v.JengoSum.Add(o.Amount)
		} else {
			v.Ahadi = append(v.Ahadi, o)
			v.AhadiSum = v.AhadiSum.Add(o.Amount)
		}
	}
	if ov, err := s.svc.LoadJengo(ctx); err == nil {
		for i := range ov.Pledges {
			if ov.Pledges[i].EnvelopeNumber == donor.EnvelopeNumber {
				v.Pledge = &ov.Pledges[i]
				break
			}
		}
	}
	s.renderFragment(w, r, NewHTMXResponse(), "donor_history", v)
}
