package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kanisafin/internal/access"
	"kanisafin/internal/core"
)

type donorListView struct {
	Donors  []core.Donor
	Query   string
	CanEdit bool
}

// donorList filters by envelope number, name, phone or fellowship. The
// gateway already orders donors numerically by envelope.
func (s *Server) donorList(ctx context.Context, role core.Role, q string) (donorListView, error) {
	rows, err := s.svc.Gateway().ListDonors(ctx)
	if err != nil {
		return donorListView{}, err
	}
	v := donorListView{Query: q, CanEdit: access.CanPerform(role, access.EditDonor)}
	needle := strings.ToLower(q)
	for _, d := range rows {
		if needle == "" ||
			strings.Contains(strings.ToLower(d.EnvelopeNumber), needle) ||
			strings.Contains(strings.ToLower(d.FullName), needle) ||
			strings.Contains(d.Phone, needle) ||
			strings.Contains(strings.ToLower(d.FellowshipName), needle) {
			v.Donors = append(v.Donors, d)
		}
	}
	return v, nil
}

// donorForm attaches the fellowship choices to a donor form.
func (s *Server) donorForm(ctx context.Context, values url.Values) (*formState, error) {
	fs, err := s.svc.Gateway().ListFellowships(ctx)
	if err != nil {
		return nil, err
	}
	form := newForm(values)
	form.Data = fs
	return form, nil
}

func (s *Server) handleDonorList(w http.ResponseWriter, r *http.Request) {
	if !s.permit(w, r, access.DonorsList) {
		return
	}
	v, err := s.donorList(r.Context(), currentSession(r).User.Role, sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		s.fail(w, r, err, "list donors")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "donor_list", v)
}

func (s *Server) handleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	ctx := r.Context()
	_, err := s.svc.RegisterDonor(ctx, currentSession(r).User, ParseDonorForm(r.PostForm))
	if err != nil {
		form, ferr := s.donorForm(ctx, r.PostForm)
		if ferr != nil {
			s.fail(w, r, err, "register donor")
			return
		}
		s.failForm(w, r, err, "register donor", "form_donor", form)
		return
	}
	next, err := s.donorForm(ctx, nil)
	if err != nil {
		s.fail(w, r, err, "register donor")
		return
	}
	b := NewHTMXResponse().
		TriggerRecordSaved("donor").
		TriggerFormReset().
		TriggerSuccessNotification(MsgDonorSaved)
	s.renderFragment(w, r, b, "form_donor", next)
}

func (s *Server) handleEditDonorForm(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, access.EditDonor) {
		return
	}
	ctx := r.Context()
	d, err := s.svc.Gateway().GetDonor(ctx, r.PathValue("envelope"))
	if err != nil {
		s.fail(w, r, err, "edit donor")
		return
	}
	form, err := s.donorForm(ctx, url.Values{
		"envelope_number": {d.EnvelopeNumber},
		"full_name":       {d.FullName},
		"phone":           {d.Phone},
		"fellowship_id":   {d.FellowshipID},
		"version":         {strconv.FormatInt(d.Version, 10)},
	})
	if err != nil {
		s.fail(w, r, err, "edit donor")
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "donor_editor", form)
}

// handleUpdateDonor saves edits. The envelope number comes from the path and
// cannot be changed.
func (s *Server) handleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	if b := ParseFormOrFail(w, r); b != nil {
		b.Write(w)
		return
	}
	ctx := r.Context()
	envelope := r.PathValue("envelope")
	d := ParseDonorForm(r.PostForm)
	d.EnvelopeNumber = envelope

	if _, err := s.svc.UpdateDonor(ctx, currentSession(r).User, d); err != nil {
		values := r.PostForm
		values.Set("envelope_number", envelope)
		form, ferr := s.donorForm(ctx, values)
		if ferr != nil {
			s.fail(w, r, err, "update donor")
			return
		}
		s.failForm(w, r, err, "update donor", "donor_editor", form)
		return
	}
	NewHTMXResponse().
		TriggerRecordSaved("donor").
		TriggerSuccessNotification(MsgDonorUpdated).
		BodyHTML(`<div id="donor-editor"></div>`).
		Write(w)
}
