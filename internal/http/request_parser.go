// This file turns submitted forms and query strings into domain values.
// Parsing is lenient: an unreadable date or amount becomes the zero value,
// and the entity's Validate reports it against the right field.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kanisafin/internal/aggregate"
	"kanisafin/internal/core"
	"kanisafin/internal/report"
)

const maxFormBytes = 64 << 10

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// formGet reads a sanitized value.
func formGet(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

func parseDateField(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

// parseOptionalDate is nil for an empty or unreadable value.
func parseOptionalDate(s string) *core.Date {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseMoneyField(s string) core.Money {
	cents, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

// parsePledgeAmount accepts zero and keeps the sign of negative input so
// the pledge rules can reject it.
func parsePledgeAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if z := strings.Trim(strings.ReplaceAll(s, ",", ""), "0."); z == "" && s != "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, err
	}
	if neg {
		cents = -cents
	}
	return core.Money{Cents: cents}, nil
}

func parseVersion(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func ParseExpenseForm(form url.Values) core.Expense {
	return core.Expense{
		Date:        parseDateField(form.Get("date")),
		Description: formGet(form, "description"),
		Amount:      parseMoneyField(form.Get("amount")),
		Version:     parseVersion(form.Get("version")),
	}
}

func ParseRegularOfferingForm(form url.Values) core.RegularOffering {
	return core.RegularOffering{
		Date:        parseDateField(form.Get("date")),
		ServiceType: core.ServiceType(formGet(form, "service_type")),
		Amount:      parseMoneyField(form.Get("amount")),
		Version:     parseVersion(form.Get("version")),
	}
}

// ParseEnvelopeOfferingForm defaults the envelope type to Ahadi.
func ParseEnvelopeOfferingForm(form url.Values) core.EnvelopeOffering {
	typ := core.EnvelopeType(formGet(form, "type"))
	if typ == "" {
		typ = core.EnvelopeAhadi
	}
	return core.EnvelopeOffering{
		Date:           parseDateField(form.Get("date")),
		EnvelopeNumber: formGet(form, "envelope_number"),
		Amount:         parseMoneyField(form.Get("amount")),
		Type:           typ,
	}
}

func ParseDonorForm(form url.Values) core.Donor {
	return core.Donor{
		EnvelopeNumber: formGet(form, "envelope_number"),
		FullName:       formGet(form, "full_name"),
		Phone:          formGet(form, "phone"),
		FellowshipID:   formGet(form, "fellowship_id"),
		Version:        parseVersion(form.Get("version")),
	}
}

// ParseNewUserForm reads the password untrimmed.
func ParseNewUserForm(form url.Values) core.NewUser {
	return core.NewUser{
		Email:    formGet(form, "email"),
		FullName: formGet(form, "full_name"),
		Role:     core.Role(formGet(form, "role")),
		Password: form.Get("password"),
	}
}

// ParseReportFilter reads the report parameters. Empty selects mean "all".
func ParseReportFilter(form url.Values) report.Filter {
	return report.Filter{
		Start:        parseDateField(form.Get("start")),
		End:          parseDateField(form.Get("end")),
		FellowshipID: formGet(form, "fellowship_id"),
		EnvelopeType: core.EnvelopeType(formGet(form, "envelope_type")),
		ServiceType:  core.ServiceType(formGet(form, "service_type")),
	}
}

// ParseSelection reads the dashboard range, custom dates and feed query.
func ParseSelection(q url.Values) aggregate.Selection {
	return aggregate.Selection{
		Range: aggregate.ParseRange(q.Get("range")),
		Start: parseOptionalDate(q.Get("start")),
		End:   parseOptionalDate(q.Get("end")),
		Query: sanitizeInput(q.Get("q")),
	}
}

// RequireMethod returns a 405 builder when r.Method is not listed.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// ParseFormOrFail parses a size-limited form and returns an error response on failure.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError(MsgBadRequest)
	}
	return nil
}
