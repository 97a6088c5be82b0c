package http

import (
	"errors"
	"fmt"

	"kanisafin/internal/core"
)

// User-facing messages.
const (
	MsgExpenseSaved    = "Matumizi yamehifadhiwa kikamilifu!"
	MsgExpenseUpdated  = "Matumizi yamesasishwa."
	MsgExpenseDeleted  = "Matumizi yamefutwa."
	MsgOfferingSaved   = "Sadaka imerekodiwa!"
	MsgEnvelopeSaved   = "Bahasha imerekodiwa!"
	MsgOfferingUpdated = "Sadaka imesasishwa."
	MsgOfferingDeleted = "Sadaka imefutwa."
	MsgDonorSaved      = "Mhumini amesajiliwa kikamilifu!"
	MsgDonorUpdated    = "Taarifa za mhumini zimesasishwa."
	MsgPledgeSaved     = "Ahadi imehifadhiwa."
	MsgUserCreated     = "Mtumiaji ameongezwa."
	MsgUserDeleted     = "Mtumiaji amefutwa."
	MsgPasswordChanged = "Nenosiri limebadilishwa."

	MsgLoginFailed      = "Hitilafu imetokea. Hakikisha baruapepe na nenosiri ni sahihi."
	MsgGeneric          = "Hitilafu imetokea. Jaribu tena."
	MsgBadRequest       = "Ombi si sahihi."
	MsgForbidden        = "Huna ruhusa ya kufanya kitendo hiki."
	MsgStale            = "Rekodi hii imebadilishwa na mtu mwingine. Pakia upya ukurasa."
	MsgNotFound         = "Rekodi haikupatikana."
	MsgSelfDelete       = "Huwezi kufuta akaunti yako mwenyewe."
	MsgTimeout          = "Seva imechelewa kujibu. Jaribu tena."
	MsgRateLimited      = "Majaribio mengi mno. Subiri dakika moja kisha ujaribu tena."
	MsgCSRF             = "Fomu imeisha muda wake. Pakia upya ukurasa."
	MsgReportFailed     = "Hitilafu wakati wa kutengeneza ripoti"
	MsgReportEmpty      = "Hakuna taarifa kulingana na vigezo vilivyochaguliwa."
	MsgPledgeUpdateLate = "Bahasha imerekodiwa, lakini ahadi haikuweza kusasishwa. Pakia upya ukurasa."
)

// fieldMessages translates validation errors for display next to a field.
var fieldMessages = map[error]string{
	core.ErrInvalidDate:         "Tarehe si sahihi.",
	core.ErrInvalidAmount:       "Weka kiasi sahihi kilicho zaidi ya sifuri.",
	core.ErrEmptyDescription:    "Maelezo yanahitajika.",
	core.ErrDescriptionTooLong:  "Maelezo ni marefu mno.",
	core.ErrInvalidServiceType:  "Chagua aina ya ibada.",
	core.ErrInvalidEnvelopeType: "Chagua aina ya bahasha.",
	core.ErrInvalidEnvelope:     "Namba ya bahasha si sahihi.",
	core.ErrEmptyName:           "Jina linahitajika.",
	core.ErrMissingFellowship:   "Chagua jumuiya.",
	core.ErrInvalidEmail:        "Baruapepe si sahihi.",
	core.ErrInvalidRole:         "Chagua cheo.",
	core.ErrPasswordTooShort:    fmt.Sprintf("Nenosiri lazima liwe na herufi %d au zaidi.", core.MinPasswordLength),
	core.ErrPasswordMismatch:    "Nenosiri hazilingani.",
	core.ErrNegativePledge:      "Ahadi haiwezi kuwa hasi.",
}

func fieldMessage(err error) string {
	for target, msg := range fieldMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return err.Error()
}

// fieldErrors flattens a validation error for templates.
func fieldErrors(verr *core.ValidationError) map[string]string {
	out := make(map[string]string, len(verr.Fields))
	for field, err := range verr.Fields {
		out[field] = fieldMessage(err)
	}
	return out
}

func conflictMessage(c *core.ConflictError) string {
	if c.Entity == "donor" {
		return fmt.Sprintf("Namba ya bahasha %s tayari imesajiliwa.", c.Key)
	}
	return fmt.Sprintf("%s tayari ipo.", c.Key)
}

func donorNotFoundMessage(e *core.DonorNotFoundError) string {
	return fmt.Sprintf("Hakuna mhumini aliyesajiliwa kwa namba ya bahasha %s.", e.EnvelopeNumber)
}
