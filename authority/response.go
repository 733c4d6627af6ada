package authority

import "encoding/json"

// Assessment outcome codes. These are strings on the wire, not integers.
const (
	CodeApproved            = "1"
	CodeApprovedWithChanges = "2"
	CodeRejected            = "3"
	CodePending             = "4"
	CodePreviouslyRejected  = "5" // previously rejected, now approved
	CodeNotRequired         = "6" // authority not required
)

// Response is the assessment service reply to a submit or update. When the
// service fails at the protocol level it returns the documented error
// envelope instead: distinct code/message fields and nothing else.
type Response struct {
	AuthorityUniqueID           string             `json:"authorityUniqueId,omitempty"`
	AuthorityPrescriptionNumber string             `json:"authorityPrescriptionNumber,omitempty"`
	PrescriberID                string             `json:"prescriberId,omitempty"`
	OverrideDetails             []OverrideDetail   `json:"overrideDetail,omitempty"`
	AssessmentDetails           *AssessmentDetails `json:"assessmentDetails,omitempty"`
	AuthorityApprovalNumber     string             `json:"authorityApprovalNumber,omitempty"`
	StatusMessages              []StatusMessage    `json:"statusMessages,omitempty"`

	// Error envelope fields ("PBS Authority Common Details", section 3.1).
	ErrorCode    json.Number `json:"code,omitempty"`
	ErrorMessage string      `json:"message,omitempty"`
}

// AssessmentDetails is the assessment outcome: a code from the table above
// plus its display text.
type AssessmentDetails struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// OverrideDetail is one override the prescriber may attach to a rejected
// request when resubmitting.
type OverrideDetail struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// StatusMessage is a reason the service attaches to an assessment, e.g. a
// missing patient name.
type StatusMessage struct {
	ReasonCode        string `json:"reasonCode"`
	ReasonText        string `json:"reasonText"`
	ReasonType        string `json:"reasonType"`
	OverrideIndicator string `json:"overrideIndicator"`
}

// finalized reports whether an assessment code ends the request's editable
// life. Rejected (3) and authority-not-required (6) requests may be
// resubmitted with changes.
func finalized(code string) bool {
	switch code {
	case CodeApproved, CodeApprovedWithChanges, CodePending, CodePreviouslyRejected:
		return true
	}
	return false
}
