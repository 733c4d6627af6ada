// Package authority drives the lifecycle of a single PBS authority
// prescription request against the Services Australia assessment service:
// restriction question retrieval, submission, and override resubmission,
// with the status-code driven editability rules in between.
package authority

import (
	"time"

	"github.com/sierraromeo/go-pbs-authority/internal/utils"
)

// unsetDoseFrequency is the sentinel the presentation layer leaves in place
// when the prescriber never touched the field. The service expects 0.
const unsetDoseFrequency = -1

// Patient identifies the patient on the request.
type Patient struct {
	MedicareNumber string `json:"medicareNumber"`
	FirstName      string `json:"patientFirstName"`
	Surname        string `json:"patientSurname"`
}

// Item describes the prescribed item and dosage.
type Item struct {
	ItemCode        string `json:"itemCode"`
	Quantity        int    `json:"quantity"`
	NumberOfRepeats int    `json:"numberOfRepeats"`
	Dose            string `json:"dose"`
	DoseFrequency   int    `json:"doseFrequency"`
	DoseInterval    int    `json:"doseInterval"`
	DoseIntervalUnit string `json:"doseIntervalUnit,omitempty"`
}

// Details carries the restriction code and, for QAMS items, the collected
// answers.
type Details struct {
	RestrictionCode     string       `json:"restrictionCode"`
	RestrictionQuestion []QAMSAnswer `json:"restrictionQuestion,omitempty"`
}

// QAMSAnswer is one answer in the QAMS format. Free-form answers populate
// Answer; LIST answers populate the list code and selected answer id.
type QAMSAnswer struct {
	QuestionCode   int    `json:"restrictionQuestionCode"`
	Answer         string `json:"restrictionQuestionAnswer,omitempty"`
	AnswerListCode string `json:"restrictionAnswerListCode,omitempty"`
	AnswerID       string `json:"restrictionAnswerID,omitempty"`
}

// DynamicAnswer is one answer in the DQMS format. Exactly one of the value
// fields is set, matching the question's ansDataType.
type DynamicAnswer struct {
	ID             string   `json:"questId"`
	Group          string   `json:"questGroup"`
	AnswerDataType string   `json:"ansDataType"`
	String         *string  `json:"ansString,omitempty"`
	Number         *float64 `json:"ansNumber,omitempty"`
	Date           string   `json:"ansDate,omitempty"`
	Decimal        *float64 `json:"ansDecFormat,omitempty"`
}

// wireDateFormat is the service's date answer layout.
const wireDateFormat = "2006-01-02"

// NewDateAnswer builds a DQMS date answer. A zero time serializes as no
// date at all.
func NewDateAnswer(id, group string, t time.Time) DynamicAnswer {
	a := DynamicAnswer{ID: id, Group: group, AnswerDataType: "DATE"}
	if !t.IsZero() {
		a.Date = t.Format(wireDateFormat)
	}
	return a
}

// NewIndicatorAnswer builds a DQMS yes/no answer for an indicator or
// checkbox question.
func NewIndicatorAnswer(id, group string, checked bool) DynamicAnswer {
	value := "N"
	if checked {
		value = "Y"
	}
	return DynamicAnswer{ID: id, Group: group, AnswerDataType: "IND", String: utils.Ptr(value)}
}

// NewTextAnswer builds a DQMS text answer for single or multi line
// questions and for radio group selections.
func NewTextAnswer(id, group, dataType, text string) DynamicAnswer {
	return DynamicAnswer{ID: id, Group: group, AnswerDataType: dataType, String: utils.Ptr(text)}
}

// NewDecimalAnswer builds a DQMS decimal answer.
func NewDecimalAnswer(id, group string, value float64) DynamicAnswer {
	return DynamicAnswer{ID: id, Group: group, AnswerDataType: "DEC", Decimal: utils.Ptr(value)}
}

// Request holds the details of one authority request and is the scaffolding
// for the JSON request body. QAMS and DQMS answers are mutually exclusive;
// use SetAnswers/SetDynamicAnswers rather than assigning both.
type Request struct {
	PrescriberID               string          `json:"prescriberId"`
	ScriptNumber               string          `json:"authorityPrescriptionNumber"`
	PatientDetails             Patient         `json:"patientDetails"`
	ItemDetails                Item            `json:"itemDetails"`
	CertifyIndicator           string          `json:"certifyIndicator"`
	RestrictionQuestionDetails Details         `json:"restrictionQuestionDetails"`
	DynamicAnswers             []DynamicAnswer `json:"dynamicQuestAnswerValue,omitempty"`

	// OverrideCode is only used for updates.
	OverrideCode string `json:"overrideCode,omitempty"`

	// AuthorityUniqueID is issued by the service on first assessment and
	// never cleared afterwards.
	AuthorityUniqueID string `json:"authorityUniqueID,omitempty"`

	// Editable reports whether this request may still be resubmitted with
	// changes. It flips to false on a terminal assessment outcome and is
	// the controller's only persistent state mutation.
	Editable bool `json:"-"`
}

// NewRequest creates an editable request for one prescriber with the
// certify indicator preset and the dose frequency sentinel in place.
func NewRequest(prescriberID string) *Request {
	return &Request{
		PrescriberID:     prescriberID,
		CertifyIndicator: "Y",
		ItemDetails:      Item{DoseFrequency: unsetDoseFrequency},
		Editable:         true,
	}
}

// SetAnswers installs QAMS answers, clearing any DQMS answers.
func (r *Request) SetAnswers(answers []QAMSAnswer) {
	r.RestrictionQuestionDetails.RestrictionQuestion = answers
	r.DynamicAnswers = nil
}

// SetDynamicAnswers installs DQMS answers, clearing any QAMS answers.
func (r *Request) SetDynamicAnswers(answers []DynamicAnswer) {
	r.DynamicAnswers = answers
	r.RestrictionQuestionDetails.RestrictionQuestion = nil
}

// normalizeForSubmit applies domain defaults before serialization. An
// untouched dose frequency means "0 times a day", not absence.
func (r *Request) normalizeForSubmit() {
	if r.ItemDetails.DoseFrequency == unsetDoseFrequency {
		r.ItemDetails.DoseFrequency = 0
	}
}
