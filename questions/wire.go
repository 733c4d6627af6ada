package questions

import (
	"encoding/json"
	"strings"
)

// Trimmed is a string that drops surrounding whitespace on decode. Some
// text fields come back from the questions interface with a long suffix of
// whitespace; the reason has never been clear.
type Trimmed string

func (t *Trimmed) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = Trimmed(strings.TrimSpace(s))
	return nil
}

func (t Trimmed) String() string { return string(t) }

// Response is the reply from the restriction question endpoint. Exactly one
// of RestrictionQuestionDetails (QAMS) and DynamicQuestions (DQMS) is
// populated; both absent means no restriction questions apply.
type Response struct {
	PrescriberID               string             `json:"prescriberId"`
	ItemCode                   string             `json:"itemCode"`
	RestrictionCode            string             `json:"restrictionCode"`
	RestrictionQuestionDetails *QuestionDetails   `json:"restrictionQuestionDetails"`
	DynamicQuestions           *DynamicQuestions  `json:"dynamicQuestions"`
	StatusMessages             []ResponseStatus   `json:"statusMessages"`
}

// ResponseStatus mirrors the service's status message element.
type ResponseStatus struct {
	ReasonCode string `json:"reasonCode"`
	ReasonText string `json:"reasonText"`
	ReasonType string `json:"reasonType"`
}

// QuestionDetails wraps the QAMS question list.
type QuestionDetails struct {
	RestrictionQuestion []QAMSQuestion `json:"restrictionQuestion"`
}

// QAMSQuestion is a self-describing flat question record.
type QAMSQuestion struct {
	Code         int             `json:"restrictionQuestionCode"`
	OrderNumber  int             `json:"restrictionQuestionOrderNumber"`
	Text         Trimmed         `json:"restrictionQuestionText"`
	Mandatory    bool            `json:"restrictionQuestionMandatory"`
	AnswerType   string          `json:"restrictionAnswerType"`
	AnswerFormat string          `json:"restrictionAnswerFormat"`
	AnswerList   *QAMSAnswerList `json:"restrictionAnswerList"`
}

// QAMSAnswerList is the embedded option list of a LIST-typed question.
type QAMSAnswerList struct {
	Code    string             `json:"restrictionAnswerListCode"`
	Answers []QAMSAnswerOption `json:"restrictionAnswer"`
}

type QAMSAnswerOption struct {
	ID          string  `json:"restrictionAnswerId"`
	OrderNumber string  `json:"restrictionAnswerOrderNumber"`
	Text        Trimmed `json:"restrictionAnswerText"`
}

// DynamicQuestions is the DQMS grid: rows of typed columns, presented in
// server order.
type DynamicQuestions struct {
	Rows []Row `json:"rows"`
}

type Row struct {
	Columns []Column `json:"columns"`
}

// Column carries no explicit UI discriminator; the element kind is inferred
// from (questType, ansDataType) and the column count of its row.
type Column struct {
	QuestionType   string         `json:"questType"`
	QuestionID     string         `json:"questId"`
	QuestionText   Trimmed        `json:"questText"`
	QuestionGroup  string         `json:"questGroup"`
	Hint           Trimmed        `json:"htmlHintText"`
	AnswerDataType string         `json:"ansDataType"`
	AnswerOptions  []AnswerOption `json:"ansOptions"`
}

type AnswerOption struct {
	Text  Trimmed `json:"optText"`
	Value string  `json:"optValue"`
}
