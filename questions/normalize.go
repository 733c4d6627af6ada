package questions

import (
	"fmt"
	"strconv"
)

// Column questType values seen from the service.
const (
	typeHeader     = "HEADER"
	typeCheckbox   = "CHKBOX"
	typeInput      = "INPUT"
	typeRadioGroup = "RADGRP"
)

// Column ansDataType values seen from the service.
const (
	dataIndicator = "IND"
	dataMultiLine = "MULTLN"
	dataDecimal   = "DEC"
	dataDate      = "DATE"
	dataText      = "TEXT"
)

// answerTypeList marks a QAMS question with an embedded option list.
const answerTypeList = "LIST"

// ShapeError reports a question shape the normalizer does not understand.
// The shape space is not exhaustively documented by the service, so the
// failing item/restriction pairing is named for the bug report.
type ShapeError struct {
	ItemCode        string
	RestrictionCode string
	Reason          string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("cannot decode restriction questions for item %s restriction %s: %s",
		e.ItemCode, e.RestrictionCode, e.Reason)
}

// Normalize converts a raw question response into the ordered normalized
// question sequence. An empty sequence is the legitimate "no questions
// apply" outcome; a *ShapeError means the response used a shape this
// program does not know how to render and the request should not proceed.
func Normalize(resp *Response, itemCode, restrictionCode string) ([]Question, error) {
	if resp == nil {
		return nil, nil
	}

	switch {
	case resp.RestrictionQuestionDetails != nil:
		return normalizeQAMS(resp.RestrictionQuestionDetails.RestrictionQuestion), nil
	case resp.DynamicQuestions != nil:
		return normalizeDQMS(resp.DynamicQuestions.Rows, itemCode, restrictionCode)
	default:
		return nil, nil
	}
}

// normalizeQAMS maps each flat record 1:1: LIST questions become radio
// groups over their embedded options, everything else is free text. Server
// order is presentation order and is kept as-is.
func normalizeQAMS(records []QAMSQuestion) []Question {
	out := make([]Question, 0, len(records))
	for _, rec := range records {
		meta := Meta{
			ID:   strconv.Itoa(rec.Code),
			Text: string(rec.Text),
		}
		if rec.AnswerType == answerTypeList && rec.AnswerList != nil {
			options := make([]RadioOption, 0, len(rec.AnswerList.Answers))
			for _, opt := range rec.AnswerList.Answers {
				options = append(options, RadioOption{
					Label: string(opt.Text),
					Value: opt.ID,
					Group: rec.AnswerList.Code,
				})
			}
			meta.Group = rec.AnswerList.Code
			out = append(out, RadioGroup{Meta: meta, Mandatory: rec.Mandatory, Options: options})
			continue
		}
		out = append(out, FreeText{Meta: meta, Mandatory: rec.Mandatory, Format: rec.AnswerFormat})
	}
	return out
}

// normalizeDQMS infers the question kind of every row. A multi-column row
// is a checkbox group whose first column is the label; a single-column row
// dispatches on (questType, ansDataType). Anything else is a shape the
// service has not shown us before and fails loudly.
func normalizeDQMS(rows []Row, itemCode, restrictionCode string) ([]Question, error) {
	var out []Question
	for _, row := range rows {
		switch {
		case len(row.Columns) == 0:
			continue
		case len(row.Columns) > 1:
			group, err := checkboxGroup(row, itemCode, restrictionCode)
			if err != nil {
				return nil, err
			}
			out = append(out, group)
		default:
			q, err := singleColumn(row.Columns[0], itemCode, restrictionCode)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func checkboxGroup(row Row, itemCode, restrictionCode string) (Question, error) {
	label := row.Columns[0]
	boxes := make([]Checkbox, 0, len(row.Columns)-1)
	for _, col := range row.Columns[1:] {
		if col.QuestionType != typeCheckbox {
			return nil, &ShapeError{
				ItemCode:        itemCode,
				RestrictionCode: restrictionCode,
				Reason:          fmt.Sprintf("multi-column row mixes questType %q with non-checkbox columns", col.QuestionType),
			}
		}
		boxes = append(boxes, Checkbox{Meta: colMeta(col)})
	}
	return CheckboxGroup{Meta: colMeta(label), Checkboxes: boxes}, nil
}

func singleColumn(col Column, itemCode, restrictionCode string) (Question, error) {
	meta := colMeta(col)
	switch {
	case col.QuestionType == typeHeader:
		return Header{Meta: meta}, nil
	case col.QuestionType == typeCheckbox && col.AnswerDataType == dataIndicator:
		return Checkbox{Meta: meta}, nil
	case col.QuestionType == typeInput && col.AnswerDataType == dataIndicator:
		return Indicator{Meta: meta}, nil
	case col.QuestionType == typeInput && col.AnswerDataType == dataMultiLine:
		return MultiLine{Meta: meta}, nil
	case col.QuestionType == typeInput && col.AnswerDataType == dataDecimal:
		return Decimal{Meta: meta}, nil
	case col.QuestionType == typeInput && col.AnswerDataType == dataDate:
		return Date{Meta: meta}, nil
	case col.QuestionType == typeRadioGroup && col.AnswerDataType == dataText:
		options := make([]RadioOption, 0, len(col.AnswerOptions))
		for _, opt := range col.AnswerOptions {
			options = append(options, RadioOption{
				Label: string(opt.Text),
				Value: opt.Value,
				Group: col.QuestionGroup,
			})
		}
		return RadioGroup{Meta: meta, Options: options}, nil
	default:
		return nil, &ShapeError{
			ItemCode:        itemCode,
			RestrictionCode: restrictionCode,
			Reason:          fmt.Sprintf("unsupported question shape questType=%q ansDataType=%q", col.QuestionType, col.AnswerDataType),
		}
	}
}

func colMeta(col Column) Meta {
	return Meta{
		ID:    col.QuestionID,
		Text:  string(col.QuestionText),
		Group: col.QuestionGroup,
		Hint:  string(col.Hint),
	}
}
