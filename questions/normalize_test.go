package questions_test

import (
	"encoding/json"
	"testing"

	"github.com/sierraromeo/go-pbs-authority/questions"
	"github.com/stretchr/testify/require"
)

const (
	testItemCode        = "09123K"
	testRestrictionCode = "4105"
)

func column(questType, ansDataType, id, text string) questions.Column {
	return questions.Column{
		QuestionType:   questType,
		QuestionID:     id,
		QuestionText:   questions.Trimmed(text),
		QuestionGroup:  "G1",
		AnswerDataType: ansDataType,
	}
}

func dynamicResponse(rows ...questions.Row) *questions.Response {
	return &questions.Response{
		ItemCode:         testItemCode,
		RestrictionCode:  testRestrictionCode,
		DynamicQuestions: &questions.DynamicQuestions{Rows: rows},
	}
}

func TestNormalize_NoQuestions(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		qs, err := questions.Normalize(nil, testItemCode, testRestrictionCode)
		require.NoError(t, err)
		require.Empty(t, qs)
	})

	t.Run("neither shape present", func(t *testing.T) {
		qs, err := questions.Normalize(&questions.Response{ItemCode: testItemCode}, testItemCode, testRestrictionCode)
		require.NoError(t, err)
		require.Empty(t, qs)
	})
}

func TestNormalize_QAMS(t *testing.T) {
	resp := &questions.Response{
		RestrictionQuestionDetails: &questions.QuestionDetails{
			RestrictionQuestion: []questions.QAMSQuestion{
				{
					Code:       101,
					Text:       "Has the patient tried first-line therapy?",
					Mandatory:  true,
					AnswerType: "LIST",
					AnswerList: &questions.QAMSAnswerList{
						Code: "L55",
						Answers: []questions.QAMSAnswerOption{
							{ID: "1", Text: "Yes"},
							{ID: "2", Text: "No"},
						},
					},
				},
				{
					Code:         102,
					Text:         "Date of most recent pathology",
					Mandatory:    false,
					AnswerType:   "TEXT",
					AnswerFormat: "DATE",
				},
			},
		},
	}

	qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	require.NoError(t, err)
	require.Len(t, qs, 2)

	radio, ok := qs[0].(questions.RadioGroup)
	require.True(t, ok)
	require.Equal(t, "101", radio.ID)
	require.True(t, radio.Mandatory)
	require.Equal(t, "L55", radio.Group)
	require.Len(t, radio.Options, 2)
	require.Equal(t, questions.RadioOption{Label: "Yes", Value: "1", Group: "L55"}, radio.Options[0])
	require.Equal(t, questions.RadioOption{Label: "No", Value: "2", Group: "L55"}, radio.Options[1])

	text, ok := qs[1].(questions.FreeText)
	require.True(t, ok)
	require.Equal(t, "102", text.ID)
	require.False(t, text.Mandatory)
	require.Equal(t, "DATE", text.Format)
}

func TestNormalize_DQMSCheckboxGroup(t *testing.T) {
	resp := dynamicResponse(questions.Row{Columns: []questions.Column{
		column("HEADER", "", "H1", "Patient must meet all of:"),
		column("CHKBOX", "IND", "C1", "Condition one"),
		column("CHKBOX", "IND", "C2", "Condition two"),
	}})

	qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	group, ok := qs[0].(questions.CheckboxGroup)
	require.True(t, ok)
	require.Equal(t, "H1", group.ID)
	require.Equal(t, "Patient must meet all of:", group.Text)
	require.Len(t, group.Checkboxes, 2)
	require.Equal(t, "C1", group.Checkboxes[0].ID)
	require.Equal(t, "C2", group.Checkboxes[1].ID)
}

func TestNormalize_DQMSMixedRowFails(t *testing.T) {
	resp := dynamicResponse(questions.Row{Columns: []questions.Column{
		column("INPUT", "IND", "Q1", "Is the patient pregnant?"),
		column("RADGRP", "TEXT", "Q2", "Severity"),
	}})

	qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	require.Nil(t, qs)
	require.Error(t, err)

	var shapeErr *questions.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, testItemCode, shapeErr.ItemCode)
	require.Equal(t, testRestrictionCode, shapeErr.RestrictionCode)
}

func TestNormalize_DQMSSingleColumns(t *testing.T) {
	cases := []struct {
		name string
		col  questions.Column
		want questions.Question
	}{
		{"header", column("HEADER", "", "H1", "Section"), questions.Header{}},
		{"checkbox", column("CHKBOX", "IND", "C1", "Tick"), questions.Checkbox{}},
		{"indicator", column("INPUT", "IND", "I1", "Yes or no"), questions.Indicator{}},
		{"multiline", column("INPUT", "MULTLN", "M1", "Clinical detail"), questions.MultiLine{}},
		{"decimal", column("INPUT", "DEC", "D1", "Weight in kg"), questions.Decimal{}},
		{"date", column("INPUT", "DATE", "T1", "Date of test"), questions.Date{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := dynamicResponse(questions.Row{Columns: []questions.Column{tc.col}})
			qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
			require.NoError(t, err)
			require.Len(t, qs, 1)
			require.IsType(t, tc.want, qs[0])
			require.Equal(t, tc.col.QuestionID, qs[0].Base().ID)
		})
	}
}

func TestNormalize_DQMSRadioGroup(t *testing.T) {
	col := column("RADGRP", "TEXT", "R1", "Treatment phase")
	col.AnswerOptions = []questions.AnswerOption{
		{Text: "Initial", Value: "I"},
		{Text: "Continuing", Value: "C"},
	}
	resp := dynamicResponse(questions.Row{Columns: []questions.Column{col}})

	qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	radio, ok := qs[0].(questions.RadioGroup)
	require.True(t, ok)
	require.Len(t, radio.Options, 2)
	// Options share the column's question group.
	require.Equal(t, questions.RadioOption{Label: "Initial", Value: "I", Group: "G1"}, radio.Options[0])
	require.Equal(t, questions.RadioOption{Label: "Continuing", Value: "C", Group: "G1"}, radio.Options[1])
}

func TestNormalize_DQMSUnsupportedShape(t *testing.T) {
	resp := dynamicResponse(questions.Row{Columns: []questions.Column{
		column("SLIDER", "PCT", "S1", "Lung function"),
	}})

	_, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	var shapeErr *questions.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Contains(t, shapeErr.Error(), testItemCode)
	require.Contains(t, shapeErr.Error(), "SLIDER")
}

func TestNormalize_PreservesRowOrder(t *testing.T) {
	resp := dynamicResponse(
		questions.Row{Columns: []questions.Column{column("HEADER", "", "H1", "First")}},
		questions.Row{Columns: []questions.Column{column("INPUT", "DEC", "D1", "Second")}},
		questions.Row{Columns: []questions.Column{column("INPUT", "DATE", "T1", "Third")}},
	)

	qs, err := questions.Normalize(resp, testItemCode, testRestrictionCode)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	require.Equal(t, "H1", qs[0].Base().ID)
	require.Equal(t, "D1", qs[1].Base().ID)
	require.Equal(t, "T1", qs[2].Base().ID)
}

func TestResponseDecode_TrimsWhitespace(t *testing.T) {
	raw := `{
		"itemCode": "09123K",
		"dynamicQuestions": {"rows": [{"columns": [
			{"questType": "INPUT", "questId": "Q1", "ansDataType": "IND",
			 "questText": "Is this the first course?                    ",
			 "htmlHintText": "  Select yes or no  "}
		]}]}
	}`

	var resp questions.Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	qs, err := questions.Normalize(&resp, testItemCode, testRestrictionCode)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, "Is this the first course?", qs[0].Base().Text)
	require.Equal(t, "Select yes or no", qs[0].Base().Hint)
}
