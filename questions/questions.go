// Package questions normalizes the two restriction-question schemas served
// by the assessment service (flat QAMS and grid-structured DQMS) into a
// single ordered sequence of typed questions the presentation layer can
// render directly.
package questions

// Question is the closed set of normalized question kinds. Variants carry a
// Meta block with the attributes common to every kind.
type Question interface {
	isQuestion()
	Base() Meta
}

// Meta holds the attributes shared by all question variants.
type Meta struct {
	ID    string
	Text  string
	Group string
	Hint  string
}

func (m Meta) Base() Meta { return m }

// Header is a non-interactive section label.
type Header struct{ Meta }

// Checkbox is a single independent yes/no tick.
type Checkbox struct{ Meta }

// CheckboxGroup is a labelled checklist. The label comes from the first
// column of its row; the ticks keep their column order.
type CheckboxGroup struct {
	Meta
	Checkboxes []Checkbox
}

// Indicator is a yes/no question rendered as an explicit choice rather
// than a tick.
type Indicator struct{ Meta }

// FreeText is a single-line text answer (QAMS non-LIST questions).
type FreeText struct {
	Meta
	Mandatory bool
	Format    string
}

// MultiLine is a multi-line text answer.
type MultiLine struct{ Meta }

// Decimal is a numeric answer with decimal places.
type Decimal struct{ Meta }

// Date is a calendar date answer.
type Date struct{ Meta }

// RadioGroup is an exclusive choice across ordered options.
type RadioGroup struct {
	Meta
	Mandatory bool
	Options   []RadioOption
}

// RadioOption is one selectable value of a RadioGroup. Options of the same
// group share the group id.
type RadioOption struct {
	Label string
	Value string
	Group string
}

func (Header) isQuestion()        {}
func (Checkbox) isQuestion()      {}
func (CheckboxGroup) isQuestion() {}
func (Indicator) isQuestion()     {}
func (FreeText) isQuestion()      {}
func (MultiLine) isQuestion()     {}
func (Decimal) isQuestion()       {}
func (Date) isQuestion()          {}
func (RadioGroup) isQuestion()    {}
