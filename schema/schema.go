// Package schema defines the form schema artifact produced by an extraction run.
//
// A FormSchema partitions the FieldDescriptors of one rendered form into two
// wizard steps and carries the run metadata consumers need to build controls
// and validation rules:
//
//	fs, _ := schema.Build(fields, "https://example.org/register", nil, time.Now())
//	fmt.Println(fs.Counts.Total == fs.Counts.Step1+fs.Counts.Step2) // true
package schema

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// Tag names of the controls a descriptor can describe.
const (
	TagInput    = "input"
	TagSelect   = "select"
	TagTextarea = "textarea"
)

// Wizard steps.
const (
	Step1 = 1
	Step2 = 2
)

// ErrInvalidStep is returned by Build for a descriptor outside step 1 or 2.
var ErrInvalidStep = errors.New("schema: step must be 1 or 2")

// FieldDescriptor describes one discovered form control and its inferred metadata.
type FieldDescriptor struct {
	Tag         string            `json:"tag"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	ID          *string           `json:"id"`
	Label       string            `json:"label"`
	Placeholder string            `json:"placeholder"`
	Required    bool              `json:"required"`
	Pattern     *string           `json:"pattern"`
	MinLength   *int              `json:"minLength"`
	MaxLength   *int              `json:"maxLength"`
	Dataset     map[string]string `json:"dataset"`
	Attributes  Attributes        `json:"attributes"`
	Options     []Option          `json:"options"`
	Section     string            `json:"section"`
	Visibility  Visibility        `json:"visibility"`
	Step        int               `json:"step"`
}

// Attributes holds the input hints browsers use for autofill and keyboards.
type Attributes struct {
	Autocomplete *string `json:"autocomplete"`
	InputMode    *string `json:"inputmode"`
}

// Option is one entry of a choice control.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Style holds resolved (post-cascade) style values of an element.
type Style struct {
	Display    string `json:"display"`
	Visibility string `json:"visibility"`
	Opacity    string `json:"opacity"`
}

// Visibility is the effective visibility of a control plus the raw style facts
// it was derived from.
type Visibility struct {
	Hidden bool `json:"hidden"`
	Style
}

// Counts summarizes the partition sizes of a FormSchema.
type Counts struct {
	Total int `json:"total"`
	Step1 int `json:"step1"`
	Step2 int `json:"step2"`
}

// FormSchema is the persisted artifact of one extraction run.
type FormSchema struct {
	ScrapedAt    time.Time         `json:"scrapedAt"`
	Source       string            `json:"source"`
	Counts       Counts            `json:"counts"`
	RegexLibrary map[string]string `json:"regexLibrary"`
	Step1        []FieldDescriptor `json:"step1"`
	Step2        []FieldDescriptor `json:"step2"`
}

// DefaultRegexLibrary returns the named validation patterns attached to every
// schema. Patterns are portable sources; consumers compile them in their own dialect.
func DefaultRegexLibrary() map[string]string {
	return map[string]string{
		"aadhaar": `^\d{12}$`,
		"pan":     `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`,
		"name":    `^[a-zA-Z\s]+$`,
	}
}

// Build partitions fields into the two wizard steps, preserving their order,
// and stamps the run metadata. A nil regex uses DefaultRegexLibrary.
func Build(fields []FieldDescriptor, source string, regex map[string]string, now time.Time) (*FormSchema, error) {
	fs := &FormSchema{
		ScrapedAt: now.UTC().Truncate(time.Millisecond),
		Source:    source,
		Step1:     make([]FieldDescriptor, 0, len(fields)),
		Step2:     make([]FieldDescriptor, 0),
	}
	for i, f := range fields {
		switch f.Step {
		case Step1:
			fs.Step1 = append(fs.Step1, f)
		case Step2:
			fs.Step2 = append(fs.Step2, f)
		default:
			return nil, fmt.Errorf("field %d (%q): %w", i, f.Name, ErrInvalidStep)
		}
	}
	if regex == nil {
		regex = DefaultRegexLibrary()
	}
	fs.RegexLibrary = maps.Clone(regex)
	fs.Counts = Counts{
		Total: len(fs.Step1) + len(fs.Step2),
		Step1: len(fs.Step1),
		Step2: len(fs.Step2),
	}
	return fs, nil
}

// Fields returns all descriptors, step 1 first.
func (fs *FormSchema) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fs.Step1)+len(fs.Step2))
	out = append(out, fs.Step1...)
	return append(out, fs.Step2...)
}

// IsChoice reports whether the descriptor describes a choice control.
func (f *FieldDescriptor) IsChoice() bool {
	return f.Tag == TagSelect
}
