package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/happyhackingspace/formschema/internal/textutil"
	"github.com/happyhackingspace/formschema/schema"
)

// Keywords are the lowercase substrings that pull a control into a step.
type Keywords struct {
	Step1 []string `yaml:"step1" json:"step1"`
	Step2 []string `yaml:"step2" json:"step2"`
}

// DefaultKeywords returns the identity-verification (step 1) and
// business-details (step 2) keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Step1: []string{"aadhaar", "aadhar", "otp", "mobile", "name as per aadhaar"},
		Step2: []string{"pan", "p.a.n", "income tax", "gst", "enterprise", "udyam"},
	}
}

// Normalized returns a copy with lowercased, whitespace-collapsed keywords and
// empty ones dropped.
func (k Keywords) Normalized() Keywords {
	return Keywords{Step1: normalizeKeywords(k.Step1), Step2: normalizeKeywords(k.Step2)}
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		if w = textutil.Normalize(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Classify decides the step for a lowercase composite text. When both or
// neither keyword set matches, visible controls go to step 1 and hidden ones
// to step 2.
func (k Keywords) Classify(text string, hidden bool) int {
	in1 := textutil.ContainsAny(text, k.Step1)
	in2 := textutil.ContainsAny(text, k.Step2)
	switch {
	case in1 && !in2:
		return schema.Step1
	case in2 && !in1:
		return schema.Step2
	case hidden:
		return schema.Step2
	default:
		return schema.Step1
	}
}

// StepOf assigns a control to a wizard step from its label, name and section.
func (k Keywords) StepOf(ctrl *goquery.Selection, doc *Document, label, name, section string) int {
	composite := textutil.Normalize(label + " " + name + " " + section)
	return k.Classify(composite, VisibilityOf(ctrl, doc).Hidden)
}
