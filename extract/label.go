package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
	"github.com/happyhackingspace/formschema/internal/textutil"
)

// LabelStrategy derives a human label for a control, or returns "".
type LabelStrategy func(ctrl *goquery.Selection, doc *Document) string

// DefaultLabelStrategies is the label cascade, most explicit source first.
var DefaultLabelStrategies = []LabelStrategy{
	LabelsAPI,
	LabelFor,
	AriaLabel,
	ContainerLabel,
	FieldsetLegend,
}

// ResolveLabel returns the first non-empty label the strategies produce.
// Without strategies it uses DefaultLabelStrategies.
func ResolveLabel(ctrl *goquery.Selection, doc *Document, strategies ...LabelStrategy) string {
	if len(strategies) == 0 {
		strategies = DefaultLabelStrategies
	}
	for _, strategy := range strategies {
		if label := strategy(ctrl, doc); label != "" {
			return label
		}
	}
	return ""
}

// LabelsAPI joins the texts of all labels associated with the control.
func LabelsAPI(ctrl *goquery.Selection, doc *Document) string {
	var parts []string
	doc.Labels(ctrl.Get(0)).Each(func(_ int, l *goquery.Selection) {
		if text := htmlutil.InnerText(l); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " / ")
}

// LabelFor uses the first label whose for attribute names the control's id.
func LabelFor(ctrl *goquery.Selection, doc *Document) string {
	id, ok := ctrl.Attr("id")
	if !ok || id == "" {
		return ""
	}
	var label *goquery.Selection
	doc.Root().Find("label[for]").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if f, _ := l.Attr("for"); f == id && !inTemplate(l.Get(0)) {
			label = l
			return false
		}
		return true
	})
	return htmlutil.InnerText(label)
}

// AriaLabel uses the control's aria-label attribute.
func AriaLabel(ctrl *goquery.Selection, _ *Document) string {
	v, _ := ctrl.Attr("aria-label")
	return textutil.Clean(v)
}

// ContainerLabel uses the first label inside the control's closest grouping
// container, falling back to its parent.
func ContainerLabel(ctrl *goquery.Selection, _ *Document) string {
	container := ctrl.Closest("div, .form-group, .row, .col, fieldset")
	if container.Length() == 0 {
		container = ctrl.Parent()
	}
	return htmlutil.InnerText(container.Find("label").First())
}

// FieldsetLegend uses the legend of the control's closest fieldset.
func FieldsetLegend(ctrl *goquery.Selection, _ *Document) string {
	return htmlutil.InnerText(ctrl.Closest("fieldset").Find("legend").First())
}
