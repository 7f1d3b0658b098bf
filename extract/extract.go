package extract

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
	"github.com/happyhackingspace/formschema/internal/textutil"
	"github.com/happyhackingspace/formschema/schema"
)

// Extractor turns controls into field descriptors.
type Extractor struct {
	Keywords   Keywords
	Strategies []LabelStrategy
}

// New returns an Extractor with the given keywords and the default label cascade.
func New(kw Keywords) *Extractor {
	return &Extractor{Keywords: kw.Normalized(), Strategies: DefaultLabelStrategies}
}

// Fields describes every enumerated control of doc in document order.
func (e *Extractor) Fields(doc *Document) []schema.FieldDescriptor {
	ctrls := Enumerate(doc)
	fields := make([]schema.FieldDescriptor, 0, len(ctrls))
	for _, ctrl := range ctrls {
		fields = append(fields, e.Describe(ctrl, doc))
	}
	return fields
}

// Describe builds the descriptor of a single control.
func (e *Extractor) Describe(ctrl *goquery.Selection, doc *Document) schema.FieldDescriptor {
	tag := goquery.NodeName(ctrl)
	id := htmlutil.AttrPtr(ctrl, "id")
	name, _ := ctrl.Attr("name")
	if name == "" && id != nil {
		name = *id
	}
	placeholder, _ := ctrl.Attr("placeholder")
	ariaRequired, _ := ctrl.Attr("aria-required")

	f := schema.FieldDescriptor{
		Tag:         tag,
		Type:        controlType(ctrl, tag),
		Name:        name,
		ID:          id,
		Label:       ResolveLabel(ctrl, doc, e.Strategies...),
		Placeholder: placeholder,
		Required:    htmlutil.HasAttr(ctrl, "required") || ariaRequired == "true",
		Pattern:     htmlutil.AttrPtr(ctrl, "pattern"),
		MinLength:   intAttr(ctrl, "minlength"),
		MaxLength:   intAttr(ctrl, "maxlength"),
		Dataset:     dataset(ctrl),
		Attributes: schema.Attributes{
			Autocomplete: attrIfPresent(ctrl, "autocomplete"),
			InputMode:    attrIfPresent(ctrl, "inputmode"),
		},
		Section:    SectionOf(ctrl, doc),
		Visibility: VisibilityOf(ctrl, doc),
	}
	if tag == schema.TagSelect {
		f.Options = options(ctrl, doc)
	}
	f.Step = e.Keywords.StepOf(ctrl, doc, f.Label, f.Name, f.Section)

	slog.Debug("Field resolved", "name", f.Name, "type", f.Type, "label", f.Label,
		"section", f.Section, "hidden", f.Visibility.Hidden, "step", f.Step)
	return f
}

// knownInputTypes are the input types browsers recognize; any other value
// behaves as text.
var knownInputTypes = map[string]bool{
	"button": true, "checkbox": true, "color": true, "date": true, "datetime-local": true,
	"email": true, "file": true, "hidden": true, "image": true, "month": true,
	"number": true, "password": true, "radio": true, "range": true, "reset": true,
	"search": true, "submit": true, "tel": true, "text": true, "time": true,
	"url": true, "week": true,
}

func controlType(ctrl *goquery.Selection, tag string) string {
	switch tag {
	case schema.TagSelect:
		return schema.TagSelect
	case schema.TagTextarea:
		return schema.TagTextarea
	}
	if tp := htmlutil.InputType(ctrl); knownInputTypes[tp] {
		return tp
	}
	return "text"
}

func intAttr(s *goquery.Selection, name string) *int {
	v, ok := s.Attr(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

// attrIfPresent returns the attribute value, including an empty one, or nil
// when the attribute is missing.
func attrIfPresent(s *goquery.Selection, name string) *string {
	v, ok := s.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

func dataset(s *goquery.Selection) map[string]string {
	out := make(map[string]string)
	if s.Length() == 0 {
		return out
	}
	for _, a := range s.Get(0).Attr {
		if key, ok := textutil.DatasetKey(a.Key); ok {
			out[key] = a.Val
		}
	}
	return out
}

func options(sel *goquery.Selection, doc *Document) []schema.Option {
	found := sel.Find("option")
	opts := make([]schema.Option, 0, found.Length())
	found.Each(func(_ int, o *goquery.Selection) {
		text := htmlutil.InnerText(o)
		opts = append(opts, schema.Option{Value: o.AttrOr("value", text), Text: text})
	})
	if live, ok := doc.SelectedOptions(sel.Get(0)); ok {
		for _, i := range live {
			if i >= 0 && i < len(opts) {
				opts[i].Selected = true
			}
		}
		return opts
	}
	markSelected(sel, found.Nodes, opts)
	return opts
}

// markSelected applies the browser selectedness rules for options whose state
// was not captured live.
func markSelected(sel *goquery.Selection, nodes []*html.Node, opts []schema.Option) {
	multiple := htmlutil.HasAttr(sel, "multiple")
	last := -1
	for i, n := range nodes {
		if hasAttr(n, "selected") {
			if multiple {
				opts[i].Selected = true
			}
			last = i
		}
	}
	if multiple {
		return
	}
	if last >= 0 {
		opts[last].Selected = true
		return
	}
	size, err := strconv.Atoi(sel.AttrOr("size", "0"))
	if err == nil && size > 1 {
		return
	}
	for i, n := range nodes {
		if !hasAttr(n, "disabled") {
			opts[i].Selected = true
			return
		}
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
