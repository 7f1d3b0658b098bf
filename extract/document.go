// Package extract infers a schema.FieldDescriptor for every data-bearing
// control of a rendered form.
//
// All resolvers take an explicit read-only *Document, so each strategy can be
// exercised in isolation:
//
//	gq, _ := htmlutil.LoadHTMLString(page)
//	doc := extract.NewDocument(gq)
//	fields := extract.New(extract.DefaultKeywords()).Fields(doc)
//
// Resolution is best-effort: a missing label, section or attribute yields an
// empty value, never an error.
package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
	"github.com/happyhackingspace/formschema/internal/style"
	"github.com/happyhackingspace/formschema/schema"
)

// StyleSource resolves the computed style of an element.
type StyleSource interface {
	ComputedStyle(n *html.Node) schema.Style
}

// ControlState is the live state a page driver captured for one control, in
// the order of Controls.
type ControlState struct {
	schema.Style
	// Selected holds the indexes of selected options; nil for non-select controls.
	Selected []int `json:"selected,omitempty"`
}

// Document is a read-only view of one page snapshot.
type Document struct {
	doc      *goquery.Document
	styles   StyleSource
	states   []ControlState
	selected map[*html.Node][]int
	byID     map[string]*html.Node
	labels   map[*html.Node][]*html.Node
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithStyles resolves styles through s instead of the document's own stylesheets.
func WithStyles(s StyleSource) DocumentOption {
	return func(d *Document) { d.styles = s }
}

// WithControlStates uses driver-captured styles and option selections. The
// states must line up with Controls; on a length mismatch they are ignored
// and styles are resolved from the markup.
func WithControlStates(states []ControlState) DocumentOption {
	return func(d *Document) { d.states = states }
}

// NewDocument indexes doc for extraction.
func NewDocument(doc *goquery.Document, opts ...DocumentOption) *Document {
	d := &Document{
		doc:    doc,
		byID:   make(map[string]*html.Node),
		labels: make(map[*html.Node][]*html.Node),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.styles == nil {
		d.styles = style.NewResolver(doc)
	}
	if d.states != nil {
		d.applyStates()
	}
	d.index()
	return d
}

func (d *Document) applyStates() {
	nodes := controls(d.doc)
	if len(nodes) != len(d.states) {
		slog.Warn("Control states do not match the document, resolving styles from markup",
			"controls", len(nodes), "states", len(d.states))
		return
	}
	computed := make(map[*html.Node]schema.Style, len(nodes))
	d.selected = make(map[*html.Node][]int)
	for i, s := range nodes {
		n := s.Get(0)
		computed[n] = d.states[i].Style
		if d.states[i].Selected != nil {
			d.selected[n] = d.states[i].Selected
		}
	}
	d.styles = snapshotStyles{computed: computed, fallback: d.styles}
}

// index records the first element per id and the labels associated with each
// labelable element.
func (d *Document) index() {
	d.doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if id == "" || inTemplate(s.Get(0)) {
			return
		}
		if _, seen := d.byID[id]; !seen {
			d.byID[id] = s.Get(0)
		}
	})
	d.doc.Find("label").Each(func(_ int, l *goquery.Selection) {
		if inTemplate(l.Get(0)) {
			return
		}
		var target *html.Node
		if forID, ok := l.Attr("for"); ok {
			if forID != "" {
				target = d.byID[forID]
			}
		} else {
			l.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if htmlutil.IsLabelable(s.Get(0)) {
					target = s.Get(0)
					return false
				}
				return true
			})
		}
		if htmlutil.IsLabelable(target) {
			d.labels[target] = append(d.labels[target], l.Get(0))
		}
	})
}

// Root returns the whole document as a selection.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Style returns the computed style of n.
func (d *Document) Style(n *html.Node) schema.Style {
	return d.styles.ComputedStyle(n)
}

// Labels returns the label elements associated with n, in document order.
func (d *Document) Labels(n *html.Node) *goquery.Selection {
	return d.doc.FindNodes(d.labels[n]...)
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) (*html.Node, bool) {
	n, ok := d.byID[id]
	return n, ok
}

// SelectedOptions returns the option indexes a driver captured as selected for n.
func (d *Document) SelectedOptions(n *html.Node) ([]int, bool) {
	idx, ok := d.selected[n]
	return idx, ok
}

type snapshotStyles struct {
	computed map[*html.Node]schema.Style
	fallback StyleSource
}

func (s snapshotStyles) ComputedStyle(n *html.Node) schema.Style {
	if st, ok := s.computed[n]; ok {
		return st
	}
	return s.fallback.ComputedStyle(n)
}
