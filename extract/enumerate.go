package extract

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
)

const controlSelector = "input, select, textarea"

// excludedTypes are input types that never carry user data.
var excludedTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
	"file":   true,
}

// controls lists the controls a page script would see. Template content is
// inert in a browser, so controls under a <template> are left out.
func controls(doc *goquery.Document) []*goquery.Selection {
	sel := doc.Find(controlSelector)
	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if !inTemplate(s.Get(0)) {
			out = append(out, s)
		}
	})
	return out
}

func inTemplate(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if htmlutil.IsElement(p, "template") {
			return true
		}
	}
	return false
}

// Controls returns every input, select and textarea in document order,
// including the ones Enumerate skips.
func Controls(doc *Document) []*goquery.Selection {
	return controls(doc.doc)
}

// Enumerate returns the data-bearing controls in document order.
func Enumerate(doc *Document) []*goquery.Selection {
	all := Controls(doc)
	out := all[:0:0]
	for _, s := range all {
		if excludedTypes[htmlutil.InputType(s)] {
			continue
		}
		out = append(out, s)
	}
	return out
}
