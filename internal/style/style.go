// Package style resolves computed display, visibility and opacity for elements
// of a static HTML document, without a browser.
//
// It applies the subset of the CSS cascade that decides whether a form control
// is shown: a user-agent default layer, author rules from <style> blocks,
// inline style attributes and !important, ordered by specificity and source
// order. Visibility inherits; display and opacity do not.
package style

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/formschema/schema"
)

// Properties the resolver tracks.
const (
	propDisplay    = "display"
	propVisibility = "visibility"
	propOpacity    = "opacity"
)

// Initial values, as reported by getComputedStyle.
const (
	initialVisibility = "visible"
	initialOpacity    = "1"
)

// Cascade origins, lowest precedence first.
const (
	originUA = iota
	originAuthor
	originInline
)

type rule struct {
	sel         cascadia.Sel
	specificity cascadia.Specificity
	order       int
	decls       []*css.Declaration
}

type candidate struct {
	value       string
	important   bool
	origin      int
	specificity cascadia.Specificity
	order       int
}

// beats reports whether c wins the cascade over o.
func (c candidate) beats(o candidate) bool {
	if c.important != o.important {
		return c.important
	}
	if c.origin != o.origin {
		// Important user-agent declarations beat author ones; normal ones lose.
		if c.important {
			return c.origin < o.origin
		}
		return c.origin > o.origin
	}
	if c.specificity != o.specificity {
		return o.specificity.Less(c.specificity)
	}
	return c.order > o.order
}

// Resolver computes styles for nodes of one document. It is not safe for
// concurrent use.
type Resolver struct {
	rules      []rule
	visibility map[*html.Node]string
}

// NewResolver collects and parses every <style> block of doc.
func NewResolver(doc *goquery.Document) *Resolver {
	r := &Resolver{visibility: make(map[*html.Node]string)}
	order := 0
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if media, ok := s.Attr("media"); ok && !screenMedia(media) {
			return
		}
		sheet, err := parser.Parse(s.Text())
		if err != nil {
			slog.Debug("Skipping unparsable stylesheet", "error", err)
			return
		}
		order = r.addRules(sheet.Rules, order)
	})
	return r
}

func (r *Resolver) addRules(rules []*css.Rule, order int) int {
	for _, cr := range rules {
		switch cr.Kind {
		case css.QualifiedRule:
			decls := relevant(cr.Declarations)
			if len(decls) == 0 {
				continue
			}
			for _, text := range cr.Selectors {
				sel, err := cascadia.Parse(text)
				if err != nil {
					continue
				}
				r.rules = append(r.rules, rule{sel: sel, specificity: sel.Specificity(), order: order, decls: decls})
				order++
			}
		case css.AtRule:
			if cr.Name == "@media" && screenMedia(cr.Prelude) {
				order = r.addRules(cr.Rules, order)
			}
		}
	}
	return order
}

// screenMedia reports whether a media query list may apply to a screen.
func screenMedia(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return q == "" || strings.Contains(q, "screen") || strings.Contains(q, "all")
}

func relevant(decls []*css.Declaration) []*css.Declaration {
	var out []*css.Declaration
	for _, d := range decls {
		switch strings.ToLower(d.Property) {
		case propDisplay, propVisibility, propOpacity:
			out = append(out, d)
		}
	}
	return out
}

// ComputedStyle returns the resolved style of an element node.
func (r *Resolver) ComputedStyle(n *html.Node) schema.Style {
	if n == nil || n.Type != html.ElementNode {
		return schema.Style{Display: "none", Visibility: initialVisibility, Opacity: initialOpacity}
	}
	return schema.Style{
		Display:    r.display(n),
		Visibility: r.computedVisibility(n),
		Opacity:    r.opacity(n),
	}
}

func (r *Resolver) display(n *html.Node) string {
	v, ok := r.cascade(n, propDisplay)
	switch {
	case !ok, v == "initial":
		return "inline"
	case v == "inherit":
		if p := parentElement(n); p != nil {
			return r.display(p)
		}
		return "inline"
	case v == "unset", v == "revert":
		return uaDisplay(n)
	}
	return v
}

func (r *Resolver) computedVisibility(n *html.Node) string {
	if v, ok := r.visibility[n]; ok {
		return v
	}
	v, ok := r.cascade(n, propVisibility)
	switch {
	case !ok, v == "inherit", v == "unset":
		v = initialVisibility
		if p := parentElement(n); p != nil {
			v = r.computedVisibility(p)
		}
	case v == "initial":
		v = initialVisibility
	}
	r.visibility[n] = v
	return v
}

func (r *Resolver) opacity(n *html.Node) string {
	v, ok := r.cascade(n, propOpacity)
	if !ok {
		return initialOpacity
	}
	if v == "inherit" {
		if p := parentElement(n); p != nil {
			return r.opacity(p)
		}
		return initialOpacity
	}
	return normalizeOpacity(v)
}

// cascade returns the winning declared value of prop for n.
func (r *Resolver) cascade(n *html.Node, prop string) (string, bool) {
	var best candidate
	found := false
	consider := func(c candidate) {
		if !found || c.beats(best) {
			best, found = c, true
		}
	}

	if prop == propDisplay {
		consider(candidate{value: uaDisplay(n), origin: originUA, important: uaImportant(n)})
	}
	for _, rl := range r.rules {
		if !rl.sel.Match(n) {
			continue
		}
		for _, d := range rl.decls {
			if strings.EqualFold(d.Property, prop) {
				consider(candidate{value: clean(d.Value), important: d.Important, origin: originAuthor, specificity: rl.specificity, order: rl.order})
			}
		}
	}
	if inline, ok := attr(n, "style"); ok {
		if decls, err := parseInline(inline); err == nil {
			for i, d := range decls {
				if strings.EqualFold(d.Property, prop) {
					consider(candidate{value: clean(d.Value), important: d.Important, origin: originInline, order: i})
				}
			}
		}
	}
	return best.value, found
}

// parseInline parses a style attribute. The parser drops the value of a final
// declaration that lacks its semicolon, so one is appended.
func parseInline(text string) ([]*css.Declaration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !strings.HasSuffix(text, ";") {
		text += ";"
	}
	return parser.ParseDeclarations(text)
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"center": true, "dd": true, "details": true, "dialog": true, "dir": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hgroup": true, "hr": true, "html": true,
	"legend": true, "main": true, "menu": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "ul": true,
}

var hiddenElements = map[string]bool{
	"area": true, "base": true, "datalist": true, "head": true, "link": true, "meta": true,
	"noscript": true, "param": true, "rp": true, "script": true, "style": true,
	"template": true, "title": true,
}

// uaDisplay returns the browser default display of an element.
func uaDisplay(n *html.Node) string {
	if _, ok := attr(n, "hidden"); ok {
		return "none"
	}
	switch {
	case hiddenElements[n.Data]:
		return "none"
	case n.Data == "input" && isHiddenInput(n):
		return "none"
	case n.Data == "input", n.Data == "select", n.Data == "textarea", n.Data == "button":
		return "inline-block"
	case n.Data == "li":
		return "list-item"
	case n.Data == "table":
		return "table"
	case n.Data == "tr":
		return "table-row"
	case n.Data == "td", n.Data == "th":
		return "table-cell"
	case blockElements[n.Data]:
		return "block"
	}
	return "inline"
}

// uaImportant reports whether the user-agent display rule is !important, which
// is the case for hidden inputs.
func uaImportant(n *html.Node) bool {
	return n.Data == "input" && isHiddenInput(n)
}

func isHiddenInput(n *html.Node) bool {
	tp, _ := attr(n, "type")
	return strings.EqualFold(tp, "hidden")
}

// normalizeOpacity formats an opacity value the way getComputedStyle does.
func normalizeOpacity(v string) string {
	pct := strings.HasSuffix(v, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return initialOpacity
	}
	if pct {
		f /= 100
	}
	f = min(max(f, 0), 1)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func clean(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}
