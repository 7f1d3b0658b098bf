// Package htmlutil provides HTML loading and node helpers for field extraction.
package htmlutil

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/happyhackingspace/formschema/internal/textutil"
)

// LoadHTMLString parses an HTML string into a goquery Document.
// Strings are already UTF-8, so no charset detection happens.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// LoadHTMLBytes parses raw HTML bytes of unknown encoding.
func LoadHTMLBytes(data []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(ToUTF8(data)))
}

// ToUTF8 transcodes data from its detected charset. Data that cannot be
// decoded is returned unchanged.
func ToUTF8(data []byte) []byte {
	enc := DetectCharset(data)
	if enc == "utf-8" {
		return data
	}
	r, err := charset.NewReaderLabel(enc, bytes.NewReader(data))
	if err != nil {
		return data
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// DetectCharset returns the lowercased charset name of data, defaulting to utf-8.
func DetectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "utf-8"
	}
	name := strings.ToLower(result.Charset)
	// chardet reports pure ASCII as ISO-8859-1; UTF-8 is a superset.
	if name == "iso-8859-1" && isASCII(data) {
		return "utf-8"
	}
	return name
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// skipText lists elements whose content never contributes to rendered text.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"head":     true,
	"select":   true,
	"textarea": true,
}

// blockLevel lists elements that break text into separate runs when rendered.
var blockLevel = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "legend": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// InnerText approximates the rendered text of the selection's first node:
// text of script-like elements is skipped, block boundaries become spaces
// and whitespace is collapsed and trimmed.
func InnerText(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	return NodeText(s.Get(0))
}

// NodeText is InnerText for a bare node.
func NodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipText[n.Data] {
				return
			}
		}
		block := n.Type == html.ElementNode && blockLevel[n.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	if n.Type == html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	} else {
		walk(n)
	}
	return textutil.Clean(b.String())
}

// AttrPtr returns a pointer to the attribute value, or nil when the attribute
// is missing or empty.
func AttrPtr(s *goquery.Selection, name string) *string {
	v, ok := s.Attr(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

// HasAttr reports whether the selection's first node carries the attribute.
func HasAttr(s *goquery.Selection, name string) bool {
	_, ok := s.Attr(name)
	return ok
}

// InputType returns the lowercased type attribute of an element. Like browsers,
// it does not trim the value.
func InputType(s *goquery.Selection) string {
	tp, _ := s.Attr("type")
	return strings.ToLower(tp)
}

// IsLabelable reports whether the node can be associated with a <label>.
func IsLabelable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "button", "meter", "output", "progress", "select", "textarea":
		return true
	case "input":
		for _, a := range n.Attr {
			if a.Key == "type" {
				return !strings.EqualFold(a.Val, "hidden")
			}
		}
		return true
	}
	return false
}

// IsElement reports whether n is an element node with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}
