package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
)

// maxAncestorDepth caps the upward walk on pathological trees.
const maxAncestorDepth = 64

var headingTagRe = regexp.MustCompile(`^h[1-6]$`)

// SectionOf returns the text of the nearest heading-like element found by
// walking up from the control, or "" when the document root is reached.
func SectionOf(ctrl *goquery.Selection, _ *Document) string {
	n := ctrl.Get(0)
	for depth := 0; n != nil && depth < maxAncestorDepth; depth++ {
		if n.Type != html.ElementNode || n.Data == "body" || n.Data == "html" {
			return ""
		}
		if text := firstHeading(n); text != "" {
			return text
		}
		if isHeadingLike(n) {
			if text := htmlutil.NodeText(n); text != "" {
				return text
			}
		}
		n = n.Parent
	}
	return ""
}

// firstHeading returns the text of the first heading-like descendant of n,
// in document order, whose text is not empty.
func firstHeading(n *html.Node) string {
	stack := make([]*html.Node, 0, 16)
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Type != html.ElementNode {
			continue
		}
		if isHeadingLike(cur) {
			if text := htmlutil.NodeText(cur); text != "" {
				return text
			}
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return ""
}

func isHeadingLike(n *html.Node) bool {
	if headingTagRe.MatchString(n.Data) {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "role":
			if a.Val == "heading" {
				return true
			}
		case "class":
			class := strings.ToLower(a.Val)
			if strings.Contains(class, "title") || strings.Contains(class, "header") {
				return true
			}
		}
	}
	return false
}
