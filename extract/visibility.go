package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/happyhackingspace/formschema/internal/htmlutil"
	"github.com/happyhackingspace/formschema/schema"
)

// VisibilityOf reports the effective visibility of a control from its
// resolved style.
func VisibilityOf(ctrl *goquery.Selection, doc *Document) schema.Visibility {
	st := doc.Style(ctrl.Get(0))
	hidden := (goquery.NodeName(ctrl) == schema.TagInput && htmlutil.InputType(ctrl) == "hidden") ||
		st.Display == "none" ||
		st.Visibility == "hidden" ||
		st.Opacity == "0"
	return schema.Visibility{Hidden: hidden, Style: st}
}
