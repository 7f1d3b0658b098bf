package driver

import (
	"encoding/json"
	"fmt"

	"github.com/happyhackingspace/formschema/extract"
)

// snapshotScript serializes the live document together with the computed
// style and option selection of every control, in querySelectorAll order.
const snapshotScript = `() => {
  const controls = Array.from(document.querySelectorAll("input, select, textarea")).map((el) => {
    const cs = window.getComputedStyle(el);
    const state = { display: cs.display, visibility: cs.visibility, opacity: cs.opacity };
    if (el.tagName === "SELECT") {
      state.selected = Array.from(el.options).flatMap((o, i) => (o.selected ? [i] : []));
    }
    return state;
  });
  const doctype = document.doctype ? "<!DOCTYPE html>" : "";
  return JSON.stringify({
    url: location.href,
    html: doctype + document.documentElement.outerHTML,
    controls,
  });
}`

func decodeSnapshot(raw string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Controls == nil {
		snap.Controls = []extract.ControlState{}
	}
	return &snap, nil
}
