// Package extracttest builds fake pages whose probes describe a fixed
// document, for tests of code that drives the extractor.
package extracttest

import (
	"encoding/json"

	"github.com/entrhq/mimic/pkg/browser/browsertest"
	"github.com/entrhq/mimic/pkg/extract"
)

// Page returns a fake page describing a document of exactly elements
// elements: a body with elements-1 div children, a two-colour palette,
// one font, one flex container and one main region.
func Page(elements int) *browsertest.Page {
	children := make([]map[string]any, 0, elements)
	for i := 0; i < elements-1; i++ {
		children = append(children, map[string]any{
			"tagName": "div", "attributes": map[string]string{}, "styles": map[string]string{}, "children": []any{},
		})
	}

	return &browsertest.Page{
		HTML: `<html lang="en"><head><title>Fixture</title></head><body></body></html>`,
		Rules: []browsertest.Rule{
			{Contains: extract.ProbeMetrics, Result: mustJSON(map[string]any{
				"domElements": elements, "resourceSize": 2048, "loadTime": 120, "renderTime": 80,
				"viewportWidth": 1920, "viewportHeight": 1080,
			})},
			{Contains: extract.ProbeStructure, Result: mustJSON(map[string]any{
				"tagName": "body", "attributes": map[string]string{"class": "home"}, "textContent": "Hello",
				"styles": map[string]string{"color": "rgb(0, 0, 0)"}, "children": children,
			})},
			{Contains: extract.ProbeColors, Result: mustJSON([][2]string{
				{"color", "rgb(17, 17, 17)"},
				{"backgroundColor", "rgb(255, 255, 255)"},
				{"color", "rgb(17, 17, 17)"},
			})},
			{Contains: extract.ProbeTypography, Result: mustJSON([]map[string]string{
				{"fontFamily": "Inter, sans-serif", "fontSize": "16px", "fontWeight": "400", "lineHeight": "24px", "letterSpacing": "normal", "tag": "body"},
			})},
			{Contains: extract.ProbeLayout, Result: mustJSON([]map[string]any{
				{"tag": "main", "id": "", "classes": []string{"wrap"}, "display": "flex", "flexDirection": "column"},
			})},
			{Contains: extract.ProbeSemantics, Result: mustJSON([]map[string]any{
				{"type": "main", "index": 0, "role": "", "ariaLabel": "", "children": []string{"section"}},
			})},
		},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
