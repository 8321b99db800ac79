package generate

import (
	"regexp"
	"strings"
)

// ComponentHint is one UI component named by the vision model.
type ComponentHint struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Position    string   `json:"position"`
	Styling     []string `json:"styling"`
}

// VisualAnalysis is the structured reading of the vision model's answer.
type VisualAnalysis struct {
	Components  []ComponentHint `json:"components"`
	Structure   string          `json:"structure"`
	Hierarchy   []string        `json:"hierarchy"`
	ColorScheme string          `json:"colorScheme"`
	Typography  string          `json:"typography"`
	Spacing     string          `json:"spacing"`
	Raw         string          `json:"-"`
}

var (
	componentLine = regexp.MustCompile(`(?i)header|navigation|nav|hero|card|button|form|footer|sidebar|menu`)
	structureLine = regexp.MustCompile(`(?i)structure|grid|flex|column|row`)
	hierarchyLine = regexp.MustCompile(`(?i)hierarchy|level|order`)
	colorLine     = regexp.MustCompile(`(?i)color|#[0-9a-f]{6}`)
	fontLine      = regexp.MustCompile(`(?i)font|typography|text`)
	spacingLine   = regexp.MustCompile(`(?i)spacing|margin|padding|gap`)
)

var componentTypes = []string{
	"header", "navigation", "nav", "hero", "card", "button", "form",
	"input", "footer", "sidebar", "menu", "article", "section",
}

var positions = []string{"top", "bottom", "left", "right", "center", "middle"}

var stylingKeywords = []string{
	"full-width", "fixed", "sticky", "responsive", "grid", "flex",
	"absolute", "relative", "centered",
}

// ParseVisual reads the free-form vision answer section by section.
// Anything the model leaves out is filled with a neutral default so the
// code prompt always has every field.
func ParseVisual(response string) *VisualAnalysis {
	va := &VisualAnalysis{Raw: response}

	var section string
	var colors, fonts, spacing []string
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.Contains(lower, "component"):
			section = "components"
		case strings.Contains(lower, "layout"):
			section = "layout"
		case strings.Contains(lower, "design system"), strings.Contains(lower, "color"):
			section = "design"
		}
		if trimmed == "" {
			continue
		}

		switch section {
		case "components":
			if componentLine.MatchString(trimmed) {
				va.Components = append(va.Components, ComponentHint{
					Type:        firstContained(lower, componentTypes, "component"),
					Description: trimmed,
					Position:    firstContained(lower, positions, "unknown"),
					Styling:     allContained(lower, stylingKeywords),
				})
			}
		case "layout":
			if structureLine.MatchString(trimmed) {
				va.Structure = trimmed
			}
			if hierarchyLine.MatchString(trimmed) {
				va.Hierarchy = append(va.Hierarchy, trimmed)
			}
		case "design":
			if colorLine.MatchString(trimmed) {
				colors = append(colors, trimmed)
			}
			if fontLine.MatchString(trimmed) {
				fonts = append(fonts, trimmed)
			}
			if spacingLine.MatchString(trimmed) {
				spacing = append(spacing, trimmed)
			}
		}
	}

	va.ColorScheme = strings.Join(colors, " ")
	va.Typography = strings.Join(fonts, " ")
	va.Spacing = strings.Join(spacing, " ")
	applyVisualDefaults(va)
	return va
}

func applyVisualDefaults(va *VisualAnalysis) {
	if len(va.Components) == 0 {
		va.Components = []ComponentHint{
			{Type: "header", Description: "Page header with navigation", Position: "top", Styling: []string{"full-width", "fixed"}},
			{Type: "main", Description: "Main content area", Position: "center", Styling: []string{"container", "responsive"}},
			{Type: "footer", Description: "Page footer", Position: "bottom", Styling: []string{"full-width"}},
		}
	}
	if va.Structure == "" {
		va.Structure = "Standard header-main-footer layout"
	}
	if len(va.Hierarchy) == 0 {
		va.Hierarchy = []string{"Header", "Main Content", "Footer"}
	}
	if va.ColorScheme == "" {
		va.ColorScheme = "Modern color palette with neutral base"
	}
	if va.Typography == "" {
		va.Typography = "Sans-serif font family with clear hierarchy"
	}
	if va.Spacing == "" {
		va.Spacing = "Consistent spacing using 8px grid system"
	}
}

// ComponentTypes lists the hint types in order.
func (va *VisualAnalysis) ComponentTypes() []string {
	out := make([]string, 0, len(va.Components))
	for _, c := range va.Components {
		out = append(out, c.Type)
	}
	return out
}

func firstContained(lower string, candidates []string, fallback string) string {
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			return c
		}
	}
	return fallback
}

func allContained(lower string, candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{"default"}
	}
	return out
}
