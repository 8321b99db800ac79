package generate

import (
	"fmt"
	"strings"

	"github.com/entrhq/mimic/pkg/types"
)

// DefaultMaxSnapshotTokens caps the design detail section of the code prompt.
const DefaultMaxSnapshotTokens = 1500

const (
	promptColors = 5
	promptFonts  = 3
)

// PromptBuilder renders the vision and code prompts.
type PromptBuilder struct {
	tokens    TokenCounter
	maxTokens int
}

// NewPromptBuilder creates a builder. A nil counter falls back to the
// byte estimate; maxTokens <= 0 uses DefaultMaxSnapshotTokens.
func NewPromptBuilder(tokens TokenCounter, maxTokens int) *PromptBuilder {
	if tokens == nil {
		tokens = (*Tokenizer)(nil)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxSnapshotTokens
	}
	return &PromptBuilder{tokens: tokens, maxTokens: maxTokens}
}

// VisionPrompt asks the vision model for a structured breakdown of a screenshot.
func (b *PromptBuilder) VisionPrompt(url string) string {
	return fmt.Sprintf(`You are analyzing a webpage screenshot from %s.

Please analyze this webpage design and provide a structured breakdown:

1. **Components**: Identify all UI components (header, navigation, hero section, cards, footer, buttons, forms, etc.)
   - For each component, describe its type, visual appearance, and position

2. **Layout Structure**: Describe the overall layout pattern (header-main-footer, sidebar, grid, flexbox, etc.)
   - Identify the visual hierarchy

3. **Design System**: Analyze the design system used:
   - Color scheme (primary, secondary, accent colors)
   - Typography (font styles, sizes, weights)
   - Spacing patterns (margins, padding, gaps)

Provide your analysis in a clear, structured format. Be specific about colors (hex codes if possible), font characteristics, and layout patterns.`, url)
}

// CodePrompt asks the code model for a single component.
func (b *PromptBuilder) CodePrompt(url string, cfg types.ComponentConfig, snap *types.DesignSnapshot, va *VisualAnalysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate a production-ready %s component that recreates the webpage from %s.\n\n", cfg.Framework, url)
	fmt.Fprintf(&sb, "**Framework**: %s\n", cfg.Framework)
	fmt.Fprintf(&sb, "**Styling**: %s\n", cfg.Styling)
	fmt.Fprintf(&sb, "**TypeScript**: %s\n", yesNo(cfg.TypeScript, "Yes"))
	fmt.Fprintf(&sb, "**Responsive**: %s\n", yesNo(cfg.Responsive, "Yes (mobile-first)"))
	fmt.Fprintf(&sb, "**Accessibility**: %s\n\n", yesNo(cfg.Accessibility, "Yes (include ARIA labels)"))

	if va != nil {
		sb.WriteString("**Visual Analysis**:\n")
		fmt.Fprintf(&sb, "Components identified: %s\n", strings.Join(va.ComponentTypes(), ", "))
		fmt.Fprintf(&sb, "Layout structure: %s\n", va.Structure)
		fmt.Fprintf(&sb, "Color scheme: %s\n\n", va.ColorScheme)
	}

	sb.WriteString("**Design Tokens**:\n")
	fmt.Fprintf(&sb, "- Colors: %s\n", strings.Join(topColors(snap, promptColors), ", "))
	fmt.Fprintf(&sb, "- Fonts: %s\n", strings.Join(topFonts(snap, promptFonts), ", "))
	fmt.Fprintf(&sb, "- DOM Elements: %d\n", snap.PageMetrics.DOMElements)
	if snap.Document.Title != "" {
		fmt.Fprintf(&sb, "- Page title: %s\n", snap.Document.Title)
	}
	sb.WriteString("\n")

	if detail := b.detailSection(snap); detail != "" {
		sb.WriteString("**Page Structure**:\n")
		sb.WriteString(detail)
		sb.WriteString("\n")
	}

	sb.WriteString("**Requirements**:\n")
	requirements := []string{
		"Create a single, self-contained component",
		"Use semantic HTML5 elements",
		"Match the visual design as closely as possible",
		stylingRequirement(cfg.Styling),
		"Include all necessary imports",
		"NO placeholders or TODOs - production-ready code only",
		ternary(cfg.Responsive, "Implement mobile-first responsive design", "Desktop-only layout"),
		ternary(cfg.Accessibility, "Include proper ARIA labels and semantic HTML", "Standard HTML"),
	}
	for i, r := range requirements {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	sb.WriteString("\nGenerate the complete component code below:")
	return sb.String()
}

// detailSection lists semantic regions and layout containers, dropping
// trailing lines until the section fits the token budget.
func (b *PromptBuilder) detailSection(snap *types.DesignSnapshot) string {
	var lines []string
	for _, s := range snap.SemanticSections {
		line := fmt.Sprintf("- <%s> %s", s.Type, s.Selector)
		if s.Role != "" {
			line += " role=" + s.Role
		}
		if len(s.Children) > 0 {
			line += " children: " + strings.Join(s.Children, " ")
		}
		lines = append(lines, line)
	}
	for _, l := range snap.LayoutPatterns {
		line := fmt.Sprintf("- %s %s", l.Selector, l.Display)
		switch {
		case l.Flex != nil:
			line += fmt.Sprintf(" direction=%s justify=%s align=%s gap=%s", l.Flex.Direction, l.Flex.Justify, l.Flex.Align, l.Flex.Gap)
		case l.Grid != nil:
			line += fmt.Sprintf(" columns=%s rows=%s gap=%s", l.Grid.TemplateColumns, l.Grid.TemplateRows, l.Grid.Gap)
		}
		lines = append(lines, line)
	}

	for len(lines) > 0 {
		text := strings.Join(lines, "\n") + "\n"
		if b.tokens.CountTokens(text) <= b.maxTokens {
			return text
		}
		lines = lines[:len(lines)-1]
	}
	return ""
}

func topColors(snap *types.DesignSnapshot, n int) []string {
	var out []string
	for i, c := range snap.ColorPalette {
		if i == n {
			break
		}
		out = append(out, c.Hex)
	}
	return out
}

func topFonts(snap *types.DesignSnapshot, n int) []string {
	var out []string
	for i, t := range snap.Typography {
		if i == n {
			break
		}
		out = append(out, fmt.Sprintf("%s (%s)", t.FontFamily, t.FontSize))
	}
	return out
}

func stylingRequirement(s types.Styling) string {
	switch s {
	case types.StylingTailwind:
		return "Use Tailwind CSS utility classes"
	case types.StylingStyledComponents:
		return "Use styled-components for styling"
	default:
		return fmt.Sprintf("Use %s for styling", s)
	}
}

func yesNo(b bool, yes string) string {
	return ternary(b, yes, "No")
}

func ternary(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
