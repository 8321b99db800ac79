package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7D56F4")).Padding(0, 1)
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return cli.Exit(formatFailure(typed.Payload()), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func formatFailure(p *types.ErrorPayload) string {
	msg := fmt.Sprintf("[%s] %s", p.Code, p.Message)
	if p.Suggestion != "" {
		msg += "\n" + p.Suggestion
	}
	return msg
}

// renderSummary renders the analysis half of a successful response.
func renderSummary(w io.Writer, resp *types.AnalysisResponse) {
	a := resp.Analysis
	c := resp.Component

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Filename))
	if a.Cached {
		b.WriteString(" " + labelStyle.Render("(cached)"))
	}
	b.WriteString("\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-13s", label)) + value + "\n")
	}
	row("url", a.URL)
	row("elements", fmt.Sprintf("%d", a.DOMElements))
	row("colors", strings.Join(a.Colors, " "))
	row("fonts", strings.Join(a.Fonts, ", "))
	row("time", fmt.Sprintf("%dms", a.ProcessingTime))
	if len(c.Dependencies) > 0 {
		deps := make([]string, 0, len(c.Dependencies))
		for _, name := range slices.Sorted(maps.Keys(c.Dependencies)) {
			deps = append(deps, name+"@"+c.Dependencies[name])
		}
		row("dependencies", strings.Join(deps, " "))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	if c.Instructions != "" {
		fmt.Fprintln(w, c.Instructions)
	}
}

// highlight writes code with terminal syntax highlighting chosen by
// filename. Unknown languages are written as is.
func highlight(w io.Writer, filename, code string) error {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		_, err := io.WriteString(w, code)
		return err
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("failed to tokenise %s: %w", filename, err)
	}
	return formatter.Format(w, style, it)
}

// copyToClipboard puts code on the system clipboard.
func copyToClipboard(code string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	if err := clipboard.WriteAll(code); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
