package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/types"
)

// CLIClientID is the rate limit identity of commands run from the shell.
const CLIClientID = "cli"

// analyzeCmd creates the analyze command.
func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze one page and print the generated component",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "framework", Aliases: []string{"f"}, Value: string(types.FrameworkReact), Usage: "react|angular|vue|svelte"},
			&cli.StringFlag{Name: "styling", Aliases: []string{"s"}, Value: string(types.StylingTailwind), Usage: "tailwind|css|scss|styled-components"},
			&cli.BoolFlag{Name: "no-typescript", Usage: "Generate JavaScript"},
			&cli.BoolFlag{Name: "no-responsive", Usage: "Skip responsive breakpoints"},
			&cli.BoolFlag{Name: "no-accessibility", Usage: "Skip ARIA landmarks and labels"},
			&cli.BoolFlag{Name: "json", Usage: "Print the raw response as JSON"},
			&cli.BoolFlag{Name: "copy", Aliases: []string{"c"}, Usage: "Copy the component code to the clipboard"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the component into this directory"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(types.NewValidation("exactly one url argument is required", nil))
			}
			req := types.AnalysisRequest{
				URL:       c.Args().First(),
				Framework: types.Framework(c.String("framework")),
				Styling:   types.Styling(c.String("styling")),
				Options:   requestOptions(c.Bool("no-typescript"), c.Bool("no-responsive"), c.Bool("no-accessibility")),
			}

			rt, err := buildRuntime(c)
			if err != nil {
				return outputError(err)
			}
			defer rt.close()

			resp := rt.orch.Respond(c.Context, CLIClientID, req)
			if c.Bool("json") {
				if err := outputJSON(os.Stdout, resp); err != nil {
					return outputError(err)
				}
				if !resp.Success {
					return cli.Exit("", 1)
				}
				return nil
			}
			if !resp.Success {
				return cli.Exit(errorStyle.Render(formatFailure(resp.Error)), 1)
			}

			if err := printComponent(os.Stdout, resp); err != nil {
				return outputError(err)
			}
			if dir := c.String("out"); dir != "" {
				path, err := writeComponent(dir, resp.Component)
				if err != nil {
					return outputError(err)
				}
				fmt.Fprintln(os.Stderr, successStyle.Render("wrote "+path))
			}
			if c.Bool("copy") {
				if err := copyToClipboard(resp.Component.Code); err != nil {
					return outputError(err)
				}
				fmt.Fprintln(os.Stderr, successStyle.Render("copied to clipboard"))
			}
			return nil
		},
	}
}

// requestOptions builds request options from the negated switches. With no
// switch set it returns nil so every default applies.
func requestOptions(noTypeScript, noResponsive, noAccessibility bool) *types.Options {
	if !noTypeScript && !noResponsive && !noAccessibility {
		return nil
	}
	on := func(disabled bool) *bool {
		v := !disabled
		return &v
	}
	return &types.Options{
		TypeScript:    on(noTypeScript),
		Responsive:    on(noResponsive),
		Accessibility: on(noAccessibility),
	}
}

func printComponent(w io.Writer, resp *types.AnalysisResponse) error {
	renderSummary(w, resp)
	fmt.Fprintln(w)
	if err := highlight(w, resp.Component.Filename, resp.Component.Code); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// writeComponent writes the component code into dir under its filename.
func writeComponent(dir string, c *types.ComponentPayload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(c.Filename))
	if err := os.WriteFile(path, []byte(c.Code), 0o644); err != nil {
		return "", fmt.Errorf("failed to write component: %w", err)
	}
	return path, nil
}
