package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/config"
)

const secretMask = "********"

// configCmd creates the config command and its subcommands.
func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change persisted settings",
		Before: func(c *cli.Context) error {
			if err := loadConfig(c); err != nil {
				return outputError(err)
			}
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print every section",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
					&cli.BoolFlag{Name: "reveal", Usage: "Print secrets unmasked"},
				},
				Action: func(c *cli.Context) error {
					data := sectionData(config.Global(), c.Bool("reveal"))
					if c.Bool("json") {
						return outputJSON(c.App.Writer, data)
					}
					renderConfig(c.App.Writer, config.Global(), data)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Set one value and save",
				ArgsUsage: "<section.key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(fmt.Errorf("usage: mimic config set <section.key> <value>"))
					}
					if err := setValue(config.Global(), c.Args().Get(0), c.Args().Get(1)); err != nil {
						return outputError(err)
					}
					fmt.Fprintln(c.App.Writer, successStyle.Render("saved "+c.Args().Get(0)))
					return nil
				},
			},
			{
				Name:      "reset",
				Usage:     "Restore defaults for one section, or all, and save",
				ArgsUsage: "[section]",
				Action: func(c *cli.Context) error {
					manager := config.Global()
					if id := c.Args().First(); id != "" {
						section, ok := manager.GetSection(id)
						if !ok {
							return outputError(fmt.Errorf("unknown section %q", id))
						}
						section.Reset()
					} else {
						manager.ResetAll()
					}
					if err := manager.SaveAll(); err != nil {
						return outputError(err)
					}
					fmt.Fprintln(c.App.Writer, successStyle.Render("reset"))
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file path",
				Action: func(c *cli.Context) error {
					if p, ok := config.Global().Store().(interface{ Path() string }); ok {
						fmt.Fprintln(c.App.Writer, p.Path())
					}
					return nil
				},
			},
		},
	}
}

// setValue applies one "section.key" value and saves. The section is
// restored when the value does not parse or validate.
func setValue(manager *config.Manager, path, value string) error {
	id, key, ok := strings.Cut(path, ".")
	if !ok || id == "" || key == "" {
		return fmt.Errorf("expected <section.key>, got %q", path)
	}
	section, found := manager.GetSection(id)
	if !found {
		return fmt.Errorf("unknown section %q", id)
	}
	previous := section.Data()
	if _, known := previous[key]; !known {
		return fmt.Errorf("unknown key %q in section %s (known: %s)",
			key, id, strings.Join(slices.Sorted(maps.Keys(previous)), ", "))
	}

	if err := section.SetData(map[string]any{key: value}); err != nil {
		return err
	}
	if err := section.Validate(); err != nil {
		_ = section.SetData(previous)
		return err
	}
	if err := manager.SaveAll(); err != nil {
		_ = section.SetData(previous)
		return err
	}
	return nil
}

// sectionData collects every section's data keyed by section id.
func sectionData(manager *config.Manager, reveal bool) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, section := range manager.GetSections() {
		data := section.Data()
		if !reveal {
			if key, ok := data["api_key"].(string); ok && key != "" {
				data["api_key"] = secretMask
			}
		}
		out[section.ID()] = data
	}
	return out
}

func renderConfig(w io.Writer, manager *config.Manager, data map[string]map[string]any) {
	for _, section := range manager.GetSections() {
		fmt.Fprintln(w, titleStyle.Render(section.Title())+" "+labelStyle.Render("("+section.ID()+")"))
		values := data[section.ID()]
		for _, key := range slices.Sorted(maps.Keys(values)) {
			fmt.Fprintf(w, "  %s %v\n", labelStyle.Render(fmt.Sprintf("%-20s", key)), values[key])
		}
		fmt.Fprintln(w)
	}
}
