package main

import (
	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/config"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "mimic",
		Usage:   "Turn a live web page into a framework component",
		Version: Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCmd(),
			analyzeCmd(),
			batchCmd(),
			configCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "Config file path (default ~/.mimic/config.json)"},
		&cli.StringFlag{Name: "backend", Usage: "Inference backend: " + config.BackendOllama + "|" + config.BackendOpenAI},
		&cli.StringFlag{Name: "host", Usage: "Ollama host URL"},
		&cli.StringFlag{Name: "base-url", Usage: "OpenAI-compatible API base URL"},
		&cli.StringFlag{Name: "api-key", Usage: "OpenAI-compatible API key"},
		&cli.StringFlag{Name: "vision-model", Usage: "Model describing the screenshot"},
		&cli.StringFlag{Name: "code-model", Usage: "Model writing the component"},
		&cli.BoolFlag{Name: "skip-vision", Usage: "Generate from page structure only"},
		&cli.IntFlag{Name: "max-concurrent", Usage: "Override the concurrent analysis limit"},
		&cli.BoolFlag{Name: "verbose", Usage: "Log to stderr instead of the session log file"},
	}
}
