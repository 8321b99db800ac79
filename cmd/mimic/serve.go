package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/entrhq/mimic/pkg/mcpserver"
)

const (
	transportStdio = "stdio"
	transportSSE   = "sse"
)

// serveCmd creates the serve command.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Aliases: []string{"t"}, Value: transportStdio, Usage: "Transport: stdio|sse"},
			&cli.StringFlag{Name: "addr", Value: ":3001", Usage: "Listen address for the sse transport"},
		},
		Action: func(c *cli.Context) error {
			transport := c.String("transport")
			if transport != transportStdio && transport != transportSSE {
				return outputError(fmt.Errorf("unknown transport %q (want stdio or sse)", transport))
			}

			rt, err := buildRuntime(c)
			if err != nil {
				return outputError(err)
			}
			defer rt.close()

			srv := mcpserver.New(rt.orch, rt.backend, mcpserver.Options{
				Version: Version,
				Backend: rt.inference.Backend,
				Models:  rt.models(),
				Logger:  rt.logger.WithComponent("mcp"),
			})

			if transport == transportSSE {
				err = srv.ServeSSE(c.Context, c.String("addr"))
			} else {
				err = srv.ServeStdio(c.Context, os.Stdin, os.Stdout)
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}
