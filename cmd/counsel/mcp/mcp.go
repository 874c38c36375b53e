// Package mcpcmder provides the mcp command, which exposes counsel as MCP
// tools to agents.
package mcpcmder

import (
	"errors"
	"fmt"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	counselmcp "github.com/papercomputeco/counsel/api/mcp"
	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/history/recorder"
)

// HTTPPath is where the streamable HTTP transport is mounted.
const HTTPPath = "/mcp"

type mcpCommander struct {
	client  cmdutil.ClientFlags
	history cmdutil.HistoryFlags
	http    string
}

const mcpLongDesc string = `Serve counsel as a Model Context Protocol server.

Agents get two tools:
  ask_counsel      Ask a legal question and wait for the full answer
  history_search   Search recorded exchanges (unless history is "none")

By default the server speaks MCP over stdin/stdout, which is what most agent
hosts expect. With --http it serves the streamable HTTP transport at /mcp.

Examples:
  counsel mcp
  counsel mcp --http :8090 --language cs`

const mcpShortDesc string = "Serve counsel as MCP tools"

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmdutil.AddClientFlags(cmd, &cmder.client)
	cmdutil.AddHistoryFlags(cmd, &cmder.history)
	cmd.Flags().StringVar(&cmder.http, "http", "", "Serve streamable HTTP on this address instead of stdio")

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	env, err := cmdutil.Load(cmd, cmdutil.ClientAndHistoryFlagKeys()...)
	if err != nil {
		return err
	}

	client, err := env.ChatClient()
	if err != nil {
		return err
	}

	driver, err := env.HistoryDriver(ctx)
	if err != nil {
		return err
	}

	var rec *recorder.Recorder
	if driver != nil {
		defer closeDriver(env, driver)

		var stop func()
		rec, stop, err = env.StartRecorder(driver)
		if err != nil {
			return err
		}
		defer stop()
	}

	server, err := counselmcp.NewServer(counselmcp.Config{
		Chat:     client,
		Language: env.Language(),
		Recorder: rec,
		History:  driver,
		Logger:   env.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if c.http == "" {
		env.Logger.Debug("serving MCP over stdio")
		err := server.Run(ctx, &mcp.StdioTransport{})
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.All(HTTPPath, adaptor.HTTPHandler(server.Handler()))

	errChan := make(chan error, 1)
	go func() {
		env.Logger.Info("starting MCP server", "listen", c.http, "path", HTTPPath)
		if err := app.Listen(c.http); err != nil {
			errChan <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		env.Logger.Info("shutting down MCP server")
		return app.Shutdown()
	}
}

func closeDriver(env *cmdutil.Env, driver history.Driver) {
	if err := driver.Close(); err != nil {
		env.Logger.Debug("closing history store", "error", err)
	}
}
