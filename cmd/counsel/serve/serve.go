// Package servecmder provides the serve command, which runs the local dev
// server.
package servecmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/config"
	"github.com/papercomputeco/counsel/pkg/devserver"
)

type serveCommander struct {
	listen    string
	chunkSize int
	delay     time.Duration
	token     string
}

const serveLongDesc string = `Run a local stand-in for the counsel backend.

The dev server answers chat requests with a scripted SSE stream and echoes
voice uploads back as audio/wav. Chat responses are flushed in small chunks
so event and UTF-8 boundaries fall mid-write, like a real network.

Queries containing "[error]" get an error event mid-stream, and queries
containing "[truncate]" end without a complete event.

Examples:
  counsel serve
  counsel serve --listen :9000 --delay 50ms
  counsel serve --token secret`

const serveShortDesc string = "Run the local dev server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, cmdutil.Flags, config.FlagListen, &cmder.listen)
	cmd.Flags().IntVar(&cmder.chunkSize, "chunk-size", 0, "Bytes written per SSE flush (default 7)")
	cmd.Flags().DurationVar(&cmder.delay, "delay", 20*time.Millisecond, "Pause between SSE chunks")
	cmd.Flags().StringVar(&cmder.token, "token", "", "Require this bearer token on every request")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	env, err := cmdutil.Load(cmd, config.FlagListen)
	if err != nil {
		return err
	}

	server := devserver.NewServer(devserver.Config{
		ListenAddr: env.Viper.GetString("devserver.listen"),
		ChunkSize:  c.chunkSize,
		Delay:      c.delay,
		Token:      c.token,
	}, env.Logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("dev server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-cmd.Context().Done():
		env.Logger.Info("shutting down dev server")
		return server.Shutdown()
	}
}
