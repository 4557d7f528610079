package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/scanner"
	"github.com/praetorian-inc/dfamatch/pkg/serve"
)

var serveMachinesPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON scan server",
	Long: `Run as a long-lived server that reads scan requests from stdin and writes
responses to stdout, one JSON object per line.

Machines are loaded once at startup. The server stops when stdin closes, a
close request arrives, or SIGTERM is received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMachinesPath, "machines", "", "Path to a machine descriptor file (default: builtin)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	doc := "builtin"
	if serveMachinesPath != "" {
		data, err := os.ReadFile(serveMachinesPath)
		if err != nil {
			return fmt.Errorf("reading machines: %w", err)
		}
		doc = string(data)
	}

	core, err := scanner.NewCore(doc, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, cancel := context.WithCancel(contextOrBackground(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout()).WithLogger(logger)
	return srv.Run(ctx)
}
