package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reframe/internal/processor"
	"reframe/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch -f <dir> [flags]",
	Short: "Process a directory, then every image added to it until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd)
		if err != nil {
			return err
		}

		info, err := os.Stat(opts.Target)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("watch needs a directory, %s is a file", opts.Target)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger(os.Stderr, logLevel(opts))
		runner := processor.NewRunner(opts, logger, newConfirmer())

		// Existing files first; the watcher starts afterwards so this pass's
		// own output is not picked up as new work.
		if _, err := runner.Run(ctx); err != nil {
			printSummary(opts, runner.Summary())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		w, err := watch.New(opts.Target, opts.Recursive, opts.Matches, func(path string) (string, error) {
			res, err := runner.ProcessFile(path)
			return res.Output, err
		}, logger)
		if err != nil {
			return err
		}

		logger.Info("watching for new images, press Ctrl+C to stop", "dir", opts.Target)
		err = w.Run(ctx)
		printSummary(opts, runner.Summary())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
