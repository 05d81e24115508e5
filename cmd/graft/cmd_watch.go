package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"graft/internal/refresh"

	"github.com/spf13/cobra"
)

var watchUnits []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep units loaded and reload them as their source changes",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchUnits, "load", nil, "Units to load (default: all)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	eng, err := newEngine()
	if err != nil {
		return err
	}
	names, err := unitNames(ctx, eng, watchUnits)
	if err != nil {
		return err
	}
	if _, err := eng.ImportAll(ctx, names...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w, err := eng.Watch(func(r *refresh.Report, err error) {
		switch {
		case err != nil:
			fmt.Fprintf(out, "refresh failed: %v\n", err)
		case r != nil && !r.Empty():
			fmt.Fprintf(out, "reloaded %v in %s\n", r.Processed, r.Duration())
		}
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(out, "watching %d unit(s) in %s (Ctrl+C to stop)\n", len(names), eng.Script().Dir())
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	return nil
}
