package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var scanUnits []string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report which units changed since they last ran",
	Long: `Compares each unit's source against the artifact left by its last run.

  stale    source is newer than the artifact (content changed)
  touched  source is newer but its content is identical
  fresh    artifact is up to date
  new      the unit has never run`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanUnits, "load", nil, "Units to check (default: all)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	names, err := unitNames(ctx, eng, scanUnits)
	if err != nil {
		return err
	}

	sl := eng.Script()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range names {
		u, err := sl.Probe(ctx, name)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("unit %s not found under %s", name, sl.Dir())
		}

		state := "fresh"
		switch {
		case u.Artifact() == "":
			state = "new"
		case eng.IsStale(ctx, u):
			state = "stale"
			if same, err := sl.Fresh(ctx, name); err == nil && same {
				state = "touched"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, state, u.Source())
	}
	return tw.Flush()
}
