package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var callCmd = &cobra.Command{
	Use:   "call [unit.name] [args...]",
	Short: "Load a unit and call one of its definitions",
	Long: `Loads the unit and calls the named definition. Arguments are parsed as
YAML scalars, so 3 is an int, 2.5 a float, true a bool and anything else a string.

Example:
  graft call --dir ./units lib.math.add 1 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	unitName, fn, err := splitTarget(args[0])
	if err != nil {
		return err
	}
	callArgs, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	u, err := eng.Import(ctx, unitName)
	if err != nil {
		return err
	}
	result, err := u.Call(fn, callArgs...)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

// splitTarget splits "a.b.fn" into unit "a.b" and definition "fn".
func splitTarget(target string) (string, string, error) {
	i := strings.LastIndex(target, ".")
	if i <= 0 || i == len(target)-1 {
		return "", "", fmt.Errorf("target must be unit.name, got %q", target)
	}
	return target[:i], target[i+1:], nil
}

func parseArgs(raw []string) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		var v any
		if err := yaml.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("bad argument %q: %w", s, err)
		}
		if v == nil {
			v = s
		}
		out = append(out, v)
	}
	return out, nil
}
