package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"lemansstrat/pkg/caster"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/render"
	"lemansstrat/pkg/strategy"
)

var validFormats = []string{"text", "json"}

type planOptions struct {
	file   string
	format string
}

func newPlanCommand(_ *rootOptions) *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the stint plan of a game state file",
		Long: `Reads a game state document (JSON, or YAML for .yaml/.yml files) and
prints the projected stints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "game state file")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (json|text)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

func runPlan(opts *planOptions, w io.Writer) error {
	if !isValidFormat(opts.format) {
		return errors.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return errors.Wrap(err, "reading game state")
	}
	gs, err := caster.ForFile[model.GameState](opts.file).From(string(data))
	if err != nil {
		return errors.Wrapf(err, "parsing %s", opts.file)
	}

	plan, err := newEngine().Compute(strategy.InputFromGameState(gs))
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	_, err = fmt.Fprint(w, render.Summary(plan, gs)+render.PlanTable(plan))
	return err
}
