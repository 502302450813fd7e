package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cpelink/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that inputs, models, labelled data, and the store are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCheckResults(results, isTerminal(out)))
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}

func renderCheckResults(results []preflight.Result, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		switch {
		case r.Blocking():
			kind = statusError
		case !r.Passed:
			kind = statusWarn
		}
		rows = append(rows, []string{r.Name, renderStatus(kind, colorize), r.Detail})
	}
	return projection{Headers: []string{"Check", "Status", "Detail"}, Rows: rows}.render()
}
