package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cpelink/internal/config"
	"cpelink/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "show <stage>",
		Short: "Show the saved links of a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStage(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				t, err := loadStageTable(cmd, s, stage)
				if err != nil {
					return err
				}
				p, err := project(t, stageSchema(cfg, stage).OutputColumns, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case asJSON:
					return writeJSON(out, p)
				case isTerminal(out):
					fmt.Fprintln(out, p.render())
					return nil
				default:
					return writeTSV(out, p)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many links (0 shows all)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <stage>",
		Short: "Write the saved links of a stage as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStage(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, s *store.Store) error {
				t, err := loadStageTable(cmd, s, stage)
				if err != nil {
					return err
				}
				p, err := project(t, stageSchema(cfg, stage).OutputColumns, 0)
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					return writeCSV(cmd.OutOrStdout(), p)
				}
				return exportFile(outPath, p, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Destination CSV file (- for stdout)")
	return cmd
}

func exportFile(path string, p projection, out io.Writer) error {
	target, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := writeCSV(file, p); err != nil {
		file.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	fmt.Fprintf(out, "Wrote %d links to %s\n", len(p.Rows), target)
	return nil
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stage tables saved in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, s *store.Store) error {
				infos, err := s.Stages(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(infos) == 0 {
					fmt.Fprintln(out, "No stage tables saved")
					return nil
				}
				rows := make([][]string, 0, len(infos))
				for _, info := range infos {
					rows = append(rows, []string{
						info.Stage,
						info.RunID,
						info.SavedAt.Local().Format(time.DateTime),
						fmt.Sprintf("%d", info.Rows),
					})
				}
				fmt.Fprintln(out, projection{
					Headers: []string{"Stage", "Run", "Saved", "Links"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				}.render())
				return nil
			})
		},
	}
}
