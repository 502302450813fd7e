package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cpelink/internal/pipeline"
)

type inputFlags struct {
	catalog   string
	inventory string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "Catalog CSV (defaults to paths.catalog_csv)")
	cmd.Flags().StringVar(&f.inventory, "inventory", "", "Inventory CSV (defaults to paths.inventory_csv)")
}

func (f *inputFlags) inputs() pipeline.Inputs {
	return pipeline.Inputs{CatalogPath: f.catalog, InventoryPath: f.inventory}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Link vendors, then software, and save both tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				result, err := p.Run(cmd.Context(), flags.inputs())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderReports([]pipeline.StageResult{result.Vendor, result.Software}))
				fmt.Fprintf(out, "Finished in %s\n", result.Elapsed.Round(time.Millisecond))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Run a single linkage stage",
	}

	var vendorFlags inputFlags
	vendorsCmd := &cobra.Command{
		Use:   "vendors",
		Short: "Link catalog vendors to inventory publishers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				result, err := p.RunVendors(cmd.Context(), vendorFlags.inputs())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReports([]pipeline.StageResult{result}))
				return nil
			})
		},
	}
	vendorFlags.register(vendorsCmd)

	var softwareFlags inputFlags
	softwareCmd := &cobra.Command{
		Use:   "software",
		Short: "Link catalog products to inventory items using the saved vendor table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				result, err := p.RunSoftware(cmd.Context(), softwareFlags.inputs())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReports([]pipeline.StageResult{result}))
				return nil
			})
		},
	}
	softwareFlags.register(softwareCmd)

	matchCmd.AddCommand(vendorsCmd, softwareCmd)
	return matchCmd
}
