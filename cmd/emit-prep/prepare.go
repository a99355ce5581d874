package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/emit-prep/internal/dataset"
	"github.com/robert-malhotra/emit-prep/internal/prepare"
	"github.com/robert-malhotra/emit-prep/internal/raster"
	"github.com/robert-malhotra/emit-prep/internal/report"
)

func newPrepareCmd(a *app) *cobra.Command {
	var (
		reflPath    string
		mineralPath string
		out         string
		format      string
	)
	p := &a.cfg.Prepare

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build a labelled training table from reflectance and mineral files",
		Long: `Prepare crops the reflectance cube and mineral grid, flattens them to one
row per labelled pixel, drops invalid bands and background pixels, then
optionally removes rare classes, balances classes with SMOTE, keeps a
stratified sample and standardises features. The result is written as
Parquet and summarised per class.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prep := &prepare.Preparer{
				Source: raster.NewReader(a.logger),
				Logger: a.logger,
			}

			t, err := prep.Prepare(cmd.Context(), reflPath, mineralPath, p.Group, p.Options())
			if err != nil {
				return err
			}

			if out != "" {
				if err := dataset.WriteParquet(out, t); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				a.logger.Info("wrote training table", "path", out, "rows", t.Len())
			}

			return report.RenderSummary(cmd.OutOrStdout(), t, format)
		},
	}

	cmd.Flags().StringVar(&reflPath, "reflectance", "", "L2A reflectance NetCDF file")
	cmd.Flags().StringVar(&mineralPath, "minerals", "", "L2B mineral NetCDF file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Parquet file to write")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "summary format (table|csv|json)")
	cmd.Flags().IntVar(&p.Group, "group", p.Group, "ground truth group (selects group_<n>_mineral_id)")
	cmd.Flags().BoolVar(&p.RemoveRareClasses, "remove-rare", p.RemoveRareClasses, "drop classes with fewer than --min-class-count rows")
	cmd.Flags().BoolVar(&p.Balance, "balance", p.Balance, "oversample minority classes with SMOTE")
	cmd.Flags().BoolVar(&p.Trim, "trim", p.Trim, "keep a stratified --trim-fraction of rows")
	cmd.Flags().BoolVar(&p.Scale, "scale", p.Scale, "standardise features to zero mean and unit variance")
	cmd.Flags().Float64Var(&p.CropScale, "crop-scale", p.CropScale, "fraction of each spatial dimension to keep")
	cmd.Flags().Float64Var(&p.TrimFraction, "trim-fraction", p.TrimFraction, "share of rows kept by --trim")
	cmd.Flags().Uint64Var(&p.Seed, "seed", p.Seed, "random seed for balancing and trimming")
	cmd.Flags().IntVar(&p.MinClassCount, "min-class-count", p.MinClassCount, "smallest class kept by --remove-rare")
	cmd.Flags().IntVar(&p.Neighbors, "neighbors", p.Neighbors, "SMOTE nearest neighbours")
	_ = cmd.MarkFlagRequired("reflectance")
	_ = cmd.MarkFlagRequired("minerals")

	return cmd
}
