package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/emit-prep/internal/report"
	"github.com/robert-malhotra/emit-prep/internal/stac"
)

const formatSTAC = "stac"

func newSearchCmd(a *app) *cobra.Command {
	var (
		f      searchFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search CMR for reflectance granules covering a point",
		Long: `Search resolves the collection DOI to a CMR concept ID, pages through every
granule intersecting the point within the date range, and prints one row per
reflectance NetCDF asset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, loc, err := a.search(cmd, &f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format != formatSTAC {
				return report.RenderRows(w, rows, format)
			}

			ic, err := stac.FromRows(rows, a.cfg.STAC.CollectionID)
			if err != nil {
				return err
			}
			ic.AddLink("via",
				a.cfg.CMR.BaseURL+"/granules.json?collection_concept_id="+url.QueryEscape(loc.ConceptID()),
				"application/json")

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(ic); err != nil {
				return fmt.Errorf("failed to encode item collection: %w", err)
			}
			return nil
		},
	}

	f.register(cmd, a.cfg)
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format (table|csv|json|stac)")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{report.FormatTable, report.FormatCSV, report.FormatJSON, formatSTAC}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
