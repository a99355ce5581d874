package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/emit-prep/internal/download"
	"github.com/robert-malhotra/emit-prep/internal/locator"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		f     searchFlags
		dir   string
		netrc string
		index int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "download [URL...]",
		Short: "Download granule assets with Earthdata credentials",
		Long: `Download streams each URL into the output directory, authenticating against
Earthdata Login with the credentials stored in the netrc file. Without URLs,
it runs a search with the given point and dates and downloads the first
result (or the one picked by --index, or all of them with --all).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if len(urls) == 0 {
				if !cmd.Flags().Changed("lon") || !cmd.Flags().Changed("lat") {
					return fmt.Errorf("either URLs or --lon and --lat are required")
				}
				rows, _, err := a.search(cmd, &f)
				if err != nil {
					return err
				}
				if urls, err = pickURLs(rows, index, all); err != nil {
					return err
				}
			}

			path := netrc
			if path == "" {
				path = download.DefaultNetrcPath()
			}
			creds, err := download.LoadCredentials(path, a.cfg.Download.Host)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}

			for _, u := range urls {
				name := locator.AssetName(u)
				if name == "" {
					return fmt.Errorf("cannot derive a file name from %s", u)
				}

				d, err := download.New(creds,
					download.WithTimeout(a.cfg.Download.Timeout),
					download.WithChunkSize(a.cfg.Download.ChunkSize),
					download.WithProgress(download.LogProgress(a.logger, name, a.cfg.Download.ProgressInterval)),
					download.WithLogger(a.logger),
				)
				if err != nil {
					return err
				}

				res, err := d.Download(cmd.Context(), u, filepath.Join(dir, name))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			}
			return nil
		},
	}

	f.register(cmd, a.cfg)
	cmd.Flags().StringVarP(&dir, "dir", "d", a.cfg.Download.Dir, "output directory")
	cmd.Flags().StringVar(&netrc, "netrc", a.cfg.Download.NetrcPath, "netrc file (default $NETRC or ~/.netrc)")
	cmd.Flags().IntVar(&index, "index", 0, "search result row to download")
	cmd.Flags().BoolVar(&all, "all", false, "download every search result")

	return cmd
}

func pickURLs(rows []locator.Row, index int, all bool) ([]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("search returned no granules")
	}
	if all {
		urls := make([]string, len(rows))
		for i, r := range rows {
			urls[i] = r.AssetURL
		}
		return urls, nil
	}
	if index < 0 || index >= len(rows) {
		return nil, fmt.Errorf("index %d out of range, search returned %d rows", index, len(rows))
	}
	return []string{rows[index].AssetURL}, nil
}
