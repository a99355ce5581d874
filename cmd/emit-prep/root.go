package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/emit-prep/internal/cmr"
	"github.com/robert-malhotra/emit-prep/internal/config"
	"github.com/robert-malhotra/emit-prep/internal/locator"
	"github.com/robert-malhotra/emit-prep/internal/temporal"
)

// app carries state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg, logger: slog.Default()}

	rootCmd := &cobra.Command{
		Use:   "emit-prep",
		Short: "Find, fetch and prepare EMIT hyperspectral granules",
		Long: `emit-prep searches NASA's CMR for EMIT L2A reflectance granules covering a
point and date range, downloads the matching NetCDF files with Earthdata
credentials from ~/.netrc, and turns a reflectance/mineral pair into a
labelled training table.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.logger = setupLogger(cmd.ErrOrStderr(), a.cfg.Logging.Level, a.cfg.Logging.Format)
			slog.SetDefault(a.logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format (text|json)")

	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newDownloadCmd(a))
	rootCmd.AddCommand(newPrepareCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// searchFlags are shared by the commands that locate granules.
type searchFlags struct {
	lon, lat   float64
	start, end string
	doi        string
	cloudCover string
}

func (f *searchFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude of the search point")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude of the search point")
	cmd.Flags().StringVar(&f.start, "start", "", "search start date as YYYY,MM,DD (prompted when empty)")
	cmd.Flags().StringVar(&f.end, "end", "", "search end date as YYYY,MM,DD (prompted when empty)")
	cmd.Flags().StringVar(&f.doi, "doi", cfg.CMR.DOI, "collection DOI")
	cmd.Flags().StringVar(&f.cloudCover, "cloud-cover", cfg.CMR.CloudCover, `cloud cover range as "min,max"`)
}

// search resolves the collection and returns the matching rows along with
// the locator used, so callers can report the concept ID.
func (a *app) search(cmd *cobra.Command, f *searchFlags) ([]locator.Row, *locator.Locator, error) {
	rng, err := dateRange(cmd.InOrStdin(), cmd.ErrOrStderr(), f.start, f.end)
	if err != nil {
		return nil, nil, err
	}

	client := cmr.NewClient(a.cfg.CMR.BaseURL, a.cfg.CMR.Timeout).WithLogger(a.logger)
	loc, err := locator.New(cmd.Context(), client, f.doi,
		locator.WithPageSize(a.cfg.CMR.PageSize),
		locator.WithProductMarker(a.cfg.CMR.ProductMarker),
		locator.WithCloudCover(f.cloudCover),
		locator.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	rows, err := loc.Search(cmd.Context(), locator.Point{Lon: f.lon, Lat: f.lat}, rng)
	if err != nil {
		return nil, nil, err
	}
	return rows, loc, nil
}

// dateRange parses the flag values, prompting on the terminal for any that
// are empty.
func dateRange(in io.Reader, out io.Writer, start, end string) (temporal.Range, error) {
	var rl *readline.Instance
	defer func() {
		if rl != nil {
			rl.Close()
		}
	}()
	reader := func() (temporal.LineReader, error) {
		if rl == nil {
			var err error
			if rl, err = temporal.NewTerminalReader(io.NopCloser(in), out); err != nil {
				return nil, err
			}
		}
		return rl, nil
	}

	s, err := resolveDate(start, temporal.StartPrompt, reader)
	if err != nil {
		return temporal.Range{}, fmt.Errorf("start date: %w", err)
	}
	e, err := resolveDate(end, temporal.EndPrompt, reader)
	if err != nil {
		return temporal.Range{}, fmt.Errorf("end date: %w", err)
	}
	return temporal.Range{Start: s, End: e}, nil
}

func resolveDate(value, prompt string, reader func() (temporal.LineReader, error)) (time.Time, error) {
	if value != "" {
		return temporal.ParseDate(value)
	}
	r, err := reader()
	if err != nil {
		return time.Time{}, err
	}
	return temporal.PromptDate(r, prompt)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of emit-prep",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "emit-prep %s\n", version)
		},
	}
}
