// Package locator finds EMIT granules covering a point over a date range and
// flattens them into one row per downloadable asset.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/robert-malhotra/emit-prep/internal/cmr"
	"github.com/robert-malhotra/emit-prep/internal/temporal"
	"github.com/robert-malhotra/emit-prep/pkg/footprint"
)

const (
	// DefaultDOI identifies the EMIT L2A surface reflectance collection.
	DefaultDOI = "10.5067/EMIT/EMITL2ARFL.001"

	// DefaultProductMarker selects reflectance assets by file name.
	DefaultProductMarker = "_RFL_"
)

// Catalog is the subset of the CMR client the locator needs.
type Catalog interface {
	ResolveConceptID(ctx context.Context, doi string) (string, error)
	SearchGranules(ctx context.Context, params *cmr.GranuleParams) (*cmr.GranulePage, error)
}

// Point is a search location in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Granule is one catalog entry after link filtering and footprint parsing.
type Granule struct {
	ID         string
	Title      string
	URLs       []string
	CloudCover *float64
	Footprint  orb.MultiPolygon
	Start      time.Time
	End        time.Time
}

// Row is a single asset of a granule.
type Row struct {
	AssetName  string
	AssetURL   string
	CloudCover *float64
	Footprint  orb.MultiPolygon
	GranuleID  string
	Start      time.Time
	End        time.Time
}

// Option configures a Locator.
type Option func(*Locator)

// WithPageSize overrides the page size sent to CMR.
func WithPageSize(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithProductMarker overrides the asset-name substring rows must contain.
func WithProductMarker(marker string) Option {
	return func(l *Locator) {
		if marker != "" {
			l.marker = marker
		}
	}
}

// WithCloudCover restricts results to a "min,max" cloud cover range.
func WithCloudCover(rng string) Option {
	return func(l *Locator) { l.cloudCover = rng }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// Locator searches a single collection. It is created once, after which its
// concept ID is fixed.
type Locator struct {
	catalog    Catalog
	conceptID  string
	pageSize   int
	marker     string
	cloudCover string
	logger     *slog.Logger
}

// New resolves doi to a concept ID and returns a Locator bound to it. A
// failed lookup is returned unchanged; callers should treat it as fatal.
func New(ctx context.Context, catalog Catalog, doi string, opts ...Option) (*Locator, error) {
	if doi == "" {
		doi = DefaultDOI
	}

	l := &Locator{
		catalog:  catalog,
		pageSize: cmr.DefaultPageSize,
		marker:   DefaultProductMarker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	conceptID, err := catalog.ResolveConceptID(ctx, doi)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve concept ID for %s: %w", doi, err)
	}
	l.conceptID = conceptID

	l.logger.InfoContext(ctx, "resolved collection",
		slog.String("doi", doi),
		slog.String("concept_id", conceptID),
	)

	return l, nil
}

// ConceptID returns the collection concept ID resolved at construction.
func (l *Locator) ConceptID() string {
	return l.conceptID
}

// Search returns every reflectance asset whose granule covers pt within rng.
func (l *Locator) Search(ctx context.Context, pt Point, rng temporal.Range) ([]Row, error) {
	params := &cmr.GranuleParams{
		CollectionConceptID: l.conceptID,
		PageSize:            l.pageSize,
		PageNum:             1,
		Temporal:            temporal.FormatCMRRange(rng),
		Point:               cmr.FormatPoint(pt.Lon, pt.Lat),
		CloudCover:          l.cloudCover,
	}

	granules, err := l.LoadGranules(ctx, params)
	if err != nil {
		return nil, err
	}

	rows := FilterByMarker(Explode(granules), l.marker)

	l.logger.InfoContext(ctx, "granule search completed",
		slog.Int("granules", len(granules)),
		slog.Int("assets", len(rows)),
		slog.String("temporal", params.Temporal),
		slog.String("point", params.Point),
	)

	return rows, nil
}

// LoadGranules pages through the search until CMR returns an empty page.
// params.PageNum is advanced in place. Any failed page aborts the search.
func (l *Locator) LoadGranules(ctx context.Context, params *cmr.GranuleParams) ([]Granule, error) {
	if params.PageNum <= 0 {
		params.PageNum = 1
	}

	var granules []Granule
	for {
		page, err := l.catalog.SearchGranules(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("granule search page %d: %w", params.PageNum, err)
		}
		if len(page.Entries) == 0 {
			break
		}

		for i := range page.Entries {
			g, err := NewGranule(&page.Entries[i])
			if err != nil {
				return nil, fmt.Errorf("granule search page %d: %w", params.PageNum, err)
			}
			granules = append(granules, g)
		}

		l.logger.DebugContext(ctx, "loaded granule page",
			slog.Int("page_num", params.PageNum),
			slog.Int("entries", len(page.Entries)),
			slog.Int("total", len(granules)),
		)

		params.PageNum++
	}

	return granules, nil
}

// NewGranule converts a CMR entry into a Granule.
func NewGranule(e *cmr.GranuleEntry) (Granule, error) {
	cloudCover, err := e.GetCloudCover()
	if err != nil {
		return Granule{}, fmt.Errorf("granule %s: %w", e.ID, err)
	}

	fp, err := footprint.ParseCMRPolygons(e.Polygons)
	if err != nil {
		return Granule{}, fmt.Errorf("granule %s: %w", e.ID, err)
	}

	start, _ := e.GetStartTime()
	end, _ := e.GetEndTime()

	return Granule{
		ID:         e.ID,
		Title:      e.Title,
		URLs:       DataLinks(e.GetHrefs()),
		CloudCover: cloudCover,
		Footprint:  fp,
		Start:      start,
		End:        end,
	}, nil
}

// DataLinks keeps secure NetCDF links and drops their .dmrpp sidecars.
func DataLinks(hrefs []string) []string {
	var out []string
	for _, h := range hrefs {
		if !strings.HasPrefix(h, "https://") {
			continue
		}
		if strings.HasSuffix(h, ".dmrpp") || !strings.HasSuffix(h, ".nc") {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Explode drops granules without a footprint and emits one row per URL.
func Explode(granules []Granule) []Row {
	var rows []Row
	for _, g := range granules {
		if footprint.IsEmpty(g.Footprint) {
			continue
		}
		for _, u := range g.URLs {
			rows = append(rows, Row{
				AssetName:  AssetName(u),
				AssetURL:   u,
				CloudCover: g.CloudCover,
				Footprint:  g.Footprint,
				GranuleID:  g.ID,
				Start:      g.Start,
				End:        g.End,
			})
		}
	}
	return rows
}

// FilterByMarker keeps rows whose asset name contains marker.
func FilterByMarker(rows []Row, marker string) []Row {
	out := rows[:0:0]
	for _, r := range rows {
		if strings.Contains(r.AssetName, marker) {
			out = append(out, r)
		}
	}
	return out
}

// AssetName returns the final path segment of an asset URL.
func AssetName(u string) string {
	return u[strings.LastIndex(u, "/")+1:]
}
