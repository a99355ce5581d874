// Package cmr provides a client for NASA's Common Metadata Repository (CMR) API.
package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default CMR API base URL.
	DefaultBaseURL = "https://cmr.earthdata.nasa.gov/search"

	// DefaultPageSize is the page size used for granule searches.
	DefaultPageSize = 2000

	// MaxPageSize is the maximum page size supported by CMR.
	MaxPageSize = 2000

	userAgent = "emit-prep/1.0"
)

// Client handles communication with the CMR API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new CMR API client. A zero timeout leaves requests
// bounded only by the context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// BaseURL returns the CMR search root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveConceptID looks up a collection by DOI and returns the concept ID of
// the first matching entry.
func (c *Client) ResolveConceptID(ctx context.Context, doi string) (string, error) {
	if doi == "" {
		return "", fmt.Errorf("DOI is required")
	}

	lookupURL := c.baseURL + "/collections.json?" + url.Values{"doi": {doi}}.Encode()

	c.logger.DebugContext(ctx, "resolving collection concept ID",
		slog.String("url", lookupURL),
		slog.String("doi", doi),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var collResp CollectionResponse
	if err := c.do(ctx, req, &collResp); err != nil {
		return "", err
	}

	if len(collResp.Feed.Entry) == 0 {
		c.logger.WarnContext(ctx, "no collection matches DOI",
			slog.String("doi", doi),
		)
		return "", fmt.Errorf("%w: doi %s", ErrCollectionNotFound, doi)
	}

	conceptID := collResp.Feed.Entry[0].ID
	c.logger.DebugContext(ctx, "resolved concept ID",
		slog.String("doi", doi),
		slog.String("concept_id", conceptID),
	)

	return conceptID, nil
}

// SearchGranules requests a single page of granules. The parameters are sent
// as a form-encoded POST body, which keeps long temporal or spatial filters
// out of the URL.
func (c *Client) SearchGranules(ctx context.Context, params *GranuleParams) (*GranulePage, error) {
	searchURL := c.baseURL + "/granules.json"
	form := params.ToURLValues()

	c.logger.DebugContext(ctx, "executing CMR granule search",
		slog.String("url", searchURL),
		slog.String("params", form.Encode()),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var granResp GranuleResponse
	if err := c.do(ctx, req, &granResp); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "CMR granule search completed",
		slog.Int("page_num", params.PageNum),
		slog.Int("returned", len(granResp.Feed.Entry)),
	)

	return &GranulePage{
		PageNum: params.PageNum,
		Entries: granResp.Feed.Entry,
	}, nil
}

// do executes req and decodes a 200 JSON body into out.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "CMR API request failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("CMR API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "CMR API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		return fmt.Errorf("CMR API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode CMR response",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to decode CMR response: %w", err)
	}

	return nil
}

// GranulePage is one page of granule search results.
type GranulePage struct {
	PageNum int
	Entries []GranuleEntry
}

// GranuleParams represents parameters for a CMR granule search.
type GranuleParams struct {
	CollectionConceptID string

	// Spatial filter, "lon,lat"
	Point string

	// Temporal filter, "start,end" in ISO 8601 format
	Temporal string

	// Optional cloud cover range, "min,max"
	CloudCover string

	// Pagination
	PageSize int
	PageNum  int
}

// ToURLValues converts GranuleParams to form values.
func (p *GranuleParams) ToURLValues() url.Values {
	values := url.Values{}

	if p.CollectionConceptID != "" {
		values.Set("collection_concept_id", p.CollectionConceptID)
	}
	if p.Point != "" {
		values.Set("point", p.Point)
	}
	if p.Temporal != "" {
		values.Set("temporal", p.Temporal)
	}
	if p.CloudCover != "" {
		values.Set("cloud_cover", p.CloudCover)
	}

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	values.Set("page_size", strconv.Itoa(pageSize))

	pageNum := p.PageNum
	if pageNum <= 0 {
		pageNum = 1
	}
	values.Set("page_num", strconv.Itoa(pageNum))

	return values
}

// FormatPoint renders a point filter the way CMR expects it: "lon,lat".
func FormatPoint(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}
