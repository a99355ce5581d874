package cmr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CollectionResponse represents a CMR collections.json response.
type CollectionResponse struct {
	Feed struct {
		Entry []CollectionEntry `json:"entry"`
	} `json:"feed"`
}

// CollectionEntry is a single collection record.
type CollectionEntry struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	VersionID string `json:"version_id"`
	Title     string `json:"title"`
	DOI       string `json:"doi,omitempty"`
}

// GranuleResponse represents a CMR granules.json response.
type GranuleResponse struct {
	Feed struct {
		Entry []GranuleEntry `json:"entry"`
	} `json:"feed"`
}

// GranuleEntry is a single granule record in CMR's JSON (Atom) format.
type GranuleEntry struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	ProducerGranuleID string          `json:"producer_granule_id,omitempty"`
	CollectionConcept string          `json:"collection_concept_id,omitempty"`
	TimeStart         string          `json:"time_start,omitempty"`
	TimeEnd           string          `json:"time_end,omitempty"`
	CloudCover        json.RawMessage `json:"cloud_cover,omitempty"`
	Polygons          [][]string      `json:"polygons,omitempty"`
	Links             []Link          `json:"links,omitempty"`
}

// Link represents a URL related to the granule.
type Link struct {
	Href      string `json:"href"`
	Rel       string `json:"rel,omitempty"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Inherited bool   `json:"inherited,omitempty"`
}

// GetCloudCover returns the cloud cover percentage, or nil when the field is
// absent or null. CMR emits it either as a number or as a numeric string.
func (g *GranuleEntry) GetCloudCover() (*float64, error) {
	raw := bytes.TrimSpace(g.CloudCover)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("invalid cloud_cover %s: %w", raw, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cloud_cover %q: %w", s, err)
		}
		v = f
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid cloud_cover %s: %w", raw, err)
	}

	return &v, nil
}

// GetHrefs returns every link href in document order.
func (g *GranuleEntry) GetHrefs() []string {
	hrefs := make([]string, 0, len(g.Links))
	for _, l := range g.Links {
		hrefs = append(hrefs, l.Href)
	}
	return hrefs
}

// GetStartTime returns the start time of the granule.
func (g *GranuleEntry) GetStartTime() (time.Time, error) {
	if g.TimeStart == "" {
		return time.Time{}, nil
	}
	return parseTime(g.TimeStart)
}

// GetEndTime returns the end time of the granule.
func (g *GranuleEntry) GetEndTime() (time.Time, error) {
	if g.TimeEnd == "" {
		return time.Time{}, nil
	}
	return parseTime(g.TimeEnd)
}

// parseTime parses a CMR timestamp string.
func parseTime(s string) (time.Time, error) {
	// CMR uses ISO 8601 format
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.000Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}
