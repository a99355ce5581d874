package stac

import (
	"fmt"
	"strings"
	"time"

	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/emit-prep/internal/locator"
	"github.com/robert-malhotra/emit-prep/pkg/footprint"
)

// NetCDFMediaType is the media type of EMIT data assets.
const NetCDFMediaType = "application/x-netcdf"

// FromRow converts one search result row to a STAC item. The item ID is the
// asset name without its extension, so every row yields a distinct item.
func FromRow(row locator.Row, collectionID string) (*Item, error) {
	id := strings.TrimSuffix(row.AssetName, ".nc")
	if id == "" {
		return nil, fmt.Errorf("row for %q has no asset name", row.AssetURL)
	}

	item := NewItem(id, collectionID)

	geom, err := footprint.ToGeoJSON(row.Footprint)
	if err != nil {
		return nil, fmt.Errorf("failed to encode footprint of %s: %w", id, err)
	}
	item.Geometry = geom
	item.Bbox = footprint.BBox(row.Footprint)

	switch {
	case !row.Start.IsZero():
		item.Properties["datetime"] = nil // start_datetime/end_datetime carry the range
		item.Properties["start_datetime"] = row.Start.Format(time.RFC3339)
		end := row.End
		if end.IsZero() {
			end = row.Start
		}
		item.Properties["end_datetime"] = end.Format(time.RFC3339)
	case !row.End.IsZero():
		item.Properties["datetime"] = row.End.Format(time.RFC3339)
	default:
		item.Properties["datetime"] = nil
	}

	item.Properties["platform"] = "iss"
	item.Properties["instruments"] = []string{"emit"}
	if row.GranuleID != "" {
		item.Properties["cmr:concept_id"] = row.GranuleID
	}
	if row.CloudCover != nil {
		item.Properties["eo:cloud_cover"] = *row.CloudCover
	}

	item.Assets["data"] = &gostac.Asset{
		Href:  row.AssetURL,
		Title: row.AssetName,
		Type:  NetCDFMediaType,
		Roles: []string{"data"},
	}

	return item, nil
}

// FromRows converts search rows to an ItemCollection.
func FromRows(rows []locator.Row, collectionID string) (*ItemCollection, error) {
	items := make([]*gostac.Item, 0, len(rows))
	for _, row := range rows {
		item, err := FromRow(row, collectionID)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return NewItemCollection(items), nil
}
