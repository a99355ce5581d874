package stac

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/robert-malhotra/emit-prep/internal/locator"
)

func testRow() locator.Row {
	cc := 7.0
	return locator.Row{
		AssetName:  "EMIT_L2A_RFL_001_20230817T183512_2322912_004.nc",
		AssetURL:   "https://data.lpdaac.earthdatacloud.nasa.gov/EMIT_L2A_RFL_001_20230817T183512_2322912_004.nc",
		CloudCover: &cc,
		GranuleID:  "G2759186345-LPCLOUD",
		Footprint: orb.MultiPolygon{{{
			{-62.2, -39.9}, {-62.0, -39.9}, {-62.0, -39.8}, {-62.2, -39.8}, {-62.2, -39.9},
		}}},
		Start: time.Date(2023, 8, 17, 18, 35, 12, 0, time.UTC),
		End:   time.Date(2023, 8, 17, 18, 35, 24, 0, time.UTC),
	}
}

func TestFromRow_Basic(t *testing.T) {
	item, err := FromRow(testRow(), "EMITL2ARFL")
	if err != nil {
		t.Fatalf("FromRow failed: %v", err)
	}

	if item.Id != "EMIT_L2A_RFL_001_20230817T183512_2322912_004" {
		t.Errorf("Expected ID without extension, got %s", item.Id)
	}
	if item.Collection != "EMITL2ARFL" {
		t.Errorf("Expected collection EMITL2ARFL, got %s", item.Collection)
	}
	if item.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, item.Version)
	}

	wantBbox := []float64{-62.2, -39.9, -62.0, -39.8}
	if len(item.Bbox) != 4 {
		t.Fatalf("Expected 4 bbox values, got %d", len(item.Bbox))
	}
	for i, v := range wantBbox {
		if item.Bbox[i] != v {
			t.Errorf("bbox[%d] = %v, want %v", i, item.Bbox[i], v)
		}
	}

	if item.Properties["start_datetime"] != "2023-08-17T18:35:12Z" {
		t.Errorf("Unexpected start_datetime %v", item.Properties["start_datetime"])
	}
	if item.Properties["end_datetime"] != "2023-08-17T18:35:24Z" {
		t.Errorf("Unexpected end_datetime %v", item.Properties["end_datetime"])
	}
	if item.Properties["eo:cloud_cover"] != 7.0 {
		t.Errorf("Unexpected eo:cloud_cover %v", item.Properties["eo:cloud_cover"])
	}

	asset, ok := item.Assets["data"]
	if !ok {
		t.Fatal("Expected data asset")
	}
	if asset.Href != testRow().AssetURL {
		t.Errorf("Unexpected asset href %s", asset.Href)
	}
	if asset.Type != NetCDFMediaType {
		t.Errorf("Unexpected asset type %s", asset.Type)
	}
}

func TestFromRow_Geometry(t *testing.T) {
	item, err := FromRow(testRow(), "EMITL2ARFL")
	if err != nil {
		t.Fatalf("FromRow failed: %v", err)
	}

	raw, ok := item.Geometry.(json.RawMessage)
	if !ok {
		t.Fatalf("Expected json.RawMessage geometry, got %T", item.Geometry)
	}

	var geom struct {
		Type        string          `json:"type"`
		Coordinates [][][][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &geom); err != nil {
		t.Fatalf("Failed to decode geometry: %v", err)
	}
	if geom.Type != "MultiPolygon" {
		t.Errorf("Expected MultiPolygon, got %s", geom.Type)
	}
	if got := geom.Coordinates[0][0][0]; got[0] != -62.2 || got[1] != -39.9 {
		t.Errorf("Unexpected first vertex %v", got)
	}
}

func TestFromRow_NoCloudCoverNoEnd(t *testing.T) {
	row := testRow()
	row.CloudCover = nil
	row.End = time.Time{}

	item, err := FromRow(row, "EMITL2ARFL")
	if err != nil {
		t.Fatalf("FromRow failed: %v", err)
	}
	if _, ok := item.Properties["eo:cloud_cover"]; ok {
		t.Error("Expected no eo:cloud_cover when unknown")
	}
	if item.Properties["end_datetime"] != item.Properties["start_datetime"] {
		t.Errorf("Expected end_datetime to fall back to start, got %v", item.Properties["end_datetime"])
	}
}

func TestFromRow_MissingAssetName(t *testing.T) {
	row := testRow()
	row.AssetName = ""
	if _, err := FromRow(row, "EMITL2ARFL"); err == nil {
		t.Fatal("Expected error for missing asset name, got nil")
	}
}

func TestFromRows_MarshalsAsFeatureCollection(t *testing.T) {
	ic, err := FromRows([]locator.Row{testRow()}, "EMITL2ARFL")
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	ic.AddLink("via", "https://cmr.earthdata.nasa.gov/search/granules.json", "application/json")

	data, err := json.Marshal(ic)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Type           string           `json:"type"`
		NumberReturned int              `json:"numberReturned"`
		Features       []map[string]any `json:"features"`
		Links          []map[string]any `json:"links"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Type != "FeatureCollection" {
		t.Errorf("Expected FeatureCollection, got %s", decoded.Type)
	}
	if decoded.NumberReturned != 1 || len(decoded.Features) != 1 {
		t.Errorf("Expected one feature, got %d/%d", decoded.NumberReturned, len(decoded.Features))
	}
	if decoded.Features[0]["type"] != "Feature" {
		t.Errorf("Expected Feature, got %v", decoded.Features[0]["type"])
	}
	if len(decoded.Links) != 1 || decoded.Links[0]["rel"] != "via" {
		t.Errorf("Unexpected links %v", decoded.Links)
	}
}
