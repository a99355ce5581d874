// Package raster loads EMIT NetCDF variables through GDAL.
package raster

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/lukeroth/gdal"

	"github.com/robert-malhotra/emit-prep/internal/prepare"
)

// ReflectanceVariable is the L2A reflectance variable name.
const ReflectanceVariable = "reflectance"

// SubdatasetName returns the GDAL name of a variable inside a NetCDF file.
func SubdatasetName(path, variable string) string {
	return `NETCDF:"` + path + `":` + variable
}

// Reader implements prepare.Source on top of GDAL's netCDF driver.
type Reader struct {
	logger *slog.Logger
}

var _ prepare.Source = (*Reader)(nil)

// NewReader creates a Reader. A nil logger uses slog.Default.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadReflectance loads the (downtrack, crosstrack, band) reflectance cube.
//
// The netCDF driver exposes the two innermost dimensions as the raster and
// every other dimension as bands, so each GDAL band is one downtrack line of
// crosstrack x wavelength samples and lands contiguously in the cube.
func (r *Reader) ReadReflectance(ctx context.Context, path string) (*prepare.Cube, error) {
	name := SubdatasetName(path, ReflectanceVariable)
	ds, err := gdal.Open(name, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer ds.Close()

	rows, cols, bands := ds.RasterCount(), ds.RasterYSize(), ds.RasterXSize()
	r.logger.DebugContext(ctx, "reading reflectance",
		slog.String("dataset", name),
		slog.Int("downtrack", rows),
		slog.Int("crosstrack", cols),
		slog.Int("bands", bands),
	)

	cube := prepare.NewCube(rows, cols, bands)
	stride := cols * bands
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf := cube.Data[i*stride : (i+1)*stride]
		band := ds.RasterBand(i + 1)
		if err := band.IO(gdal.RWFlag(gdal.Read), 0, 0, bands, cols, buf, bands, cols, 0, 0); err != nil {
			return nil, fmt.Errorf("failed to read downtrack line %d of %s: %w", i, name, err)
		}
	}

	return cube, nil
}

// ReadLabels loads a (downtrack, crosstrack) label grid. Fill values and NaN
// become the background label.
func (r *Reader) ReadLabels(ctx context.Context, path, variable string) (*prepare.Grid, error) {
	name := SubdatasetName(path, variable)
	ds, err := gdal.Open(name, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer ds.Close()

	if n := ds.RasterCount(); n != 1 {
		return nil, fmt.Errorf("%s: expected a single-band grid, got %d bands", name, n)
	}

	band := ds.RasterBand(1)
	cols, rows := band.XSize(), band.YSize()
	r.logger.DebugContext(ctx, "reading labels",
		slog.String("dataset", name),
		slog.Int("downtrack", rows),
		slog.Int("crosstrack", cols),
	)

	values := make([]float64, rows*cols)
	if err := band.IO(gdal.RWFlag(gdal.Read), 0, 0, cols, rows, values, cols, rows, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	nodata, hasNodata := band.NoDataValue()
	return &prepare.Grid{
		Rows: rows,
		Cols: cols,
		Data: labelsFromValues(values, nodata, hasNodata),
	}, nil
}

func labelsFromValues(values []float64, nodata float64, hasNodata bool) []int {
	out := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) || (hasNodata && v == nodata) {
			out[i] = prepare.BackgroundLabel
			continue
		}
		out[i] = int(math.Round(v))
	}
	return out
}
