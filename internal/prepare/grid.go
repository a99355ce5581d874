package prepare

import (
	"context"
	"fmt"
)

// Source loads the two co-registered inputs of a preparation run.
type Source interface {
	ReadReflectance(ctx context.Context, path string) (*Cube, error)
	ReadLabels(ctx context.Context, path, variable string) (*Grid, error)
}

// Cube is a reflectance cube in (downtrack, crosstrack, band) order. The
// value for (row, col, band) lives at Data[(row*Cols+col)*Bands+band].
type Cube struct {
	Rows  int
	Cols  int
	Bands int
	Data  []float32
}

// NewCube allocates a zeroed cube.
func NewCube(rows, cols, bands int) *Cube {
	return &Cube{Rows: rows, Cols: cols, Bands: bands, Data: make([]float32, rows*cols*bands)}
}

// Pixel returns the spectrum of one pixel. The slice aliases Data.
func (c *Cube) Pixel(row, col int) []float32 {
	off := (row*c.Cols + col) * c.Bands
	return c.Data[off : off+c.Bands]
}

// Grid is a per-pixel label layer in (downtrack, crosstrack) order.
type Grid struct {
	Rows int
	Cols int
	Data []int
}

// NewGrid allocates a grid filled with the background label.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]int, rows*cols)}
}

// At returns the label at (row, col).
func (g *Grid) At(row, col int) int {
	return g.Data[row*g.Cols+col]
}

// cropExtent computes the window kept along both spatial axes.
func cropExtent(rows, cols int, scale float64) (int, int, error) {
	r := int(float64(rows) * scale)
	c := int(float64(cols) * scale)
	if r < 1 || c < 1 {
		return 0, 0, fmt.Errorf("%w: crop scale %g leaves an empty %dx%d window", ErrInvalidOptions, scale, r, c)
	}
	return r, c, nil
}
