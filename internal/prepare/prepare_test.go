package prepare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type memSource struct {
	cube     *Cube
	grid     *Grid
	variable string
}

func (m *memSource) ReadReflectance(context.Context, string) (*Cube, error) {
	return m.cube, nil
}

func (m *memSource) ReadLabels(_ context.Context, _ string, variable string) (*Grid, error) {
	m.variable = variable
	return m.grid, nil
}

// syntheticCube fills every band with a value derived from the pixel
// position so columns have non-zero variance.
func syntheticCube(rows, cols, bands int) *Cube {
	c := NewCube(rows, cols, bands)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			px := c.Pixel(r, col)
			for b := range px {
				px[b] = float32((r*7+col*3)%11) + float32(b)*0.5 + float32(r)*0.1
			}
		}
	}
	return c
}

func gridOf(rows, cols int, labels ...int) *Grid {
	g := NewGrid(rows, cols)
	copy(g.Data, labels)
	return g
}

func TestPrepare_SyntheticCube(t *testing.T) {
	src := &memSource{
		cube: syntheticCube(4, 4, 2),
		grid: gridOf(4, 4,
			0, 0, 1, 2,
			1, 1, 1, 2,
			2, 2, 2, 1,
			1, 1, 2, 2,
		),
	}
	opts := DefaultOptions()
	opts.Trim = false

	p := &Preparer{Source: src}
	out, err := p.Prepare(context.Background(), "refl.nc", "min.nc", 1, opts)
	require.NoError(t, err)

	assert.Equal(t, "group_1_mineral_id", src.variable)
	assert.NotContains(t, out.Labels, BackgroundLabel)

	rows, cols := out.Features.Dims()
	assert.Equal(t, out.Len(), rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, map[int]int{1: 7, 2: 7}, out.ClassCounts())

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, out.Features)
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, std, 1e-9)
	}
}

func TestPrepare_AllStepsEnabled(t *testing.T) {
	labels := make([]int, 20*20)
	for r := 0; r < 20; r++ {
		for c := 0; c < 20; c++ {
			switch {
			case r < 10:
				labels[r*20+c] = 1
			case c < 5:
				labels[r*20+c] = 2
			default:
				labels[r*20+c] = 3
			}
		}
	}
	src := &memSource{cube: syntheticCube(20, 20, 4), grid: gridOf(20, 20, labels...)}

	p := &Preparer{Source: src}
	out, err := p.Prepare(context.Background(), "refl.nc", "min.nc", 2, DefaultOptions())
	require.NoError(t, err)

	// 200 rows per class after balancing, 5% of 600 kept.
	assert.Equal(t, 30, out.Len())
	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 10}, out.ClassCounts())
}

func TestPrepare_BalanceErrorPropagates(t *testing.T) {
	src := &memSource{
		cube: syntheticCube(2, 4, 2),
		grid: gridOf(2, 4,
			1, 1, 1, 1,
			1, 2, 2, 0,
		),
	}
	opts := DefaultOptions()
	opts.RemoveRareClasses = false

	p := &Preparer{Source: src}
	_, err := p.Prepare(context.Background(), "refl.nc", "min.nc", 1, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestPrepare_EmptyAfterFilteringFailsToBalance(t *testing.T) {
	src := &memSource{cube: syntheticCube(2, 2, 2), grid: gridOf(2, 2, 0, 0, 0, 0)}

	p := &Preparer{Source: src}
	_, err := p.Prepare(context.Background(), "refl.nc", "min.nc", 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestPrepare_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.CropScale = 0

	p := &Preparer{Source: &memSource{}}
	_, err := p.Prepare(context.Background(), "a", "b", 1, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestFlatten_DropsSentinelBands(t *testing.T) {
	cube := NewCube(2, 2, 3)
	for i := range cube.Data {
		cube.Data[i] = float32(i)
	}
	cube.Pixel(1, 0)[1] = float32(InvalidValue)

	out, err := Flatten(cube, gridOf(2, 2, 5, 0, 6, 7), 1)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, out.Bands)
	assert.Equal(t, []int{5, 6, 7}, out.Labels)
	assert.Equal(t, []float64{0, 2}, out.Features.RawRowView(0))
	assert.Equal(t, []float64{6, 8}, out.Features.RawRowView(1))
	assert.Equal(t, []float64{9, 11}, out.Features.RawRowView(2))
}

func TestFlatten_SentinelInBackgroundPixelStillDropsBand(t *testing.T) {
	cube := syntheticCube(2, 2, 2)
	cube.Pixel(0, 0)[0] = float32(InvalidValue)

	out, err := Flatten(cube, gridOf(2, 2, 0, 1, 1, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, out.Bands)
}

func TestFlatten_CropScale(t *testing.T) {
	cube := syntheticCube(4, 4, 1)
	grid := gridOf(4, 4,
		1, 2, 9, 9,
		3, 4, 9, 9,
		9, 9, 9, 9,
		9, 9, 9, 9,
	)

	out, err := Flatten(cube, grid, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, out.Labels)
}

func TestFlatten_Errors(t *testing.T) {
	t.Run("shape mismatch", func(t *testing.T) {
		_, err := Flatten(syntheticCube(4, 4, 1), NewGrid(3, 4), 1)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("no valid bands", func(t *testing.T) {
		cube := syntheticCube(1, 1, 2)
		cube.Data[0], cube.Data[1] = float32(InvalidValue), float32(InvalidValue)
		_, err := Flatten(cube, gridOf(1, 1, 1), 1)
		assert.ErrorIs(t, err, ErrNoValidBands)
	})

	t.Run("empty window", func(t *testing.T) {
		_, err := Flatten(syntheticCube(2, 2, 1), NewGrid(2, 2), 0.1)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})
}

func TestFlatten_AllBackground(t *testing.T) {
	out, err := Flatten(syntheticCube(2, 2, 2), NewGrid(2, 2), 1)
	require.NoError(t, err)
	assert.Zero(t, out.Len())
	assert.Nil(t, out.Features)
}

func TestRemoveRareClasses(t *testing.T) {
	in := &Table{
		Features: mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5}),
		Labels:   []int{1, 2, 2, 1, 2},
		Bands:    []int{0},
	}

	out := RemoveRareClasses(in, 3)
	assert.Equal(t, []int{2, 2, 2}, out.Labels)
	assert.Equal(t, []float64{2, 3, 5}, mat.Col(nil, 0, out.Features))
}

func TestLabelVariable(t *testing.T) {
	assert.Equal(t, "group_1_mineral_id", LabelVariable(1))
	assert.Equal(t, "group_2_mineral_id", LabelVariable(2))
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		ok     bool
	}{
		{"defaults", func(*Options) {}, true},
		{"crop above one", func(o *Options) { o.CropScale = 1.5 }, false},
		{"trim fraction one", func(o *Options) { o.TrimFraction = 1 }, false},
		{"trim fraction ignored when off", func(o *Options) { o.Trim = false; o.TrimFraction = 0 }, true},
		{"zero neighbours", func(o *Options) { o.Neighbors = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			if tt.ok {
				assert.NoError(t, o.Validate())
			} else {
				assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
			}
		})
	}
}
