package prepare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// tableOf builds a two-feature table from (x, y, label) triples.
func tableOf(points ...[3]float64) *Table {
	t := &Table{Features: mat.NewDense(len(points), 2, nil), Bands: []int{0, 1}}
	for i, p := range points {
		t.Features.SetRow(i, p[:2])
		t.Labels = append(t.Labels, int(p[2]))
	}
	return t
}

func imbalanced() *Table {
	var pts [][3]float64
	for i := 0; i < 10; i++ {
		pts = append(pts, [3]float64{float64(i), 0, 1})
	}
	pts = append(pts,
		[3]float64{100, 100, 2},
		[3]float64{101, 100, 2},
		[3]float64{100, 102, 2},
	)
	for i := 0; i < 5; i++ {
		pts = append(pts, [3]float64{-50, float64(i), 3})
	}
	return tableOf(pts...)
}

func TestSMOTE_EqualizesClassCounts(t *testing.T) {
	in := imbalanced()

	out, err := SMOTE{Neighbors: 2, Seed: 1}.Resample(in)
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 10}, out.ClassCounts())
	rows, _ := out.Features.Dims()
	assert.Equal(t, 30, rows)

	// Originals are kept in place.
	for i := 0; i < in.Len(); i++ {
		assert.Equal(t, in.Features.RawRowView(i), out.Features.RawRowView(i))
		assert.Equal(t, in.Labels[i], out.Labels[i])
	}

	// Synthetic rows stay inside the convex hull of their class.
	for i := in.Len(); i < out.Len(); i++ {
		row := out.Features.RawRowView(i)
		switch out.Labels[i] {
		case 2:
			assert.GreaterOrEqual(t, row[0], 100.0)
			assert.LessOrEqual(t, row[0], 101.0)
			assert.GreaterOrEqual(t, row[1], 100.0)
			assert.LessOrEqual(t, row[1], 102.0)
		case 3:
			assert.Equal(t, -50.0, row[0])
			assert.GreaterOrEqual(t, row[1], 0.0)
			assert.LessOrEqual(t, row[1], 4.0)
		default:
			t.Fatalf("majority class %d should not be oversampled", out.Labels[i])
		}
	}
}

func TestSMOTE_SeedIsDeterministic(t *testing.T) {
	a, err := SMOTE{Neighbors: 2, Seed: 7}.Resample(imbalanced())
	require.NoError(t, err)
	b, err := SMOTE{Neighbors: 2, Seed: 7}.Resample(imbalanced())
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.Features, b.Features))
	assert.Equal(t, a.Labels, b.Labels)
}

func TestSMOTE_Errors(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		_, err := SMOTE{Neighbors: 2}.Resample(&Table{})
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("single class", func(t *testing.T) {
		_, err := SMOTE{Neighbors: 2}.Resample(tableOf(
			[3]float64{0, 0, 1}, [3]float64{1, 0, 1}, [3]float64{2, 0, 1},
		))
		assert.ErrorIs(t, err, ErrSingleClass)
	})

	t.Run("minority smaller than neighbours", func(t *testing.T) {
		_, err := SMOTE{Neighbors: 2}.Resample(tableOf(
			[3]float64{0, 0, 1}, [3]float64{1, 0, 1}, [3]float64{2, 0, 1},
			[3]float64{9, 9, 2}, [3]float64{8, 9, 2},
		))
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})
}

func TestNearest(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 10, 1, 3})
	assert.Equal(t, []int{2, 3}, nearest(x, 0, []int{0, 1, 2, 3}, 2))
	assert.Equal(t, []int{3}, nearest(x, 1, []int{0, 1, 3}, 1))
}

func TestStratifiedSplit_KeepsEveryClass(t *testing.T) {
	var pts [][3]float64
	for i := 0; i < 90; i++ {
		pts = append(pts, [3]float64{float64(i), 0, 1})
	}
	for i := 0; i < 10; i++ {
		pts = append(pts, [3]float64{float64(i), 1, 2})
	}

	out, err := StratifiedSplit{Seed: 42}.Split(tableOf(pts...), 0.05)
	require.NoError(t, err)

	assert.Equal(t, 5, out.Len())
	assert.Equal(t, map[int]int{1: 4, 2: 1}, out.ClassCounts())

	// Row order follows the input.
	for i := 1; i < out.Len(); i++ {
		prev, cur := out.Features.RawRowView(i-1), out.Features.RawRowView(i)
		assert.True(t, prev[1] < cur[1] || (prev[1] == cur[1] && prev[0] < cur[0]))
	}
}

func TestStratifiedSplit_SeedIsDeterministic(t *testing.T) {
	in := imbalanced()
	a, err := StratifiedSplit{Seed: 42}.Split(in, 0.5)
	require.NoError(t, err)
	b, err := StratifiedSplit{Seed: 42}.Split(in, 0.5)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.Features, b.Features))
	assert.Equal(t, 9, a.Len())
}

func TestStratifiedSplit_TooFewRowsForClasses(t *testing.T) {
	_, err := StratifiedSplit{}.Split(imbalanced(), 0.05)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestStratifiedSplit_EmptyTable(t *testing.T) {
	out, err := StratifiedSplit{}.Split(&Table{}, 0.05)
	require.NoError(t, err)
	assert.Zero(t, out.Len())
}

func TestAllocate(t *testing.T) {
	counts := map[int]int{1: 50, 2: 30, 3: 20}
	alloc := allocate([]int{1, 2, 3}, counts, 100, 7)

	assert.Equal(t, 7, alloc[1]+alloc[2]+alloc[3])
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, alloc)
}

func TestStandardScaler(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})

	s := &StandardScaler{}
	out, err := s.FitTransform(x)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 5}, s.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{1.118033988749895, 1}, s.Std, 1e-12)
	assert.InDeltaSlice(t, []float64{-1.3416407865, -0.4472135955, 0.4472135955, 1.3416407865},
		mat.Col(nil, 0, out), 1e-9)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, out))

	// Input is untouched.
	assert.Equal(t, 1.0, x.At(0, 0))
}

func TestStandardScaler_NilInput(t *testing.T) {
	out, err := (&StandardScaler{}).FitTransform(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
