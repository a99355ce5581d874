package prepare

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardises feature columns.
type Scaler interface {
	FitTransform(x *mat.Dense) (*mat.Dense, error)
}

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. Zero-variance columns are only centred.
// The fitted parameters are kept for inspection.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitTransform implements Scaler.
func (s *StandardScaler) FitTransform(x *mat.Dense) (*mat.Dense, error) {
	if x == nil {
		return nil, nil
	}
	rows, cols := x.Dims()
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Std[j] = mean, std
		for i, v := range col {
			out.Set(i, j, (v-mean)/std)
		}
	}
	return out, nil
}
