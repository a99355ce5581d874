package prepare

import "fmt"

const (
	// InvalidValue marks a reflectance band that carries no usable data.
	InvalidValue = -0.01

	// BackgroundLabel is the "no class" value in a mineral grid.
	BackgroundLabel = 0
)

// Options toggles the individual preparation steps.
type Options struct {
	RemoveRareClasses bool
	Balance           bool
	Trim              bool
	Scale             bool

	// CropScale keeps the leading fraction of both spatial dimensions.
	CropScale float64

	// TrimFraction is the share of rows kept by the stratified trim.
	TrimFraction float64

	Seed uint64

	// MinClassCount is the smallest class size kept when RemoveRareClasses
	// is set.
	MinClassCount int

	// Neighbors is the k used by the default oversampler.
	Neighbors int
}

// DefaultOptions returns every step enabled with the standard parameters.
func DefaultOptions() Options {
	return Options{
		RemoveRareClasses: true,
		Balance:           true,
		Trim:              true,
		Scale:             true,
		CropScale:         1,
		TrimFraction:      0.05,
		Seed:              42,
		MinClassCount:     3,
		Neighbors:         2,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.CropScale <= 0 || o.CropScale > 1 {
		return fmt.Errorf("%w: crop scale %g not in (0, 1]", ErrInvalidOptions, o.CropScale)
	}
	if o.Trim && (o.TrimFraction <= 0 || o.TrimFraction >= 1) {
		return fmt.Errorf("%w: trim fraction %g not in (0, 1)", ErrInvalidOptions, o.TrimFraction)
	}
	if o.RemoveRareClasses && o.MinClassCount < 1 {
		return fmt.Errorf("%w: min class count must be positive", ErrInvalidOptions)
	}
	if o.Balance && o.Neighbors < 1 {
		return fmt.Errorf("%w: neighbors must be positive", ErrInvalidOptions)
	}
	return nil
}

// LabelVariable returns the mineral-id variable name for a ground-truth group.
func LabelVariable(group int) string {
	return fmt.Sprintf("group_%d_mineral_id", group)
}
