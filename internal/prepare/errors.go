package prepare

import "errors"

var (
	// ErrInsufficientSamples is returned by an oversampler when a class has
	// too few rows to find its nearest neighbours, or the table is empty.
	ErrInsufficientSamples = errors.New("insufficient samples per class")

	// ErrSingleClass is returned when balancing is requested for a table
	// holding only one class.
	ErrSingleClass = errors.New("at least two classes are required")

	// ErrNoValidBands is returned when every band contains the invalid-value
	// sentinel.
	ErrNoValidBands = errors.New("no valid bands remain")

	// ErrShapeMismatch is returned when the reflectance cube and the label
	// grid do not cover the same pixels.
	ErrShapeMismatch = errors.New("reflectance and label grids differ in shape")

	// ErrInvalidOptions is returned for out-of-range preparation options.
	ErrInvalidOptions = errors.New("invalid preparation options")
)
