// Package prepare turns a reflectance cube and a mineral label grid into a
// labelled feature table for supervised classification.
package prepare

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Preparer runs the preparation pipeline. Nil strategies fall back to SMOTE,
// StratifiedSplit and StandardScaler configured from the Options.
type Preparer struct {
	Source      Source
	Oversampler Oversampler
	Splitter    Splitter
	Scaler      Scaler
	Logger      *slog.Logger
}

// Prepare loads the reflectance cube at reflPath and the label grid of the
// given ground-truth group at mineralPath, then builds the feature table.
func (p *Preparer) Prepare(ctx context.Context, reflPath, mineralPath string, group int, opts Options) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := p.logger()

	cube, err := p.Source.ReadReflectance(ctx, reflPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reflectance %s: %w", reflPath, err)
	}
	variable := LabelVariable(group)
	grid, err := p.Source.ReadLabels(ctx, mineralPath, variable)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", variable, mineralPath, err)
	}

	logger.InfoContext(ctx, "loaded inputs",
		slog.Int("downtrack", cube.Rows),
		slog.Int("crosstrack", cube.Cols),
		slog.Int("bands", cube.Bands),
		slog.String("labels", variable),
	)

	t, err := Flatten(cube, grid, opts.CropScale)
	if err != nil {
		return nil, err
	}
	return p.Refine(ctx, t, opts)
}

// Refine applies the optional steps to a flattened table, in order: rare
// class removal, balancing, stratified trim, scaling.
func (p *Preparer) Refine(ctx context.Context, t *Table, opts Options) (*Table, error) {
	logger := p.logger()
	logger.DebugContext(ctx, "flattened table",
		slog.Int("rows", t.Len()),
		slog.Int("bands", len(t.Bands)),
	)

	if opts.RemoveRareClasses {
		t = RemoveRareClasses(t, opts.MinClassCount)
		logger.DebugContext(ctx, "removed rare classes", slog.Int("rows", t.Len()))
	}

	if opts.Balance {
		over := p.Oversampler
		if over == nil {
			over = SMOTE{Neighbors: opts.Neighbors, Seed: opts.Seed}
		}
		balanced, err := over.Resample(t)
		if err != nil {
			return nil, fmt.Errorf("failed to balance classes: %w", err)
		}
		t = balanced
		logger.DebugContext(ctx, "balanced classes", slog.Int("rows", t.Len()))
	}

	if opts.Trim {
		split := p.Splitter
		if split == nil {
			split = StratifiedSplit{Seed: opts.Seed}
		}
		trimmed, err := split.Split(t, opts.TrimFraction)
		if err != nil {
			return nil, fmt.Errorf("failed to trim table: %w", err)
		}
		t = trimmed
		logger.DebugContext(ctx, "trimmed table", slog.Int("rows", t.Len()))
	}

	if opts.Scale {
		scaler := p.Scaler
		if scaler == nil {
			scaler = &StandardScaler{}
		}
		scaled, err := scaler.FitTransform(t.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to scale features: %w", err)
		}
		t = &Table{Features: scaled, Labels: t.Labels, Bands: t.Bands}
	}

	logger.InfoContext(ctx, "prepared table",
		slog.Int("rows", t.Len()),
		slog.Int("features", len(t.Bands)),
		slog.Int("classes", len(t.Classes())),
	)
	return t, nil
}

func (p *Preparer) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Flatten crops cube and grid to the leading scale fraction of both spatial
// dimensions and flattens the window to one row per pixel. Bands holding the
// invalid-value sentinel at any pixel of the window are dropped, then pixels
// labelled with the background value.
func Flatten(cube *Cube, grid *Grid, scale float64) (*Table, error) {
	rows, cols, err := cropExtent(cube.Rows, cube.Cols, scale)
	if err != nil {
		return nil, err
	}
	if grid.Rows < rows || grid.Cols < cols {
		return nil, fmt.Errorf("%w: labels %dx%d, window %dx%d",
			ErrShapeMismatch, grid.Rows, grid.Cols, rows, cols)
	}

	valid := make([]bool, cube.Bands)
	for i := range valid {
		valid[i] = true
	}
	sentinel := float32(InvalidValue)
	labelled := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for b, v := range cube.Pixel(r, c) {
				if v == sentinel {
					valid[b] = false
				}
			}
			if grid.At(r, c) != BackgroundLabel {
				labelled++
			}
		}
	}

	var bands []int
	for b, ok := range valid {
		if ok {
			bands = append(bands, b)
		}
	}
	if len(bands) == 0 {
		return nil, ErrNoValidBands
	}

	t := &Table{Labels: make([]int, 0, labelled), Bands: bands}
	if labelled == 0 {
		return t, nil
	}

	t.Features = mat.NewDense(labelled, len(bands), nil)
	i := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			label := grid.At(r, c)
			if label == BackgroundLabel {
				continue
			}
			px := cube.Pixel(r, c)
			dst := t.Features.RawRowView(i)
			for j, b := range bands {
				dst[j] = float64(px[b])
			}
			t.Labels = append(t.Labels, label)
			i++
		}
	}
	return t, nil
}

// RemoveRareClasses drops rows whose label occurs fewer than minCount times.
func RemoveRareClasses(t *Table, minCount int) *Table {
	counts := t.ClassCounts()
	rows := make([]int, 0, t.Len())
	for i, l := range t.Labels {
		if counts[l] >= minCount {
			rows = append(rows, i)
		}
	}
	if len(rows) == t.Len() {
		return t
	}
	return t.subset(rows)
}
