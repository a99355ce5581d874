// Package dataset persists prepared feature tables as Parquet.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/emit-prep/internal/prepare"
)

// BandsKey is the file metadata key holding the source band index of each
// feature, comma separated.
const BandsKey = "emit_prep.bands"

const batchSize = 1024

// Sample is one labelled pixel.
type Sample struct {
	Label    int64     `parquet:"label"`
	Features []float64 `parquet:"features,list"`
}

// WriteParquet writes t to path, replacing any existing file.
func WriteParquet(path string, t *prepare.Table) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	w := parquet.NewGenericWriter[Sample](f, parquet.KeyValueMetadata(BandsKey, formatBands(t.Bands)))

	batch := make([]Sample, 0, batchSize)
	for i, label := range t.Labels {
		batch = append(batch, Sample{
			Label:    int64(label),
			Features: t.Features.RawRowView(i),
		})
		if len(batch) == batchSize {
			if _, err := w.Write(batch); err != nil {
				return fmt.Errorf("write rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finish parquet: %w", err)
	}
	return nil
}

// ReadParquet loads a table written by WriteParquet.
func ReadParquet(path string) (*prepare.Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	t := &prepare.Table{}
	if v, ok := pf.Lookup(BandsKey); ok {
		if t.Bands, err = parseBands(v); err != nil {
			return nil, fmt.Errorf("%s metadata: %w", BandsKey, err)
		}
	}

	r := parquet.NewGenericReader[Sample](f)
	defer r.Close()

	var data []float64
	buf := make([]Sample, batchSize)
	width := -1
	for {
		n, readErr := r.Read(buf)
		for _, s := range buf[:n] {
			if width < 0 {
				width = len(s.Features)
			}
			if len(s.Features) != width {
				return nil, fmt.Errorf("row %d has %d features, want %d", len(t.Labels), len(s.Features), width)
			}
			t.Labels = append(t.Labels, int(s.Label))
			data = append(data, s.Features...)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read rows: %w", readErr)
		}
	}

	if len(t.Labels) > 0 && width > 0 {
		t.Features = mat.NewDense(len(t.Labels), width, data)
	}
	return t, nil
}

func formatBands(bands []int) string {
	parts := make([]string, len(bands))
	for i, b := range bands {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, ",")
}

func parseBands(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		b, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
