package prepare

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Table is the prepared training set. Row i of Features is labelled
// Labels[i]; Bands holds the source band index of each feature column.
// Features is nil when no rows remain.
type Table struct {
	Features *mat.Dense
	Labels   []int
	Bands    []int
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Labels)
}

// ClassCounts returns the number of rows per label.
func (t *Table) ClassCounts() map[int]int {
	return classCounts(t.Labels)
}

// Classes returns the distinct labels in ascending order.
func (t *Table) Classes() []int {
	return sortedClasses(classCounts(t.Labels))
}

// subset returns a table holding only the given rows, in order.
func (t *Table) subset(rows []int) *Table {
	out := &Table{Labels: make([]int, len(rows)), Bands: t.Bands}
	if len(rows) == 0 {
		return out
	}
	_, c := t.Features.Dims()
	out.Features = mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		out.Features.SetRow(i, t.Features.RawRowView(r))
		out.Labels[i] = t.Labels[r]
	}
	return out
}

func classCounts(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func sortedClasses(counts map[int]int) []int {
	classes := make([]int, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// rowsByClass groups row indices per label, preserving row order.
func rowsByClass(labels []int) map[int][]int {
	out := make(map[int][]int)
	for i, l := range labels {
		out[l] = append(out[l], i)
	}
	return out
}
