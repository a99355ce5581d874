package prepare

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Oversampler balances class frequencies by adding synthetic rows.
type Oversampler interface {
	Resample(t *Table) (*Table, error)
}

// SMOTE raises every minority class to the majority count by interpolating
// between a random member and one of its Neighbors nearest same-class rows.
// Original rows come first in the result, followed by synthetic rows grouped
// by ascending class.
type SMOTE struct {
	Neighbors int
	Seed      uint64
}

// Resample implements Oversampler.
func (s SMOTE) Resample(t *Table) (*Table, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrInsufficientSamples)
	}
	k := s.Neighbors
	if k < 1 {
		k = 2
	}

	byClass := rowsByClass(t.Labels)
	if len(byClass) < 2 {
		return nil, fmt.Errorf("%w: got 1 class", ErrSingleClass)
	}

	target := 0
	for _, rows := range byClass {
		target = max(target, len(rows))
	}

	counts := classCounts(t.Labels)
	classes := sortedClasses(counts)
	synthetic := 0
	for _, c := range classes {
		n := counts[c]
		if n == target {
			continue
		}
		if n < k+1 {
			return nil, fmt.Errorf("%w: class %d has %d rows, need at least %d for %d neighbours",
				ErrInsufficientSamples, c, n, k+1, k)
		}
		synthetic += target - n
	}

	n, cols := t.Features.Dims()
	out := mat.NewDense(n+synthetic, cols, nil)
	out.Slice(0, n, 0, cols).(*mat.Dense).Copy(t.Features)
	labels := slices.Grow(slices.Clone(t.Labels), synthetic)

	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))
	next := n
	for _, c := range classes {
		members := byClass[c]
		need := target - len(members)
		if need == 0 {
			continue
		}

		neighbours := make(map[int][]int)
		for range need {
			base := members[rng.IntN(len(members))]
			nn, ok := neighbours[base]
			if !ok {
				nn = nearest(t.Features, base, members, k)
				neighbours[base] = nn
			}
			other := nn[rng.IntN(len(nn))]
			gap := rng.Float64()

			a := t.Features.RawRowView(base)
			b := t.Features.RawRowView(other)
			dst := out.RawRowView(next)
			floats.SubTo(dst, b, a)
			floats.Scale(gap, dst)
			floats.Add(dst, a)

			labels = append(labels, c)
			next++
		}
	}

	return &Table{Features: out, Labels: labels, Bands: t.Bands}, nil
}

// nearest returns the k members closest to row base, excluding base itself.
func nearest(x *mat.Dense, base int, members []int, k int) []int {
	type candidate struct {
		row  int
		dist float64
	}
	origin := x.RawRowView(base)
	cands := make([]candidate, 0, len(members)-1)
	for _, m := range members {
		if m == base {
			continue
		}
		cands = append(cands, candidate{row: m, dist: floats.Distance(origin, x.RawRowView(m), 2)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	k = min(k, len(cands))
	out := make([]int, k)
	for i := range out {
		out[i] = cands[i].row
	}
	return out
}
