package prepare

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Splitter keeps a class-stratified fraction of a table.
type Splitter interface {
	Split(t *Table, fraction float64) (*Table, error)
}

// StratifiedSplit samples each class in proportion to its share of the
// table, so every class present in the input survives. Kept rows retain
// their input order.
type StratifiedSplit struct {
	Seed uint64
}

// Split implements Splitter.
func (s StratifiedSplit) Split(t *Table, fraction float64) (*Table, error) {
	if t.Len() == 0 {
		return t, nil
	}

	counts := classCounts(t.Labels)
	classes := sortedClasses(counts)
	keep := int(math.Ceil(fraction * float64(t.Len())))
	if keep < len(classes) {
		return nil, fmt.Errorf("%w: %d kept rows cannot hold %d classes",
			ErrInsufficientSamples, keep, len(classes))
	}

	alloc := allocate(classes, counts, t.Len(), keep)
	byClass := rowsByClass(t.Labels)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))

	rows := make([]int, 0, keep)
	for _, c := range classes {
		members := byClass[c]
		perm := rng.Perm(len(members))
		for _, p := range perm[:alloc[c]] {
			rows = append(rows, members[p])
		}
	}
	sort.Ints(rows)

	return t.subset(rows), nil
}

// allocate distributes keep rows across classes by largest remainder, with
// at least one row per class and never more than a class holds.
func allocate(classes []int, counts map[int]int, total, keep int) map[int]int {
	alloc := make(map[int]int, len(classes))
	remainder := make(map[int]float64, len(classes))
	sum := 0
	for _, c := range classes {
		exact := float64(keep) * float64(counts[c]) / float64(total)
		n := max(1, int(exact))
		alloc[c] = n
		remainder[c] = exact - float64(int(exact))
		sum += n
	}

	order := make([]int, len(classes))
	copy(order, classes)
	sort.SliceStable(order, func(i, j int) bool { return remainder[order[i]] > remainder[order[j]] })
	for i := 0; sum < keep; i = (i + 1) % len(order) {
		c := order[i]
		if alloc[c] < counts[c] {
			alloc[c]++
			sum++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return alloc[order[i]] > alloc[order[j]] })
	for i := 0; sum > keep; i = (i + 1) % len(order) {
		c := order[i]
		if alloc[c] > 1 {
			alloc[c]--
			sum--
		}
	}

	return alloc
}
