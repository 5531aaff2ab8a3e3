// Package window partitions a time axis into running fitting/target
// windows: overlapping contexts used to estimate distributions and
// disjoint targets whose union covers the whole axis.
package window

import (
	"fmt"
	"sort"
)

// OverYears is a running window along the year axis. Length and Step
// are in years and must both be odd so windows are symmetric about
// their center; Length must not be shorter than Step so every target
// year lies inside its fitting context. Windows near the first and
// last year are clipped rather than re-centered.
type OverYears struct {
	Length, Step int
}

// NewOverYears validates the window geometry.
func NewOverYears(length, step int) (*OverYears, error) {
	if err := checkWindowPair(length, step); err != nil {
		return nil, fmt.Errorf("window.OverYears: %w", err)
	}
	return &OverYears{Length: length, Step: step}, nil
}

func checkWindowPair(length, step int) error {
	if length <= 0 || step <= 0 {
		return fmt.Errorf("length %d and step %d must be positive", length, step)
	}
	if length%2 == 0 || step%2 == 0 {
		return fmt.Errorf("length %d and step %d must both be odd", length, step)
	}
	if length < step {
		return fmt.Errorf("length %d shorter than step %d leaves target years outside the fitting context", length, step)
	}
	return nil
}

// YearSegment is one window of a pass: years in [TargetFirst,
// TargetLast] are debiased using the fitting context [ContextFirst,
// ContextLast].
type YearSegment struct {
	TargetFirst, TargetLast   int
	ContextFirst, ContextLast int
}

// InTarget reports whether year y is debiased by this segment.
func (s YearSegment) InTarget(y int) bool { return y >= s.TargetFirst && y <= s.TargetLast }

// InContext reports whether year y belongs to this segment's fitting context.
func (s YearSegment) InContext(y int) bool { return y >= s.ContextFirst && y <= s.ContextLast }

// Use builds the segments of one full pass over the given per-sample
// years. Target ranges are pairwise disjoint and their union covers
// every observed year; the first and last targets are extended to the
// domain edges.
func (w *OverYears) Use(years []int) []YearSegment {
	uy := uniqueSortedInts(years)
	if len(uy) == 0 {
		return nil
	}
	minY, maxY := uy[0], uy[len(uy)-1]
	centers := w.centers(uy)
	hl, hs := w.Length/2, w.Step/2

	segs := make([]YearSegment, len(centers))
	for i, c := range centers {
		s := YearSegment{
			TargetFirst:  c - hs,
			TargetLast:   c + hs,
			ContextFirst: c - hl,
			ContextLast:  c + hl,
		}
		if i == 0 {
			s.TargetFirst = minY
		}
		if i == len(centers)-1 {
			s.TargetLast = maxY
		}
		segs[i] = s
	}
	return segs
}

// centers tiles the observed year range with window centers Step years
// apart, shifted so the leftover years split evenly between the edges.
func (w *OverYears) centers(uniqueYears []int) []int {
	n := len(uniqueYears)
	minY, maxY := uniqueYears[0], uniqueYears[n-1]
	if n <= w.Step {
		return []int{uniqueYears[n/2]}
	}
	var first int
	if n%w.Step == 0 {
		first = minY + w.Step/2
	} else {
		first = minY + (n%w.Step)/2
	}
	var cs []int
	for c := first; c <= maxY; c += w.Step {
		cs = append(cs, c)
	}
	return cs
}

// IndicesInYears returns the positions i with first <= years[i] <= last.
func IndicesInYears(years []int, first, last int) []int {
	var idx []int
	for i, y := range years {
		if y >= first && y <= last {
			idx = append(idx, i)
		}
	}
	return idx
}

func uniqueSortedInts(v []int) []int {
	if len(v) == 0 {
		return nil
	}
	c := make([]int, len(v))
	copy(c, v)
	sort.Ints(c)
	out := c[:1]
	for _, y := range c[1:] {
		if y != out[len(out)-1] {
			out = append(out, y)
		}
	}
	return out
}
