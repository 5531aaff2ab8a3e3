package window

import (
	"fmt"
)

// yearCycle is the length of the circular day-of-year cycle. Day 366
// is folded onto day 365 so leap days share the year-end windows.
const yearCycle = 365

// OverDaysOfYear is a running window along the day-of-year axis.
// Membership is circular: a window centered near day 1 includes late
// December days and vice versa. Length and Step are in days, both odd,
// Length >= Step.
type OverDaysOfYear struct {
	Length, Step int

	centers []int
}

// NewOverDaysOfYear validates the window geometry.
func NewOverDaysOfYear(length, step int) (*OverDaysOfYear, error) {
	if err := checkWindowPair(length, step); err != nil {
		return nil, fmt.Errorf("window.OverDaysOfYear: %w", err)
	}
	w := &OverDaysOfYear{Length: length, Step: step}
	for c := step/2 + 1; c <= yearCycle; c += step {
		w.centers = append(w.centers, c)
	}
	return w, nil
}

// DOYWindow is one window of a pass: the samples at Target are debiased
// using the circular fitting context around Center.
type DOYWindow struct {
	Center int
	Target []int // indices into the series passed to Use
}

// Use assigns every sample to exactly one window by tiling the yearly
// cycle in steps of Step days; days past the last full tile fold into
// the final window. Targets partition the input indices.
func (w *OverDaysOfYear) Use(doys []int) []DOYWindow {
	wins := make([]DOYWindow, len(w.centers))
	for i, c := range w.centers {
		wins[i].Center = c
	}
	for i, d := range doys {
		k := (foldDOY(d) - 1) / w.Step
		if k >= len(w.centers) {
			k = len(w.centers) - 1
		}
		wins[k].Target = append(wins[k].Target, i)
	}
	return wins
}

// IndicesInWindow returns the positions whose day of year lies within
// Length/2 days of center, circularly over the yearly cycle.
func (w *OverDaysOfYear) IndicesInWindow(doys []int, center int) []int {
	half := w.Length / 2
	var idx []int
	for i, d := range doys {
		if circularDist(foldDOY(d), center) <= half {
			idx = append(idx, i)
		}
	}
	return idx
}

func foldDOY(d int) int {
	if d > yearCycle {
		return yearCycle
	}
	return d
}

func circularDist(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > yearCycle-d {
		d = yearCycle - d
	}
	return d
}
