package scraper

import (
	"math"
	"slices"
)

// A page element whose generated class name carries an item id, with its
// bounding box relative to the viewport.
type Candidate struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (c Candidate) fullyVisible(viewportHeight float64) bool {
	return c.Top >= 0 && c.Bottom <= viewportHeight
}

// PickActive chooses the item the user is most likely looking at.
//
// Among fully visible candidates the one whose vertical midpoint is closest
// to the viewport centre wins, ties going to the earlier candidate. When none
// is fully visible the median by vertical position is taken (the lower median
// for an even count).
func PickActive(candidates []Candidate, viewportHeight float64) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	center := viewportHeight / 2
	best := -1
	bestDist := math.Inf(1)
	for i, c := range candidates {
		if !c.fullyVisible(viewportHeight) {
			continue
		}
		dist := math.Abs((c.Top+c.Bottom)/2 - center)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best >= 0 {
		return candidates[best].ID, true
	}

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		switch {
		case a.Top < b.Top:
			return -1
		case a.Top > b.Top:
			return 1
		}
		return 0
	})
	return sorted[(len(sorted)-1)/2].ID, true
}
