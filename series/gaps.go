package series

import "chartflow/models"

// FindGaps walks an ascending series and returns the ordered sub-ranges of
// [from, to] that have no cached bar coverage at the given interval.
//
// The tail of the window is clamped to nowMs-intervalMs so the currently
// forming bar is never requested; upstream would return it incomplete.
func FindGaps(bars []models.Bar, from, to, intervalMs, nowMs int64) []models.Gap {
	var gaps []models.Gap

	cur := from
	for _, b := range bars {
		if b.Timestamp > cur {
			gaps = append(gaps, models.Gap{Start: cur, End: b.Timestamp})
		}
		cur = b.Timestamp + intervalMs
	}

	adjustedTo := to
	if cutoff := nowMs - intervalMs; adjustedTo > cutoff {
		adjustedTo = cutoff
	}
	if cur < adjustedTo {
		gaps = append(gaps, models.Gap{Start: cur, End: adjustedTo})
	}
	return gaps
}
