package routing

import "tour-planner/internal/models"

// SplitDays partitions an ordered stop list into day chunks. Every
// anchor closes the day it appears in, so a day is a run of customer
// stops plus its terminating anchor. A trailing run without an anchor
// forms the final day. Consecutive anchors yield single-stop days.
func SplitDays(stops []models.Stop) [][]models.Stop {
	var days [][]models.Stop
	var current []models.Stop

	for _, s := range stops {
		current = append(current, s)
		if s.Kind == models.StopKindAnchor {
			days = append(days, current)
			current = nil
		}
	}

	if len(current) > 0 {
		days = append(days, current)
	}
	return days
}
