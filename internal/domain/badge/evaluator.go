package badge

import (
	"sort"

	"github.com/mysterybag/impact-hub/internal/domain/progress"
)

// Evaluate returns the ids of every active badge whose requirement the
// snapshot satisfies, sorted. It returns the full satisfied set; callers
// diff against badges already held.
func Evaluate(catalog []Badge, p progress.UserProgress) []string {
	ids := make([]string, 0, len(catalog))
	for _, b := range catalog {
		if b.IsActive && Satisfied(b, p) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Satisfied tests one badge against a progress snapshot. Streak badges use
// the current streak and level badges use the derived level.
func Satisfied(b Badge, p progress.UserProgress) bool {
	var actual float64
	switch b.RequirementType {
	case RequirementMealsSaved:
		actual = float64(p.TotalMealsSaved)
	case RequirementCO2Saved:
		actual = p.TotalCO2Saved
	case RequirementMoneySaved:
		actual = p.TotalMoneySaved
	case RequirementStreak:
		actual = float64(p.CurrentStreak)
	case RequirementLevel:
		actual = float64(progress.ResolveLevel(p.ExperiencePoints).Level)
	default:
		return false
	}
	return actual >= b.RequirementValue
}

// Missing returns the ids in satisfied that are not in held, preserving order.
func Missing(satisfied []string, held []UserBadge) []string {
	have := make(map[string]struct{}, len(held))
	for _, ub := range held {
		have[ub.BadgeID] = struct{}{}
	}
	out := make([]string, 0, len(satisfied))
	for _, id := range satisfied {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
