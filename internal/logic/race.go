package logic

import "github.com/allinsc2/ladder-sync/internal/models"

// AttributeRace picks the race with the highest play count. Equal counts are
// broken by the fixed race order. Unknown race labels are ignored, and an
// empty breakdown attributes nothing.
func AttributeRace(counts []models.PlayedRaceCount) (models.Race, bool) {
	totals := make(map[models.Race]int, len(models.Races))
	for _, c := range counts {
		race, ok := models.ParseRace(c.RaceName())
		if !ok {
			continue
		}
		totals[race] += c.Count.Int()
	}
	if len(totals) == 0 {
		return "", false
	}

	best := models.Race("")
	bestCount := -1
	for _, race := range models.Races {
		n, ok := totals[race]
		if ok && n > bestCount {
			best, bestCount = race, n
		}
	}
	return best, true
}
