package logic

import (
	"sort"
	"time"

	"github.com/allinsc2/ladder-sync/internal/models"
)

// seasonsPerCharacter is how many of a character's most recent seasons
// contribute to the summary.
const seasonsPerCharacter = 2

// ReduceSummary folds a member's ladder info across every region into one
// summary. currentSeason is the global current season (the maximum across
// regions). The result depends only on its inputs apart from LastUpdated.
func ReduceSummary(byRegion map[string][]models.Character, currentSeason int, now time.Time) models.MemberSummary {
	highest := make(map[models.Race]int, len(models.Races))
	for _, r := range models.Races {
		highest[r] = 0
	}
	gamesBySeason := make(map[int]int)
	currentLeague := -1

	for _, characters := range byRegion {
		for _, character := range characters {
			for _, season := range recentSeasons(character.LadderInfo, seasonsPerCharacter) {
				for race, stat := range character.LadderInfo[season] {
					if _, known := highest[race]; !known {
						continue
					}
					if stat.LeagueID > highest[race] {
						highest[race] = stat.LeagueID
					}
					gamesBySeason[season] += stat.GamesPlayed
					if season == currentSeason && stat.LeagueID > currentLeague {
						currentLeague = stat.LeagueID
					}
				}
			}
		}
	}

	top := 0
	for _, league := range highest {
		if league > top {
			top = league
		}
	}

	summary := models.MemberSummary{
		ZergPlayer:                highest[models.Zerg] == top,
		ProtossPlayer:             highest[models.Protoss] == top,
		TerranPlayer:              highest[models.Terran] == top,
		RandomPlayer:              highest[models.Random] == top,
		CurrentSeasonGamesPlayed:  gamesBySeason[currentSeason],
		PreviousSeasonGamesPlayed: gamesBySeason[currentSeason-1],
		LastUpdated:               now.UTC(),
	}
	if currentLeague >= 0 {
		league := currentLeague
		summary.CurrentLeague = &league
	}
	return summary
}

// recentSeasons returns up to n season ids from info, newest first.
func recentSeasons(info models.LadderInfo, n int) []int {
	seasons := make([]int, 0, len(info))
	for id := range info {
		seasons = append(seasons, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(seasons)))
	if len(seasons) > n {
		seasons = seasons[:n]
	}
	return seasons
}
