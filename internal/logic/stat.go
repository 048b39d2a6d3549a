package logic

import "github.com/allinsc2/ladder-sync/internal/models"

// StatFromTeam builds the per-race stat record for a team. Registered and
// unregistered participants share this shape.
func StatFromTeam(team *models.LadderTeam, leagueID int, sample []int) models.RaceSeasonStat {
	mmr := 0
	if team.Rating != nil {
		mmr = team.Rating.Int()
	}
	wins, losses, ties := team.Wins.Int(), team.Losses.Int(), team.Ties.Int()
	return models.RaceSeasonStat{
		LeagueID:         leagueID,
		Wins:             wins,
		Losses:           losses,
		Ties:             ties,
		GamesPlayed:      wins + losses + ties,
		MMR:              mmr,
		CurrentWinStreak: team.CurrentWinStreak.Int(),
		LongestWinStreak: team.LongestWinStreak.Int(),
		LastPlayedAt:     int64(team.LastPlayedTimeStamp),
		Percentile:       Percentile(mmr, sample),
	}
}
