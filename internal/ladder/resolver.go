package ladder

import (
	"context"

	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/logic"
	"github.com/allinsc2/ladder-sync/internal/models"
	"github.com/allinsc2/ladder-sync/internal/upstream"
)

// soloQueue is the profile listing's name for the ranked 1v1 queue.
const soloQueue = "LOTV_SOLO"

// ResolvedStat is one race's current-season stat found on a ladder.
type ResolvedStat struct {
	Race models.Race
	Stat models.RaceSeasonStat
}

// Resolver finds a character's current-season 1v1 stats.
type Resolver struct {
	api    LadderAPI
	logger *zap.SugaredLogger
}

func NewResolver(api LadderAPI, logger *zap.Logger) *Resolver {
	return &Resolver{api: api, logger: logger.Sugar()}
}

// Resolve returns the character's stats from every 1v1 ladder it appears on.
// Upstream failures are absorbed: a failed profile fetch yields nothing and a
// failed ladder fetch drops that ladder. sample is the character region's
// rating distribution; nil means percentiles default to 100.
func (r *Resolver) Resolve(ctx context.Context, token string, ref models.CharacterRef, sample []int) []ResolvedStat {
	profile, err := r.api.LegacyProfileLadders(ctx, token, ref.Region, ref.ProfileRealm, ref.ProfileID)
	listing := upstream.Capture[*models.LegacyProfileLadders](profile, err).OrElse(nil)
	if listing == nil {
		r.logger.Warnw("Profile ladders unavailable", "region", ref.Region, "character", ref.Key(), "error", err)
		return nil
	}

	key := ref.Key()
	var out []ResolvedStat
	for _, ladderID := range soloLadderIDs(listing) {
		fetched, err := r.api.Ladder(ctx, token, ref.Region, ladderID)
		ladder := upstream.Capture[*models.Ladder](fetched, err).OrElse(nil)
		if ladder == nil {
			r.logger.Warnw("Ladder unavailable", "region", ref.Region, "ladder", ladderID, "error", err)
			continue
		}
		leagueID, ok := ladder.LeagueID()
		if !ok {
			continue
		}

		for i := range ladder.Teams {
			team := &ladder.Teams[i]
			for j := range team.Members {
				m := &team.Members[j]
				if len(m.PlayedRaceCount) == 0 || m.LegacyLink == nil {
					continue
				}
				if !logic.MatchesCharacter(m, key) {
					continue
				}
				race, ok := logic.AttributeRace(m.PlayedRaceCount)
				if !ok {
					continue
				}
				out = append(out, ResolvedStat{Race: race, Stat: logic.StatFromTeam(team, leagueID, sample)})
			}
		}
	}
	return out
}

// soloLadderIDs lists the current-season 1v1 ladder ids of a profile.
func soloLadderIDs(listing *models.LegacyProfileLadders) []int {
	var ids []int
	for _, entry := range listing.CurrentSeason {
		if len(entry.Ladder) == 0 {
			continue
		}
		if ref := entry.Ladder[0]; ref.MatchMakingQueue == soloQueue {
			ids = append(ids, ref.LadderID.Int())
		}
	}
	return ids
}

// seasonStats keys resolved stats by race. A race seen on more than one
// ladder keeps the last one.
func seasonStats(resolved []ResolvedStat) models.SeasonStats {
	out := make(models.SeasonStats, len(resolved))
	for _, r := range resolved {
		out[r.Race] = r.Stat
	}
	return out
}
