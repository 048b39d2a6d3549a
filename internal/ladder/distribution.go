package ladder

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/allinsc2/ladder-sync/internal/models"
)

// LeagueIDs are the 1v1 leagues, Bronze (0) through Grandmaster (6).
var LeagueIDs = []int{0, 1, 2, 3, 4, 5, 6}

const (
	tiersPerLeague = 3
	defaultMaxMMR  = 99999
)

// TrackedTeam is a ladder team whose first member belongs to a tracked clan.
type TrackedTeam struct {
	Team     models.LadderTeam
	LeagueID int
}

// RegionLadder is the result of walking a region's whole 1v1 ladder.
type RegionLadder struct {
	Region   string
	SeasonID int
	Sample   []int // ascending
	Tracked  []TrackedTeam
	Tiers    []models.TierBoundary
}

// DistributionBuilder walks league -> tier -> division for a region.
type DistributionBuilder struct {
	api         LadderAPI
	concurrency int
	logger      *zap.SugaredLogger
}

func NewDistributionBuilder(api LadderAPI, concurrency int, logger *zap.Logger) *DistributionBuilder {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &DistributionBuilder{api: api, concurrency: concurrency, logger: logger.Sugar()}
}

type division struct {
	leagueID int
	ladderID int
}

// Build fetches every division ladder of the region's season. Any failed
// fetch fails the whole build: a partial sample would skew every percentile
// computed against it.
func (b *DistributionBuilder) Build(ctx context.Context, region, token string, seasonID int, clanIDs []int) (*RegionLadder, error) {
	out := &RegionLadder{Region: region, SeasonID: seasonID}

	var divisions []division
	for _, leagueID := range LeagueIDs {
		league, err := b.api.League(ctx, token, region, seasonID, leagueID)
		if err != nil {
			return nil, fmt.Errorf("league %d in %s: %w", leagueID, region, err)
		}
		out.Tiers = append(out.Tiers, tierBoundaries(leagueID, league.Tiers)...)
		for _, tier := range league.Tiers {
			for _, div := range tier.Divisions {
				if div.LadderID == nil {
					continue
				}
				divisions = append(divisions, division{leagueID: leagueID, ladderID: div.LadderID.Int()})
			}
		}
	}

	tracked := make(map[int]bool, len(clanIDs))
	for _, id := range clanIDs {
		tracked[id] = true
	}

	// one slot per division keeps the result independent of fetch order
	ratings := make([][]int, len(divisions))
	teams := make([][]TrackedTeam, len(divisions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, div := range divisions {
		g.Go(func() error {
			ladder, err := b.api.Ladder(gctx, token, region, div.ladderID)
			if err != nil {
				return fmt.Errorf("ladder %d in %s: %w", div.ladderID, region, err)
			}
			for _, team := range ladder.Teams {
				if team.Rating != nil && *team.Rating != 0 {
					ratings[i] = append(ratings[i], team.Rating.Int())
				}
				if m := team.FirstMember(); m != nil {
					if clanID, ok := m.ClanID(); ok && tracked[clanID] {
						teams[i] = append(teams[i], TrackedTeam{Team: team, LeagueID: div.leagueID})
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range divisions {
		out.Sample = append(out.Sample, ratings[i]...)
		out.Tracked = append(out.Tracked, teams[i]...)
	}
	sort.Ints(out.Sample)

	b.logger.Infow("Built rating distribution",
		"region", region,
		"season", seasonID,
		"divisions", len(divisions),
		"sample", len(out.Sample),
		"tracked", len(out.Tracked),
	)
	return out, nil
}

// tierBoundaries numbers a league's tiers from the bottom: the payload lists
// tier 1 first, so the reversed list gives index league*3 + i.
func tierBoundaries(leagueID int, tiers []models.LeagueTier) []models.TierBoundary {
	out := make([]models.TierBoundary, 0, len(tiers))
	for i := range tiers {
		t := tiers[len(tiers)-1-i]
		b := models.TierBoundary{
			Tier:     leagueID*tiersPerLeague + i,
			LeagueID: leagueID,
			MinMMR:   0,
			MaxMMR:   defaultMaxMMR,
		}
		if t.MinRating != nil {
			b.MinMMR = t.MinRating.Int()
		}
		if t.MaxRating != nil {
			b.MaxMMR = t.MaxRating.Int()
		}
		out = append(out, b)
	}
	return out
}
