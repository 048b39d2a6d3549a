package ladder

import (
	"context"
	"time"

	"github.com/allinsc2/ladder-sync/internal/archive"
	"github.com/allinsc2/ladder-sync/internal/models"
)

// LadderAPI is the ranked-ladder service (blizzard.Client satisfies it).
type LadderAPI interface {
	AccessToken(ctx context.Context, clientID, clientSecret, region string) (string, error)
	CurrentSeason(ctx context.Context, token, region string) (int, error)
	League(ctx context.Context, token, region string, seasonID, leagueID int) (*models.League, error)
	Ladder(ctx context.Context, token, region string, ladderID int) (*models.Ladder, error)
	LegacyProfileLadders(ctx context.Context, token, region, realm, profileID string) (*models.LegacyProfileLadders, error)
}

// Store is the member registry (store.Postgres satisfies it).
type Store interface {
	ListMemberKeys(ctx context.Context) ([]string, error)
	Characters(ctx context.Context, memberKey string) (map[string][]models.Character, error)
	ReplaceSeasonStats(ctx context.Context, memberKey string, ref models.CharacterRef, seasonID int, stats models.SeasonStats) error
	UpdateSummary(ctx context.Context, memberKey string, sum models.MemberSummary) error
	MemberKeyByCaselessTag(ctx context.Context, caselessTag string) (string, bool, error)
	UpsertUnregistered(ctx context.Context, rec models.UnregisteredMember) error
	UpdateDiscordInfo(ctx context.Context, memberKey string, info models.DiscordInfo) error
	SetTierBoundaries(ctx context.Context, region string, seasonID int, tiers []models.TierBoundary) error
}

// MemberDirectory resolves guild membership (discord.Directory satisfies it).
type MemberDirectory interface {
	MemberInfo(ctx context.Context, memberKey string) models.DiscordInfo
}

// SnapshotArchive receives every stat written during a run.
type SnapshotArchive interface {
	Record(ctx context.Context, runID string, recordedAt time.Time, snaps []archive.Snapshot) error
}
