// Package store is the Postgres-backed member registry: members and their
// characters, per-season ladder stats, unregistered clan participants and
// league tier boundaries.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/models"
)

// DBStore abstracts the database connection (pgxpool.Pool satisfies it).
type DBStore interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Postgres struct {
	db     DBStore
	logger *zap.SugaredLogger
}

func NewPostgres(db DBStore, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger.Sugar()}
}

const statColumns = `league_id, wins, losses, ties, games_played, mmr,
	current_win_streak, longest_win_streak, last_played_at, percentile`

// ListMemberKeys returns every registered member key.
func (s *Postgres) ListMemberKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT member_key FROM members ORDER BY member_key`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return keys, nil
}

// characterRow is one character joined with at most one stored stat.
type characterRow struct {
	Region       string
	CharacterKey string
	ProfileID    string
	ProfileRealm string
	DisplayName  string

	SeasonID         *int
	Race             *string
	LeagueID         *int
	Wins             *int
	Losses           *int
	Ties             *int
	GamesPlayed      *int
	MMR              *int
	CurrentWinStreak *int
	LongestWinStreak *int
	LastPlayedAt     *int64
	Percentile       *float64
}

// Characters returns a member's characters grouped by region, each with its
// stored ladder info.
func (s *Postgres) Characters(ctx context.Context, memberKey string) (map[string][]models.Character, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.region, c.character_key, c.profile_id, c.profile_realm, c.display_name,
		       l.season_id, l.race, l.league_id, l.wins, l.losses, l.ties, l.games_played, l.mmr,
		       l.current_win_streak, l.longest_win_streak, l.last_played_at, l.percentile
		FROM characters c
		LEFT JOIN ladder_stats l
		  ON l.member_key = c.member_key AND l.region = c.region AND l.character_key = c.character_key
		WHERE c.member_key = $1
		ORDER BY c.region, c.character_key`, memberKey)
	if err != nil {
		return nil, fmt.Errorf("load characters for %s: %w", memberKey, err)
	}
	defer rows.Close()

	var out []characterRow
	for rows.Next() {
		var r characterRow
		if err := rows.Scan(
			&r.Region, &r.CharacterKey, &r.ProfileID, &r.ProfileRealm, &r.DisplayName,
			&r.SeasonID, &r.Race, &r.LeagueID, &r.Wins, &r.Losses, &r.Ties, &r.GamesPlayed, &r.MMR,
			&r.CurrentWinStreak, &r.LongestWinStreak, &r.LastPlayedAt, &r.Percentile,
		); err != nil {
			return nil, fmt.Errorf("scan character for %s: %w", memberKey, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load characters for %s: %w", memberKey, err)
	}
	return groupCharacters(out), nil
}

func groupCharacters(rows []characterRow) map[string][]models.Character {
	byRegion := make(map[string][]models.Character)
	index := make(map[string]int)

	for _, r := range rows {
		id := r.Region + "/" + r.CharacterKey
		i, seen := index[id]
		if !seen {
			byRegion[r.Region] = append(byRegion[r.Region], models.Character{
				Ref: models.CharacterRef{
					Region:       r.Region,
					ProfileID:    r.ProfileID,
					ProfileRealm: r.ProfileRealm,
					DisplayName:  r.DisplayName,
				},
				LadderInfo: models.LadderInfo{},
			})
			i = len(byRegion[r.Region]) - 1
			index[id] = i
		}
		if r.SeasonID == nil || r.Race == nil {
			continue
		}

		info := byRegion[r.Region][i].LadderInfo
		season := info[*r.SeasonID]
		if season == nil {
			season = models.SeasonStats{}
			info[*r.SeasonID] = season
		}
		season[models.Race(*r.Race)] = models.RaceSeasonStat{
			LeagueID:         deref(r.LeagueID),
			Wins:             deref(r.Wins),
			Losses:           deref(r.Losses),
			Ties:             deref(r.Ties),
			GamesPlayed:      deref(r.GamesPlayed),
			MMR:              deref(r.MMR),
			CurrentWinStreak: deref(r.CurrentWinStreak),
			LongestWinStreak: deref(r.LongestWinStreak),
			LastPlayedAt:     deref(r.LastPlayedAt),
			Percentile:       deref(r.Percentile),
		}
	}
	return byRegion
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ReplaceSeasonStats deletes a character's stored entries for the season and
// writes stats in their place, in one transaction.
func (s *Postgres) ReplaceSeasonStats(ctx context.Context, memberKey string, ref models.CharacterRef, seasonID int, stats models.SeasonStats) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM ladder_stats
			WHERE member_key = $1 AND region = $2 AND character_key = $3 AND season_id = $4`,
			memberKey, ref.Region, ref.Key(), seasonID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for race, st := range stats {
			batch.Queue(`
				INSERT INTO ladder_stats (member_key, region, character_key, season_id, race, `+statColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				memberKey, ref.Region, ref.Key(), seasonID, string(race),
				st.LeagueID, st.Wins, st.Losses, st.Ties, st.GamesPlayed, st.MMR,
				st.CurrentWinStreak, st.LongestWinStreak, st.LastPlayedAt, st.Percentile)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("replace season %d stats for %s/%s: %w", seasonID, ref.Region, ref.Key(), err)
	}
	return nil
}

// UpdateSummary overwrites a member's summary columns.
func (s *Postgres) UpdateSummary(ctx context.Context, memberKey string, sum models.MemberSummary) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE members SET
			zerg_player = $2, protoss_player = $3, terran_player = $4, random_player = $5,
			current_season_games_played = $6, previous_season_games_played = $7,
			current_league = $8, last_updated = $9
		WHERE member_key = $1`,
		memberKey, sum.ZergPlayer, sum.ProtossPlayer, sum.TerranPlayer, sum.RandomPlayer,
		sum.CurrentSeasonGamesPlayed, sum.PreviousSeasonGamesPlayed, sum.CurrentLeague, sum.LastUpdated)
	if err != nil {
		return fmt.Errorf("update summary for %s: %w", memberKey, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update summary for %s: %w", memberKey, ErrMemberNotFound)
	}
	return nil
}

// ErrMemberNotFound is returned when a write targets an unknown member.
var ErrMemberNotFound = errors.New("member not found")

// MemberKeyByCaselessTag looks a member up by folded battle tag.
func (s *Postgres) MemberKeyByCaselessTag(ctx context.Context, caselessTag string) (string, bool, error) {
	var key string
	err := s.db.QueryRow(ctx,
		`SELECT member_key FROM members WHERE caseless_battle_tag = $1 LIMIT 1`, caselessTag).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup member by tag: %w", err)
	}
	return key, true, nil
}

// UpsertUnregistered writes the participant's tag metadata and the season's
// stat for the attributed race.
func (s *Postgres) UpsertUnregistered(ctx context.Context, rec models.UnregisteredMember) error {
	st := rec.Stat
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO unregistered_members (region, character_key, battle_tag, caseless_battle_tag, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (region, character_key) DO UPDATE SET
				battle_tag = EXCLUDED.battle_tag,
				caseless_battle_tag = EXCLUDED.caseless_battle_tag,
				updated_at = EXCLUDED.updated_at`,
			rec.Region, rec.CharacterKey, rec.BattleTag, rec.CaselessBattleTag, time.Now().UTC()); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO unregistered_ladder_stats (region, character_key, season_id, race, `+statColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (region, character_key, season_id, race) DO UPDATE SET
				league_id = EXCLUDED.league_id, wins = EXCLUDED.wins, losses = EXCLUDED.losses,
				ties = EXCLUDED.ties, games_played = EXCLUDED.games_played, mmr = EXCLUDED.mmr,
				current_win_streak = EXCLUDED.current_win_streak,
				longest_win_streak = EXCLUDED.longest_win_streak,
				last_played_at = EXCLUDED.last_played_at, percentile = EXCLUDED.percentile`,
			rec.Region, rec.CharacterKey, rec.SeasonID, string(rec.Race),
			st.LeagueID, st.Wins, st.Losses, st.Ties, st.GamesPlayed, st.MMR,
			st.CurrentWinStreak, st.LongestWinStreak, st.LastPlayedAt, st.Percentile)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert unregistered %s/%s: %w", rec.Region, rec.CharacterKey, err)
	}
	return nil
}

// UpdateDiscordInfo records guild membership. When the lookup found nothing
// only the full-member flag is cleared.
func (s *Postgres) UpdateDiscordInfo(ctx context.Context, memberKey string, info models.DiscordInfo) error {
	var err error
	if !info.Found {
		_, err = s.db.Exec(ctx, `UPDATE members SET is_full_member = FALSE WHERE member_key = $1`, memberKey)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE members SET
				is_full_member = $2,
				discord_username = $3,
				discord_server_nick = COALESCE(NULLIF($4, ''), discord_server_nick)
			WHERE member_key = $1`,
			memberKey, info.IsFullMember, info.Username, info.ServerNick)
	}
	if err != nil {
		return fmt.Errorf("update discord info for %s: %w", memberKey, err)
	}
	return nil
}

// SetTierBoundaries replaces a region's tier boundaries for a season.
func (s *Postgres) SetTierBoundaries(ctx context.Context, region string, seasonID int, tiers []models.TierBoundary) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM tier_boundaries WHERE region = $1 AND season_id = $2`, region, seasonID); err != nil {
			return err
		}
		rows := make([][]any, 0, len(tiers))
		for _, t := range tiers {
			rows = append(rows, []any{region, seasonID, t.Tier, t.LeagueID, t.MinMMR, t.MaxMMR})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"tier_boundaries"},
			[]string{"region", "season_id", "tier", "league_id", "min_mmr", "max_mmr"},
			pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("set tier boundaries for %s season %d: %w", region, seasonID, err)
	}
	s.logger.Infow("Stored tier boundaries", "region", region, "season", seasonID, "tiers", len(tiers))
	return nil
}
