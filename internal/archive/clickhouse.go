// Package archive appends every freshly resolved ladder stat to a ClickHouse
// table so rating history survives the store's per-season overwrite.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/models"
)

var (
	snapshotsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladder_sync_snapshots_archived_total",
		Help: "Ladder stat snapshots written to ClickHouse",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ladder_sync_archive_insert_duration_seconds",
		Help:    "Duration of snapshot batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})
)

const createTable = `
	CREATE TABLE IF NOT EXISTS ladder_snapshots (
		run_id             UUID,
		recorded_at        DateTime64(3),
		region             LowCardinality(String),
		character_key      String,
		member_key         String,
		registered         Bool,
		season_id          UInt32,
		race               LowCardinality(String),
		league_id          UInt8,
		wins               UInt32,
		losses             UInt32,
		ties               UInt32,
		games_played       UInt32,
		mmr                Int32,
		current_win_streak UInt32,
		longest_win_streak UInt32,
		last_played_at     Int64,
		percentile         Float64
	) ENGINE = MergeTree
	ORDER BY (region, character_key, season_id, recorded_at)`

// Snapshot is one stat written during a run.
type Snapshot struct {
	Region       string
	CharacterKey string
	MemberKey    string // empty for unregistered participants
	SeasonID     int
	Race         models.Race
	Stat         models.RaceSeasonStat
}

// Open parses a clickhouse:// DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (driver.Conn, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return conn, nil
}

// Archive writes snapshots. A nil connection makes every call a no-op.
type Archive struct {
	conn   driver.Conn
	logger *zap.SugaredLogger
}

func New(conn driver.Conn, logger *zap.Logger) *Archive {
	return &Archive{conn: conn, logger: logger.Sugar()}
}

// EnsureSchema creates the snapshot table if needed.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Exec(ctx, createTable)
}

// Record appends snapshots for one run in a single batch.
func (a *Archive) Record(ctx context.Context, runID string, recordedAt time.Time, snaps []Snapshot) error {
	if a.conn == nil || len(snaps) == 0 {
		return nil
	}

	start := time.Now()
	batch, err := a.conn.PrepareBatch(ctx, `INSERT INTO ladder_snapshots`)
	if err != nil {
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}

	for _, s := range snaps {
		st := s.Stat
		if err := batch.Append(
			runID,
			recordedAt,
			s.Region,
			s.CharacterKey,
			s.MemberKey,
			s.MemberKey != "",
			uint32(s.SeasonID),
			string(s.Race),
			uint8(st.LeagueID),
			uint32(st.Wins),
			uint32(st.Losses),
			uint32(st.Ties),
			uint32(st.GamesPlayed),
			int32(st.MMR),
			uint32(st.CurrentWinStreak),
			uint32(st.LongestWinStreak),
			st.LastPlayedAt,
			st.Percentile,
		); err != nil {
			return fmt.Errorf("append snapshot %s/%s: %w", s.Region, s.CharacterKey, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send snapshot batch: %w", err)
	}
	batchInsertDuration.Observe(time.Since(start).Seconds())
	snapshotsArchived.Add(float64(len(snaps)))
	a.logger.Infow("Archived ladder snapshots", "run", runID, "count", len(snaps), "duration", time.Since(start))
	return nil
}

// Collector gathers snapshots from concurrent units.
type Collector struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *Collector) Add(s ...Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s...)
	c.mu.Unlock()
}

// Drain returns the collected snapshots and resets the collector.
func (c *Collector) Drain() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.snaps
	c.snaps = nil
	return out
}
