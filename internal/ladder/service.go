// Package ladder runs a reconciliation pass: it samples every region's 1v1
// rating distribution, refreshes each registered member's current-season
// stats and summary, and records tracked clan participants that are not yet
// registered.
package ladder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/archive"
	"github.com/allinsc2/ladder-sync/internal/logic"
	"github.com/allinsc2/ladder-sync/internal/models"
	"github.com/allinsc2/ladder-sync/internal/worker"
)

var (
	distributionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ladder_sync_distribution_size",
		Help: "Number of rated teams in the last rating sample per region",
	}, []string{"region"})

	distributionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_sync_distribution_failures_total",
		Help: "Region ladder walks that failed after every attempt",
	}, []string{"region"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ladder_sync_run_duration_seconds",
		Help:    "Duration of complete reconciliation passes",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 2400, 3600},
	})
)

const (
	pathMembers      = "members"
	pathUnregistered = "unregistered"
)

type Config struct {
	ClientID             string
	ClientSecret         string
	Regions              []string
	ClanIDs              map[string][]int
	DistributionAttempts int
	DistributionBackoff  time.Duration
	DivisionConcurrency  int
}

type Deps struct {
	API       LadderAPI
	Store     Store
	Executor  worker.Executor
	Directory MemberDirectory // optional
	Archive   SnapshotArchive // optional
	Logger    *zap.Logger
}

// Report summarizes one pass.
type Report struct {
	RunID         string         `json:"runId"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
	Season        int            `json:"season"`
	Members       worker.Outcome `json:"members"`
	Unregistered  worker.Outcome `json:"unregistered"`
	RegionSamples map[string]int `json:"regionSamples"`
	FailedRegions []string       `json:"failedRegions,omitempty"`
	Snapshots     int            `json:"snapshots"`
}

type Service struct {
	cfg        Config
	api        LadderAPI
	store      Store
	exec       worker.Executor
	directory  MemberDirectory
	archive    SnapshotArchive
	dist       *DistributionBuilder
	resolver   *Resolver
	reconciler *Reconciler
	logger     *zap.SugaredLogger

	now     func() time.Time
	shuffle func(keys []string)
}

func NewService(cfg Config, deps Deps) *Service {
	if cfg.DistributionAttempts <= 0 {
		cfg.DistributionAttempts = 1
	}
	if cfg.DistributionBackoff <= 0 {
		cfg.DistributionBackoff = 5 * time.Second
	}
	return &Service{
		cfg:        cfg,
		api:        deps.API,
		store:      deps.Store,
		exec:       deps.Executor,
		directory:  deps.Directory,
		archive:    deps.Archive,
		dist:       NewDistributionBuilder(deps.API, cfg.DivisionConcurrency, deps.Logger),
		resolver:   NewResolver(deps.API, deps.Logger),
		reconciler: NewReconciler(deps.Store, deps.Logger),
		logger:     deps.Logger.Sugar(),
		now:        time.Now,
		shuffle: func(keys []string) {
			rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		},
	}
}

// run is the state shared read-only by every unit of one pass, apart from
// the snapshot collector.
type run struct {
	id        string
	session   *Session
	ladders   map[string]*RegionLadder
	snapshots archive.Collector
}

func (r *run) sample(region string) []int {
	if l, ok := r.ladders[region]; ok {
		return l.Sample
	}
	return nil
}

// Run performs one full pass. It fails only when credentials or the member
// list cannot be obtained; per-region, per-member and per-participant
// failures are logged and counted in the report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	r := &run{id: uuid.NewString(), ladders: make(map[string]*RegionLadder)}
	report := &Report{RunID: r.id, StartedAt: s.now().UTC(), RegionSamples: make(map[string]int)}
	log := s.logger.With("run", r.id)

	session, err := NewSession(ctx, s.api, s.cfg.ClientID, s.cfg.ClientSecret, s.cfg.Regions)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	r.session = session
	report.Season = session.GlobalSeason()
	log.Infow("Session ready", "regions", session.Regions, "season", report.Season)

	for _, region := range session.Regions {
		ladder, err := s.buildRegion(ctx, session, region)
		if err != nil {
			distributionFailures.WithLabelValues(region).Inc()
			report.FailedRegions = append(report.FailedRegions, region)
			log.Errorw("Rating distribution unavailable, percentiles default to 100", "region", region, "error", err)
			continue
		}
		r.ladders[region] = ladder
		report.RegionSamples[region] = len(ladder.Sample)
		distributionSize.WithLabelValues(region).Set(float64(len(ladder.Sample)))

		if err := s.store.SetTierBoundaries(ctx, region, ladder.SeasonID, ladder.Tiers); err != nil {
			log.Warnw("Failed to store tier boundaries", "region", region, "error", err)
		}
	}

	keys, err := s.store.ListMemberKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	s.shuffle(keys)

	memberUnits := make([]worker.Unit, 0, len(keys))
	for _, key := range keys {
		memberUnits = append(memberUnits, worker.Unit{Name: key, Run: func(ctx context.Context) error {
			return s.syncMember(ctx, r, key)
		}})
	}
	report.Members = s.exec.Execute(ctx, pathMembers, memberUnits)

	report.Unregistered = s.exec.Execute(ctx, pathUnregistered, s.unregisteredUnits(r))

	snaps := r.snapshots.Drain()
	report.Snapshots = len(snaps)
	if s.archive != nil {
		if err := s.archive.Record(ctx, r.id, s.now().UTC(), snaps); err != nil {
			log.Warnw("Failed to archive snapshots", "count", len(snaps), "error", err)
		}
	}

	report.FinishedAt = s.now().UTC()
	runDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	log.Infow("Run complete",
		"members", report.Members,
		"unregistered", report.Unregistered,
		"failedRegions", report.FailedRegions,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// buildRegion walks a region's ladder, retrying the whole walk a bounded
// number of times.
func (s *Service) buildRegion(ctx context.Context, session *Session, region string) (*RegionLadder, error) {
	backoff := retry.WithMaxRetries(uint64(s.cfg.DistributionAttempts-1), retry.NewConstant(s.cfg.DistributionBackoff))

	var out *RegionLadder
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		ladder, err := s.dist.Build(ctx, region, session.Token(region), session.Season(region), s.cfg.ClanIDs[region])
		if err != nil {
			s.logger.Warnw("Rating distribution attempt failed", "region", region, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		out = ladder
		return nil
	})
	return out, err
}

// syncMember refreshes every character of one member, then recomputes the
// member's summary from the stored ladder info.
func (s *Service) syncMember(ctx context.Context, r *run, memberKey string) error {
	byRegion, err := s.store.Characters(ctx, memberKey)
	if err != nil {
		return err
	}

	for _, region := range r.session.Regions {
		token, season, sample := r.session.Token(region), r.session.Season(region), r.sample(region)
		for _, character := range byRegion[region] {
			resolved := s.resolver.Resolve(ctx, token, character.Ref, sample)
			if len(resolved) == 0 {
				// nothing fresh; keep what is stored
				continue
			}
			fresh := seasonStats(resolved)
			if err := s.store.ReplaceSeasonStats(ctx, memberKey, character.Ref, season, fresh); err != nil {
				return err
			}
			for race, st := range fresh {
				r.snapshots.Add(archive.Snapshot{
					Region:       region,
					CharacterKey: character.Ref.Key(),
					MemberKey:    memberKey,
					SeasonID:     season,
					Race:         race,
					Stat:         st,
				})
			}
		}
	}
	s.logger.Infow("Updated characters for member", "member", memberKey)

	refreshed, err := s.store.Characters(ctx, memberKey)
	if err != nil {
		return err
	}
	summary := logic.ReduceSummary(onlyRegions(refreshed, r.session.Regions), r.session.GlobalSeason(), s.now())
	if err := s.store.UpdateSummary(ctx, memberKey, summary); err != nil {
		return err
	}
	s.logger.Infow("Updated ladder summary for member", "member", memberKey)

	if s.directory != nil {
		info := s.directory.MemberInfo(ctx, memberKey)
		if err := s.store.UpdateDiscordInfo(ctx, memberKey, info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) unregisteredUnits(r *run) []worker.Unit {
	regions := make([]string, 0, len(r.ladders))
	for region := range r.ladders {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var units []worker.Unit
	for _, region := range regions {
		ladder := r.ladders[region]
		for i := range ladder.Tracked {
			team := ladder.Tracked[i]
			name := fmt.Sprintf("%s/%s", region, logic.ParticipantKey(team.Team.FirstMember()))
			units = append(units, worker.Unit{Name: name, Run: func(ctx context.Context) error {
				rec, err := s.reconciler.Reconcile(ctx, ladder.Region, ladder.SeasonID, ladder.Sample, team)
				if err != nil || rec == nil {
					return err
				}
				r.snapshots.Add(archive.Snapshot{
					Region:       rec.Region,
					CharacterKey: rec.CharacterKey,
					SeasonID:     rec.SeasonID,
					Race:         rec.Race,
					Stat:         rec.Stat,
				})
				return nil
			}})
		}
	}
	return units
}

func onlyRegions(byRegion map[string][]models.Character, regions []string) map[string][]models.Character {
	out := make(map[string][]models.Character, len(regions))
	for _, region := range regions {
		if chars, ok := byRegion[region]; ok {
			out[region] = chars
		}
	}
	return out
}
