package ladder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allinsc2/ladder-sync/internal/archive"
	"github.com/allinsc2/ladder-sync/internal/models"
	"github.com/allinsc2/ladder-sync/internal/upstream"
)

var errUnavailable = &upstream.Error{Op: "test", StatusCode: 503, Err: errors.New("unavailable")}

// MockAPI implements LadderAPI for testing
type MockAPI struct {
	mu sync.Mutex

	Seasons    map[string]int
	TokenErr   map[string]error
	Leagues    map[string]map[int]*models.League // region -> league id
	LeagueErr  map[string]error
	Ladders    map[int]*models.Ladder
	LadderErr  map[int]error
	Profiles   map[string]*models.LegacyProfileLadders // region/realm/profile
	ProfileErr map[string]error

	LadderCalls int
}

func NewMockAPI() *MockAPI {
	return &MockAPI{
		Seasons:    map[string]int{},
		TokenErr:   map[string]error{},
		Leagues:    map[string]map[int]*models.League{},
		LeagueErr:  map[string]error{},
		Ladders:    map[int]*models.Ladder{},
		LadderErr:  map[int]error{},
		Profiles:   map[string]*models.LegacyProfileLadders{},
		ProfileErr: map[string]error{},
	}
}

func (m *MockAPI) AccessToken(ctx context.Context, clientID, clientSecret, region string) (string, error) {
	if err := m.TokenErr[region]; err != nil {
		return "", err
	}
	return "token-" + region, nil
}

func (m *MockAPI) CurrentSeason(ctx context.Context, token, region string) (int, error) {
	season, ok := m.Seasons[region]
	if !ok {
		return 0, errUnavailable
	}
	return season, nil
}

func (m *MockAPI) League(ctx context.Context, token, region string, seasonID, leagueID int) (*models.League, error) {
	if err := m.LeagueErr[region]; err != nil {
		return nil, err
	}
	if l, ok := m.Leagues[region][leagueID]; ok {
		return l, nil
	}
	return &models.League{}, nil
}

func (m *MockAPI) Ladder(ctx context.Context, token, region string, ladderID int) (*models.Ladder, error) {
	m.mu.Lock()
	m.LadderCalls++
	m.mu.Unlock()
	if err := m.LadderErr[ladderID]; err != nil {
		return nil, err
	}
	l, ok := m.Ladders[ladderID]
	if !ok {
		return nil, &upstream.Error{Op: "ladder", StatusCode: 404, Err: errors.New("not found")}
	}
	return l, nil
}

func (m *MockAPI) LegacyProfileLadders(ctx context.Context, token, region, realm, profileID string) (*models.LegacyProfileLadders, error) {
	key := region + "/" + realm + "/" + profileID
	if err := m.ProfileErr[key]; err != nil {
		return nil, err
	}
	p, ok := m.Profiles[key]
	if !ok {
		return nil, &upstream.Error{Op: "profile_ladders", StatusCode: 404, Err: errors.New("not found")}
	}
	return p, nil
}

// MockStore implements Store for testing
type MockStore struct {
	mu sync.Mutex

	Members       map[string]map[string][]models.Character
	Tags          map[string]string // caseless tag -> member key
	Summaries     map[string]models.MemberSummary
	Discord       map[string]models.DiscordInfo
	Unregistered  map[string]models.UnregisteredMember // region/character key
	Tiers         map[string][]models.TierBoundary
	CharactersErr map[string]error
	Replaced      int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Members:       map[string]map[string][]models.Character{},
		Tags:          map[string]string{},
		Summaries:     map[string]models.MemberSummary{},
		Discord:       map[string]models.DiscordInfo{},
		Unregistered:  map[string]models.UnregisteredMember{},
		Tiers:         map[string][]models.TierBoundary{},
		CharactersErr: map[string]error{},
	}
}

func (s *MockStore) ListMemberKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Members))
	for k := range s.Members {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MockStore) Characters(ctx context.Context, memberKey string) (map[string][]models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CharactersErr[memberKey]; err != nil {
		return nil, err
	}
	out := make(map[string][]models.Character)
	for region, chars := range s.Members[memberKey] {
		for _, c := range chars {
			info := make(models.LadderInfo, len(c.LadderInfo))
			for season, stats := range c.LadderInfo {
				cp := make(models.SeasonStats, len(stats))
				for race, st := range stats {
					cp[race] = st
				}
				info[season] = cp
			}
			out[region] = append(out[region], models.Character{Ref: c.Ref, LadderInfo: info})
		}
	}
	return out, nil
}

func (s *MockStore) ReplaceSeasonStats(ctx context.Context, memberKey string, ref models.CharacterRef, seasonID int, stats models.SeasonStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chars := s.Members[memberKey][ref.Region]
	for i := range chars {
		if chars[i].Ref.Key() != ref.Key() {
			continue
		}
		if chars[i].LadderInfo == nil {
			chars[i].LadderInfo = models.LadderInfo{}
		}
		chars[i].LadderInfo[seasonID] = stats
		s.Replaced++
		return nil
	}
	return fmt.Errorf("unknown character %s", ref.Key())
}

func (s *MockStore) UpdateSummary(ctx context.Context, memberKey string, sum models.MemberSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Summaries[memberKey] = sum
	return nil
}

func (s *MockStore) MemberKeyByCaselessTag(ctx context.Context, caselessTag string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.Tags[caselessTag]
	return key, ok, nil
}

func (s *MockStore) UpsertUnregistered(ctx context.Context, rec models.UnregisteredMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Unregistered[rec.Region+"/"+rec.CharacterKey] = rec
	return nil
}

func (s *MockStore) UpdateDiscordInfo(ctx context.Context, memberKey string, info models.DiscordInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Discord[memberKey] = info
	return nil
}

func (s *MockStore) SetTierBoundaries(ctx context.Context, region string, seasonID int, tiers []models.TierBoundary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tiers[region] = tiers
	return nil
}

// MockDirectory implements MemberDirectory for testing
type MockDirectory struct {
	FullMembers map[string]bool
}

func (d *MockDirectory) MemberInfo(ctx context.Context, memberKey string) models.DiscordInfo {
	full, ok := d.FullMembers[memberKey]
	if !ok {
		return models.DiscordInfo{}
	}
	return models.DiscordInfo{Found: true, IsFullMember: full, Username: "user-" + memberKey}
}

// MockArchive implements SnapshotArchive for testing
type MockArchive struct {
	RunID     string
	Snapshots []archive.Snapshot
}

func (a *MockArchive) Record(ctx context.Context, runID string, recordedAt time.Time, snaps []archive.Snapshot) error {
	a.RunID = runID
	a.Snapshots = snaps
	return nil
}

// fixtures

func rating(v int) *models.FlexInt {
	f := models.FlexInt(v)
	return &f
}

func ladderID(v int) *models.FlexInt { return rating(v) }

type participant struct {
	path   string
	tag    string
	clanID int
	races  map[string]int
}

func team(r int, wins, losses int, p participant) models.LadderTeam {
	m := models.LadderMember{}
	if p.path != "" {
		m.LegacyLink = &models.LegacyLink{Path: p.path}
	}
	if p.tag != "" {
		m.CharacterLink = &models.CharacterLink{BattleTag: p.tag}
	}
	if p.clanID != 0 {
		m.ClanLink = &models.ClanLink{ID: models.FlexInt(p.clanID)}
	}
	for race, n := range p.races {
		m.PlayedRaceCount = append(m.PlayedRaceCount, models.PlayedRaceCount{
			Race:  models.LocalizedString{"en_US": race},
			Count: models.FlexInt(n),
		})
	}
	t := models.LadderTeam{Wins: models.FlexInt(wins), Losses: models.FlexInt(losses), Members: []models.LadderMember{m}}
	if r > 0 {
		t.Rating = rating(r)
	}
	return t
}

func ladderOf(leagueID int, teams ...models.LadderTeam) *models.Ladder {
	return &models.Ladder{
		Teams:  teams,
		League: &models.LadderLeague{LeagueKey: &models.LeagueKey{LeagueID: models.FlexInt(leagueID)}},
	}
}

// leagueOf builds a league with one tier per argument, each tier listing the
// given division ladder ids.
func leagueOf(tiers ...[]int) *models.League {
	l := &models.League{}
	for _, ids := range tiers {
		tier := models.LeagueTier{}
		for _, id := range ids {
			tier.Divisions = append(tier.Divisions, models.LeagueDivision{LadderID: ladderID(id)})
		}
		l.Tiers = append(l.Tiers, tier)
	}
	return l
}

func soloProfile(ladderIDs ...int) *models.LegacyProfileLadders {
	p := &models.LegacyProfileLadders{}
	for _, id := range ladderIDs {
		p.CurrentSeason = append(p.CurrentSeason, models.LegacySeasonEntry{
			Ladder: []models.LegacyLadderRef{{LadderID: models.FlexInt(id), MatchMakingQueue: soloQueue}},
		})
	}
	return p
}
