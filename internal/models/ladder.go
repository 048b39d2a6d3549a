package models

import (
	"encoding/json"
	"sort"
)

// Records returned by the ranked-ladder service. Only the fields the sync
// consumes are mapped; everything else in the payloads is ignored.

// LocalizedString is a per-locale string map. The service sends a plain
// string when a locale is requested, so a bare string decodes as en_US.
type LocalizedString map[string]string

// UnmarshalJSON accepts either {"en_US": "..."} or "...".
func (l *LocalizedString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = LocalizedString{"en_US": s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

// Ladder is one division ladder.
type Ladder struct {
	Teams  []LadderTeam  `json:"team"`
	League *LadderLeague `json:"league"`
}

// LeagueID returns the league the ladder belongs to, if the payload names it.
func (l *Ladder) LeagueID() (int, bool) {
	if l == nil || l.League == nil || l.League.LeagueKey == nil {
		return 0, false
	}
	return l.League.LeagueKey.LeagueID.Int(), true
}

type LadderLeague struct {
	LeagueKey *LeagueKey `json:"league_key"`
}

type LeagueKey struct {
	LeagueID FlexInt `json:"league_id"`
	SeasonID FlexInt `json:"season_id"`
	QueueID  FlexInt `json:"queue_id"`
	TeamType FlexInt `json:"team_type"`
}

// LadderTeam is a team entry. For 1v1 ladders it has a single member.
type LadderTeam struct {
	ID                  FlexInt        `json:"id"`
	Rating              *FlexInt       `json:"rating"`
	Wins                FlexInt        `json:"wins"`
	Losses              FlexInt        `json:"losses"`
	Ties                FlexInt        `json:"ties"`
	CurrentWinStreak    FlexInt        `json:"current_win_streak"`
	LongestWinStreak    FlexInt        `json:"longest_win_streak"`
	LastPlayedTimeStamp FlexInt        `json:"last_played_time_stamp"`
	Members             []LadderMember `json:"member"`
}

// FirstMember returns the team's first member, or nil for an empty team.
func (t *LadderTeam) FirstMember() *LadderMember {
	if len(t.Members) == 0 {
		return nil
	}
	return &t.Members[0]
}

type LadderMember struct {
	LegacyLink      *LegacyLink       `json:"legacy_link"`
	CharacterLink   *CharacterLink    `json:"character_link"`
	ClanLink        *ClanLink         `json:"clan_link"`
	PlayedRaceCount []PlayedRaceCount `json:"played_race_count"`
}

// BattleTag returns the participant's account tag, or "" when absent.
func (m *LadderMember) BattleTag() string {
	if m.CharacterLink == nil {
		return ""
	}
	return m.CharacterLink.BattleTag
}

// ClanID returns the participant's clan id when the payload carries one.
func (m *LadderMember) ClanID() (int, bool) {
	if m.ClanLink == nil {
		return 0, false
	}
	return m.ClanLink.ID.Int(), true
}

type LegacyLink struct {
	ID    FlexInt `json:"id"`
	Realm FlexInt `json:"realm"`
	Name  string  `json:"name"`
	Path  string  `json:"path"`
}

type CharacterLink struct {
	ID        FlexInt `json:"id"`
	BattleTag string  `json:"battle_tag"`
}

type ClanLink struct {
	ID       FlexInt `json:"id"`
	ClanTag  string  `json:"clan_tag"`
	ClanName string  `json:"clan_name"`
}

type PlayedRaceCount struct {
	Race  LocalizedString `json:"race"`
	Count FlexInt         `json:"count"`
}

// RaceName prefers the en_US label, falling back to the lexicographically
// first locale so the choice is stable across decodes.
func (p PlayedRaceCount) RaceName() string {
	if name, ok := p.Race["en_US"]; ok {
		return name
	}
	if len(p.Race) == 0 {
		return ""
	}
	locales := make([]string, 0, len(p.Race))
	for k := range p.Race {
		locales = append(locales, k)
	}
	sort.Strings(locales)
	return p.Race[locales[0]]
}

// League is the league-data record: tiers, each holding divisions.
type League struct {
	Key   *LeagueKey   `json:"key"`
	Tiers []LeagueTier `json:"tier"`
}

type LeagueTier struct {
	ID        FlexInt          `json:"id"`
	MinRating *FlexInt         `json:"min_rating"`
	MaxRating *FlexInt         `json:"max_rating"`
	Divisions []LeagueDivision `json:"division"`
}

type LeagueDivision struct {
	ID          FlexInt  `json:"id"`
	LadderID    *FlexInt `json:"ladder_id"`
	MemberCount FlexInt  `json:"member_count"`
}

// LegacyProfileLadders is the per-profile ladder listing.
type LegacyProfileLadders struct {
	CurrentSeason []LegacySeasonEntry `json:"currentSeason"`
}

type LegacySeasonEntry struct {
	Ladder []LegacyLadderRef `json:"ladder"`
}

type LegacyLadderRef struct {
	LadderID         FlexInt `json:"ladderId"`
	LadderName       string  `json:"ladderName"`
	MatchMakingQueue string  `json:"matchMakingQueue"`
	League           string  `json:"league"`
}

// Season is the current-season record. The endpoint has used both "id" and
// "seasonId" for the identifier.
type Season struct {
	ID       FlexInt `json:"id"`
	SeasonID FlexInt `json:"seasonId"`
	Number   FlexInt `json:"number"`
	Year     FlexInt `json:"year"`
}

// Current returns the season identifier.
func (s *Season) Current() int {
	if s.SeasonID != 0 {
		return s.SeasonID.Int()
	}
	return s.ID.Int()
}

// AccessToken is the client-credentials token response.
type AccessToken struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   FlexInt `json:"expires_in"`
}
