package models

import (
	"fmt"
	"strings"
	"time"
)

// Race is a playable race name as it appears in ladder payloads.
type Race string

const (
	Zerg    Race = "Zerg"
	Protoss Race = "Protoss"
	Terran  Race = "Terran"
	Random  Race = "Random"
)

// Races is the fixed race order. It doubles as the tie-break order when two
// races were played equally often.
var Races = []Race{Zerg, Protoss, Terran, Random}

// ParseRace returns the Race for a payload label, or false for an unknown one.
func ParseRace(name string) (Race, bool) {
	for _, r := range Races {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// CharacterRef identifies a ranked character within one region.
type CharacterRef struct {
	Region       string `json:"region"`
	ProfileID    string `json:"profileId"`
	ProfileRealm string `json:"profileRealm"`
	DisplayName  string `json:"displayName"`
}

// Key is the character key "<profileId>-<realm>-<displayName>", the same text
// the ladder's legacy profile path produces.
func (c CharacterRef) Key() string {
	return c.ProfileID + "-" + c.ProfileRealm + "-" + c.DisplayName
}

// ParseCharacterKey splits a character key back into its parts. Display
// names may contain dashes, so only the first two separate fields.
func ParseCharacterKey(region, key string) (CharacterRef, error) {
	parts := strings.SplitN(key, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return CharacterRef{}, fmt.Errorf("malformed character key %q", key)
	}
	return CharacterRef{Region: region, ProfileID: parts[0], ProfileRealm: parts[1], DisplayName: parts[2]}, nil
}

// RaceSeasonStat is one race's record for one season on one character.
type RaceSeasonStat struct {
	LeagueID         int     `json:"leagueId"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	Ties             int     `json:"ties"`
	GamesPlayed      int     `json:"gamesPlayed"`
	MMR              int     `json:"mmr"`
	CurrentWinStreak int     `json:"currentWinStreak"`
	LongestWinStreak int     `json:"longestWinStreak"`
	LastPlayedAt     int64   `json:"lastPlayedAt"`
	Percentile       float64 `json:"percentile"`
}

// SeasonStats holds a season's stats keyed by race.
type SeasonStats map[Race]RaceSeasonStat

// LadderInfo holds per-season stats keyed by season id.
type LadderInfo map[int]SeasonStats

// Character is a registered member's character with its stored ladder info.
type Character struct {
	Ref        CharacterRef `json:"ref"`
	LadderInfo LadderInfo   `json:"ladderInfo"`
}

// MemberSummary is the derived per-member aggregate. It is recomputed from
// the member's ladder info on every pass.
type MemberSummary struct {
	ZergPlayer                bool      `json:"zergPlayer"`
	ProtossPlayer             bool      `json:"protossPlayer"`
	TerranPlayer              bool      `json:"terranPlayer"`
	RandomPlayer              bool      `json:"randomPlayer"`
	CurrentSeasonGamesPlayed  int       `json:"currentSeasonGamesPlayed"`
	PreviousSeasonGamesPlayed int       `json:"previousSeasonGamesPlayed"`
	CurrentLeague             *int      `json:"currentLeague,omitempty"`
	LastUpdated               time.Time `json:"lastUpdated"`
}

// UnregisteredMember is a tracked-clan participant with no registered member
// behind their battle tag.
type UnregisteredMember struct {
	Region            string         `json:"region"`
	CharacterKey      string         `json:"characterKey"`
	BattleTag         string         `json:"battleTag"`
	CaselessBattleTag string         `json:"caselessBattleTag"`
	SeasonID          int            `json:"seasonId"`
	Race              Race           `json:"race"`
	Stat              RaceSeasonStat `json:"stat"`
}

// DiscordInfo is what the chat-platform lookup contributes to a member.
type DiscordInfo struct {
	Found        bool   `json:"found"`
	IsFullMember bool   `json:"isFullMember"`
	Username     string `json:"username,omitempty"`
	ServerNick   string `json:"serverNick,omitempty"`
}

// TierBoundary is a rating range for one tier of one league.
type TierBoundary struct {
	Tier     int `json:"tier"`
	LeagueID int `json:"leagueId"`
	MinMMR   int `json:"minMmr"`
	MaxMMR   int `json:"maxMmr"`
}
