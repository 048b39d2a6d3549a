package logic

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/allinsc2/ladder-sync/internal/models"
)

// profilePathPrefix is the length of "/profile/" on a legacy link path; the
// remainder is "<id>/<realm>/<name>".
const profilePathPrefix = 9

// CharacterKeyFromPath converts a legacy profile path into a character key.
// A path too short to carry an identity yields "".
func CharacterKeyFromPath(path string) string {
	if len(path) <= profilePathPrefix {
		return ""
	}
	return strings.ReplaceAll(path[profilePathPrefix:], "/", "-")
}

// ParticipantKey returns the character key of a ladder participant, or ""
// when the participant has no legacy link.
func ParticipantKey(m *models.LadderMember) string {
	if m == nil || m.LegacyLink == nil {
		return ""
	}
	return CharacterKeyFromPath(m.LegacyLink.Path)
}

// MatchesCharacter reports whether a participant is the given character.
// Participants without a legacy link never match.
func MatchesCharacter(m *models.LadderMember, characterKey string) bool {
	key := ParticipantKey(m)
	return key != "" && key == characterKey
}

// FoldTag returns the caseless form of a battle tag.
func FoldTag(tag string) string {
	return cases.Fold().String(tag)
}

// SameTag compares two battle tags case-insensitively.
func SameTag(a, b string) bool {
	return FoldTag(a) == FoldTag(b)
}
