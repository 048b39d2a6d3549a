package ladder

import (
	"context"

	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/logic"
	"github.com/allinsc2/ladder-sync/internal/models"
)

// Reconciler records tracked-clan participants that have no registered
// member behind their battle tag.
type Reconciler struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewReconciler(store Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger.Sugar()}
}

// Reconcile writes an unregistered record for the team's participant and
// returns it. It returns nil without error when the team has no member, the
// participant has no identity, a registered member already owns the tag, or
// no race can be attributed.
func (r *Reconciler) Reconcile(ctx context.Context, region string, seasonID int, sample []int, t TrackedTeam) (*models.UnregisteredMember, error) {
	m := t.Team.FirstMember()
	if m == nil {
		return nil, nil
	}
	key := logic.ParticipantKey(m)
	if key == "" {
		return nil, nil
	}

	tag := m.BattleTag()
	caseless := logic.FoldTag(tag)
	if caseless != "" {
		memberKey, found, err := r.store.MemberKeyByCaselessTag(ctx, caseless)
		if err != nil {
			return nil, err
		}
		if found {
			r.logger.Debugw("Participant already registered", "region", region, "character", key, "member", memberKey)
			return nil, nil
		}
	}

	race, ok := logic.AttributeRace(m.PlayedRaceCount)
	if !ok {
		return nil, nil
	}

	rec := models.UnregisteredMember{
		Region:            region,
		CharacterKey:      key,
		BattleTag:         tag,
		CaselessBattleTag: caseless,
		SeasonID:          seasonID,
		Race:              race,
		Stat:              logic.StatFromTeam(&t.Team, t.LeagueID, sample),
	}
	if err := r.store.UpsertUnregistered(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
