package ladder

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/models"
)

func TestReconcile_WritesUnregistered(t *testing.T) {
	store := NewMockStore()
	r := NewReconciler(store, zap.NewNop())

	tracked := TrackedTeam{LeagueID: 5, Team: team(1500, 6, 3, participant{
		path: "/profile/9/2/bob", tag: "Bob#4242", clanID: 369, races: map[string]int{"Zerg": 9},
	})}
	tracked.Team.Ties = 1

	rec, err := r.Reconcile(context.Background(), "eu", 58, []int{1000, 1500, 2000}, tracked)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	stored, ok := store.Unregistered["eu/9-2-bob"]
	if !ok {
		t.Fatalf("record not stored: %+v", store.Unregistered)
	}
	if stored.CaselessBattleTag != "bob#4242" || stored.Race != models.Zerg || stored.SeasonID != 58 {
		t.Errorf("stored = %+v", stored)
	}
	if stored.Stat.GamesPlayed != 10 {
		t.Errorf("GamesPlayed = %d, want wins+losses+ties = 10", stored.Stat.GamesPlayed)
	}
	if stored.Stat.LeagueID != 5 {
		t.Errorf("LeagueID = %d, want 5", stored.Stat.LeagueID)
	}
}

func TestReconcile_SkipsRegisteredTagDifferingInCase(t *testing.T) {
	store := NewMockStore()
	store.Tags["bob#4242"] = "member-bob"
	r := NewReconciler(store, zap.NewNop())

	tracked := TrackedTeam{LeagueID: 5, Team: team(1500, 6, 3, participant{
		path: "/profile/9/2/bob", tag: "BOB#4242", races: map[string]int{"Zerg": 9},
	})}

	rec, err := r.Reconcile(context.Background(), "eu", 58, nil, tracked)
	if err != nil || rec != nil {
		t.Errorf("Reconcile = (%+v, %v), want skip", rec, err)
	}
	if len(store.Unregistered) != 0 {
		t.Error("registered participant must not get an unregistered record")
	}
}

func TestReconcile_SkipConditions(t *testing.T) {
	tests := []struct {
		name string
		team models.LadderTeam
	}{
		{"no members", models.LadderTeam{}},
		{"no identity", team(1500, 1, 1, participant{tag: "x#1", races: map[string]int{"Zerg": 1}})},
		{"no race", team(1500, 1, 1, participant{path: "/profile/9/2/bob", tag: "x#1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockStore()
			rec, err := NewReconciler(store, zap.NewNop()).Reconcile(context.Background(), "us", 58, nil, TrackedTeam{Team: tt.team})
			if err != nil || rec != nil || len(store.Unregistered) != 0 {
				t.Errorf("Reconcile = (%+v, %v), stored %d; want skip", rec, err, len(store.Unregistered))
			}
		})
	}
}
