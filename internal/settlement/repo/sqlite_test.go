package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement/lock"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
)

var t0 = time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "settlement.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s := NewSQLite(openTestDB(t))
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.CreateTables(context.Background()))
	return s
}

func TestSQLiteWagerLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	kickoff := t0.Add(-4 * time.Hour)
	require.NoError(t, s.UpsertMatch(ctx, domain.MatchSnapshot{MatchID: "m1", KickoffAt: &kickoff}, "SCHEDULED"))

	id, err := s.CreatePending(ctx, domain.Wager{
		UserID: "u1", MatchID: "m1", Selection: "FIRST GOAL 0-15", BetType: "FGT",
		StakeCents: 1000, OddValue: 4.5, FirstGoalMinute: domain.IntPtr(9),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := s.PendingWagers(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	w := pending[0]
	assert.Equal(t, "FGT", w.BetType)
	assert.Equal(t, 4.5, w.OddValue)
	assert.Equal(t, 9, *w.FirstGoalMinute)
	assert.Nil(t, w.HalfTimeHome)
	require.NotNil(t, w.KickoffAt)
	assert.True(t, kickoff.Equal(*w.KickoffAt))
	assert.False(t, w.IsFinal)

	applied, err := s.WriteSettlement(ctx, domain.Settlement{
		WagerID: id, Status: domain.StatusWon, IsFinal: true, IsComplete: true, AmountCents: 4500, SettledAt: t0,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// segunda escrita não se aplica: a aposta já saiu de PENDING
	applied, err = s.WriteSettlement(ctx, domain.Settlement{
		WagerID: id, Status: domain.StatusLost, IsFinal: true, IsComplete: true, SettledAt: t0,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.GetWager(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, got.DisplayStatus())
	assert.Equal(t, int64(4500), got.SettledAmountCents)
	assert.True(t, got.AwaitingCredit())

	wins, err := s.UncreditedPayouts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, wins, 1)

	require.NoError(t, s.MarkCredited(ctx, id, t0))
	wins, err = s.UncreditedPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, wins)

	pending, err = s.PendingWagers(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	ok, err := s.CancelPending(ctx, id, t0)
	require.NoError(t, err)
	assert.False(t, ok, "settled wager cannot be cancelled")
}

func TestSQLiteGetWagerNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetWager(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteCancelPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.CreatePending(ctx, domain.Wager{UserID: "u1", MatchID: "m1", Selection: "1", StakeCents: 100, OddValue: 2})
	require.NoError(t, err)

	ok, err := s.CancelPending(ctx, id, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	applied, err := s.WriteSettlement(ctx, domain.Settlement{WagerID: id, Status: domain.StatusWon, IsFinal: true, IsComplete: true, SettledAt: t0})
	require.NoError(t, err)
	assert.False(t, applied, "cancelled wager cannot be settled")

	w, err := s.GetWager(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, w.DisplayStatus())
	assert.True(t, w.AwaitingCredit())

	due, err := s.UncreditedPayouts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)

	require.NoError(t, s.MarkCredited(ctx, id, t0))
	due, err = s.UncreditedPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSQLiteStalePendingMatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := t0.Add(-5 * time.Hour)
	recent := t0.Add(-30 * time.Minute)
	require.NoError(t, s.UpsertMatch(ctx, domain.MatchSnapshot{MatchID: "old", KickoffAt: &old}, "LIVE"))
	require.NoError(t, s.UpsertMatch(ctx, domain.MatchSnapshot{MatchID: "recent", KickoffAt: &recent}, "LIVE"))

	for _, m := range []string{"old", "old", "recent"} {
		_, err := s.CreatePending(ctx, domain.Wager{UserID: "u1", MatchID: m, Selection: "1", StakeCents: 100, OddValue: 2, PlacedAt: t0})
		require.NoError(t, err)
	}
	// sem linha de partida: usa a data da aposta
	_, err := s.CreatePending(ctx, domain.Wager{UserID: "u1", MatchID: "orphan", Selection: "1", StakeCents: 100, OddValue: 2, PlacedAt: old})
	require.NoError(t, err)

	ids, err := s.StalePendingMatches(ctx, t0.Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "orphan"}, ids)
}

func TestSQLiteMatchFacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f, err := s.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, f)

	live := domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(1), AwayGoals: domain.IntPtr(0)}
	require.NoError(t, s.SaveMatchFacts(ctx, live))
	f, err = s.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.False(t, f.Settleable())

	fin := domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(2), AwayGoals: domain.IntPtr(0), HalfTimeHome: domain.IntPtr(1), HalfTimeAway: domain.IntPtr(0), IsFinal: true}
	require.NoError(t, s.SaveMatchFacts(ctx, fin))

	// resultado final não é sobrescrito
	require.NoError(t, s.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(9), AwayGoals: domain.IntPtr(9), IsFinal: true}))

	f, err = s.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, f.Settleable())
	assert.Equal(t, 2, *f.HomeGoals)
	assert.Equal(t, 1, *f.HalfTimeHome)
	assert.Nil(t, f.FirstGoalMinute)
}

func TestSQLiteFinalFactsAcceptLateAuxiliaryFacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(1), AwayGoals: domain.IntPtr(0), IsFinal: true}))

	// evento tardio traz minuto do primeiro gol e intervalo, com placar divergente e não final
	require.NoError(t, s.SaveMatchFacts(ctx, domain.MatchFacts{
		MatchID:         "m1",
		HomeGoals:       domain.IntPtr(4),
		AwayGoals:       domain.IntPtr(4),
		HalfTimeHome:    domain.IntPtr(1),
		HalfTimeAway:    domain.IntPtr(0),
		FirstGoalMinute: domain.IntPtr(10),
	}))

	f, err := s.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.IsFinal)
	assert.Equal(t, 1, *f.HomeGoals)
	assert.Equal(t, 0, *f.AwayGoals)
	require.NotNil(t, f.FirstGoalMinute)
	assert.Equal(t, 10, *f.FirstGoalMinute)
	require.NotNil(t, f.HalfTimeHome)
	assert.Equal(t, 1, *f.HalfTimeHome)

	// fato auxiliar já gravado num resultado final não muda
	require.NoError(t, s.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", FirstGoalMinute: domain.IntPtr(70), IsFinal: true}))
	f, err = s.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 10, *f.FirstGoalMinute)
	assert.Equal(t, 1, *f.HomeGoals)
}

func TestSQLiteFirstGoalWagerSettlesWhenMinuteArrives(t *testing.T) {
	ctx := context.Background()
	sdb := openTestDB(t)
	store := NewSQLite(sdb)
	require.NoError(t, store.CreateTables(ctx))
	led := ledger.NewSQLite(sdb)
	require.NoError(t, led.CreateTables(ctx))
	require.NoError(t, led.OpenWallet(ctx, "carol", 0))

	id, err := store.CreatePending(ctx, domain.Wager{UserID: "carol", MatchID: "m1", Selection: "First Goal 0-15", StakeCents: 1000, OddValue: 3})
	require.NoError(t, err)
	coord := coordinator.New(zap.NewNop(), store, store, led, nil, lock.NewMemory(), coordinator.Options{})

	require.NoError(t, store.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(1), AwayGoals: domain.IntPtr(0), IsFinal: true}))
	rep, err := coord.ResolveMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, rep.Resolutions)
	assert.Equal(t, 1, rep.Pending)

	require.NoError(t, store.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(1), AwayGoals: domain.IntPtr(0), FirstGoalMinute: domain.IntPtr(12), IsFinal: true}))
	rep, err = coord.ResolveMatch(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, rep.Resolutions, 1)
	assert.Equal(t, domain.StatusWon, rep.Resolutions[0].Status)

	w, err := store.GetWager(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, w.DisplayStatus())
	bal, err := led.Balance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), bal)
}

func TestSQLiteMatchSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snap, err := s.MatchSnapshot(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, s.UpsertMatch(ctx, domain.MatchSnapshot{MatchID: "m1", HomeScore: domain.IntPtr(3), AwayScore: domain.IntPtr(1)}, "finished"))
	snap, err = s.MatchSnapshot(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Completed)

	facts, ok := snap.Facts()
	require.True(t, ok)
	assert.Equal(t, 3, *facts.HomeGoals)
}

// liquidação completa sobre SQLite: store, ledger e coordenador reais
func TestSQLiteEndToEndSettlement(t *testing.T) {
	ctx := context.Background()
	sdb := openTestDB(t)
	store := NewSQLite(sdb)
	require.NoError(t, store.CreateTables(ctx))
	led := ledger.NewSQLite(sdb)
	require.NoError(t, led.CreateTables(ctx))

	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, led.OpenWallet(ctx, u, 0))
	}
	winner, err := store.CreatePending(ctx, domain.Wager{UserID: "alice", MatchID: "m1", Selection: "Over 2.5", StakeCents: 1000, OddValue: 1.9})
	require.NoError(t, err)
	loser, err := store.CreatePending(ctx, domain.Wager{UserID: "bob", MatchID: "m1", Selection: "cs 1-1", StakeCents: 500, OddValue: 7})
	require.NoError(t, err)

	require.NoError(t, store.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: "m1", HomeGoals: domain.IntPtr(2), AwayGoals: domain.IntPtr(1), IsFinal: true}))

	coord := coordinator.New(zap.NewNop(), store, store, led, nil, lock.NewMemory(), coordinator.Options{})
	rep, err := coord.ResolveMatch(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, rep.Resolutions, 2)

	rep, err = coord.ResolveMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, rep.Resolutions)

	bal, err := led.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), bal)
	bal, err = led.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	w, err := store.GetWager(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, w.DisplayStatus())
	assert.NotNil(t, w.CreditedAt)

	w, err = store.GetWager(ctx, loser)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, w.DisplayStatus())
}
