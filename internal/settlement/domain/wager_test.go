package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayStatus(t *testing.T) {
	tests := []struct {
		name string
		w    Wager
		want Status
	}{
		{"pending", Wager{Status: StatusPending}, StatusPending},
		{"won with both flags", Wager{Status: StatusWon, IsFinal: true, IsComplete: true}, StatusWon},
		{"lost with both flags", Wager{Status: StatusLost, IsFinal: true, IsComplete: true}, StatusLost},
		{"won missing is_complete", Wager{Status: StatusWon, IsFinal: true}, StatusPending},
		{"lost missing is_final", Wager{Status: StatusLost, IsComplete: true}, StatusPending},
		{"cancelled", Wager{Status: StatusCancelled}, StatusCancelled},
		{"unknown status", Wager{Status: "VOID"}, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.DisplayStatus())
		})
	}
}

func TestAwaitingCredit(t *testing.T) {
	now := time.Now()
	won := Wager{Status: StatusWon, IsFinal: true, IsComplete: true, SettledAmountCents: 250}

	assert.True(t, won.AwaitingCredit())

	credited := won
	credited.CreditedAt = &now
	assert.False(t, credited.AwaitingCredit())

	partial := won
	partial.IsComplete = false
	assert.False(t, partial.AwaitingCredit())

	lost := Wager{Status: StatusLost, IsFinal: true, IsComplete: true}
	assert.False(t, lost.AwaitingCredit())

	cancelled := Wager{Status: StatusCancelled, StakeCents: 700}
	assert.True(t, cancelled.AwaitingCredit())
	cancelled.CreditedAt = &now
	assert.False(t, cancelled.AwaitingCredit())
}

func TestCreditDue(t *testing.T) {
	tests := []struct {
		name   string
		w      Wager
		amount int64
		ref    string
	}{
		{"won", Wager{ID: "w1", Status: StatusWon, IsFinal: true, IsComplete: true, StakeCents: 100, SettledAmountCents: 250}, 250, "win:w1"},
		{"cancelled refunds stake", Wager{ID: "w2", Status: StatusCancelled, StakeCents: 100}, 100, "cancel:w2"},
		{"lost", Wager{ID: "w3", Status: StatusLost, IsFinal: true, IsComplete: true, StakeCents: 100}, 0, ""},
		{"won without flags", Wager{ID: "w4", Status: StatusWon, SettledAmountCents: 250}, 0, ""},
		{"pending", Wager{ID: "w5", Status: StatusPending, StakeCents: 100}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ref := tt.w.CreditDue()
			assert.Equal(t, tt.amount, amount)
			assert.Equal(t, tt.ref, ref)
		})
	}
}

func TestMatchFactsForWager(t *testing.T) {
	f := MatchFacts{MatchID: "m1", HomeGoals: IntPtr(2), AwayGoals: IntPtr(1), IsFinal: true}
	w := Wager{FirstGoalMinute: IntPtr(12), HalfTimeHome: IntPtr(1), HalfTimeAway: IntPtr(0)}

	got := f.ForWager(w)
	assert.Equal(t, 12, *got.FirstGoalMinute)
	assert.Equal(t, 1, *got.HalfTimeHome)
	assert.Equal(t, 0, *got.HalfTimeAway)
	assert.Nil(t, f.FirstGoalMinute, "original facts must not be modified")

	// fatos da partida têm prioridade
	f.FirstGoalMinute = IntPtr(40)
	assert.Equal(t, 40, *f.ForWager(w).FirstGoalMinute)
}

func TestMatchSnapshotFacts(t *testing.T) {
	_, ok := MatchSnapshot{MatchID: "m1", Completed: false, HomeScore: IntPtr(1), AwayScore: IntPtr(0)}.Facts()
	assert.False(t, ok)

	_, ok = MatchSnapshot{MatchID: "m1", Completed: true, HomeScore: IntPtr(1)}.Facts()
	assert.False(t, ok)

	f, ok := MatchSnapshot{MatchID: "m1", Completed: true, HomeScore: IntPtr(1), AwayScore: IntPtr(0)}.Facts()
	assert.True(t, ok)
	assert.True(t, f.IsFinal)
	assert.True(t, f.Settleable())
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, StatusWon, OutcomeWon.Status())
	assert.Equal(t, StatusLost, OutcomeLost.Status())
	assert.Equal(t, StatusPending, OutcomePending.Status())
	assert.True(t, StatusWon.Terminal())
	assert.False(t, StatusPending.Terminal())
}
