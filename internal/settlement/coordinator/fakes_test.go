package coordinator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

var errBoom = errors.New("boom")

// fakeStore guarda apostas e fatos em memória com escrita condicional igual à do banco
type fakeStore struct {
	mu        sync.Mutex
	wagers    map[string]*domain.Wager
	facts     map[string]domain.MatchFacts
	snapshots map[string]domain.MatchSnapshot
	writes    int
	saved     []domain.MatchFacts

	failWrite   map[string]bool
	failPending error
	failFacts   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wagers:    map[string]*domain.Wager{},
		facts:     map[string]domain.MatchFacts{},
		snapshots: map[string]domain.MatchSnapshot{},
		failWrite: map[string]bool{},
	}
}

func (s *fakeStore) add(w domain.Wager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.Status == "" {
		w.Status = domain.StatusPending
	}
	cp := w
	s.wagers[w.ID] = &cp
}

func (s *fakeStore) get(id string) domain.Wager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.wagers[id]
}

func (s *fakeStore) PendingWagers(_ context.Context, matchID string) ([]domain.Wager, error) {
	if s.failPending != nil {
		return nil, s.failPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Wager
	for _, w := range s.wagers {
		if w.MatchID == matchID && w.Status == domain.StatusPending {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetWager(_ context.Context, id string) (*domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wagers[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *w
	return &cp, nil
}

func (s *fakeStore) WriteSettlement(ctx context.Context, st domain.Settlement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite[st.WagerID] {
		return false, errBoom
	}
	w := s.wagers[st.WagerID]
	if w.Status != domain.StatusPending {
		return false, nil
	}
	s.writes++
	at := st.SettledAt
	w.Status, w.IsFinal, w.IsComplete = st.Status, st.IsFinal, st.IsComplete
	w.SettledAmountCents, w.SettledAt = st.AmountCents, &at
	return true, nil
}

func (s *fakeStore) MarkCredited(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.wagers[id]; w.CreditedAt == nil {
		w.CreditedAt = &at
	}
	return nil
}

func (s *fakeStore) UncreditedPayouts(_ context.Context, limit int) ([]domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Wager
	for _, w := range s.wagers {
		due := w.Status == domain.StatusWon || w.Status == domain.StatusCancelled
		if due && w.CreditedAt == nil && len(out) < limit {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) StalePendingMatches(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, w := range s.wagers {
		ref := w.PlacedAt
		if w.KickoffAt != nil {
			ref = *w.KickoffAt
		}
		if w.Status == domain.StatusPending && ref.Before(before) && !seen[w.MatchID] {
			seen[w.MatchID] = true
			out = append(out, w.MatchID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeStore) CancelPending(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.wagers[id]
	if w.Status != domain.StatusPending {
		return false, nil
	}
	w.Status, w.SettledAt = domain.StatusCancelled, &at
	return true, nil
}

func (s *fakeStore) MatchFacts(_ context.Context, matchID string) (*domain.MatchFacts, error) {
	if s.failFacts != nil {
		return nil, s.failFacts
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facts[matchID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *fakeStore) MatchSnapshot(_ context.Context, matchID string) (*domain.MatchSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[matchID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *fakeStore) SaveMatchFacts(_ context.Context, f domain.MatchFacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, f)
	cur, ok := s.facts[f.MatchID]
	if !ok || !cur.IsFinal {
		s.facts[f.MatchID] = f
		return nil
	}
	// resultado final: só completa fatos auxiliares ausentes
	if cur.FirstGoalMinute == nil {
		cur.FirstGoalMinute = f.FirstGoalMinute
	}
	if cur.HalfTimeHome == nil {
		cur.HalfTimeHome = f.HalfTimeHome
	}
	if cur.HalfTimeAway == nil {
		cur.HalfTimeAway = f.HalfTimeAway
	}
	s.facts[f.MatchID] = cur
	return nil
}

// fakeLedger registra créditos por ref e pode falhar sob demanda
type fakeLedger struct {
	mu      sync.Mutex
	credits map[string]int64 // ref -> valor
	calls   int
	fail    bool
}

func newFakeLedger() *fakeLedger { return &fakeLedger{credits: map[string]int64{}} }

func (l *fakeLedger) Credit(ctx context.Context, _ string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.fail {
		return errBoom
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.credits[ref] += amount
	return nil
}

func (l *fakeLedger) setFail(v bool) {
	l.mu.Lock()
	l.fail = v
	l.mu.Unlock()
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []domain.SettlementNotice
	fail    bool
}

func (n *fakeNotifier) NotifySettlement(_ context.Context, x domain.SettlementNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, x)
	if n.fail {
		return errBoom
	}
	return nil
}

// slowNotifier demora delay por aviso e respeita o cancelamento do contexto
type slowNotifier struct {
	delay time.Duration
	mu    sync.Mutex
	sent  int
}

func (n *slowNotifier) NotifySettlement(ctx context.Context, _ domain.SettlementNotice) error {
	select {
	case <-time.After(n.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	n.mu.Lock()
	n.sent++
	n.mu.Unlock()
	return nil
}

// openLocker nunca recusa; usado para provar que a escrita condicional sozinha evita pagamento duplo
type openLocker struct{}

func (openLocker) Acquire(context.Context, string) (bool, error)  { return true, nil }
func (openLocker) Release(context.Context, string) error          { return nil }
func (openLocker) InFlight(context.Context, string) (bool, error) { return false, nil }
