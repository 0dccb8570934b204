package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/market"
	"github.com/radieske/bet-settlement-engine/internal/settlement/outcome"
)

var (
	ErrWagerNotPending    = errors.New("wager is not pending")
	ErrResolutionInFlight = errors.New("resolution already in flight")
)

// Options ajusta limites e relógio do coordenador
type Options struct {
	StaleAfter     time.Duration // tempo após o kickoff para forçar a resolução
	ResolveTimeout time.Duration // limite de uma passada por partida
	Parallelism    int           // apostas avaliadas em paralelo
	CreditBatch    int           // tamanho do lote de RetryCredits
	NotifyTimeout  time.Duration // prazo dos avisos enviados após a passada
	Now            func() time.Time
}

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnSettled      func(status domain.Status)
	OnCreditFailed func()
	OnSkipped      func()
	OnPass         func(time.Duration)
}

// Resolution descreve uma aposta levada a estado terminal nesta passada
type Resolution struct {
	WagerID     string        `json:"bet_id"`
	UserID      string        `json:"user_id"`
	MatchID     string        `json:"match_id"`
	Status      domain.Status `json:"status"`
	AmountCents int64         `json:"amount_cents"`
	Credited    bool          `json:"credited"`
	SettledAt   time.Time     `json:"settled_at"`
}

func (r Resolution) notice() domain.SettlementNotice {
	return domain.SettlementNotice{
		WagerID:     r.WagerID,
		UserID:      r.UserID,
		MatchID:     r.MatchID,
		Status:      r.Status,
		AmountCents: r.AmountCents,
		SettledAt:   r.SettledAt,
	}
}

// Report resume uma passada de resolução de partida
type Report struct {
	MatchID     string       `json:"match_id"`
	InFlight    bool         `json:"in_flight,omitempty"`
	Resolutions []Resolution `json:"resolutions"`
	Pending     int          `json:"pending"`
	Failed      int          `json:"failed"`
}

// Coordinator orquestra a liquidação: fatos -> apostas pendentes -> avaliação -> escrita -> crédito
type Coordinator struct {
	log    *zap.Logger
	store  WagerStore
	facts  FactsStore
	ledger Ledger
	notify Notifier
	locker Locker
	opts   Options

	Hooks Hooks
}

func New(log *zap.Logger, store WagerStore, facts FactsStore, ledger Ledger, notifier Notifier, locker Locker, opts Options) *Coordinator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	if opts.CreditBatch <= 0 {
		opts.CreditBatch = 100
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 3 * time.Hour
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		log:    log,
		store:  store,
		facts:  facts,
		ledger: ledger,
		notify: notifier,
		locker: locker,
		opts:   opts,
	}
}

// ResolveMatch liquida todas as apostas pendentes de uma partida.
// Se outra resolução da mesma partida estiver em andamento, retorna relatório vazio sem erro.
func (c *Coordinator) ResolveMatch(ctx context.Context, matchID string) (*Report, error) {
	return c.resolve(ctx, matchID, false)
}

// ForceResolveMatch sintetiza o resultado a partir do placar da partida concluída,
// grava o registro de resultado e executa a resolução normal, tudo sob o lock da partida.
func (c *Coordinator) ForceResolveMatch(ctx context.Context, matchID string) (*Report, error) {
	return c.resolve(ctx, matchID, true)
}

func (c *Coordinator) resolve(ctx context.Context, matchID string, force bool) (*Report, error) {
	rep := &Report{MatchID: matchID}

	ok, err := c.locker.Acquire(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("acquire resolution lock: %w", err)
	}
	if !ok {
		rep.InFlight = true
		c.log.Info("resolution already in flight", zap.String("matchId", matchID))
		if c.Hooks.OnSkipped != nil {
			c.Hooks.OnSkipped()
		}
		return rep, nil
	}
	defer c.release(matchID)

	start := c.opts.Now()
	defer func() {
		if c.Hooks.OnPass != nil {
			c.Hooks.OnPass(c.opts.Now().Sub(start))
		}
	}()

	if err := c.settlePass(ctx, matchID, force, rep); err != nil {
		return nil, err
	}
	c.notifyAll(ctx, rep.Resolutions)
	return rep, nil
}

// settlePass roda sob o prazo ResolveTimeout; avisos ficam fora dele
func (c *Coordinator) settlePass(ctx context.Context, matchID string, force bool, rep *Report) error {
	ctx, cancel := c.passContext(ctx)
	defer cancel()

	if force {
		if err := c.synthesizeFacts(ctx, matchID); err != nil {
			return err
		}
	}

	facts, err := c.finalFacts(ctx, matchID)
	if err != nil {
		return err
	}
	if facts == nil {
		c.log.Debug("no final facts yet", zap.String("matchId", matchID))
		return nil
	}

	wagers, err := c.store.PendingWagers(ctx, matchID)
	if err != nil {
		return fmt.Errorf("fetch pending wagers: %w", err)
	}
	if len(wagers) == 0 {
		return nil
	}

	c.settleAll(ctx, *facts, wagers, rep)

	c.log.Info("match resolved",
		zap.String("matchId", matchID),
		zap.Int("settled", len(rep.Resolutions)),
		zap.Int("pending", rep.Pending),
		zap.Int("failed", rep.Failed),
	)
	return nil
}

// synthesizeFacts grava como resultado final o placar de uma partida concluída
// quando ainda não há resultado final registrado
func (c *Coordinator) synthesizeFacts(ctx context.Context, matchID string) error {
	existing, err := c.facts.MatchFacts(ctx, matchID)
	if err != nil {
		return fmt.Errorf("fetch match facts: %w", err)
	}
	if existing != nil && existing.Settleable() {
		return nil
	}
	snap, err := c.facts.MatchSnapshot(ctx, matchID)
	if err != nil {
		return fmt.Errorf("fetch match snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}
	synth, ok := snap.Facts()
	if !ok {
		c.log.Info("match not completed, nothing to force", zap.String("matchId", matchID))
		return nil
	}
	if err := c.facts.SaveMatchFacts(ctx, synth); err != nil {
		return fmt.Errorf("save synthesized facts: %w", err)
	}
	c.log.Info("synthesized final facts from match", zap.String("matchId", matchID))
	return nil
}

// ResolveWager força a resolução de uma única aposta com o mesmo avaliador
func (c *Coordinator) ResolveWager(ctx context.Context, wagerID string) (*Resolution, error) {
	w, err := c.store.GetWager(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.StatusPending {
		return nil, ErrWagerNotPending
	}

	ok, err := c.locker.Acquire(ctx, w.MatchID)
	if err != nil {
		return nil, fmt.Errorf("acquire resolution lock: %w", err)
	}
	if !ok {
		return nil, ErrResolutionInFlight
	}
	defer c.release(w.MatchID)

	res, err := c.settleWager(ctx, *w)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &Resolution{WagerID: w.ID, UserID: w.UserID, MatchID: w.MatchID, Status: domain.StatusPending}, nil
	}
	c.notifyAll(ctx, []Resolution{*res})
	return res, nil
}

func (c *Coordinator) settleWager(ctx context.Context, w domain.Wager) (*Resolution, error) {
	ctx, cancel := c.passContext(ctx)
	defer cancel()

	facts, err := c.finalFacts(ctx, w.MatchID)
	if err != nil || facts == nil {
		return nil, err
	}
	return c.settleOne(ctx, *facts, w)
}

// SweepStale força a resolução das partidas com apostas pendentes há mais de StaleAfter após o kickoff
func (c *Coordinator) SweepStale(ctx context.Context) ([]*Report, error) {
	cutoff := c.opts.Now().Add(-c.opts.StaleAfter)
	matchIDs, err := c.store.StalePendingMatches(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale matches: %w", err)
	}
	if len(matchIDs) == 0 {
		return nil, nil
	}
	c.log.Info("sweeping stale wagers", zap.Int("matches", len(matchIDs)), zap.Time("kickoffBefore", cutoff))

	var (
		g       errgroup.Group
		mu      sync.Mutex
		reports []*Report
	)
	g.SetLimit(c.opts.Parallelism)
	for _, id := range matchIDs {
		id := id
		g.Go(func() error {
			rep, err := c.ForceResolveMatch(ctx, id)
			if err != nil {
				c.log.Warn("stale sweep failed", zap.String("matchId", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].MatchID < reports[j].MatchID })
	return reports, nil
}

// RetryCredits repete prêmios e devoluções de stake cujo crédito falhou,
// sem reavaliar nem reescrever o status
func (c *Coordinator) RetryCredits(ctx context.Context) (int, error) {
	wagers, err := c.store.UncreditedPayouts(ctx, c.opts.CreditBatch)
	if err != nil {
		return 0, fmt.Errorf("list uncredited payouts: %w", err)
	}
	credited := 0
	for _, w := range wagers {
		if !w.AwaitingCredit() {
			continue
		}
		amount, ref := w.CreditDue()
		if c.credit(ctx, w, amount, ref) {
			credited++
		}
	}
	if credited > 0 {
		c.log.Info("credits retried", zap.Int("credited", credited), zap.Int("candidates", len(wagers)))
	}
	return credited, nil
}

// CancelWager cancela uma aposta ainda pendente e devolve a stake
func (c *Coordinator) CancelWager(ctx context.Context, wagerID string) error {
	w, err := c.store.GetWager(ctx, wagerID)
	if err != nil {
		return err
	}
	if w.Status != domain.StatusPending {
		return ErrWagerNotPending
	}
	now := c.opts.Now()
	applied, err := c.store.CancelPending(ctx, wagerID, now)
	if err != nil {
		return fmt.Errorf("cancel wager: %w", err)
	}
	if !applied {
		return ErrWagerNotPending
	}

	// falha na devolução fica com credited_at nulo e volta em RetryCredits
	if w.StakeCents > 0 {
		c.credit(ctx, *w, w.StakeCents, "cancel:"+w.ID)
	}
	c.notifyAll(ctx, []Resolution{{
		WagerID:     w.ID,
		UserID:      w.UserID,
		MatchID:     w.MatchID,
		Status:      domain.StatusCancelled,
		AmountCents: w.StakeCents,
		SettledAt:   now,
	}})
	return nil
}

// InFlight expõe o marcador de resolução em andamento
func (c *Coordinator) InFlight(ctx context.Context, matchID string) (bool, error) {
	return c.locker.InFlight(ctx, matchID)
}

// finalFacts busca o registro de resultado; sem ele, tenta sintetizar a partir da partida
func (c *Coordinator) finalFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error) {
	f, err := c.facts.MatchFacts(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch match facts: %w", err)
	}
	if f != nil && f.Settleable() {
		return f, nil
	}

	snap, err := c.facts.MatchSnapshot(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch match snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil
	}
	synth, ok := snap.Facts()
	if !ok {
		return nil, nil
	}
	return &synth, nil
}

func (c *Coordinator) settleAll(ctx context.Context, facts domain.MatchFacts, wagers []domain.Wager, rep *Report) {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(c.opts.Parallelism)

	for _, w := range wagers {
		w := w
		g.Go(func() error {
			res, err := c.settleOne(ctx, facts, w)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed++
			case res == nil:
				rep.Pending++
			default:
				rep.Resolutions = append(rep.Resolutions, *res)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(rep.Resolutions, func(i, j int) bool { return rep.Resolutions[i].WagerID < rep.Resolutions[j].WagerID })
}

// settleOne avalia e grava uma aposta. Retorna (nil, nil) quando ela continua pendente
// ou quando outra escrita já a tirou de PENDING.
func (c *Coordinator) settleOne(ctx context.Context, facts domain.MatchFacts, w domain.Wager) (*Resolution, error) {
	m := market.Normalize(w.Selection, w.BetType)
	out := outcome.Evaluate(m, facts.ForWager(w))
	if out == domain.OutcomePending {
		return nil, nil
	}

	amount := int64(0)
	if out == domain.OutcomeWon {
		amount = Payout(w.StakeCents, w.OddValue)
	}
	s := domain.Settlement{
		WagerID:     w.ID,
		Status:      out.Status(),
		IsFinal:     true,
		IsComplete:  true,
		AmountCents: amount,
		SettledAt:   c.opts.Now(),
	}

	applied, err := c.store.WriteSettlement(ctx, s)
	if err != nil {
		c.log.Error("write settlement failed",
			zap.String("betId", w.ID),
			zap.String("matchId", w.MatchID),
			zap.Error(err),
		)
		return nil, err
	}
	if !applied {
		c.log.Debug("wager no longer pending", zap.String("betId", w.ID))
		return nil, nil
	}
	if c.Hooks.OnSettled != nil {
		c.Hooks.OnSettled(s.Status)
	}

	res := &Resolution{
		WagerID:     w.ID,
		UserID:      w.UserID,
		MatchID:     w.MatchID,
		Status:      s.Status,
		AmountCents: amount,
		SettledAt:   s.SettledAt,
	}
	if out == domain.OutcomeWon && amount > 0 {
		res.Credited = c.credit(ctx, w, amount, "win:"+w.ID)
	}
	return res, nil
}

// credit só é chamado depois que a aposta está gravada como WON ou CANCELLED.
// A ref deduplica no ledger caso MarkCredited falhe e o crédito seja repetido.
func (c *Coordinator) credit(ctx context.Context, w domain.Wager, amount int64, ref string) bool {
	if err := c.ledger.Credit(ctx, w.UserID, amount, ref); err != nil {
		c.log.Error("ledger credit failed",
			zap.String("betId", w.ID),
			zap.String("ref", ref),
			zap.String("userId", w.UserID),
			zap.Int64("amountCents", amount),
			zap.Error(err),
		)
		if c.Hooks.OnCreditFailed != nil {
			c.Hooks.OnCreditFailed()
		}
		return false
	}
	if err := c.store.MarkCredited(ctx, w.ID, c.opts.Now()); err != nil {
		c.log.Warn("mark credited failed", zap.String("betId", w.ID), zap.Error(err))
	}
	return true
}

// notifyAll envia os avisos depois que a passada gravou tudo. O contexto é desligado do
// cancelamento do chamador e limitado por NotifyTimeout; um canal lento não atrasa escritas.
func (c *Coordinator) notifyAll(ctx context.Context, rs []Resolution) {
	if c.notify == nil || len(rs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.NotifyTimeout)
	defer cancel()
	for _, r := range rs {
		if err := c.notify.NotifySettlement(ctx, r.notice()); err != nil {
			c.log.Warn("settlement notification failed", zap.String("betId", r.WagerID), zap.Error(err))
		}
	}
}

// release usa contexto próprio: o lock é liberado mesmo se o contexto do chamador expirou
func (c *Coordinator) release(matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.locker.Release(ctx, matchID); err != nil {
		c.log.Error("release resolution lock", zap.String("matchId", matchID), zap.Error(err))
	}
}

func (c *Coordinator) passContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.ResolveTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.ResolveTimeout)
	}
	return context.WithCancel(ctx)
}

// Payout calcula stake x odd em centavos, arredondando meio centavo para cima
func Payout(stakeCents int64, odd float64) int64 {
	return decimal.NewFromInt(stakeCents).Mul(decimal.NewFromFloat(odd)).Round(0).IntPart()
}
