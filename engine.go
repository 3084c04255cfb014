package maumau

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/rules"
	"github.com/minaorangina/maumau/talon"
)

// outcome of offering one card
type outcome int

const (
	accepted outcome = iota
	rejected
	requiresRetry
	noCard
)

// Engine computes the turns of one round
type Engine struct {
	opts   Options
	log    *zap.Logger
	rules  rules.RuleSet
	talon  *talon.Talon
	events Events
	scores Scores

	players []player.Player
	cur     int
	turn    int
	gameID  int64

	underflow bool
	finished  bool
	waited    bool
	// seated players lost while somebody else had the turn
	gone  []*player.ConnLostError
	sleep func(ctx context.Context, d time.Duration)
}

func newEngine(opts Options, rs rules.RuleSet, ev Events, sc Scores, log *zap.Logger) *Engine {
	e := &Engine{
		opts:   opts,
		log:    log,
		rules:  rs,
		events: ev,
		scores: sc,
		sleep:  sleep,
	}
	e.talon = talon.New(opts.Decks, e)
	return e
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// TalonShuffled passes a reshuffle on to every player
func (e *Engine) TalonShuffled() {
	e.log.Debug("talon shuffled", zap.Int("turn", e.turn))
	for _, p := range e.players {
		if err := p.TalonShuffled(); err != nil {
			// picked up by the next liveness check
			e.log.Debug("shuffle notification failed", zap.String("player", p.Name()), zap.Error(err))
		}
	}
}

func (e *Engine) TalonEmpty(empty bool) {
	e.log.Info("talon empty", zap.Bool("empty", empty), zap.Int("turn", e.turn))
	if err := e.emit(e.events.TalonEmpty(empty)); err != nil {
		e.log.Warn("talon empty event failed", zap.Error(err))
	}
}

// Compute advances exactly one turn and reports whether the round goes on
func (e *Engine) Compute(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.finished || len(e.players) < 2 {
		e.finished = true
		return false, nil
	}

	if err := e.recover(e.nextTurn(ctx)); err != nil {
		return false, err
	}
	return !e.finished, nil
}

// recover handles lost connections. Every other error is returned.
func (e *Engine) recover(err error) error {
	var lost *player.ConnLostError
	if err == nil || !errors.As(err, &lost) {
		return err
	}

	idx := e.indexOf(lost.PlayerID)
	if lost.Watcher || idx < 0 {
		e.dropWatcher(lost)
		return nil
	}

	e.removeLost(idx, lost)
	return nil
}

// emit swallows lost watchers so that they never abandon a turn. A lost
// seated player other than the current one is removed before the next turn.
func (e *Engine) emit(err error) error {
	var lost *player.ConnLostError
	if !errors.As(err, &lost) {
		return err
	}

	idx := -1
	if lost.PlayerID != "" {
		idx = e.indexOf(lost.PlayerID)
	}
	switch {
	case lost.Watcher || idx < 0:
		e.dropWatcher(lost)
		return nil
	case idx != e.cur:
		e.log.Info("player lost while not on turn", zap.String("player", lost.Name), zap.Error(lost.Err))
		e.gone = append(e.gone, lost)
		return nil
	}
	return err
}

// removeGone removes the players lost by emit
func (e *Engine) removeGone() {
	for len(e.gone) > 0 && !e.finished {
		lost := e.gone[0]
		e.gone = e.gone[1:]
		if idx := e.indexOf(lost.PlayerID); idx >= 0 {
			e.removeLost(idx, lost)
		}
	}
	e.gone = nil
}

func (e *Engine) dropWatcher(lost *player.ConnLostError) {
	e.log.Info("watcher lost", zap.String("player", lost.Name), zap.Error(lost.Err))
	if lost.Conn != nil {
		_ = lost.Conn.Close()
	}

	msg := "a watcher left"
	if lost.Name != "" {
		msg = fmt.Sprintf("watcher %s left", lost.Name)
	}
	if err := e.events.Info(msg); err != nil {
		e.log.Debug("info event failed", zap.Error(err))
	}
}

func (e *Engine) removeLost(idx int, lost *player.ConnLostError) {
	p := e.players[idx]
	e.log.Warn("player lost", zap.String("player", p.Name()), zap.Int("turn", e.turn), zap.Error(lost.Err))

	if e.rules.IsAceRound() && idx == e.cur {
		_ = e.rules.EndAceRound(p)
	}

	e.talon.Bury(p.Cards())
	p.Reset()
	_ = p.Close()
	if lost.Conn != nil && lost.Conn != p {
		_ = lost.Conn.Close()
	}

	e.removeAt(idx)

	msg := "a player left the game"
	if p.Name() != "" {
		msg = fmt.Sprintf("%s left the game", p.Name())
	}
	if err := e.emit(e.events.Error(msg)); err != nil {
		e.log.Debug("error event failed", zap.Error(err))
	}

	if len(e.players) < 2 {
		e.finished = true
		return
	}
	e.twoPlayersLeft()
	if err := e.emit(e.events.NextPlayer(e.players[e.cur])); err != nil {
		e.log.Debug("next player event failed", zap.Error(err))
	}
}

func (e *Engine) removeAt(idx int) {
	e.players = append(e.players[:idx], e.players[idx+1:]...)
	if idx < e.cur {
		e.cur--
	}
	if e.cur >= len(e.players) {
		e.cur = 0
	}
	e.rules.SetCurPlayers(len(e.players))
}

// twoPlayersLeft turns direction changes into suspends
func (e *Engine) twoPlayersLeft() {
	if len(e.players) != 2 || !e.rules.DirChangeEnabled() || e.rules.DirChangeIsSuspend() {
		return
	}
	e.rules.SetDirChangeIsSuspend(true)
	for _, p := range e.players {
		if err := p.SetNineIsSuspend(true); err != nil {
			e.log.Debug("nine is suspend notification failed", zap.String("player", p.Name()), zap.Error(err))
		}
	}
}

func (e *Engine) indexOf(id string) int {
	for i, p := range e.players {
		if p.ID() == id {
			return i
		}
	}
	return -1
}

func (e *Engine) checkAlive() error {
	for _, p := range e.players {
		if !p.IsAlive() {
			return &player.ConnLostError{PlayerID: p.ID(), Name: p.Name(), Conn: p, Err: player.ErrConnClosed}
		}
	}
	return nil
}

func (e *Engine) checkUnderflow() {
	u := e.talon.ThresholdReached(e.opts.UnderflowThreshold)
	if u == e.underflow {
		return
	}
	e.underflow = u
	e.log.Info("talon underflow", zap.Bool("underflow", u), zap.Int("turn", e.turn))
	if u {
		if err := e.emit(e.events.Info("the talon is running out, suspending is allowed")); err != nil {
			e.log.Debug("info event failed", zap.Error(err))
		}
	}
}

// begin uncovers the first card and lets the rules react to it
func (e *Engine) begin(ctx context.Context) error {
	c, err := e.talon.UncoverCard()
	if err != nil {
		return err
	}
	if err := e.emit(e.events.UncoveredCard(c)); err != nil {
		return err
	}

	e.turn = 1
	e.checkUnderflow()
	if err := e.emit(e.events.Turn(e.turn)); err != nil {
		return err
	}

	e.rules.SetCurPlayers(len(e.players))
	for _, p := range e.players {
		if err := e.emit(p.SetDirChangeEnabled(e.rules.DirChangeEnabled())); err != nil {
			return err
		}
	}
	e.twoPlayersLeft()

	first := e.players[e.cur]
	if err := e.rules.CheckInitial(ctx, first, c); err != nil {
		return err
	}
	if e.rules.IsJackMode() {
		if err := e.emit(e.events.PlayerChooseJackSuit(first, e.rules.JackSuit())); err != nil {
			return err
		}
	}
	return e.emit(e.events.NextPlayer(first))
}

func (e *Engine) nextTurn(ctx context.Context) error {
	if e.removeGone(); e.finished {
		return nil
	}
	if err := e.checkAlive(); err != nil {
		return err
	}

	e.waited = false
	p := e.players[e.cur]

	var (
		won, suspended bool
		last           deck.Card
		err            error
	)
	if e.rules.HasToSuspend() {
		e.rules.HasSuspended()
		suspended = true
		if err := e.emit(e.events.PlayerSuspends(p)); err != nil {
			return err
		}
	} else {
		won, suspended, last, err = e.playTurn(ctx, p)
		if err != nil {
			return err
		}
	}

	if won {
		return e.handleWinner(ctx, p)
	}

	if e.rules.IsAceRound() {
		return nil
	}

	if err := e.rotate(p, last); err != nil {
		return err
	}
	e.paceEndOfTurn(ctx, p, suspended)
	return nil
}

func (e *Engine) request() player.Request {
	uncovered, _ := e.talon.Uncovered()
	req := player.Request{
		Uncovered:    uncovered,
		JackSuit:     deck.IllegalSuit,
		TakeCount:    e.rules.TakeCount(),
		NoSuspend:    !e.underflow,
		AceRoundRank: deck.IllegalRank,
		AceRound:     e.rules.IsAceRound(),
	}
	if e.rules.IsJackMode() {
		req.JackSuit = e.rules.JackSuit()
	}
	if e.rules.IsAceRoundPossible() {
		req.AceRoundRank = e.rules.AceRoundRank()
	}
	return req
}

func (e *Engine) classify(ctx context.Context, p player.Player, c deck.Card, offered bool) (outcome, error) {
	if !offered || c.IsIllegal() {
		if e.rules.TakeCount() > 0 && !e.rules.IsAceRound() {
			return requiresRetry, nil
		}
		if !offered {
			return noCard, nil
		}
		return rejected, nil
	}

	uncovered, _ := e.talon.Uncovered()
	ok, err := e.rules.CheckCard(ctx, p, uncovered, c, p.IsAI())
	if err != nil {
		return rejected, err
	}
	if ok {
		return accepted, nil
	}
	return rejected, nil
}

// playTurn requests cards from p until one is accepted or the turn ends
// without a card. last is the card p played, if any.
func (e *Engine) playTurn(ctx context.Context, p player.Player) (won, suspended bool, last deck.Card, err error) {
	var (
		rejections int
		took, drew bool
	)
	last = deck.IllegalCard

	for {
		c, offered, err := p.RequestCard(ctx, e.request())
		if err != nil {
			return false, false, last, err
		}

		wasJackMode := e.rules.IsJackMode()
		res, err := e.classify(ctx, p, c, offered)
		if err != nil {
			return false, false, last, err
		}

		forceNoMatch := false
		switch res {
		case accepted:
			won, err := e.accept(ctx, p, c, wasJackMode)
			return won, false, c, err

		case rejected:
			if err := e.emit(e.events.CardRejected(p, c)); err != nil {
				return false, false, last, err
			}
			rejections++
			if rejections < e.opts.MaxRejections {
				continue
			}
			rejections = 0
			forceNoMatch = true

		case requiresRetry:
			if err := e.takeSevens(p, e.rules.TakeCards(c)); err != nil {
				return false, false, last, err
			}
			took = true
			continue
		}

		// no card
		if e.rules.IsAceRound() {
			return false, false, last, e.rules.EndAceRound(p)
		}

		reason := player.NoMatch
		if !forceNoMatch {
			uncovered, _ := e.talon.Uncovered()
			reason = p.NoCardReason(uncovered, e.request().JackSuit)
		}

		switch {
		case reason == player.MauMau:
			return true, false, last, nil
		case reason == player.Suspend && e.underflow, drew, took:
			return false, true, last, e.emit(e.events.PlayerSuspends(p))
		}

		drawn, ok := e.talon.TakeCard()
		if !ok {
			return false, true, last, e.emit(e.events.PlayerSuspends(p))
		}
		if err := p.ReceiveCard(drawn); err != nil {
			return false, false, last, err
		}
		drew = true
		e.checkUnderflow()
		if err := e.emit(e.events.PlayerPicksCard(p)); err != nil {
			return false, false, last, err
		}
	}
}

// takeSevens hands the pending seven penalty to p
func (e *Engine) takeSevens(p player.Player, n int) error {
	taken, err := e.takeCards(p, n)
	e.rules.HasTakenCards()
	if err != nil {
		return err
	}
	return e.emit(e.events.PlayerPicksCards(p, taken))
}

// takeCards draws up to n cards for p
func (e *Engine) takeCards(p player.Player, n int) (int, error) {
	taken := 0
	for ; taken < n; taken++ {
		c, ok := e.talon.TakeCard()
		if !ok {
			break
		}
		if err := p.ReceiveCard(c); err != nil {
			return taken + 1, err
		}
	}
	e.checkUnderflow()
	return taken, nil
}

func (e *Engine) accept(ctx context.Context, p player.Player, c deck.Card, wasJackMode bool) (bool, error) {
	if wasJackMode {
		e.rules.SetJackModeOff()
	}

	empty, err := p.CardAccepted(c)
	if err != nil {
		return false, err
	}
	e.talon.PlayCard(c)
	e.checkUnderflow()
	e.log.Debug("card played", zap.String("player", p.Name()), zap.Stringer("card", c), zap.Int("turn", e.turn))

	if err := e.emit(e.events.PlayerPlaysCard(p, c)); err != nil {
		return false, err
	}
	if c.Rank == deck.Jack && e.rules.IsJackMode() {
		if err := e.emit(e.events.PlayerChooseJackSuit(p, e.rules.JackSuit())); err != nil {
			return false, err
		}
	}
	if empty {
		return true, nil
	}

	if e.rules.HasDirChange() {
		if err := e.changeDirection(p); err != nil {
			return false, err
		}
	}

	if e.rules.HasToSuspend() && p.IsAI() {
		e.aiWait(ctx)
	}
	return false, nil
}

// changeDirection reverses the rotation around p. Reversing two players
// changes nothing, so with two players nines suspend from now on.
func (e *Engine) changeDirection(p player.Player) error {
	e.rules.DirChanged()

	if len(e.players) < 3 {
		e.twoPlayersLeft()
		return nil
	}

	for i, j := 0, len(e.players)-1; i < j; i, j = i+1, j-1 {
		e.players[i], e.players[j] = e.players[j], e.players[i]
	}
	e.cur = e.indexOf(p.ID())
	return e.emit(e.events.DirectionChange())
}

// rotate hands the turn to the next player
func (e *Engine) rotate(prev player.Player, last deck.Card) error {
	e.cur = (e.cur + 1) % len(e.players)
	if e.cur == 0 {
		if err := e.nextRound(); err != nil {
			return err
		}
	}

	next := e.players[e.cur]
	stats := player.NeighbourStats{CardCount: prev.CardCount(), Suit: last.Suit, Rank: last.Rank}
	if err := next.SetNeighbourStats(stats); err != nil {
		return err
	}
	return e.emit(e.events.NextPlayer(next))
}

func (e *Engine) nextRound() error {
	e.turn++
	if err := e.scores.Turn(context.Background(), e.gameID, e.turn); err != nil {
		e.log.Warn("cannot store turn", zap.Int64("game_id", e.gameID), zap.Error(err))
	}
	return e.emit(e.events.Turn(e.turn))
}

func (e *Engine) handleWinner(ctx context.Context, p player.Player) error {
	e.log.Info("player wins", zap.String("player", p.Name()), zap.Int("turn", e.turn))

	if e.rules.IsAceRound() {
		if err := e.rules.EndAceRound(p); err != nil {
			return err
		}
	}

	wrapped := e.cur == len(e.players)-1
	e.removeAt(e.cur)

	if err := e.emit(e.events.PlayerWins(p, e.turn, e.opts.Ultimate)); err != nil {
		return err
	}
	if err := e.scores.PlayerWins(ctx, e.gameID, p.Name()); err != nil {
		e.log.Warn("cannot store win", zap.Int64("game_id", e.gameID), zap.Error(err))
	}

	if !e.opts.Ultimate || len(e.players) < 2 {
		e.finished = true
		return e.playersLost(ctx)
	}

	if wrapped {
		if err := e.nextRound(); err != nil {
			return err
		}
	}
	e.twoPlayersLeft()
	return e.emit(e.events.NextPlayer(e.players[e.cur]))
}

// playersLost scores everybody still holding cards
func (e *Engine) playersLost(ctx context.Context) error {
	if len(e.players) == 0 {
		return nil
	}

	if e.opts.LoserTakesSevens && e.rules.TakeCount() > 0 {
		if err := e.takeSevens(e.players[e.cur], e.rules.TakeCount()); err != nil {
			return err
		}
	}

	uncovered, _ := e.talon.Uncovered()
	factor, err := e.rules.LostPointFactor(uncovered)
	if err != nil {
		return err
	}
	for _, q := range e.players {
		points := deck.Deck(q.Cards()).Points() * factor
		e.log.Info("player lost", zap.String("player", q.Name()), zap.Int("points", points))

		if err := e.emit(e.events.PlayerLost(q, e.turn, points)); err != nil {
			return err
		}
		if err := e.scores.PlayerLost(ctx, e.gameID, q.Name(), time.Now(), points); err != nil {
			e.log.Warn("cannot store loss", zap.Int64("game_id", e.gameID), zap.Error(err))
		}
	}
	return nil
}

// paceEndOfTurn gives humans time to follow an AI's turn
func (e *Engine) paceEndOfTurn(ctx context.Context, prev player.Player, suspended bool) {
	if !prev.IsAI() {
		return
	}

	allAI := true
	for _, p := range e.players {
		if !p.IsAI() {
			allAI = false
			break
		}
	}

	if allAI || (len(e.players) == 2 && suspended) || e.opts.AlwaysWait {
		e.aiWait(ctx)
	}
}

func (e *Engine) aiWait(ctx context.Context) {
	if e.waited || e.opts.AIDelay <= 0 {
		return
	}
	e.waited = true
	e.sleep(ctx, e.opts.AIDelay)
}

// reset prepares the engine for a new round
func (e *Engine) reset() {
	for _, p := range e.players {
		p.Reset()
	}
	e.players = nil
	e.cur = 0
	e.turn = 0
	e.gameID = 0
	e.underflow = false
	e.finished = false
	e.waited = false
	e.gone = nil
	e.rules.Reset()
	e.talon.Reset()
}
