package maumau

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/rules"
	"github.com/minaorangina/maumau/talon"
)

func card(code string) deck.Card {
	c, err := deck.ParseCard(code)
	if err != nil {
		panic(err)
	}
	return c
}

type answer struct {
	card    deck.Card
	offered bool
	err     error
}

func play(code string) answer { return answer{card: card(code), offered: true} }

func noAnswer() answer { return answer{card: deck.IllegalCard} }

// fakePlayer plays the first legal card unless answers are queued
type fakePlayer struct {
	id, name string
	ai       bool
	hand     player.Hand

	answers   []answer
	suit      deck.Suit
	jackErr   error
	ace       []bool
	reason    player.NoCardReason
	hasReason bool
	dead      bool

	requests      []player.Request
	neighbour     player.NeighbourStats
	nineIsSuspend bool
	dirChange     bool
	shuffles      int
	closed        int
	resets        int
}

func newFake(name string) *fakePlayer {
	return &fakePlayer{id: "id-" + name, name: name, suit: deck.IllegalSuit}
}

func newFakeAI(name string) *fakePlayer {
	p := newFake(name)
	p.ai = true
	return p
}

func (p *fakePlayer) ID() string { return p.id }
func (p *fakePlayer) Name() string { return p.name }
func (p *fakePlayer) IsAI() bool { return p.ai }
func (p *fakePlayer) IsAlive() bool { return !p.dead }

func (p *fakePlayer) RequestCard(ctx context.Context, req player.Request) (deck.Card, bool, error) {
	p.requests = append(p.requests, req)
	if len(p.answers) > 0 {
		a := p.answers[0]
		p.answers = p.answers[1:]
		return a.card, a.offered, a.err
	}
	if cs := p.hand.Playable(req); len(cs) > 0 {
		return cs[0], true, nil
	}
	return deck.IllegalCard, false, nil
}

func (p *fakePlayer) JackChoice(ctx context.Context, uncovered, played deck.Card) (deck.Suit, error) {
	return p.suit, p.jackErr
}

func (p *fakePlayer) AceRoundChoice(ctx context.Context) (bool, error) {
	if len(p.ace) == 0 {
		return false, nil
	}
	a := p.ace[0]
	p.ace = p.ace[1:]
	return a, nil
}

func (p *fakePlayer) CardAccepted(c deck.Card) (bool, error) {
	p.hand.Remove(c)
	return p.hand.Len() == 0, nil
}

func (p *fakePlayer) NoCardReason(uncovered deck.Card, jackSuit deck.Suit) player.NoCardReason {
	if p.hand.Len() == 0 {
		return player.MauMau
	}
	if p.hasReason {
		return p.reason
	}
	return player.NoMatch
}

func (p *fakePlayer) CardCount() int { return p.hand.Len() }
func (p *fakePlayer) Cards() []deck.Card { return p.hand.Cards() }

func (p *fakePlayer) ReceiveCard(c deck.Card) error {
	p.hand.Add(c)
	return nil
}

func (p *fakePlayer) TalonShuffled() error {
	p.shuffles++
	return nil
}

func (p *fakePlayer) SetNeighbourStats(s player.NeighbourStats) error {
	p.neighbour = s
	return nil
}

func (p *fakePlayer) SetNineIsSuspend(b bool) error {
	p.nineIsSuspend = b
	return nil
}

func (p *fakePlayer) SetDirChangeEnabled(b bool) error {
	p.dirChange = b
	return nil
}

func (p *fakePlayer) Reset() {
	p.hand.Clear()
	p.resets++
}

func (p *fakePlayer) Close() error {
	p.closed++
	return nil
}

// recorder keeps every event as a short line
type recorder struct {
	lines []string
	fail  map[string]error
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]error{}}
}

func (r *recorder) add(name string, args ...string) error {
	r.lines = append(r.lines, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if err, ok := r.fail[name]; ok {
		delete(r.fail, name)
		return err
	}
	return nil
}

func (r *recorder) count(line string) int {
	n := 0
	for _, l := range r.lines {
		if l == line {
			n++
		}
	}
	return n
}

func (r *recorder) AceRoundStarted(p rules.Chooser) error { return r.add("ace_started", p.Name()) }
func (r *recorder) AceRoundEnded(p rules.Chooser) error { return r.add("ace_ended", p.Name()) }
func (r *recorder) UncoveredCard(c deck.Card) error { return r.add("uncovered", c.Code()) }
func (r *recorder) TalonEmpty(empty bool) error { return r.add("talon_empty", strconv.FormatBool(empty)) }
func (r *recorder) Turn(n int) error { return r.add("turn", strconv.Itoa(n)) }
func (r *recorder) PlayerPicksCard(p player.Player) error { return r.add("picks_card", p.Name()) }
func (r *recorder) PlayerSuspends(p player.Player) error { return r.add("suspends", p.Name()) }
func (r *recorder) NextPlayer(p player.Player) error { return r.add("next", p.Name()) }
func (r *recorder) DirectionChange() error { return r.add("direction") }
func (r *recorder) Error(msg string) error { return r.add("error", msg) }
func (r *recorder) Info(msg string) error { return r.add("info", msg) }

func (r *recorder) PlayerPicksCards(p player.Player, n int) error {
	return r.add("picks_cards", p.Name(), strconv.Itoa(n))
}

func (r *recorder) PlayerPlaysCard(p player.Player, c deck.Card) error {
	return r.add("plays", p.Name(), c.Code())
}

func (r *recorder) CardRejected(p player.Player, c deck.Card) error {
	return r.add("rejected", p.Name(), c.Code())
}

func (r *recorder) PlayerChooseJackSuit(p player.Player, s deck.Suit) error {
	return r.add("jack", p.Name(), s.String())
}

func (r *recorder) PlayerWins(p player.Player, turn int, ultimate bool) error {
	return r.add("wins", p.Name())
}

func (r *recorder) PlayerLost(p player.Player, turn, points int) error {
	return r.add("lost", p.Name(), strconv.Itoa(points))
}

type fakeScores struct {
	games  int64
	wins   []string
	losses map[string]int
	turns  []int
	ended  []int64
}

func newFakeScores() *fakeScores {
	return &fakeScores{losses: map[string]int{}}
}

func (s *fakeScores) NewGame(ctx context.Context) (int64, error) {
	s.games++
	return s.games, nil
}

func (s *fakeScores) PlayerWins(ctx context.Context, gameID int64, name string) error {
	s.wins = append(s.wins, name)
	return nil
}

func (s *fakeScores) PlayerLost(ctx context.Context, gameID int64, name string, at time.Time, points int) error {
	s.losses[name] = points
	return nil
}

func (s *fakeScores) GameEnded(ctx context.Context, gameID int64) error {
	s.ended = append(s.ended, gameID)
	return nil
}

func (s *fakeScores) Turn(ctx context.Context, gameID int64, n int) error {
	s.turns = append(s.turns, n)
	return nil
}

// layout stacks cards so that dealing hands one card per player per round
// gives every player its hand, followed by the uncovered card and the draw
// pile from the top down
func layout(hands [][]string, uncovered string, draw ...string) []deck.Card {
	var popped []string
	for i := range hands[0] {
		for _, h := range hands {
			popped = append(popped, h[i])
		}
	}
	popped = append(popped, uncovered)
	popped = append(popped, draw...)

	cards := make([]deck.Card, len(popped))
	for i, c := range popped {
		cards[len(popped)-1-i] = card(c)
	}
	return cards
}

type table struct {
	session *Session
	events  *recorder
	scores  *fakeScores
	rules   *rules.StdRuleSet
	players []*fakePlayer
	total   int
}

type tableSetup struct {
	opts      Options
	rules     rules.Options
	hands     [][]string
	uncovered string
	draw      []string
}

func newTable(t *testing.T, setup tableSetup, players ...*fakePlayer) *table {
	t.Helper()

	setup.opts.InitialCards = len(setup.hands[0])
	rec := newRecorder()
	sc := newFakeScores()
	rs := rules.NewStdRuleSet(setup.rules, rec)

	s := NewSession(setup.opts, rs, rec, sc, zaptest.NewLogger(t))
	cards := layout(setup.hands, setup.uncovered, setup.draw...)
	s.engine.talon = talon.NewWithCards(cards, s.engine)

	for _, p := range players {
		if err := s.AddPlayer(p); err != nil {
			t.Fatalf("cannot seat %s: %v", p.name, err)
		}
	}
	if err := s.Distribute(context.Background()); err != nil {
		t.Fatalf("cannot distribute: %v", err)
	}

	return &table{session: s, events: rec, scores: sc, rules: rs, players: players, total: len(cards)}
}

func (tb *table) compute(t *testing.T) bool {
	t.Helper()
	more, err := tb.session.Compute(context.Background())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return more
}

func (tb *table) current() string {
	p, ok := tb.session.Current()
	if !ok {
		return ""
	}
	return p.Name()
}

// cardsInGame counts every card the talon and the seated players hold
func (tb *table) cardsInGame() int {
	e := tb.session.engine
	n := e.talon.DrawCount() + e.talon.DiscardCount()
	for _, p := range e.players {
		n += p.CardCount()
	}
	return n
}

func names(ps []player.Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func lostConn(p *fakePlayer) error {
	return &player.ConnLostError{PlayerID: p.id, Name: p.name, Conn: p, Err: fmt.Errorf("broken pipe")}
}
