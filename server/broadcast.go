package server

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/protocol"
	"github.com/minaorangina/maumau/rules"
)

// PlayerStatus is one seat on the status page
type PlayerStatus struct {
	Name   string `json:"name"`
	AI     bool   `json:"ai"`
	Cards  int    `json:"cards"`
	Result string `json:"result,omitempty"`
	Points int    `json:"points,omitempty"`
}

// Status is a snapshot of the table
type Status struct {
	State     string         `json:"state"`
	Round     int            `json:"round"`
	Turn      int            `json:"turn"`
	Uncovered string         `json:"uncovered,omitempty"`
	Current   string         `json:"current,omitempty"`
	Players   []PlayerStatus `json:"players"`
	Watchers  int            `json:"watchers"`
	// Waiting counts the players queued for the next round
	Waiting int `json:"waiting"`
}

type peer struct {
	id      string
	name    string
	watcher bool
	conn    player.Conn
}

type connector interface {
	Conn() player.Conn
}

// Broadcaster sends every round event to the seated remote players and to
// the watchers, and keeps a snapshot of the table for the status page.
// Event methods are called from the goroutine running the round.
type Broadcaster struct {
	log *zap.Logger

	mu     sync.Mutex
	peers  []*peer
	roster []player.Player
	status Status
}

func NewBroadcaster(log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{log: log, status: Status{State: "waiting", Players: []PlayerStatus{}}}
}

// AddWatcher lets conn follow the rounds
func (b *Broadcaster) AddWatcher(id, name string, conn player.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.peers = append(b.peers, &peer{id: id, name: name, watcher: true, conn: conn})
	b.status.Watchers = b.watchers()
	b.log.Info("watcher joined", zap.String("player", name), zap.String("remote", conn.RemoteAddr()))
}

func (b *Broadcaster) watchers() int {
	n := 0
	for _, p := range b.peers {
		if p.watcher {
			n++
		}
	}
	return n
}

// Seat replaces the players of the previous round
func (b *Broadcaster) Seat(round int, ps []player.Player) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.peers[:0]
	for _, p := range b.peers {
		if p.watcher {
			kept = append(kept, p)
		}
	}
	b.peers = kept

	b.roster = ps
	b.status = Status{State: "waiting", Round: round, Watchers: b.watchers(), Players: make([]PlayerStatus, len(ps))}
	for i, p := range ps {
		b.status.Players[i] = PlayerStatus{Name: p.Name(), AI: p.IsAI(), Cards: p.CardCount()}
		if c, ok := p.(connector); ok {
			b.peers = append(b.peers, &peer{id: p.ID(), name: p.Name(), conn: c.Conn()})
		}
	}
}

func (b *Broadcaster) SetState(state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.State = state
}

// Status returns a copy of the snapshot
func (b *Broadcaster) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.status
	st.Players = make([]PlayerStatus, len(b.status.Players))
	copy(st.Players, b.status.Players)
	return st
}

// GameOver tells everybody the round is over
func (b *Broadcaster) GameOver() error {
	return b.send(protocol.New(protocol.GameOver), nil)
}

// Close closes every watcher
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.peers {
		if p.watcher {
			p.conn.Close()
		}
	}
	b.peers = nil
	b.status.Watchers = 0
}

// send writes m to every peer and then applies f to the snapshot.
// Peers that went away are dropped. A failed write is reported as a lost
// connection, a seated player taking precedence over a watcher.
func (b *Broadcaster) send(m protocol.Message, f func(st *Status)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	line := m.String()
	var lostPlayer, lostWatcher error
	kept := b.peers[:0]
	for _, p := range b.peers {
		// seated players are closed by the engine, which also notices
		// when they vanish
		if !p.conn.Alive() {
			if p.watcher && lostWatcher == nil {
				lostWatcher = &player.ConnLostError{PlayerID: p.id, Name: p.name, Watcher: true, Conn: p.conn, Err: ErrClosed}
			}
			continue
		}
		if err := p.conn.WriteLine(line); err != nil {
			lost := &player.ConnLostError{PlayerID: p.id, Name: p.name, Watcher: p.watcher, Conn: p.conn, Err: err}
			if p.watcher && lostWatcher == nil {
				lostWatcher = lost
			} else if !p.watcher && lostPlayer == nil {
				lostPlayer = lost
			}
			continue
		}
		kept = append(kept, p)
	}
	b.peers = kept
	b.status.Watchers = b.watchers()

	if f != nil {
		f(&b.status)
	}
	b.refresh()

	if lostPlayer != nil {
		return lostPlayer
	}
	return lostWatcher
}

func (b *Broadcaster) refresh() {
	for i, p := range b.roster {
		if i < len(b.status.Players) {
			b.status.Players[i].Cards = p.CardCount()
		}
	}
}

func (b *Broadcaster) seat(name string) *PlayerStatus {
	for i := range b.status.Players {
		if b.status.Players[i].Name == name && b.status.Players[i].Result == "" {
			return &b.status.Players[i]
		}
	}
	return nil
}

func (b *Broadcaster) AceRoundStarted(p rules.Chooser) error {
	return b.send(protocol.New(protocol.AceRoundStarted, p.Name()), nil)
}

func (b *Broadcaster) AceRoundEnded(p rules.Chooser) error {
	return b.send(protocol.New(protocol.AceRoundEnded, p.Name()), nil)
}

func (b *Broadcaster) UncoveredCard(c deck.Card) error {
	return b.send(protocol.New(protocol.Uncovered, c.Code()), func(st *Status) {
		st.Uncovered = c.Code()
	})
}

func (b *Broadcaster) TalonEmpty(empty bool) error {
	return b.send(protocol.NewFlag(protocol.TalonEmpty, empty), nil)
}

func (b *Broadcaster) Turn(n int) error {
	return b.send(protocol.New(protocol.Turn, strconv.Itoa(n)), func(st *Status) {
		st.Turn = n
	})
}

func (b *Broadcaster) PlayerPicksCard(p player.Player) error {
	return b.send(protocol.New(protocol.PicksCard, p.Name()), nil)
}

func (b *Broadcaster) PlayerPicksCards(p player.Player, n int) error {
	return b.send(protocol.New(protocol.PicksCards, p.Name(), strconv.Itoa(n)), nil)
}

func (b *Broadcaster) PlayerSuspends(p player.Player) error {
	return b.send(protocol.New(protocol.Suspends, p.Name()), nil)
}

func (b *Broadcaster) PlayerPlaysCard(p player.Player, c deck.Card) error {
	return b.send(protocol.New(protocol.PlaysCard, p.Name(), c.Code()), func(st *Status) {
		st.Uncovered = c.Code()
	})
}

func (b *Broadcaster) CardRejected(p player.Player, c deck.Card) error {
	return b.send(protocol.New(protocol.CardRejected, p.Name(), c.Code()), nil)
}

func (b *Broadcaster) PlayerChooseJackSuit(p player.Player, s deck.Suit) error {
	return b.send(protocol.New(protocol.JackSuit, p.Name(), strings.ToUpper(s.String())), nil)
}

func (b *Broadcaster) PlayerWins(p player.Player, turn int, ultimate bool) error {
	m := protocol.New(protocol.Wins, p.Name(), strconv.Itoa(turn), protocol.Flag(ultimate))
	return b.send(m, func(st *Status) {
		if seat := b.seat(p.Name()); seat != nil {
			seat.Result = "won"
		}
	})
}

func (b *Broadcaster) PlayerLost(p player.Player, turn, points int) error {
	m := protocol.New(protocol.Lost, p.Name(), strconv.Itoa(turn), strconv.Itoa(points))
	return b.send(m, func(st *Status) {
		if seat := b.seat(p.Name()); seat != nil {
			seat.Result = "lost"
			seat.Points = points
		}
	})
}

func (b *Broadcaster) NextPlayer(p player.Player) error {
	return b.send(protocol.New(protocol.NextPlayer, p.Name()), func(st *Status) {
		st.Current = p.Name()
	})
}

func (b *Broadcaster) DirectionChange() error {
	return b.send(protocol.New(protocol.DirectionChange), nil)
}

func (b *Broadcaster) Error(msg string) error {
	return b.send(protocol.NewText(protocol.Error, msg), nil)
}

func (b *Broadcaster) Info(msg string) error {
	return b.send(protocol.NewText(protocol.Info, msg), nil)
}
