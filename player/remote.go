package player

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/protocol"
)

var ErrUnexpectedAnswer = errors.New("unexpected answer")

// RemotePlayer is a human on the other end of a line connection
type RemotePlayer struct {
	id      string
	name    string
	conn    Conn
	timeout time.Duration

	mu         sync.Mutex
	hand       Hand
	lastReason NoCardReason
	closed     bool
}

// NewRemotePlayer wraps conn. timeout bounds every answer, zero waits forever.
func NewRemotePlayer(id, name string, conn Conn, timeout time.Duration) *RemotePlayer {
	if id == "" {
		id = NewID()
	}
	return &RemotePlayer{id: id, name: name, conn: conn, timeout: timeout, lastReason: NoMatch}
}

func (p *RemotePlayer) ID() string { return p.id }
func (p *RemotePlayer) Name() string { return p.name }
func (p *RemotePlayer) IsAI() bool { return false }

func (p *RemotePlayer) IsAlive() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	return !closed && p.conn.Alive()
}

// Conn exposes the underlying connection
func (p *RemotePlayer) Conn() Conn { return p.conn }

func (p *RemotePlayer) lost(err error) error {
	return &ConnLostError{PlayerID: p.id, Name: p.name, Conn: p.conn, Err: err}
}

func (p *RemotePlayer) send(m protocol.Message) error {
	if err := p.conn.WriteLine(m.String()); err != nil {
		return p.lost(err)
	}
	return nil
}

// ask sends m and reads one answer, skipping blank lines
func (p *RemotePlayer) ask(ctx context.Context, m protocol.Message) (protocol.Message, error) {
	if err := p.send(m); err != nil {
		return protocol.Message{}, err
	}

	for {
		line, err := p.conn.ReadLine(ctx, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return protocol.Message{}, ctx.Err()
			}
			return protocol.Message{}, p.lost(err)
		}

		answer, err := protocol.Parse(line)
		if errors.Is(err, protocol.ErrEmptyLine) {
			continue
		}
		if err != nil {
			return protocol.Message{}, p.lost(err)
		}
		return answer, nil
	}
}

func (p *RemotePlayer) RequestCard(ctx context.Context, req Request) (deck.Card, bool, error) {
	m := protocol.NewCardRequest(req.Uncovered, req.JackSuit, req.TakeCount, req.NoSuspend)
	answer, err := p.ask(ctx, m)
	if err != nil {
		return deck.IllegalCard, false, err
	}

	switch answer.Cmd {
	case protocol.Play:
		c, err := answer.CardArg(0)
		if err != nil {
			return deck.IllegalCard, false, p.lost(err)
		}
		p.mu.Lock()
		held := p.hand.Has(c)
		p.mu.Unlock()
		if !held {
			return deck.IllegalCard, true, nil
		}
		return c, true, nil
	case protocol.Take:
		return deck.IllegalCard, true, nil
	case protocol.Suspend:
		p.setReason(Suspend)
		return deck.IllegalCard, false, nil
	case protocol.Draw:
		p.setReason(NoMatch)
		return deck.IllegalCard, false, nil
	}
	return deck.IllegalCard, false, p.lost(fmt.Errorf("%w: %s to %s", ErrUnexpectedAnswer, answer.Cmd, m.Cmd))
}

func (p *RemotePlayer) setReason(r NoCardReason) {
	p.mu.Lock()
	p.lastReason = r
	p.mu.Unlock()
}

func (p *RemotePlayer) JackChoice(ctx context.Context, uncovered, played deck.Card) (deck.Suit, error) {
	m := protocol.NewJackRequest(uncovered, played)
	answer, err := p.ask(ctx, m)
	if err != nil {
		return deck.IllegalSuit, err
	}
	if answer.Cmd != protocol.Suit {
		return deck.IllegalSuit, p.lost(fmt.Errorf("%w: %s to %s", ErrUnexpectedAnswer, answer.Cmd, m.Cmd))
	}

	name, err := answer.Arg(0)
	if err != nil {
		return deck.IllegalSuit, p.lost(err)
	}
	suit, err := deck.ParseSuit(name)
	if err != nil {
		// the rules fall back to the jack's own suit
		return deck.IllegalSuit, nil
	}
	return suit, nil
}

func (p *RemotePlayer) AceRoundChoice(ctx context.Context) (bool, error) {
	m := protocol.New(protocol.AceRoundRequest)
	answer, err := p.ask(ctx, m)
	if err != nil {
		return false, err
	}

	switch answer.Cmd {
	case protocol.Yes:
		return true, nil
	case protocol.No:
		return false, nil
	}
	return false, p.lost(fmt.Errorf("%w: %s to %s", ErrUnexpectedAnswer, answer.Cmd, m.Cmd))
}

func (p *RemotePlayer) CardAccepted(c deck.Card) (bool, error) {
	p.mu.Lock()
	p.hand.Remove(c)
	empty := p.hand.Len() == 0
	p.mu.Unlock()
	return empty, nil
}

func (p *RemotePlayer) NoCardReason(uncovered deck.Card, jackSuit deck.Suit) NoCardReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return noCardReason(&p.hand, uncovered, jackSuit, p.lastReason == Suspend)
}

func (p *RemotePlayer) CardCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hand.Len()
}

func (p *RemotePlayer) Cards() []deck.Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hand.Cards()
}

func (p *RemotePlayer) ReceiveCard(c deck.Card) error {
	p.mu.Lock()
	p.hand.Add(c)
	p.mu.Unlock()
	return p.send(protocol.New(protocol.Card, c.Code()))
}

func (p *RemotePlayer) TalonShuffled() error {
	return p.send(protocol.New(protocol.TalonShuffled))
}

func (p *RemotePlayer) SetNeighbourStats(s NeighbourStats) error {
	return p.send(protocol.New(protocol.Neighbour, strconv.Itoa(s.CardCount), s.Suit.String(), s.Rank.String()))
}

func (p *RemotePlayer) SetNineIsSuspend(b bool) error {
	return p.send(protocol.NewFlag(protocol.NineIsSuspend, b))
}

func (p *RemotePlayer) SetDirChangeEnabled(b bool) error {
	return p.send(protocol.NewFlag(protocol.DirChangeEnabled, b))
}

func (p *RemotePlayer) Reset() {
	p.mu.Lock()
	p.hand.Clear()
	p.lastReason = NoMatch
	p.mu.Unlock()
}

// Close closes the connection once
func (p *RemotePlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.conn.Close()
}
