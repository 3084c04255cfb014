package player

import (
	"context"
	"sort"

	"github.com/minaorangina/maumau/deck"
)

// AIPlayer is a computer controlled player
type AIPlayer struct {
	id   string
	name string
	hand Hand

	neighbour        NeighbourStats
	nineIsSuspend    bool
	dirChangeEnabled bool
	last             Request
}

// NewAIPlayer constructs an AI player
func NewAIPlayer(name string) *AIPlayer {
	return &AIPlayer{id: NewID(), name: name}
}

func (p *AIPlayer) ID() string { return p.id }
func (p *AIPlayer) Name() string { return p.name }
func (p *AIPlayer) IsAI() bool { return true }
func (p *AIPlayer) IsAlive() bool { return true }

func (p *AIPlayer) RequestCard(ctx context.Context, req Request) (deck.Card, bool, error) {
	p.last = req

	cands := p.hand.Playable(req)
	if len(cands) == 0 {
		return deck.IllegalCard, false, nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return p.score(cands[i]) > p.score(cands[j])
	})
	return cands[0], true, nil
}

// score ranks candidate cards; expensive cards go first, jacks are kept
// back, and attack cards are preferred when the neighbour is nearly out
func (p *AIPlayer) score(c deck.Card) int {
	s := c.Points()
	if c.Rank == deck.Jack {
		s = -1
		if p.hand.Len() <= 2 {
			s = 100
		}
	}

	hurry := p.neighbour.CardCount > 0 && p.neighbour.CardCount <= 2
	switch {
	case hurry && (c.Rank == deck.Seven || c.Rank == deck.Eight):
		s += 50
	case hurry && c.Rank == deck.Nine && p.nineIsSuspend:
		s += 50
	}
	return s
}

// JackChoice wishes for the suit the player holds most of
func (p *AIPlayer) JackChoice(ctx context.Context, uncovered, played deck.Card) (deck.Suit, error) {
	counts := map[deck.Suit]int{}
	for _, c := range p.hand.cards {
		if c == played || c.Rank == deck.Jack {
			continue
		}
		counts[c.Suit]++
	}

	best, n := played.Suit, 0
	for _, s := range deck.Suits {
		if counts[s] > n {
			best, n = s, counts[s]
		}
	}
	return best, nil
}

// AceRoundChoice keeps an ace round going while another card of its rank is held
func (p *AIPlayer) AceRoundChoice(ctx context.Context) (bool, error) {
	held := 0
	for _, c := range p.hand.cards {
		if c.Rank == p.last.AceRoundRank {
			held++
		}
	}
	// the card just played is still in the hand until it is accepted
	return held > 1, nil
}

func (p *AIPlayer) CardAccepted(c deck.Card) (bool, error) {
	p.hand.Remove(c)
	return p.hand.Len() == 0, nil
}

func (p *AIPlayer) NoCardReason(uncovered deck.Card, jackSuit deck.Suit) NoCardReason {
	return noCardReason(&p.hand, uncovered, jackSuit, !p.last.NoSuspend)
}

func (p *AIPlayer) CardCount() int { return p.hand.Len() }
func (p *AIPlayer) Cards() []deck.Card { return p.hand.Cards() }

func (p *AIPlayer) ReceiveCard(c deck.Card) error {
	p.hand.Add(c)
	return nil
}

func (p *AIPlayer) TalonShuffled() error { return nil }

func (p *AIPlayer) SetNeighbourStats(s NeighbourStats) error {
	p.neighbour = s
	return nil
}

func (p *AIPlayer) SetNineIsSuspend(b bool) error {
	p.nineIsSuspend = b
	return nil
}

func (p *AIPlayer) SetDirChangeEnabled(b bool) error {
	p.dirChangeEnabled = b
	return nil
}

func (p *AIPlayer) Reset() {
	p.hand.Clear()
	p.neighbour = NeighbourStats{}
	p.nineIsSuspend = false
	p.last = Request{}
}

func (p *AIPlayer) Close() error { return nil }
