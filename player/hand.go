package player

import (
	"github.com/minaorangina/maumau/deck"
)

// Hand is an unordered bag of cards
type Hand struct {
	cards []deck.Card
}

func (h *Hand) Add(c deck.Card) {
	h.cards = append(h.cards, c)
}

// Remove takes one copy of c out of the hand
func (h *Hand) Remove(c deck.Card) bool {
	for i, hc := range h.cards {
		if hc == c {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Hand) Has(c deck.Card) bool {
	for _, hc := range h.cards {
		if hc == c {
			return true
		}
	}
	return false
}

func (h *Hand) Len() int {
	return len(h.cards)
}

// Cards returns a copy of the hand
func (h *Hand) Cards() []deck.Card {
	out := make([]deck.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

func (h *Hand) Points() int {
	return deck.Deck(h.cards).Points()
}

func (h *Hand) Clear() {
	h.cards = nil
}

// Playable lists the cards the standard rules would accept for req
func (h *Hand) Playable(req Request) []deck.Card {
	var out []deck.Card
	for _, c := range h.cards {
		if playable(req, c) {
			out = append(out, c)
		}
	}
	return out
}

func playable(req Request, c deck.Card) bool {
	switch {
	case req.AceRound:
		return c.Rank == req.AceRoundRank
	case req.TakeCount > 0:
		return c.Rank == deck.Seven
	case req.JackSuit != deck.IllegalSuit:
		return c.Suit == req.JackSuit && c.Rank != deck.Jack
	case c.Rank == deck.Jack:
		return req.Uncovered.Rank != deck.Jack
	}
	return c.Suit == req.Uncovered.Suit || c.Rank == req.Uncovered.Rank
}

// noCardReason is shared by every player kind
func noCardReason(h *Hand, uncovered deck.Card, jackSuit deck.Suit, suspend bool) NoCardReason {
	if h.Len() == 0 {
		return MauMau
	}
	if suspend {
		return Suspend
	}
	return NoMatch
}
