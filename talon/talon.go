// Package talon holds the draw pile and the discard pile of a Mau Mau round.
package talon

import (
	"errors"

	"github.com/minaorangina/maumau/deck"
)

var ErrEmptyDeck = errors.New("talon has no card to uncover")

// Listener is told when the discard pile is shuffled back into the draw pile
// and when the talon runs dry or recovers.
type Listener interface {
	TalonShuffled()
	TalonEmpty(empty bool)
}

// Talon owns every card of a round that is not in a player's hand.
// The last element of each stack is its top.
type Talon struct {
	cards    deck.Deck
	draw     []deck.Card
	discard  []deck.Card
	shuffle  func(deck.Deck)
	listener Listener
	empty    bool
}

// New builds factor shuffled decks
func New(factor int, l Listener) *Talon {
	t := &Talon{
		cards:    deck.New(factor),
		shuffle:  deck.Deck.Shuffle,
		listener: l,
	}
	t.Reset()
	return t
}

// NewWithCards builds a talon that draws cards in reverse slice order and
// never shuffles. Reset restores the same order.
func NewWithCards(cards []deck.Card, l Listener) *Talon {
	t := &Talon{
		cards:    append(deck.Deck{}, cards...),
		shuffle:  func(deck.Deck) {},
		listener: l,
	}
	t.Reset()
	return t
}

// SetListener replaces the listener
func (t *Talon) SetListener(l Listener) {
	t.listener = l
}

// Reset puts every created card back on the draw pile
func (t *Talon) Reset() {
	t.draw = append(make([]deck.Card, 0, len(t.cards)), t.cards...)
	t.shuffle(t.draw)
	t.discard = make([]deck.Card, 0, len(t.cards))
	t.empty = false
}

// UncoverCard starts the discard pile with the top card of the draw pile
func (t *Talon) UncoverCard() (deck.Card, error) {
	c, ok := t.Pop()
	if !ok {
		return deck.IllegalCard, ErrEmptyDeck
	}
	t.discard = append(t.discard, c)
	return c, nil
}

// Uncovered returns the top of the discard pile
func (t *Talon) Uncovered() (deck.Card, bool) {
	if len(t.discard) == 0 {
		return deck.IllegalCard, false
	}
	return t.discard[len(t.discard)-1], true
}

// Top peeks at the draw pile
func (t *Talon) Top() (deck.Card, bool) {
	if len(t.draw) == 0 {
		return deck.IllegalCard, false
	}
	return t.draw[len(t.draw)-1], true
}

// Pop removes the top of the draw pile without reshuffling
func (t *Talon) Pop() (deck.Card, bool) {
	c, ok := t.Top()
	if ok {
		t.draw = t.draw[:len(t.draw)-1]
	}
	return c, ok
}

// TakeCard draws a card, reshuffling the discard pile if the draw pile is
// exhausted. ok is false when no card is available outside the players' hands
// apart from the uncovered card.
func (t *Talon) TakeCard() (deck.Card, bool) {
	if len(t.draw) == 0 {
		t.reshuffle()
	}

	c, ok := t.Pop()
	if !ok {
		t.setEmpty(true)
		return c, false
	}

	t.setEmpty(false)
	return c, true
}

// PlayCard makes c the new uncovered card
func (t *Talon) PlayCard(c deck.Card) {
	t.discard = append(t.discard, c)
}

// Bury slides cards under the discard pile, where the next reshuffle finds them
func (t *Talon) Bury(cards []deck.Card) {
	if len(cards) == 0 {
		return
	}
	buried := make([]deck.Card, 0, len(cards)+len(t.discard))
	buried = append(buried, cards...)
	t.discard = append(buried, t.discard...)
}

// ThresholdReached reports whether the draw pile is down to n cards or fewer
func (t *Talon) ThresholdReached(n int) bool {
	return len(t.draw) <= n
}

// DrawCount is the size of the draw pile
func (t *Talon) DrawCount() int {
	return len(t.draw)
}

// DiscardCount is the size of the discard pile, uncovered card included
func (t *Talon) DiscardCount() int {
	return len(t.discard)
}

// Total is the number of cards created for the round
func (t *Talon) Total() int {
	return len(t.cards)
}

// Empty reports whether the last draw found nothing
func (t *Talon) Empty() bool {
	return t.empty
}

func (t *Talon) reshuffle() {
	if len(t.discard) <= 1 {
		return
	}

	top := t.discard[len(t.discard)-1]
	t.draw = append(t.draw, t.discard[:len(t.discard)-1]...)
	t.discard = append(t.discard[:0], top)
	t.shuffle(t.draw)

	if t.listener != nil {
		t.listener.TalonShuffled()
	}
}

func (t *Talon) setEmpty(empty bool) {
	if t.empty == empty {
		return
	}
	t.empty = empty
	if t.listener != nil {
		t.listener.TalonEmpty(empty)
	}
}
