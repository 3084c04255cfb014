package deck

import (
	"errors"
	"fmt"
	"strings"
)

// Rank represents a rank in a Mau Mau deck of cards
type Rank int

const (
	Seven Rank = iota
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	IllegalRank
)

var rankNames = []string{"Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King", "Ace", "Illegal"}

var rankCodes = []string{"7", "8", "9", "10", "J", "Q", "K", "A", "X"}

var rankPoints = map[Rank]int{
	Seven: 1,
	Eight: 2,
	Nine:  3,
	Ten:   4,
	Queen: 5,
	King:  6,
	Ace:   11,
	Jack:  20,
}

func (r Rank) String() string {
	if r < Seven || r > IllegalRank {
		return rankNames[IllegalRank]
	}
	return rankNames[r]
}

// Suit represents a suit in a deck of cards
type Suit int

const (
	Diamonds Suit = iota
	Hearts
	Spades
	Clubs
	IllegalSuit
)

var suitNames = []string{"Diamonds", "Hearts", "Spades", "Clubs", "Illegal"}

var suitCodes = []string{"D", "H", "S", "C", "X"}

func (s Suit) String() string {
	if s < Diamonds || s > IllegalSuit {
		return suitNames[IllegalSuit]
	}
	return suitNames[s]
}

// Suits lists the four playable suits
var Suits = []Suit{Diamonds, Hearts, Spades, Clubs}

// Ranks lists the eight playable ranks, lowest first
var Ranks = []Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

var (
	ErrUnknownCard = errors.New("unknown card code")
	ErrUnknownSuit = errors.New("unknown suit")
)

// Card is an immutable playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// IllegalCard is played by a player who has no legal card but would rather
// take cards than suspend. It never matches anything.
var IllegalCard = Card{Suit: IllegalSuit, Rank: IllegalRank}

// NewCard constructs a card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Suit: suit, Rank: rank}
}

// IsIllegal reports whether c is the illegal card sentinel
func (c Card) IsIllegal() bool {
	return c.Suit == IllegalSuit || c.Rank == IllegalRank
}

// Points returns what the card costs a loser holding it
func (c Card) Points() int {
	return rankPoints[c.Rank]
}

func (c Card) String() string {
	if c.IsIllegal() {
		return "Illegal card"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Code returns the short wire form, e.g. "10H" or "JC"
func (c Card) Code() string {
	if c.IsIllegal() {
		return "XX"
	}
	return rankCodes[c.Rank] + suitCodes[c.Suit]
}

// ParseCard parses the short wire form produced by Code
func ParseCard(code string) (Card, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "XX" {
		return IllegalCard, nil
	}
	if len(code) < 2 {
		return IllegalCard, fmt.Errorf("%w: %q", ErrUnknownCard, code)
	}

	rankCode, suitCode := code[:len(code)-1], code[len(code)-1:]

	rank, suit := IllegalRank, IllegalSuit
	for i, rc := range rankCodes[:IllegalRank] {
		if rc == rankCode {
			rank = Rank(i)
			break
		}
	}
	for i, sc := range suitCodes[:IllegalSuit] {
		if sc == suitCode {
			suit = Suit(i)
			break
		}
	}

	if rank == IllegalRank || suit == IllegalSuit {
		return IllegalCard, fmt.Errorf("%w: %q", ErrUnknownCard, code)
	}

	return NewCard(rank, suit), nil
}

// ParseSuit accepts a suit name ("hearts") or its code ("H")
func ParseSuit(s string) (Suit, error) {
	s = strings.TrimSpace(s)
	for i := range suitNames[:IllegalSuit] {
		if strings.EqualFold(s, suitNames[i]) || strings.EqualFold(s, suitCodes[i]) {
			return Suit(i), nil
		}
	}
	return IllegalSuit, fmt.Errorf("%w: %q", ErrUnknownSuit, s)
}
