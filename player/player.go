// Package player holds the participants of a round: AI players and remote
// players reached over a line connection.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/rules"
)

// NewID constructs a player ID
func NewID() string {
	return uuid.NewV4().String()
}

// NoCardReason says why a player offered no card
type NoCardReason int

const (
	// MauMau means the hand is empty
	MauMau NoCardReason = iota
	Suspend
	NoMatch
)

var noCardReasonNames = []string{"MAUMAU", "SUSPEND", "NOMATCH"}

func (r NoCardReason) String() string {
	if r < MauMau || r > NoMatch {
		return "UNKNOWN"
	}
	return noCardReasonNames[r]
}

// Request is everything a player is told when asked for a card
type Request struct {
	Uncovered deck.Card
	// JackSuit is IllegalSuit unless jack mode is active
	JackSuit  deck.Suit
	TakeCount int
	// NoSuspend asks the player to draw rather than suspend
	NoSuspend bool
	// AceRoundRank is IllegalRank when ace rounds are off
	AceRoundRank deck.Rank
	AceRound     bool
}

// NeighbourStats describe the player who just finished their turn
type NeighbourStats struct {
	CardCount int
	Suit      deck.Suit
	Rank      deck.Rank
}

// Player is a participant of a round
type Player interface {
	rules.Chooser

	IsAI() bool
	IsAlive() bool

	// RequestCard returns the offered card, or false for no card.
	// deck.IllegalCard with true means the player would rather take cards.
	RequestCard(ctx context.Context, req Request) (deck.Card, bool, error)
	// CardAccepted removes c from the hand and reports whether it is now empty
	CardAccepted(c deck.Card) (bool, error)
	NoCardReason(uncovered deck.Card, jackSuit deck.Suit) NoCardReason

	CardCount() int
	Cards() []deck.Card
	ReceiveCard(c deck.Card) error

	TalonShuffled() error
	SetNeighbourStats(s NeighbourStats) error
	SetNineIsSuspend(b bool) error
	SetDirChangeEnabled(b bool) error

	Reset()
	Close() error
}

// Conn is a line oriented connection to someone in the outside world
type Conn interface {
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)
	WriteLine(line string) error
	Alive() bool
	RemoteAddr() string
	io.Closer
}

var ErrConnClosed = errors.New("connection closed")

// ConnLostError reports a peer that can no longer be reached
type ConnLostError struct {
	PlayerID string
	Name     string
	// Watcher is set when the peer was only observing the round
	Watcher bool
	Conn    io.Closer
	Err     error
}

func (e *ConnLostError) Error() string {
	who := e.Name
	if who == "" {
		who = "unknown peer"
	}
	if e.Watcher {
		who = "watcher " + who
	}
	return fmt.Sprintf("connection to %s lost: %v", who, e.Err)
}

func (e *ConnLostError) Unwrap() error {
	return e.Err
}
