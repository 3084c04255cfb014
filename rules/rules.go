// Package rules decides which cards may be played and tracks the effects of
// special ranks for one round.
package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/minaorangina/maumau/deck"
)

var ErrRuleEngine = errors.New("rule engine error")

// ScriptError is a broken or misbehaving rule script
type ScriptError struct {
	Reason string
	Err    error
}

func (e *ScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule script: %s: %v", e.Reason, e.Err)
	}
	return "rule script: " + e.Reason
}

func (e *ScriptError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRuleEngine, e.Err}
	}
	return []error{ErrRuleEngine}
}

// Chooser is the part of a player the rules talk to when a card needs a decision
type Chooser interface {
	ID() string
	Name() string
	JackChoice(ctx context.Context, uncovered, played deck.Card) (deck.Suit, error)
	AceRoundChoice(ctx context.Context) (bool, error)
}

// AceRoundListener is told when ace rounds start and end.
// The rule set only holds it, it never owns it.
type AceRoundListener interface {
	AceRoundStarted(p Chooser) error
	AceRoundEnded(p Chooser) error
}

// Matcher replaces the plain suit/rank test for ordinary plays
type Matcher interface {
	Match(uncovered, played deck.Card) (bool, error)
}

// PointFactorer optionally overrides the lost point factor
type PointFactorer interface {
	LostPointFactor(uncovered deck.Card) (int, error)
}

// RuleSet is the session state of the rules for one round
type RuleSet interface {
	CheckInitial(ctx context.Context, p Chooser, uncovered deck.Card) error
	CheckCard(ctx context.Context, p Chooser, uncovered, played deck.Card, ai bool) (bool, error)

	HasToSuspend() bool
	HasSuspended()

	TakeCount() int
	TakeCards(played deck.Card) int
	HasTakenCards()

	IsJackMode() bool
	JackSuit() deck.Suit
	SetJackModeOff()

	DirChangeEnabled() bool
	HasDirChange() bool
	DirChanged()
	DirChangeIsSuspend() bool
	SetDirChangeIsSuspend(bool)

	IsAceRoundPossible() bool
	IsAceRound() bool
	AceRoundRank() deck.Rank
	EndAceRound(p Chooser) error

	LostPointFactor(uncovered deck.Card) (int, error)
	SetCurPlayers(n int)
	MaxPlayers() int
	Reset()
}
