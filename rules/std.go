package rules

import (
	"context"

	"github.com/minaorangina/maumau/deck"
)

const (
	playersPerDeck = 5
	sevenTake      = 2
)

// Options configure the standard rule set
type Options struct {
	// AceRounds enables ace rounds with AceRoundRank (Ace, Queen or King)
	AceRounds    bool
	AceRoundRank deck.Rank
	DirChange    bool
	Decks        int
	Matcher      Matcher
}

// StdRuleSet implements the common Mau Mau rules
type StdRuleSet struct {
	opts     Options
	listener AceRoundListener

	curPlayers         int
	takeCount          int
	suspend            bool
	jackMode           bool
	jackSuit           deck.Suit
	dirChange          bool
	dirChangeIsSuspend bool
	aceRound           bool
	aceRoundPlayer     string
}

// NewStdRuleSet constructs the standard rules. listener may be nil.
func NewStdRuleSet(opts Options, listener AceRoundListener) *StdRuleSet {
	if opts.Decks < 1 {
		opts.Decks = 1
	}
	switch opts.AceRoundRank {
	case deck.Ace, deck.Queen, deck.King:
	default:
		opts.AceRoundRank = deck.Ace
	}

	r := &StdRuleSet{opts: opts, listener: listener}
	r.Reset()
	return r
}

func (r *StdRuleSet) CheckInitial(ctx context.Context, p Chooser, uncovered deck.Card) error {
	switch uncovered.Rank {
	case deck.Seven:
		r.takeCount = sevenTake
	case deck.Eight:
		r.suspend = true
	case deck.Jack:
		return r.chooseJackSuit(ctx, p, uncovered, uncovered)
	}
	return nil
}

func (r *StdRuleSet) CheckCard(ctx context.Context, p Chooser, uncovered, played deck.Card, ai bool) (bool, error) {
	if played.IsIllegal() {
		return false, nil
	}

	if r.aceRound {
		if played.Rank != r.opts.AceRoundRank {
			return false, nil
		}
		return true, r.continueAceRound(ctx, p)
	}

	if r.takeCount > 0 {
		if played.Rank != deck.Seven {
			return false, nil
		}
		r.takeCount += sevenTake
		return true, nil
	}

	if r.jackMode {
		if played.Suit != r.jackSuit || played.Rank == deck.Jack {
			return false, nil
		}
	} else {
		ok, err := r.matches(uncovered, played)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, r.apply(ctx, p, uncovered, played)
}

func (r *StdRuleSet) matches(uncovered, played deck.Card) (bool, error) {
	if r.opts.Matcher != nil {
		return r.opts.Matcher.Match(uncovered, played)
	}
	if played.Rank == deck.Jack {
		return uncovered.Rank != deck.Jack, nil
	}
	return played.Suit == uncovered.Suit || played.Rank == uncovered.Rank, nil
}

func (r *StdRuleSet) apply(ctx context.Context, p Chooser, uncovered, played deck.Card) error {
	switch played.Rank {
	case deck.Seven:
		r.takeCount += sevenTake
	case deck.Eight:
		r.suspend = true
	case deck.Nine:
		if r.opts.DirChange {
			if r.dirChangeIsSuspend {
				r.suspend = true
			} else {
				r.dirChange = true
			}
		}
	case deck.Jack:
		if err := r.chooseJackSuit(ctx, p, uncovered, played); err != nil {
			return err
		}
	}

	if r.opts.AceRounds && played.Rank == r.opts.AceRoundRank {
		return r.startAceRound(ctx, p)
	}
	return nil
}

func (r *StdRuleSet) chooseJackSuit(ctx context.Context, p Chooser, uncovered, played deck.Card) error {
	suit, err := p.JackChoice(ctx, uncovered, played)
	if err != nil {
		return err
	}
	if suit < deck.Diamonds || suit >= deck.IllegalSuit {
		suit = played.Suit
	}
	r.jackMode = true
	r.jackSuit = suit
	return nil
}

func (r *StdRuleSet) startAceRound(ctx context.Context, p Chooser) error {
	start, err := p.AceRoundChoice(ctx)
	if err != nil || !start {
		return err
	}
	r.aceRound = true
	r.aceRoundPlayer = p.ID()
	if r.listener != nil {
		return r.listener.AceRoundStarted(p)
	}
	return nil
}

func (r *StdRuleSet) continueAceRound(ctx context.Context, p Chooser) error {
	more, err := p.AceRoundChoice(ctx)
	if err != nil || more {
		return err
	}
	return r.EndAceRound(p)
}

func (r *StdRuleSet) HasToSuspend() bool { return r.suspend }

func (r *StdRuleSet) HasSuspended() { r.suspend = false }

func (r *StdRuleSet) TakeCount() int { return r.takeCount }

// TakeCards returns how many cards a player who answered with played must take
func (r *StdRuleSet) TakeCards(played deck.Card) int {
	if !played.IsIllegal() && played.Rank == deck.Seven {
		return 0
	}
	return r.takeCount
}

func (r *StdRuleSet) HasTakenCards() { r.takeCount = 0 }

func (r *StdRuleSet) IsJackMode() bool { return r.jackMode }

func (r *StdRuleSet) JackSuit() deck.Suit {
	if !r.jackMode {
		return deck.IllegalSuit
	}
	return r.jackSuit
}

func (r *StdRuleSet) SetJackModeOff() {
	r.jackMode = false
	r.jackSuit = deck.IllegalSuit
}

func (r *StdRuleSet) DirChangeEnabled() bool { return r.opts.DirChange }

func (r *StdRuleSet) HasDirChange() bool { return r.dirChange }

func (r *StdRuleSet) DirChanged() { r.dirChange = false }

func (r *StdRuleSet) DirChangeIsSuspend() bool { return r.dirChangeIsSuspend }

func (r *StdRuleSet) SetDirChangeIsSuspend(suspend bool) { r.dirChangeIsSuspend = suspend }

func (r *StdRuleSet) IsAceRoundPossible() bool { return r.opts.AceRounds }

func (r *StdRuleSet) IsAceRound() bool { return r.aceRound }

func (r *StdRuleSet) AceRoundRank() deck.Rank { return r.opts.AceRoundRank }

// EndAceRound closes a running ace round
func (r *StdRuleSet) EndAceRound(p Chooser) error {
	if !r.aceRound {
		return nil
	}
	r.aceRound = false
	r.aceRoundPlayer = ""
	if r.listener != nil {
		return r.listener.AceRoundEnded(p)
	}
	return nil
}

// LostPointFactor doubles a loser's points when the game ended on a Jack.
// A script returning a non-positive factor keeps the default.
func (r *StdRuleSet) LostPointFactor(uncovered deck.Card) (int, error) {
	if pf, ok := r.opts.Matcher.(PointFactorer); ok {
		f, err := pf.LostPointFactor(uncovered)
		if err != nil {
			return 0, err
		}
		if f > 0 {
			return f, nil
		}
	}
	if uncovered.Rank == deck.Jack {
		return 2, nil
	}
	return 1, nil
}

func (r *StdRuleSet) SetCurPlayers(n int) { r.curPlayers = n }

func (r *StdRuleSet) MaxPlayers() int { return playersPerDeck * r.opts.Decks }

func (r *StdRuleSet) Reset() {
	r.curPlayers = 0
	r.takeCount = 0
	r.suspend = false
	r.jackMode = false
	r.jackSuit = deck.IllegalSuit
	r.dirChange = false
	r.dirChangeIsSuspend = false
	r.aceRound = false
	r.aceRoundPlayer = ""
}
