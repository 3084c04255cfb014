// Package maumau runs rounds of Mau Mau: the turn engine and the game
// session around it.
package maumau

import "time"

// Options configure a session
type Options struct {
	// InitialCards dealt to every player
	InitialCards int
	Decks        int
	// Ultimate keeps the round going until only one player is left
	Ultimate bool
	// LoserTakesSevens makes a loser facing sevens take them before scoring
	LoserTakesSevens bool
	AIDelay          time.Duration
	AlwaysWait       bool
	// MaxRejections bounds rejected offers in one turn
	MaxRejections int
	// UnderflowThreshold is the draw pile size at which players may suspend
	UnderflowThreshold int
}

// DefaultOptions returns the options of a plain one deck game
func DefaultOptions() Options {
	return Options{
		InitialCards:  5,
		Decks:         1,
		MaxRejections: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InitialCards < 1 {
		o.InitialCards = d.InitialCards
	}
	if o.Decks < 1 {
		o.Decks = d.Decks
	}
	if o.MaxRejections < 1 {
		o.MaxRejections = d.MaxRejections
	}
	if o.UnderflowThreshold < 0 {
		o.UnderflowThreshold = 0
	}
	return o
}
