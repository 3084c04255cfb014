package maumau

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/rules"
)

// State represents the state of a session
// accepting -> players may join
// playing -> a round is in progress
// finished -> the round is over, waiting for a reset
type State int

const (
	Accepting State = iota
	Playing
	Finished
)

func (s State) String() string {
	if s == Accepting {
		return "accepting"
	} else if s == Playing {
		return "playing"
	} else if s == Finished {
		return "finished"
	}
	return ""
}

var (
	ErrTooFewPlayers      = errors.New("minimum of 2 players required")
	ErrTooManyPlayers     = errors.New("maximum number of players reached")
	ErrGameInProgress     = errors.New("game in progress")
	ErrAlreadyDistributed = errors.New("cards already distributed")
	ErrTalonTooSmall      = errors.New("talon too small to deal every player")
	ErrDuplicatePlayer    = errors.New("player already seated")
)

// Session owns the roster, the talon and the rules of a round
type Session struct {
	opts        Options
	log         *zap.Logger
	engine      *Engine
	state       State
	distributed bool
}

// NewSession constructs a session. scores and log may be nil.
func NewSession(opts Options, rs rules.RuleSet, ev Events, scores Scores, log *zap.Logger) *Session {
	opts = opts.withDefaults()
	if scores == nil {
		scores = nopScores{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		opts:   opts,
		log:    log,
		engine: newEngine(opts, rs, ev, scores, log),
	}
}

func (s *Session) State() State { return s.state }

// Turn returns the number of completed rotations plus one
func (s *Session) Turn() int { return s.engine.turn }

// Uncovered returns the card on top of the discard pile
func (s *Session) Uncovered() (deck.Card, bool) { return s.engine.talon.Uncovered() }

// Current returns the player whose turn it is
func (s *Session) Current() (player.Player, bool) {
	if len(s.engine.players) == 0 {
		return nil, false
	}
	return s.engine.players[s.engine.cur], true
}

// Players returns the seated players in rotation order
func (s *Session) Players() []player.Player {
	out := make([]player.Player, len(s.engine.players))
	copy(out, s.engine.players)
	return out
}

// MaxPlayers is the seat limit of the rules
func (s *Session) MaxPlayers() int { return s.engine.rules.MaxPlayers() }

// AddPlayer seats p. Joining is only possible before cards are dealt.
func (s *Session) AddPlayer(p player.Player) error {
	if s.state != Accepting || s.distributed {
		return ErrGameInProgress
	}
	if len(s.engine.players) >= s.engine.rules.MaxPlayers() {
		return ErrTooManyPlayers
	}
	if s.engine.indexOf(p.ID()) >= 0 {
		return ErrDuplicatePlayer
	}

	s.engine.players = append(s.engine.players, p)
	s.log.Info("player joined", zap.String("player", p.Name()), zap.Int("players", len(s.engine.players)))
	return nil
}

// RemovePlayer unseats the player with id before the round starts
func (s *Session) RemovePlayer(id string) error {
	if s.state != Accepting || s.distributed {
		return ErrGameInProgress
	}
	idx := s.engine.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("no player with id %s", id)
	}
	s.engine.removeAt(idx)
	return nil
}

// Distribute deals the initial hands and uncovers the first card
func (s *Session) Distribute(ctx context.Context) error {
	if s.distributed || s.state != Accepting {
		return ErrAlreadyDistributed
	}

	e := s.engine
	if len(e.players) < 2 {
		return ErrTooFewPlayers
	}
	if e.talon.DrawCount() < s.opts.InitialCards*len(e.players)+1 {
		return ErrTalonTooSmall
	}

	s.distributed = true
	s.state = Playing

	gameID, err := e.scores.NewGame(ctx)
	if err != nil {
		s.log.Warn("cannot store new game", zap.Error(err))
	}
	e.gameID = gameID

	// players lost while dealing are removed once the first card is up
	lost := map[string]error{}
	for i := 0; i < s.opts.InitialCards; i++ {
		for _, p := range e.players {
			c, _ := e.talon.Pop()
			if err := p.ReceiveCard(c); err != nil && lost[p.ID()] == nil {
				lost[p.ID()] = err
			}
		}
	}

	s.log.Info("cards distributed", zap.Int64("game_id", gameID), zap.Int("players", len(e.players)))
	if err := s.fail(ctx, e.begin(ctx)); err != nil {
		return err
	}
	for id, err := range lost {
		if e.indexOf(id) < 0 {
			continue
		}
		if err := s.fail(ctx, err); err != nil {
			return err
		}
	}
	return nil
}

// fail recovers lost players and ends the round on anything else
func (s *Session) fail(ctx context.Context, err error) error {
	if err = s.engine.recover(err); err == nil {
		if s.engine.finished {
			s.finish(ctx)
		}
		return nil
	}

	s.log.Error("round aborted", zap.Error(err))
	if errors.Is(err, rules.ErrRuleEngine) {
		if eerr := s.engine.events.Error("rule engine failure: " + err.Error()); eerr != nil {
			s.log.Debug("error event failed", zap.Error(eerr))
		}
	}
	s.finish(ctx)
	return err
}

// Compute plays one turn
func (s *Session) Compute(ctx context.Context) (bool, error) {
	if s.state != Playing {
		return false, nil
	}

	more, err := s.engine.Compute(ctx)
	if err != nil {
		return false, s.fail(ctx, err)
	}
	if !more {
		s.finish(ctx)
	}
	return more, nil
}

// Play runs turns until the round is over
func (s *Session) Play(ctx context.Context) error {
	for {
		more, err := s.Compute(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (s *Session) finish(ctx context.Context) {
	if s.state == Finished {
		return
	}
	s.state = Finished
	if err := s.engine.scores.GameEnded(ctx, s.engine.gameID); err != nil {
		s.log.Warn("cannot store game end", zap.Int64("game_id", s.engine.gameID), zap.Error(err))
	}
	s.log.Info("round finished", zap.Int64("game_id", s.engine.gameID), zap.Int("turn", s.engine.turn))
}

// Reset clears the roster and prepares a fresh talon
func (s *Session) Reset() {
	s.engine.reset()
	s.state = Accepting
	s.distributed = false
}
