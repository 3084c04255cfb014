package maumau

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/rules"
)

// Events receives everything that happens in a round.
// A *player.ConnLostError with Watcher set is handled by the engine without
// abandoning the turn.
type Events interface {
	rules.AceRoundListener

	UncoveredCard(c deck.Card) error
	TalonEmpty(empty bool) error
	Turn(n int) error
	PlayerPicksCard(p player.Player) error
	PlayerPicksCards(p player.Player, n int) error
	PlayerSuspends(p player.Player) error
	PlayerPlaysCard(p player.Player, c deck.Card) error
	CardRejected(p player.Player, c deck.Card) error
	PlayerChooseJackSuit(p player.Player, s deck.Suit) error
	PlayerWins(p player.Player, turn int, ultimate bool) error
	PlayerLost(p player.Player, turn, points int) error
	NextPlayer(p player.Player) error
	DirectionChange() error
	Error(msg string) error
	Info(msg string) error
}

// Scores persists results. The engine only ever writes to it.
type Scores interface {
	NewGame(ctx context.Context) (int64, error)
	PlayerWins(ctx context.Context, gameID int64, name string) error
	PlayerLost(ctx context.Context, gameID int64, name string, at time.Time, points int) error
	GameEnded(ctx context.Context, gameID int64) error
	Turn(ctx context.Context, gameID int64, n int) error
}

type nopScores struct{}

func (nopScores) NewGame(context.Context) (int64, error) { return 0, nil }
func (nopScores) PlayerWins(context.Context, int64, string) error { return nil }
func (nopScores) PlayerLost(context.Context, int64, string, time.Time, int) error { return nil }
func (nopScores) GameEnded(context.Context, int64) error { return nil }
func (nopScores) Turn(context.Context, int64, int) error { return nil }

// LogEvents writes every event to a logger
type LogEvents struct {
	Log *zap.Logger
}

func (l LogEvents) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}

func (l LogEvents) AceRoundStarted(p rules.Chooser) error {
	l.logger().Info("ace round started", zap.String("player", p.Name()))
	return nil
}

func (l LogEvents) AceRoundEnded(p rules.Chooser) error {
	l.logger().Info("ace round ended", zap.String("player", p.Name()))
	return nil
}

func (l LogEvents) UncoveredCard(c deck.Card) error {
	l.logger().Info("uncovered card", zap.Stringer("card", c))
	return nil
}

func (l LogEvents) TalonEmpty(empty bool) error {
	l.logger().Info("talon empty", zap.Bool("empty", empty))
	return nil
}

func (l LogEvents) Turn(n int) error {
	l.logger().Info("turn", zap.Int("turn", n))
	return nil
}

func (l LogEvents) PlayerPicksCard(p player.Player) error {
	l.logger().Info("picks card", zap.String("player", p.Name()))
	return nil
}

func (l LogEvents) PlayerPicksCards(p player.Player, n int) error {
	l.logger().Info("picks cards", zap.String("player", p.Name()), zap.Int("count", n))
	return nil
}

func (l LogEvents) PlayerSuspends(p player.Player) error {
	l.logger().Info("suspends", zap.String("player", p.Name()))
	return nil
}

func (l LogEvents) PlayerPlaysCard(p player.Player, c deck.Card) error {
	l.logger().Info("plays card", zap.String("player", p.Name()), zap.Stringer("card", c))
	return nil
}

func (l LogEvents) CardRejected(p player.Player, c deck.Card) error {
	l.logger().Info("card rejected", zap.String("player", p.Name()), zap.Stringer("card", c))
	return nil
}

func (l LogEvents) PlayerChooseJackSuit(p player.Player, s deck.Suit) error {
	l.logger().Info("jack suit", zap.String("player", p.Name()), zap.Stringer("suit", s))
	return nil
}

func (l LogEvents) PlayerWins(p player.Player, turn int, ultimate bool) error {
	l.logger().Info("wins", zap.String("player", p.Name()), zap.Int("turn", turn), zap.Bool("ultimate", ultimate))
	return nil
}

func (l LogEvents) PlayerLost(p player.Player, turn, points int) error {
	l.logger().Info("lost", zap.String("player", p.Name()), zap.Int("turn", turn), zap.Int("points", points))
	return nil
}

func (l LogEvents) NextPlayer(p player.Player) error {
	l.logger().Debug("next player", zap.String("player", p.Name()))
	return nil
}

func (l LogEvents) DirectionChange() error {
	l.logger().Info("direction change")
	return nil
}

func (l LogEvents) Error(msg string) error {
	l.logger().Warn(msg)
	return nil
}

func (l LogEvents) Info(msg string) error {
	l.logger().Info(msg)
	return nil
}
