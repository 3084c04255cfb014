// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/minaorangina/maumau"
	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/rules"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the server configuration
type Config struct {
	ListenAddr string `env:"MAUMAU_LISTEN,default=:7777"`
	HTTPAddr   string `env:"MAUMAU_HTTP,default=:8000"`

	// Humans is the number of remote players a round waits for
	Humans    int      `env:"MAUMAU_HUMANS,default=1"`
	AIPlayers []string `env:"MAUMAU_AI_PLAYERS,default=Hal;Eve"`

	Decks            int    `env:"MAUMAU_DECKS,default=1"`
	InitialCards     int    `env:"MAUMAU_INITIAL_CARDS,default=5"`
	AceRound         string `env:"MAUMAU_ACE_ROUND,default=none"`
	DirChange        bool   `env:"MAUMAU_DIR_CHANGE,default=false"`
	Ultimate         bool   `env:"MAUMAU_ULTIMATE,default=false"`
	LoserTakesSevens bool   `env:"MAUMAU_LOSER_TAKES_SEVENS,default=false"`
	MaxRejections    int    `env:"MAUMAU_MAX_REJECTIONS,default=3"`

	AIDelay     time.Duration `env:"MAUMAU_AI_DELAY,default=1s"`
	AlwaysWait  bool          `env:"MAUMAU_ALWAYS_WAIT,default=false"`
	ReadTimeout time.Duration `env:"MAUMAU_READ_TIMEOUT,default=2m"`

	DBPath      string `env:"MAUMAU_DB,default=maumau.db"`
	RulesScript string `env:"MAUMAU_RULES_SCRIPT"`
	Dev         bool   `env:"MAUMAU_DEV,default=false"`
}

// Load decodes the environment
func Load() (*Config, error) {
	var c Config
	if err := envdecode.Decode(&c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values against each other
func (c *Config) Validate() error {
	if c.Decks < 1 {
		return fmt.Errorf("%w: at least one deck is needed", ErrInvalid)
	}
	if c.InitialCards < 1 {
		return fmt.Errorf("%w: at least one initial card is needed", ErrInvalid)
	}
	if c.Humans < 0 {
		return fmt.Errorf("%w: negative number of humans", ErrInvalid)
	}
	seats := c.Humans + len(c.AIPlayers)
	if seats < 2 {
		return fmt.Errorf("%w: a round needs two players, %d configured", ErrInvalid, seats)
	}
	if limit := 5 * c.Decks; seats > limit {
		return fmt.Errorf("%w: %d players do not fit %d decks", ErrInvalid, seats, c.Decks)
	}
	if seats*c.InitialCards+1 > c.Decks*deck.Size {
		return fmt.Errorf("%w: %d cards each is too many for %d players", ErrInvalid, c.InitialCards, seats)
	}
	if _, _, err := c.aceRound(); err != nil {
		return err
	}
	return nil
}

func (c *Config) aceRound() (bool, deck.Rank, error) {
	switch strings.ToLower(strings.TrimSpace(c.AceRound)) {
	case "", "none", "off":
		return false, deck.IllegalRank, nil
	case "ace", "a":
		return true, deck.Ace, nil
	case "queen", "q":
		return true, deck.Queen, nil
	case "king", "k":
		return true, deck.King, nil
	}
	return false, deck.IllegalRank, fmt.Errorf("%w: ace round rank %q", ErrInvalid, c.AceRound)
}

// GameOptions converts the configuration for a session
func (c *Config) GameOptions() maumau.Options {
	return maumau.Options{
		InitialCards:     c.InitialCards,
		Decks:            c.Decks,
		Ultimate:         c.Ultimate,
		LoserTakesSevens: c.LoserTakesSevens,
		AIDelay:          c.AIDelay,
		AlwaysWait:       c.AlwaysWait,
		MaxRejections:    c.MaxRejections,
	}
}

// RuleOptions converts the configuration for the standard rules.
// The Lua matcher, if any, is attached by the caller.
func (c *Config) RuleOptions() rules.Options {
	on, rank, _ := c.aceRound()
	return rules.Options{
		AceRounds:    on,
		AceRoundRank: rank,
		DirChange:    c.DirChange,
		Decks:        c.Decks,
	}
}
