// Package protocol holds the line protocol spoken between the game server and
// its clients. Every message is one line of space separated tokens, command
// first.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/minaorangina/maumau/deck"
)

// Cmd represents a command
type Cmd int

const (
	Null Cmd = iota

	// handshake
	Join
	Watch
	Welcome

	// requests to a player and their answers
	CardRequest
	JackRequest
	AceRoundRequest
	Play
	Suspend
	Draw
	Take
	Suit
	Yes
	No

	// private notifications
	Card
	Neighbour
	NineIsSuspend
	DirChangeEnabled

	// broadcasts
	Uncovered
	TalonEmpty
	TalonShuffled
	Turn
	NextPlayer
	PicksCard
	PicksCards
	Suspends
	PlaysCard
	CardRejected
	JackSuit
	Wins
	Lost
	DirectionChange
	AceRoundStarted
	AceRoundEnded
	Error
	Info
	GameOver
)

var CmdNames = map[Cmd]string{
	Null:             "NULL",
	Join:             "JOIN",
	Watch:            "WATCH",
	Welcome:          "WELCOME",
	CardRequest:      "CARD_REQUEST",
	JackRequest:      "JACK_REQUEST",
	AceRoundRequest:  "ACE_ROUND_REQUEST",
	Play:             "PLAY",
	Suspend:          "SUSPEND",
	Draw:             "DRAW",
	Take:             "TAKE",
	Suit:             "SUIT",
	Yes:              "YES",
	No:               "NO",
	Card:             "CARD",
	Neighbour:        "NEIGHBOUR",
	NineIsSuspend:    "NINE_IS_SUSPEND",
	DirChangeEnabled: "DIR_CHANGE_ENABLED",
	Uncovered:        "UNCOVERED",
	TalonEmpty:       "TALON_EMPTY",
	TalonShuffled:    "TALON_SHUFFLED",
	Turn:             "TURN",
	NextPlayer:       "NEXT_PLAYER",
	PicksCard:        "PICKS_CARD",
	PicksCards:       "PICKS_CARDS",
	Suspends:         "SUSPENDS",
	PlaysCard:        "PLAYS_CARD",
	CardRejected:     "CARD_REJECTED",
	JackSuit:         "JACK_SUIT",
	Wins:             "WINS",
	Lost:             "LOST",
	DirectionChange:  "DIRECTION_CHANGE",
	AceRoundStarted:  "ACE_ROUND_STARTED",
	AceRoundEnded:    "ACE_ROUND_ENDED",
	Error:            "ERROR",
	Info:             "INFO",
	GameOver:         "GAME_OVER",
}

var NameToCmd = map[string]Cmd{}

func init() {
	for cmd, name := range CmdNames {
		NameToCmd[name] = cmd
	}
}

func (c Cmd) String() string {
	return CmdNames[c]
}

var (
	ErrEmptyLine      = errors.New("empty line")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingArg     = errors.New("missing argument")
)

// Message is one protocol line
type Message struct {
	Cmd  Cmd
	Args []string
}

// New builds a message; args are sanitised so they stay single tokens
func New(cmd Cmd, args ...string) Message {
	clean := make([]string, len(args))
	for i, a := range args {
		clean[i] = Token(a)
	}
	return Message{Cmd: cmd, Args: clean}
}

func (m Message) String() string {
	if len(m.Args) == 0 {
		return m.Cmd.String()
	}
	return m.Cmd.String() + " " + strings.Join(m.Args, " ")
}

// Arg returns the i-th argument
func (m Message) Arg(i int) (string, error) {
	if i < 0 || i >= len(m.Args) {
		return "", fmt.Errorf("%w: %s needs argument %d", ErrMissingArg, m.Cmd, i+1)
	}
	return m.Args[i], nil
}

// Int returns the i-th argument as an integer
func (m Message) Int(i int) (int, error) {
	a, err := m.Arg(i)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(a)
}

// CardArg returns the i-th argument as a card
func (m Message) CardArg(i int) (deck.Card, error) {
	a, err := m.Arg(i)
	if err != nil {
		return deck.IllegalCard, err
	}
	return deck.ParseCard(a)
}

// Parse reads one protocol line
func Parse(line string) (Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Message{}, ErrEmptyLine
	}

	cmd, ok := NameToCmd[strings.ToUpper(fields[0])]
	if !ok || cmd == Null {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	return Message{Cmd: cmd, Args: fields[1:]}, nil
}

// Token squeezes s into a single token. Empty strings become "-".
func Token(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "-"
	}
	return s
}

// Flag encodes a boolean argument
func Flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// NewCardRequest asks a player for a card
func NewCardRequest(uncovered deck.Card, jackSuit deck.Suit, takeCount int, noSuspend bool) Message {
	js := "-"
	if jackSuit != deck.IllegalSuit {
		js = strings.ToUpper(jackSuit.String())
	}
	return New(CardRequest, uncovered.Code(), js, strconv.Itoa(takeCount), Flag(noSuspend))
}

// NewJackRequest asks a player which suit they wish for
func NewJackRequest(uncovered, played deck.Card) Message {
	return New(JackRequest, uncovered.Code(), played.Code())
}

// NewText builds a message whose single argument is free text. Line breaks
// are folded into spaces.
func NewText(cmd Cmd, text string) Message {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return Message{Cmd: cmd}
	}
	return Message{Cmd: cmd, Args: []string{text}}
}

// Text joins the arguments back into free text
func (m Message) Text() string {
	return strings.Join(m.Args, " ")
}

// NewFlag builds a message with a single boolean argument
func NewFlag(cmd Cmd, b bool) Message {
	return New(cmd, Flag(b))
}

// FlagArg returns the i-th argument as a boolean
func (m Message) FlagArg(i int) (bool, error) {
	a, err := m.Arg(i)
	if err != nil {
		return false, err
	}
	return a == "1", nil
}
