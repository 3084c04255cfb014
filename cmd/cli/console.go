package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/protocol"
)

const (
	cardPromptText    = "\nOn the table: %s%s\nYour cards: %s\nPlay a card, or (d)raw, (s)uspend, (t)ake: "
	jackPromptText    = "Which suit do you wish for? (d)iamonds, (h)earts, (s)pades, (c)lubs: "
	acePromptText     = "Start or continue the ace round? [y/n] "
	retryCardText     = "Please type a card like 7H, QS or 10D, or d, s or t\n"
	retrySuitText     = "Please type d, h, s or c\n"
	retryYesNoText    = "Invalid choice. Please enter \"y\" for \"yes\" or \"n\" for \"no\"\n"
	notYourCardText   = "You do not have %s\n"
	timeoutText       = "\nTimed out waiting for your answer."
	interruptedText   = "\nThe game was interrupted."
	closedConsoleText = "Thanks for playing!\n"
)

var (
	errConsoleClosed = errors.New("console closed")
	errAnswerTimeout = errors.New("answer timed out")
)

func SendText(w io.Writer, text string, a ...interface{}) {
	fmt.Fprintf(w, text, a...)
}

// console lets a human at the terminal take a seat. It reads the server
// side of the line protocol and translates it to text and back.
type console struct {
	name string
	out  io.Writer

	lines chan string
	done  chan struct{}

	mu      sync.Mutex
	hand    []deck.Card
	request protocol.Message
	closed  bool
}

func newConsole(name string, in io.Reader, out io.Writer) *console {
	c := &console{
		name:  protocol.Token(name),
		out:   out,
		lines: make(chan string),
		done:  make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case c.lines <- strings.TrimSpace(scanner.Text()):
			case <-c.done:
				return
			}
		}
		close(c.lines)
	}()

	return c
}

// WriteLine renders one protocol line
func (c *console) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConsoleClosed
	}
	m, err := protocol.Parse(line)
	if err != nil {
		return nil
	}

	if text := c.render(m); text != "" {
		SendText(c.out, "%s", text)
	}
	return nil
}

func (c *console) render(m protocol.Message) string {
	arg := func(i int) string {
		a, _ := m.Arg(i)
		if a == c.name {
			return "You"
		}
		return a
	}

	switch m.Cmd {
	case protocol.Card:
		if card, err := m.CardArg(0); err == nil {
			c.hand = append(c.hand, card)
		}
		return ""
	case protocol.CardRequest, protocol.JackRequest, protocol.AceRoundRequest:
		c.request = m
		return c.prompt()
	case protocol.PlaysCard:
		if who, _ := m.Arg(0); who == c.name {
			if card, err := m.CardArg(1); err == nil {
				c.remove(card)
			}
		}
		return fmt.Sprintf("%s played %s\n", arg(0), arg(1))
	case protocol.Uncovered:
		return fmt.Sprintf("The first card is %s\n", arg(0))
	case protocol.Turn:
		return fmt.Sprintf("\n== Turn %s ==\n", arg(0))
	case protocol.PicksCard:
		return fmt.Sprintf("%s picked a card\n", arg(0))
	case protocol.PicksCards:
		return fmt.Sprintf("%s picked %s cards\n", arg(0), arg(1))
	case protocol.Suspends:
		return fmt.Sprintf("%s suspended\n", arg(0))
	case protocol.CardRejected:
		return fmt.Sprintf("%s cannot be played\n", arg(1))
	case protocol.JackSuit:
		return fmt.Sprintf("%s wished for %s\n", arg(0), strings.ToLower(arg(1)))
	case protocol.Wins:
		return fmt.Sprintf("%s won in turn %s!\n", arg(0), arg(1))
	case protocol.Lost:
		return fmt.Sprintf("%s lost with %s points\n", arg(0), arg(2))
	case protocol.DirectionChange:
		return "The direction changed\n"
	case protocol.AceRoundStarted:
		return fmt.Sprintf("%s started an ace round\n", arg(0))
	case protocol.AceRoundEnded:
		return fmt.Sprintf("%s ended the ace round\n", arg(0))
	case protocol.TalonShuffled:
		return "The talon was shuffled\n"
	case protocol.Error, protocol.Info:
		return m.Text() + "\n"
	case protocol.GameOver:
		c.hand = nil
		return "Game over.\n"
	}
	return ""
}

func (c *console) remove(card deck.Card) {
	for i, h := range c.hand {
		if h == card {
			c.hand = append(c.hand[:i], c.hand[i+1:]...)
			return
		}
	}
}

func (c *console) prompt() string {
	switch c.request.Cmd {
	case protocol.CardRequest:
		extra := ""
		if js, _ := c.request.Arg(1); js != "-" {
			extra += ", wished for " + strings.ToLower(js)
		}
		if n, _ := c.request.Int(2); n > 0 {
			extra += fmt.Sprintf(", take %d or play a seven", n)
		}
		uncovered, _ := c.request.Arg(0)
		codes := make([]string, len(c.hand))
		for i, card := range c.hand {
			codes[i] = card.Code()
		}
		return fmt.Sprintf(cardPromptText, uncovered, extra, strings.Join(codes, " "))
	case protocol.JackRequest:
		return jackPromptText
	case protocol.AceRoundRequest:
		return acePromptText
	}
	return ""
}

// ReadLine waits for an answer to the last request and translates it
func (c *console) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return "", io.EOF
			}
			if answer, ok := c.translate(line); ok {
				return answer, nil
			}
		case <-c.done:
			return "", errConsoleClosed
		case <-ctx.Done():
			SendText(c.out, interruptedText)
			return "", ctx.Err()
		case <-expired:
			SendText(c.out, timeoutText)
			return "", errAnswerTimeout
		}
	}
}

func (c *console) translate(line string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.request.Cmd {
	case protocol.CardRequest:
		switch strings.ToLower(line) {
		case "d", "draw":
			return protocol.New(protocol.Draw).String(), true
		case "s", "suspend":
			return protocol.New(protocol.Suspend).String(), true
		case "t", "take":
			return protocol.New(protocol.Take).String(), true
		}
		card, err := deck.ParseCard(line)
		if err != nil {
			SendText(c.out, retryCardText)
			return "", false
		}
		for _, h := range c.hand {
			if h == card {
				return protocol.New(protocol.Play, card.Code()).String(), true
			}
		}
		SendText(c.out, notYourCardText, card.Code())
		return "", false

	case protocol.JackRequest:
		s, err := deck.ParseSuit(line)
		if err != nil {
			SendText(c.out, retrySuitText)
			return "", false
		}
		return protocol.New(protocol.Suit, strings.ToUpper(s.String())).String(), true

	case protocol.AceRoundRequest:
		switch strings.ToLower(line) {
		case "y", "yes":
			return protocol.New(protocol.Yes).String(), true
		case "n", "no":
			return protocol.New(protocol.No).String(), true
		}
		SendText(c.out, retryYesNoText)
		return "", false
	}

	// nothing was asked
	return "", false
}

func (c *console) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *console) RemoteAddr() string { return "console" }

func (c *console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	SendText(c.out, closedConsoleText)
	return nil
}
