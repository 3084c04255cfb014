package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/minaorangina/maumau/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChooser struct {
	id         string
	suit       deck.Suit
	aceAnswers []bool
	err        error
	jackAsked  int
}

func (c *fakeChooser) ID() string { return c.id }
func (c *fakeChooser) Name() string { return "name-" + c.id }

func (c *fakeChooser) JackChoice(ctx context.Context, uncovered, played deck.Card) (deck.Suit, error) {
	c.jackAsked++
	return c.suit, c.err
}

func (c *fakeChooser) AceRoundChoice(ctx context.Context) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if len(c.aceAnswers) == 0 {
		return false, nil
	}
	a := c.aceAnswers[0]
	c.aceAnswers = c.aceAnswers[1:]
	return a, nil
}

type spyAceListener struct {
	started, ended []string
}

func (l *spyAceListener) AceRoundStarted(p Chooser) error {
	l.started = append(l.started, p.ID())
	return nil
}

func (l *spyAceListener) AceRoundEnded(p Chooser) error {
	l.ended = append(l.ended, p.ID())
	return nil
}

func card(code string) deck.Card {
	c, err := deck.ParseCard(code)
	if err != nil {
		panic(err)
	}
	return c
}

func factor(t *testing.T, r *StdRuleSet, code string) int {
	t.Helper()
	f, err := r.LostPointFactor(card(code))
	require.NoError(t, err)
	return f
}

func TestCheckCard(t *testing.T) {
	ctx := context.Background()

	tt := []struct {
		name      string
		uncovered string
		played    string
		accepted  bool
	}{
		{"same suit", "7H", "KH", true},
		{"same rank", "KS", "KH", true},
		{"neither suit nor rank", "KS", "QH", false},
		{"jack on anything", "9D", "JC", true},
		{"jack on jack", "JD", "JC", false},
		{"illegal card", "9D", "XX", false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := NewStdRuleSet(Options{}, nil)
			p := &fakeChooser{id: "a", suit: deck.Spades}
			ok, err := r.CheckCard(ctx, p, card(tc.uncovered), card(tc.played), false)
			require.NoError(t, err)
			assert.Equal(t, tc.accepted, ok)
		})
	}
}

func TestSpecialRanks(t *testing.T) {
	ctx := context.Background()

	t.Run("seven starts and grows a take chain", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		p := &fakeChooser{id: "a"}

		ok, err := r.CheckCard(ctx, p, card("9H"), card("7H"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 2, r.TakeCount())

		ok, err = r.CheckCard(ctx, p, card("7H"), card("KH"), false)
		require.NoError(t, err)
		assert.False(t, ok, "only a seven answers a seven")

		ok, err = r.CheckCard(ctx, p, card("7H"), card("7S"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 4, r.TakeCount())
		assert.Equal(t, 0, r.TakeCards(card("7C")))
		assert.Equal(t, 4, r.TakeCards(deck.IllegalCard))

		r.HasTakenCards()
		assert.Equal(t, 0, r.TakeCount())
	})

	t.Run("eight forces a suspend", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		ok, err := r.CheckCard(ctx, &fakeChooser{id: "a"}, card("8D"), card("8H"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, r.HasToSuspend())
		r.HasSuspended()
		assert.False(t, r.HasToSuspend())
	})

	t.Run("jack enables jack mode with the chosen suit", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		p := &fakeChooser{id: "a", suit: deck.Clubs}
		ok, err := r.CheckCard(ctx, p, card("9H"), card("JH"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, r.IsJackMode())
		assert.Equal(t, deck.Clubs, r.JackSuit())

		ok, err = r.CheckCard(ctx, p, card("JH"), card("QH"), false)
		require.NoError(t, err)
		assert.False(t, ok, "wished suit is clubs")

		ok, err = r.CheckCard(ctx, p, card("JH"), card("JC"), false)
		require.NoError(t, err)
		assert.False(t, ok, "no jack on jack")

		ok, err = r.CheckCard(ctx, p, card("JH"), card("QC"), false)
		require.NoError(t, err)
		assert.True(t, ok)

		r.SetJackModeOff()
		assert.False(t, r.IsJackMode())
		assert.Equal(t, deck.IllegalSuit, r.JackSuit())
	})

	t.Run("illegal wished suit falls back to the jack's suit", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		p := &fakeChooser{id: "a", suit: deck.IllegalSuit}
		_, err := r.CheckCard(ctx, p, card("9H"), card("JD"), false)
		require.NoError(t, err)
		assert.Equal(t, deck.Diamonds, r.JackSuit())
	})

	t.Run("jack choice error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewStdRuleSet(Options{}, nil)
		_, err := r.CheckCard(ctx, &fakeChooser{id: "a", err: boom}, card("9H"), card("JD"), false)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nine changes direction only when enabled", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		_, err := r.CheckCard(ctx, &fakeChooser{id: "a"}, card("9H"), card("9D"), false)
		require.NoError(t, err)
		assert.False(t, r.HasDirChange())

		r = NewStdRuleSet(Options{DirChange: true}, nil)
		_, err = r.CheckCard(ctx, &fakeChooser{id: "a"}, card("9H"), card("9D"), false)
		require.NoError(t, err)
		assert.True(t, r.HasDirChange())
		r.DirChanged()
		assert.False(t, r.HasDirChange())
	})

	t.Run("nine suspends when direction change acts as suspend", func(t *testing.T) {
		r := NewStdRuleSet(Options{DirChange: true}, nil)
		r.SetDirChangeIsSuspend(true)
		_, err := r.CheckCard(ctx, &fakeChooser{id: "a"}, card("9H"), card("9D"), false)
		require.NoError(t, err)
		assert.False(t, r.HasDirChange())
		assert.True(t, r.HasToSuspend())
	})
}

func TestCheckInitial(t *testing.T) {
	ctx := context.Background()

	t.Run("seven", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		require.NoError(t, r.CheckInitial(ctx, &fakeChooser{id: "a"}, card("7S")))
		assert.Equal(t, 2, r.TakeCount())
	})

	t.Run("eight", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		require.NoError(t, r.CheckInitial(ctx, &fakeChooser{id: "a"}, card("8S")))
		assert.True(t, r.HasToSuspend())
	})

	t.Run("jack asks the first player", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		p := &fakeChooser{id: "a", suit: deck.Hearts}
		require.NoError(t, r.CheckInitial(ctx, p, card("JS")))
		assert.Equal(t, 1, p.jackAsked)
		assert.True(t, r.IsJackMode())
		assert.Equal(t, deck.Hearts, r.JackSuit())
	})

	t.Run("plain card has no effect", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		require.NoError(t, r.CheckInitial(ctx, &fakeChooser{id: "a"}, card("KS")))
		assert.Zero(t, r.TakeCount())
		assert.False(t, r.HasToSuspend())
		assert.False(t, r.IsJackMode())
	})
}

func TestAceRound(t *testing.T) {
	ctx := context.Background()

	t.Run("start, continue and end", func(t *testing.T) {
		l := &spyAceListener{}
		r := NewStdRuleSet(Options{AceRounds: true}, l)
		p := &fakeChooser{id: "a", aceAnswers: []bool{true, true, false}}

		ok, err := r.CheckCard(ctx, p, card("AD"), card("AH"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, r.IsAceRound())
		assert.Equal(t, []string{"a"}, l.started)

		ok, err = r.CheckCard(ctx, p, card("AH"), card("KH"), false)
		require.NoError(t, err)
		assert.False(t, ok, "only aces during an ace round")

		ok, err = r.CheckCard(ctx, p, card("AH"), card("AS"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, r.IsAceRound())

		ok, err = r.CheckCard(ctx, p, card("AS"), card("AC"), false)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, r.IsAceRound())
		assert.Equal(t, []string{"a"}, l.ended)
	})

	t.Run("declined ace round never starts", func(t *testing.T) {
		l := &spyAceListener{}
		r := NewStdRuleSet(Options{AceRounds: true}, l)
		_, err := r.CheckCard(ctx, &fakeChooser{id: "a"}, card("AD"), card("AH"), false)
		require.NoError(t, err)
		assert.False(t, r.IsAceRound())
		assert.Empty(t, l.started)
	})

	t.Run("configured rank", func(t *testing.T) {
		r := NewStdRuleSet(Options{AceRounds: true, AceRoundRank: deck.Queen}, nil)
		assert.Equal(t, deck.Queen, r.AceRoundRank())
		p := &fakeChooser{id: "a", aceAnswers: []bool{true}}
		_, err := r.CheckCard(ctx, p, card("QD"), card("QH"), false)
		require.NoError(t, err)
		assert.True(t, r.IsAceRound())
	})

	t.Run("unsupported rank defaults to ace", func(t *testing.T) {
		r := NewStdRuleSet(Options{AceRounds: true, AceRoundRank: deck.Seven}, nil)
		assert.Equal(t, deck.Ace, r.AceRoundRank())
	})

	t.Run("end ace round is a no-op outside one", func(t *testing.T) {
		l := &spyAceListener{}
		r := NewStdRuleSet(Options{AceRounds: true}, l)
		require.NoError(t, r.EndAceRound(&fakeChooser{id: "a"}))
		assert.Empty(t, l.ended)
	})
}

func TestMisc(t *testing.T) {
	t.Run("lost point factor", func(t *testing.T) {
		r := NewStdRuleSet(Options{}, nil)
		assert.Equal(t, 2, factor(t, r, "JH"))
		assert.Equal(t, 1, factor(t, r, "AH"))
	})

	t.Run("max players scales with decks", func(t *testing.T) {
		assert.Equal(t, 5, NewStdRuleSet(Options{}, nil).MaxPlayers())
		assert.Equal(t, 10, NewStdRuleSet(Options{Decks: 2}, nil).MaxPlayers())
	})

	t.Run("reset clears round state", func(t *testing.T) {
		r := NewStdRuleSet(Options{DirChange: true}, nil)
		ctx := context.Background()
		_, _ = r.CheckCard(ctx, &fakeChooser{id: "a", suit: deck.Clubs}, card("9H"), card("JH"), false)
		r.SetDirChangeIsSuspend(true)
		r.Reset()
		assert.False(t, r.IsJackMode())
		assert.False(t, r.DirChangeIsSuspend())
		assert.Zero(t, r.TakeCount())
		r.Reset()
		assert.False(t, r.IsJackMode())
	})
}
