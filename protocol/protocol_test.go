package protocol

import (
	"testing"

	"github.com/minaorangina/maumau/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdNames(t *testing.T) {
	t.Run("every command has a name and parses back", func(t *testing.T) {
		for cmd, name := range CmdNames {
			assert.Equal(t, cmd, NameToCmd[name], name)
			assert.Equal(t, name, cmd.String())
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("command and args", func(t *testing.T) {
		m, err := Parse("play  10H\r\n")
		require.NoError(t, err)
		assert.Equal(t, Play, m.Cmd)
		c, err := m.CardArg(0)
		require.NoError(t, err)
		assert.Equal(t, deck.NewCard(deck.Ten, deck.Hearts), c)
	})

	t.Run("empty line", func(t *testing.T) {
		_, err := Parse("   ")
		assert.ErrorIs(t, err, ErrEmptyLine)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := Parse("DANCE now")
		assert.ErrorIs(t, err, ErrUnknownCommand)

		_, err = Parse("NULL")
		assert.ErrorIs(t, err, ErrUnknownCommand)
	})

	t.Run("missing argument", func(t *testing.T) {
		m, err := Parse("SUIT")
		require.NoError(t, err)
		_, err = m.Arg(0)
		assert.ErrorIs(t, err, ErrMissingArg)
	})
}

func TestBuild(t *testing.T) {
	tt := []struct {
		name string
		msg  Message
		want string
	}{
		{"bare", New(Suspend), "SUSPEND"},
		{"names become one token", New(Wins, "Ada Lovelace", "3"), "WINS Ada_Lovelace 3"},
		{"empty arg", New(Error, ""), "ERROR -"},
		{
			"card request in jack mode",
			NewCardRequest(deck.NewCard(deck.Jack, deck.Clubs), deck.Hearts, 0, true),
			"CARD_REQUEST JC HEARTS 0 1",
		},
		{
			"card request with take count",
			NewCardRequest(deck.NewCard(deck.Seven, deck.Spades), deck.IllegalSuit, 4, false),
			"CARD_REQUEST 7S - 4 0",
		},
		{
			"jack request",
			NewJackRequest(deck.NewCard(deck.Nine, deck.Spades), deck.NewCard(deck.Jack, deck.Diamonds)),
			"JACK_REQUEST 9S JD",
		},
		{"flag", NewFlag(NineIsSuspend, true), "NINE_IS_SUSPEND 1"},
		{"text keeps spaces", NewText(Error, "Ada left\nthe game"), "ERROR Ada left the game"},
		{"empty text", NewText(Info, "  "), "INFO"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.msg.String())
		})
	}

	t.Run("parse round trip of a request", func(t *testing.T) {
		m, err := Parse(NewCardRequest(deck.NewCard(deck.Seven, deck.Spades), deck.IllegalSuit, 4, true).String())
		require.NoError(t, err)
		n, err := m.Int(2)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		ns, err := m.FlagArg(3)
		require.NoError(t, err)
		assert.True(t, ns)
	})

	t.Run("text survives parsing", func(t *testing.T) {
		m, err := Parse(NewText(Info, "watcher Bob left").String())
		require.NoError(t, err)
		assert.Equal(t, Info, m.Cmd)
		assert.Equal(t, "watcher Bob left", m.Text())
	})
}
