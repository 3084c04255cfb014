package player

import (
	"context"
	"errors"
	"testing"

	"github.com/minaorangina/maumau/deck"
	"github.com/minaorangina/maumau/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteWith(conn *internal.FakeConn, codes ...string) *RemotePlayer {
	p := NewRemotePlayer("", "ada", conn, 0)
	for _, c := range codes {
		_ = p.ReceiveCard(card(c))
	}
	return p
}

func TestRemotePlayer(t *testing.T) {
	ctx := context.Background()
	none := deck.IllegalSuit
	req := Request{Uncovered: card("9H"), JackSuit: none, NoSuspend: true}

	t.Run("dealt cards are sent", func(t *testing.T) {
		conn := internal.NewFakeConn()
		p := remoteWith(conn, "7H", "KS")
		assert.Equal(t, []string{"CARD 7H", "CARD KS"}, conn.Written())
		assert.Equal(t, 2, p.CardCount())
		assert.NotEmpty(t, p.ID())
	})

	t.Run("plays a held card", func(t *testing.T) {
		conn := internal.NewFakeConn("", "PLAY 7h")
		p := remoteWith(conn, "7H")

		c, ok, err := p.RequestCard(ctx, req)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, card("7H"), c)
		assert.Contains(t, conn.Written(), "CARD_REQUEST 9H - 0 1")
	})

	t.Run("a card not in the hand is illegal", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("PLAY AC"), "7H")
		c, ok, err := p.RequestCard(ctx, req)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, c.IsIllegal())
	})

	t.Run("take answers with the illegal card", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("TAKE"), "7H")
		c, ok, err := p.RequestCard(ctx, req)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, deck.IllegalCard, c)
	})

	t.Run("suspend and draw set the no card reason", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("SUSPEND", "DRAW"), "7H")

		_, ok, err := p.RequestCard(ctx, req)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, Suspend, p.NoCardReason(req.Uncovered, none))

		_, ok, err = p.RequestCard(ctx, req)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, NoMatch, p.NoCardReason(req.Uncovered, none))
	})

	t.Run("malformed answer is a lost connection", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("DANCE"), "7H")
		_, _, err := p.RequestCard(ctx, req)
		var lost *ConnLostError
		require.ErrorAs(t, err, &lost)
		assert.Equal(t, p.ID(), lost.PlayerID)
		assert.Equal(t, "ada", lost.Name)
		assert.False(t, lost.Watcher)
	})

	t.Run("wrong answer is a lost connection", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("YES"), "7H")
		_, _, err := p.RequestCard(ctx, req)
		assert.ErrorIs(t, err, ErrUnexpectedAnswer)
	})

	t.Run("hang up", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn(), "7H")
		_, _, err := p.RequestCard(ctx, req)
		var lost *ConnLostError
		assert.ErrorAs(t, err, &lost)
	})

	t.Run("cancelled context is not a lost connection", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		p := remoteWith(internal.NewFakeConn("PLAY 7H"), "7H")
		_, _, err := p.RequestCard(cctx, req)
		assert.ErrorIs(t, err, context.Canceled)
		var lost *ConnLostError
		assert.False(t, errors.As(err, &lost))
	})

	t.Run("jack choice", func(t *testing.T) {
		conn := internal.NewFakeConn("SUIT clubs", "SUIT purple")
		p := remoteWith(conn)

		s, err := p.JackChoice(ctx, card("9H"), card("JH"))
		require.NoError(t, err)
		assert.Equal(t, deck.Clubs, s)
		assert.Equal(t, []string{"JACK_REQUEST 9H JH"}, conn.Written())

		s, err = p.JackChoice(ctx, card("9H"), card("JH"))
		require.NoError(t, err)
		assert.Equal(t, deck.IllegalSuit, s)
	})

	t.Run("ace round choice", func(t *testing.T) {
		p := remoteWith(internal.NewFakeConn("YES", "NO", "PLAY 7H"))
		yes, err := p.AceRoundChoice(ctx)
		require.NoError(t, err)
		assert.True(t, yes)
		yes, err = p.AceRoundChoice(ctx)
		require.NoError(t, err)
		assert.False(t, yes)
		_, err = p.AceRoundChoice(ctx)
		assert.ErrorIs(t, err, ErrUnexpectedAnswer)
	})

	t.Run("notifications", func(t *testing.T) {
		conn := internal.NewFakeConn()
		p := remoteWith(conn)
		require.NoError(t, p.TalonShuffled())
		require.NoError(t, p.SetNineIsSuspend(true))
		require.NoError(t, p.SetDirChangeEnabled(false))
		require.NoError(t, p.SetNeighbourStats(NeighbourStats{CardCount: 3, Suit: deck.Hearts, Rank: deck.King}))
		assert.Equal(t, []string{
			"TALON_SHUFFLED",
			"NINE_IS_SUSPEND 1",
			"DIR_CHANGE_ENABLED 0",
			"NEIGHBOUR 3 Hearts King",
		}, conn.Written())
	})

	t.Run("dead connection", func(t *testing.T) {
		conn := internal.NewFakeConn()
		p := remoteWith(conn)
		assert.True(t, p.IsAlive())
		conn.Kill()
		assert.False(t, p.IsAlive())
		err := p.TalonShuffled()
		var lost *ConnLostError
		require.ErrorAs(t, err, &lost)
		assert.Equal(t, conn, lost.Conn)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		conn := internal.NewFakeConn()
		p := remoteWith(conn)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.True(t, conn.Closed())
		assert.False(t, p.IsAlive())
	})
}
