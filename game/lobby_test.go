/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finishGame plays a short game out on timeouts alone.
func finishGame(t *testing.T, tb *table) {
	t.Helper()

	tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"maxRounds": 3},
	})
	tb.start(t)

	for range 3 {
		tb.advance(tb.room.settings.SubmissionDuration())
		tb.advance(tb.reg.opts.Timing.ResultsDisplay)
	}
	require.Equal(t, PhaseFinished, tb.room.phase)
	tb.flush()
}

func TestEveryoneReturnsToLobby(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	finishGame(t, tb)

	tb.do(t, tb.clients[1], ActionReturnToLobby, tb.code())
	returning := lastOf[ReturningData](t, events(tb.clients[0]), EventReturningToLobby)
	assert.Equal(t, ReturningData{Player: tb.room.view(tb.room.players[1]), Returning: 1, Total: 3}, returning)

	tb.flush()
	tb.do(t, tb.clients[1], ActionReturnToLobby, tb.code())
	assert.Len(t, tb.room.staying, 1)
	assert.Empty(t, events(tb.clients[0]), "retry was broadcast")

	resent := ofType(events(tb.clients[1]), EventReturningToLobby)
	require.Len(t, resent, 1)
	assert.Equal(t, 1, resent[0].Data.(ReturningData).Returning)

	tb.do(t, tb.clients[0], ActionReturnToLobby, tb.code())
	tb.do(t, tb.clients[2], ActionReturnToLobby, tb.code())

	assert.Equal(t, PhaseWaiting, tb.room.phase)
	assert.Zero(t, tb.room.round)
	assert.Nil(t, tb.room.card)
	assert.Empty(t, tb.room.deck.Used)
	assert.Equal(t, "alice", tb.room.players[0].Name)
	assert.NotEmpty(t, ofType(events(tb.clients[2]), EventReturnedToLobby))
	assert.Nil(t, tb.room.timer, "host handoff still armed")
}

func TestHostHandoff(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	finishGame(t, tb)

	tb.do(t, tb.clients[2], ActionReturnToLobby, tb.code())
	require.Equal(t, PhaseFinished, tb.room.phase)

	tb.advance(tb.reg.opts.Timing.HostHandoff)

	require.Equal(t, PhaseWaiting, tb.room.phase)
	assert.Equal(t, "carol", tb.room.players[0].Name)

	evs := events(tb.clients[1])
	moved := lastOf[HostTransferredData](t, evs, EventHostTransferred)
	assert.Equal(t, "carol", moved.NewHost.Name)
	assert.True(t, moved.NewHost.IsHost)
	assert.Equal(t, "alice", moved.OldHost.Name)

	lobby := lastOf[GameStartedData](t, evs, EventReturnedToLobby)
	assert.True(t, lobby.Players[0].IsHost)
	assert.Equal(t, "carol", lobby.Players[0].Name)

	for _, p := range tb.room.players {
		assert.Zero(t, p.Score)
	}

	tb.do(t, tb.clients[2], ActionStartGame, tb.code())
	assert.Equal(t, PhasePlaying, tb.room.phase)
}

func TestHostHandoffKeepsStayingHost(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	finishGame(t, tb)

	tb.do(t, tb.clients[0], ActionReturnToLobby, tb.code())
	tb.advance(tb.reg.opts.Timing.HostHandoff)

	require.Equal(t, PhaseWaiting, tb.room.phase)
	assert.Equal(t, "alice", tb.room.players[0].Name)
	assert.Empty(t, ofType(events(tb.clients[0]), EventHostTransferred))
}

func TestHostHandoffWithNobodyStaying(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	finishGame(t, tb)

	tb.advance(tb.reg.opts.Timing.HostHandoff)

	assert.Equal(t, PhaseFinished, tb.room.phase)
	assert.Equal(t, "alice", tb.room.players[0].Name)
}

func TestReturnToLobbyOutsideFinished(t *testing.T) {
	tb := seat(t, "alice", "bob")

	tb.do(t, tb.clients[1], ActionReturnToLobby, tb.code())

	assert.Equal(t, ErrInvalidPhase.Code, errorCode(t, events(tb.clients[1])))
}

func TestLateJoinResetsFinishedRoom(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	finishGame(t, tb)

	dave := tb.join(t, "dave")

	assert.Equal(t, PhaseWaiting, tb.room.phase)
	require.Len(t, tb.room.players, 4)
	assert.Equal(t, "alice", tb.room.players[0].Name)

	reset := lastOf[GameStartedData](t, events(tb.clients[0]), EventRoomReset)
	assert.Len(t, reset.Players, 3)

	joined := lastOf[RoomJoinedData](t, events(dave), EventRoomJoined)
	assert.Equal(t, PhaseWaiting, joined.Phase)
	assert.Zero(t, joined.Round)

	assert.Nil(t, tb.room.timer)
}

func TestSettingsUpdateRules(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")

	tb.do(t, tb.clients[1], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"maxRounds": 4},
	})
	assert.Equal(t, ErrNotHost.Code, errorCode(t, events(tb.clients[1])))

	tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"maxRounds": 4, "votingSeconds": 5},
	})
	assert.Equal(t, ErrInvalidSettings.Code, errorCode(t, events(tb.clients[0])))
	assert.Equal(t, 5, tb.room.settings.MaxRounds)

	tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"enabledCategories": []string{"work"}},
	})
	updated := lastOf[SettingsData](t, events(tb.clients[2]), EventSettingsUpdated)
	assert.Equal(t, []string{"work"}, updated.Settings.EnabledCategories)

	tb.start(t)
	assert.Equal(t, "work", tb.room.card.CategoryKey)

	tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"maxRounds": 4},
	})
	assert.Equal(t, ErrInvalidPhase.Code, errorCode(t, events(tb.clients[0])))
}
