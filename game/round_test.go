/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalScore(r *Room) int {
	n := 0
	for _, s := range r.scores {
		n += s
	}
	return n
}

func TestFullGame(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	timing := tb.reg.opts.Timing

	tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
		"code":     tb.room.code,
		"settings": map[string]any{"maxRounds": 3},
	})
	require.Equal(t, 3, tb.room.settings.MaxRounds)
	tb.flush()

	tb.start(t)

	for round := 1; round <= 3; round++ {
		require.Equal(t, round, tb.room.round)
		require.Equal(t, PhasePlaying, tb.room.phase)

		tb.submitAll(t)

		picks := make([]string, len(tb.clients))
		for i, c := range tb.clients {
			set := tb.ballot(t, c)
			require.Len(t, set, 2, "ballot for %s", c.Hint.Name)

			for _, s := range set {
				assert.NotEqual(t, c.Hint.Name, s.TopText, "%s was offered their own meme", c.Hint.Name)
				assert.Empty(t, s.PlayerID)
				assert.Empty(t, s.PlayerName)
			}
			picks[i] = set[0].ID
		}

		for i, c := range tb.clients {
			tb.do(t, c, ActionVote, map[string]string{"submissionId": picks[i]})
		}
		require.Equal(t, PhaseVoting, tb.room.phase)
		assert.NotEmpty(t, ofType(events(tb.clients[0]), EventVotingEndedEarly))

		tb.advance(timing.VotingSettle)
		require.Equal(t, PhaseResults, tb.room.phase)

		results := lastOf[RoundResultsData](t, events(tb.clients[1]), EventRoundResults)
		assert.Equal(t, round, results.Round)
		assert.Len(t, results.Submissions, 3)
		assert.Equal(t, 3*round, totalScore(tb.room))

		for i := 1; i < len(results.Submissions); i++ {
			assert.GreaterOrEqual(t, results.Submissions[i-1].Votes, results.Submissions[i].Votes)
		}

		tb.flush()
		tb.advance(timing.ResultsDisplay)
	}

	require.Equal(t, PhaseFinished, tb.room.phase)

	final := lastOf[GameFinishedData](t, events(tb.clients[2]), EventGameFinished).FinalScores
	require.Len(t, final, 3)

	sum := 0
	for i, s := range final {
		sum += s.Score
		if i > 0 {
			assert.GreaterOrEqual(t, final[i-1].Score, s.Score)
		}
	}
	assert.Equal(t, 9, sum)
}

func TestStaleSubmissionTimerIsIgnored(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)

	for _, c := range tb.clients {
		tb.submitText(t, c, c.Hint.Name)
	}
	require.True(t, tb.room.settling(timerSubmissionSettle))

	// The submission deadline lost the race with the last submission.
	stale := tb.clock.stopped()
	require.NotEmpty(t, stale)
	for _, f := range stale {
		f()
	}
	drain(tb.room)

	assert.Equal(t, PhasePlaying, tb.room.phase)
	assert.Empty(t, ofType(events(tb.clients[0]), EventVotingStarted))

	tb.advance(tb.reg.opts.Timing.SubmissionSettle)
	assert.Equal(t, PhaseVoting, tb.room.phase)
	assert.Len(t, ofType(events(tb.clients[0]), EventVotingStarted), 1)
}

func TestVotingDeadlineAndLastVoteScoreOnce(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)
	tb.submitAll(t)

	for _, c := range tb.clients {
		set := tb.ballot(t, c)
		tb.do(t, c, ActionVote, map[string]string{"submissionId": set[0].ID})
	}
	require.True(t, tb.room.settling(timerVotingSettle))

	for _, f := range tb.clock.stopped() {
		f()
	}
	drain(tb.room)
	require.Equal(t, PhaseVoting, tb.room.phase)

	tb.advance(tb.reg.opts.Timing.VotingSettle)
	tb.advance(tb.room.settings.VotingDuration())

	assert.Len(t, ofType(events(tb.clients[0]), EventRoundResults), 1)
	assert.Equal(t, 3, totalScore(tb.room))
}

func TestSubmissionTimeoutWithNoSubmissions(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)
	tb.flush()

	tb.advance(tb.room.settings.SubmissionDuration())
	require.Equal(t, PhaseResults, tb.room.phase)

	evs := events(tb.clients[0])
	assert.Empty(t, ofType(evs, EventVotingStarted))
	results := lastOf[RoundResultsData](t, evs, EventRoundResults)
	assert.Empty(t, results.Submissions)
	assert.Zero(t, totalScore(tb.room))

	tb.advance(tb.reg.opts.Timing.ResultsDisplay)
	assert.Equal(t, PhasePlaying, tb.room.phase)
	assert.Equal(t, 2, tb.room.round)
}

func TestSubmissionTimeoutWithSomeSubmissions(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)

	tb.submitText(t, tb.clients[0], "alice")
	tb.submitText(t, tb.clients[1], "bob")
	require.Equal(t, PhasePlaying, tb.room.phase)

	tb.flush()
	tb.advance(tb.room.settings.SubmissionDuration())
	require.Equal(t, PhaseVoting, tb.room.phase)

	assert.Len(t, tb.ballot(t, tb.clients[0]), 1)
	assert.Len(t, tb.ballot(t, tb.clients[1]), 1)
	assert.Len(t, tb.ballot(t, tb.clients[2]), 2)
	assert.Equal(t, 3, tb.room.expectedVoters())
}

func TestLeaverCompletesSubmissions(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)

	tb.submitText(t, tb.clients[0], "alice")
	tb.submitText(t, tb.clients[1], "bob")
	tb.do(t, tb.clients[2], ActionLeaveRoom, tb.code())

	require.Len(t, tb.room.players, 2)
	assert.True(t, tb.room.settling(timerSubmissionSettle))

	tb.advance(tb.reg.opts.Timing.SubmissionSettle)
	assert.Equal(t, PhaseVoting, tb.room.phase)
}

func TestLeaverSubmissionIsWithdrawn(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)
	tb.submitAll(t)

	tb.do(t, tb.clients[2], ActionLeaveRoom, tb.code())

	require.Len(t, tb.room.submissions, 2)
	for _, s := range tb.room.submissions {
		assert.NotEqual(t, "carol", s.PlayerName)
	}
	assert.NotContains(t, tb.room.scores, "conn-carol")
	assert.Equal(t, 2, tb.room.expectedVoters())
}

func TestStartGameRules(t *testing.T) {
	t.Run("not enough players", func(t *testing.T) {
		tb := seat(t, "alice", "bob")
		tb.do(t, tb.clients[0], ActionStartGame, tb.code())

		assert.Equal(t, ErrNotEnoughPlayers.Code, errorCode(t, events(tb.clients[0])))
		assert.Equal(t, PhaseWaiting, tb.room.phase)
	})

	t.Run("minimum disabled", func(t *testing.T) {
		tb := seat(t, "alice", "bob")
		tb.do(t, tb.clients[0], ActionUpdateSettings, map[string]any{
			"code":     tb.room.code,
			"settings": map[string]any{"minPlayersEnabled": false},
		})
		tb.start(t)
	})

	t.Run("not host", func(t *testing.T) {
		tb := seat(t, "alice", "bob", "carol")
		tb.do(t, tb.clients[1], ActionStartGame, tb.code())

		assert.Equal(t, ErrNotHost.Code, errorCode(t, events(tb.clients[1])))
		assert.Equal(t, PhaseWaiting, tb.room.phase)
	})

	t.Run("already playing", func(t *testing.T) {
		tb := seat(t, "alice", "bob", "carol")
		tb.start(t)
		tb.flush()

		tb.do(t, tb.clients[0], ActionStartGame, tb.code())
		assert.Equal(t, ErrInvalidPhase.Code, errorCode(t, events(tb.clients[0])))
		assert.Equal(t, 1, tb.room.round)
	})

	t.Run("broadcasts round", func(t *testing.T) {
		tb := seat(t, "alice", "bob", "carol")
		tb.start(t)

		for _, c := range tb.clients {
			evs := events(c)
			started := lastOf[RoundStartedData](t, evs, EventRoundStarted)
			assert.Equal(t, 1, started.Round)
			assert.NotEmpty(t, started.Card.Text)
			assert.Equal(t, started.RoundStartTime.Add(tb.room.settings.SubmissionDuration()), started.SubmissionDeadline)

			game := lastOf[GameStartedData](t, evs, EventGameStarted)
			assert.Len(t, game.Players, 3)
		}
	})
}

func TestSubmitRules(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")

	tb.submitText(t, tb.clients[0], "early")
	assert.Equal(t, ErrInvalidPhase.Code, errorCode(t, events(tb.clients[0])))

	tb.start(t)
	tb.flush()

	tb.submitText(t, tb.clients[0], "first")
	evs := events(tb.clients[0])
	accepted := lastOf[SubmittedData](t, evs, EventSubmitted)
	assert.NotEmpty(t, accepted.SubmissionID)
	assert.Equal(t, CountData{Count: 1, Expected: 3}, lastOf[CountData](t, evs, EventSubmissionCount))

	tb.submitText(t, tb.clients[0], "second")
	assert.Equal(t, ErrAlreadySubmitted.Code, errorCode(t, events(tb.clients[0])))
	assert.Len(t, tb.room.submissions, 1)

	tb.do(t, tb.clients[1], ActionSubmit, map[string]string{"code": tb.room.code, "topText": "no template"})
	assert.Equal(t, ErrInvalidSubmission.Code, errorCode(t, events(tb.clients[1])))

	tb.do(t, tb.clients[1], ActionSubmit, map[string]string{"code": tb.room.code, "imageData": "data:image/png;base64,AAAA"})
	assert.Len(t, tb.room.submissions, 2)
	assert.True(t, tb.room.submissions[1].IsImage)
}

func TestDeckDoesNotRepeatAcrossRounds(t *testing.T) {
	tb := seat(t, "alice", "bob", "carol")
	tb.start(t)

	seen := map[string]bool{tb.room.card.Text: true}
	for range 2 {
		tb.advance(tb.room.settings.SubmissionDuration())
		tb.advance(tb.reg.opts.Timing.ResultsDisplay)
		require.Equal(t, PhasePlaying, tb.room.phase)

		assert.False(t, seen[tb.room.card.Text], "card %q repeated", tb.room.card.Text)
		seen[tb.room.card.Text] = true
	}
}
