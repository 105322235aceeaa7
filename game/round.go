/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"slices"
	"time"
)

func (r *Room) startGame(p *Player) error {
	if !r.isHost(p) {
		return ErrNotHost
	}
	if r.phase != PhaseWaiting {
		return ErrInvalidPhase
	}
	if err := r.settings.canStart(len(r.players)); err != nil {
		return err
	}

	r.deck.Rebuild(r.reg.opts.Catalog, r.settings.EnabledCategories)
	if len(r.deck.Available) == 0 {
		return ErrNoCards
	}

	r.maxRounds = r.settings.MaxRounds
	r.round = 0
	r.zeroScores()

	r.log.Info().Str("host", p.Name).Int("players", len(r.players)).Int("rounds", r.maxRounds).Msg("game started")

	r.broadcast(Event{Type: EventGameStarted, Data: GameStartedData{
		MaxRounds: r.maxRounds,
		Players:   r.roster(),
		Settings:  r.settings,
	}})

	return r.startRound()
}

// startRound draws the round's card and opens submissions.
func (r *Room) startRound() error {
	card, err := r.deck.Draw(r.reg.opts.Catalog, r.settings.EnabledCategories)
	if err != nil {
		return err
	}

	r.round++
	r.phase = PhasePlaying
	r.card = &card
	r.submissions = nil
	r.voted = make(map[string]bool)
	r.ballots = make(map[string][]string)
	r.roundStart = r.now()

	deadline := r.schedule(timerSubmission, r.settings.SubmissionDuration())

	r.log.Debug().Int("round", r.round).Str("card", card.ID).Msg("round started")

	r.broadcast(Event{Type: EventRoundStarted, Data: RoundStartedData{
		Round:              r.round,
		MaxRounds:          r.maxRounds,
		Card:               card,
		SubmissionDeadline: deadline,
		RoundStartTime:     r.roundStart,
	}})

	return nil
}

func (r *Room) submit(p *Player, body Payload) error {
	if r.phase != PhasePlaying {
		return ErrInvalidPhase
	}
	for _, s := range r.submissions {
		if s.PlayerID == p.ID {
			return ErrAlreadySubmitted
		}
	}

	s := newSubmission(p, body, r.now())
	r.submissions = append(r.submissions, s)

	r.sendTo(p, Event{Type: EventSubmitted, Data: SubmittedData{SubmissionID: s.ID}})
	r.broadcast(Event{Type: EventSubmissionCount, Data: CountData{
		Count:    len(r.submissions),
		Expected: len(r.players),
	}})

	r.checkCompletion()

	return nil
}

func (r *Room) vote(p *Player, submissionID string) error {
	if err := r.castVote(p, submissionID); err != nil {
		return err
	}

	r.sendTo(p, Event{Type: EventVoteAccepted, Data: SubmittedData{SubmissionID: submissionID}})
	r.broadcast(Event{Type: EventVoteCount, Data: CountData{
		Count:    len(r.voted),
		Expected: r.expectedVoters(),
	}})

	r.checkCompletion()

	return nil
}

func (r *Room) settling(kind timerKind) bool {
	return r.timer != nil && r.timer.kind == kind
}

// checkCompletion looks for an early end to the current phase. The phase
// timer is swapped for a short settle delay; the settle timer then goes
// through advance like any other.
func (r *Room) checkCompletion() {
	switch r.phase {
	case PhasePlaying:
		if len(r.submissions) == 0 || len(r.submissions) < len(r.players) || r.settling(timerSubmissionSettle) {
			return
		}
		r.log.Debug().Int("round", r.round).Msg("all submissions in")
		r.schedule(timerSubmissionSettle, r.reg.opts.Timing.SubmissionSettle)

	case PhaseVoting:
		if len(r.voted) < r.expectedVoters() || r.settling(timerVotingSettle) {
			return
		}
		r.log.Debug().Int("round", r.round).Msg("all votes in")
		r.schedule(timerVotingSettle, r.reg.opts.Timing.VotingSettle)
		r.broadcast(Event{Type: EventVotingEndedEarly, Data: MessageData{
			Message: "Everyone has voted.",
		}})

	case PhaseFinished:
		if len(r.staying) < len(r.players) {
			return
		}
		r.reset()
		r.log.Info().Msg("all players returned to lobby")
		r.broadcast(Event{Type: EventReturnedToLobby, Data: GameStartedData{
			MaxRounds: r.maxRounds,
			Players:   r.roster(),
			Settings:  r.settings,
		}})
	}
}

func (r *Room) sendBallot(p *Player) {
	ids := r.ballots[p.ID]
	set := make([]*Submission, 0, len(ids))
	for _, id := range ids {
		if s := r.submissionByID(id); s != nil {
			set = append(set, s)
		}
	}

	r.sendTo(p, Event{Type: EventVotingStarted, Data: VotingStartedData{
		Submissions:      anonymized(set),
		VotingDeadline:   r.deadline(),
		TotalSubmissions: len(r.submissions),
	}})
}

// startVoting hands every player a shuffled ballot without their own entry.
func (r *Room) startVoting() {
	r.phase = PhaseVoting
	r.voted = make(map[string]bool)
	r.ballots = make(map[string][]string, len(r.players))

	r.schedule(timerVoting, r.settings.VotingDuration())

	for _, p := range r.players {
		set := personalizedSet(r.submissions, p.ID)
		ids := make([]string, len(set))
		for i, s := range set {
			ids[i] = s.ID
		}
		r.ballots[p.ID] = ids
		r.sendBallot(p)
	}

	r.log.Debug().Int("round", r.round).Int("submissions", len(r.submissions)).Msg("voting started")

	r.checkCompletion()
}

// scoreRound runs once per round. The phase flips first so any trigger
// still in flight finds results and gives up.
func (r *Room) scoreRound() {
	r.cancelTimer()
	r.phase = PhaseResults

	r.tally()

	r.log.Info().Int("round", r.round).Int("submissions", len(r.submissions)).Int("votes", len(r.voted)).Msg("round scored")

	r.broadcast(Event{Type: EventRoundResults, Data: RoundResultsData{
		Round:       r.round,
		Submissions: byVotes(r.submissions),
		Scores:      r.scoreboard(),
		Leaderboard: leaderboard(r.players),
	}})

	r.schedule(timerResults, r.reg.opts.Timing.ResultsDisplay)
}

func (r *Room) nextRound() {
	if r.round >= r.maxRounds {
		r.finish()
		return
	}
	if err := r.startRound(); err != nil {
		r.log.Error().Err(err).Int("round", r.round).Msg("could not start round, ending game")
		r.finish()
	}
}

func (r *Room) finish() {
	r.phase = PhaseFinished
	r.staying = nil

	final := leaderboard(r.players)

	r.log.Info().Int("rounds", r.round).Msg("game finished")

	r.broadcast(Event{Type: EventGameFinished, Data: GameFinishedData{FinalScores: final}})

	r.schedule(timerHostHandoff, r.reg.opts.Timing.HostHandoff)
}

func (r *Room) returnToLobby(p *Player) error {
	if r.phase != PhaseFinished {
		return ErrInvalidPhase
	}
	ev := func() Event {
		return Event{Type: EventReturningToLobby, Data: ReturningData{
			Player:    r.view(p),
			Returning: len(r.staying),
			Total:     len(r.players),
		}}
	}

	// A retry only resyncs the sender.
	if slices.Contains(r.staying, p.ID) {
		r.sendTo(p, ev())
		return nil
	}
	r.staying = append(r.staying, p.ID)

	r.broadcast(ev())

	r.checkCompletion()

	return nil
}

// handOffHost runs when the post-game wait runs out. If the host did not
// stay, a random player who did takes over, and the stayers get a fresh lobby.
func (r *Room) handOffHost() {
	if len(r.staying) == 0 || len(r.players) == 0 {
		return
	}

	host := r.players[0]
	if !slices.Contains(r.staying, host.ID) {
		next := r.playerByID(r.staying[rand.IntN(len(r.staying))])
		if next == nil {
			return
		}

		i := slices.Index(r.players, next)
		r.players = slices.Delete(r.players, i, i+1)
		r.players = slices.Insert(r.players, 0, next)

		r.log.Info().Str("from", host.Name).Str("to", next.Name).Msg("host transferred")

		r.broadcast(Event{Type: EventHostTransferred, Data: HostTransferredData{
			NewHost: r.view(next),
			OldHost: r.view(host),
			Reason:  "host did not return to the lobby",
		}})
	}

	r.reset()
	r.broadcast(Event{Type: EventReturnedToLobby, Data: GameStartedData{
		MaxRounds: r.maxRounds,
		Players:   r.roster(),
		Settings:  r.settings,
	}})
}

// reset returns a room to a fresh lobby keeping its players and settings.
func (r *Room) reset() {
	r.cancelTimer()

	r.phase = PhaseWaiting
	r.round = 0
	r.maxRounds = r.settings.MaxRounds
	r.card = nil
	r.submissions = nil
	r.voted = make(map[string]bool)
	r.ballots = make(map[string][]string)
	r.staying = nil
	r.roundStart = time.Time{}
	r.deck.Clear()

	r.zeroScores()
}

func (r *Room) updateSettings(p *Player, u SettingsUpdate) error {
	if !r.isHost(p) {
		return ErrNotHost
	}
	if r.phase != PhaseWaiting {
		return ErrInvalidPhase
	}

	next, err := r.settings.Apply(u, r.reg.opts.Catalog)
	if err != nil {
		return err
	}

	if !slices.Equal(next.EnabledCategories, r.settings.EnabledCategories) {
		r.deck.Available = nil
	}
	r.settings = next
	r.maxRounds = next.MaxRounds

	r.log.Info().Str("host", p.Name).Msg("settings updated")

	r.broadcast(Event{Type: EventSettingsUpdated, Data: SettingsData{Settings: r.settings}})

	return nil
}
