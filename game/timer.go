/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// AfterFunc schedules f after d and returns a function that stops it.
// time.AfterFunc satisfies it through RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func RealAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type timerKind int

const (
	timerSubmission timerKind = iota
	timerSubmissionSettle
	timerVoting
	timerVotingSettle
	timerResults
	timerHostHandoff
)

func (k timerKind) String() string {
	switch k {
	case timerSubmission:
		return "submission"
	case timerSubmissionSettle:
		return "submission-settle"
	case timerVoting:
		return "voting"
	case timerVotingSettle:
		return "voting-settle"
	case timerResults:
		return "results"
	case timerHostHandoff:
		return "host-handoff"
	}
	return "unknown"
}

// Timing holds the fixed delays around phase changes.
type Timing struct {
	SubmissionSettle time.Duration
	VotingSettle     time.Duration
	ResultsDisplay   time.Duration
	HostHandoff      time.Duration
	OfflineGrace     time.Duration
	TransportGrace   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		SubmissionSettle: 500 * time.Millisecond,
		VotingSettle:     time.Second,
		ResultsDisplay:   10 * time.Second,
		HostHandoff:      30 * time.Second,
		OfflineGrace:     30 * time.Second,
		TransportGrace:   60 * time.Second,
	}
}

// phaseTimer is the room's single live countdown.
type phaseTimer struct {
	token    uint64
	kind     timerKind
	deadline time.Time
	stop     func() bool
}

// timerFired is posted to the room inbox when a phase timer elapses.
type timerFired struct {
	token uint64
	kind  timerKind
}

// schedule cancels any live timer, then arms a new one. The returned
// deadline is what clients are told.
func (r *Room) schedule(kind timerKind, d time.Duration) time.Time {
	r.cancelTimer()

	r.timerSeq++
	token := r.timerSeq
	deadline := r.now().Add(d)

	stop := r.after(d, func() {
		r.post(timerFired{token: token, kind: kind})
	})

	r.timer = &phaseTimer{
		token:    token,
		kind:     kind,
		deadline: deadline,
		stop:     stop,
	}

	return deadline
}

func (r *Room) cancelTimer() {
	if r.timer == nil {
		return
	}
	r.timer.stop()
	r.timer = nil
}

func (r *Room) deadline() time.Time {
	if r.timer == nil {
		return time.Time{}
	}
	return r.timer.deadline
}

// handleTimer drops callbacks from timers that were cancelled or replaced
// after they had already fired.
func (r *Room) handleTimer(ev timerFired) {
	if r.timer == nil || r.timer.token != ev.token {
		r.log.Debug().Stringer("timer", ev.kind).Uint64("token", ev.token).Msg("stale timer ignored")
		return
	}
	r.timer = nil

	r.advance(ev.kind)
}

// advance is the one entry point for every timed phase change. Each case
// re-checks the phase, so a trigger that lost a race does nothing.
func (r *Room) advance(kind timerKind) {
	switch kind {
	case timerSubmission:
		if r.phase != PhasePlaying {
			return
		}
		if len(r.submissions) == 0 {
			r.log.Info().Int("round", r.round).Msg("submission time expired with no submissions")
			r.scoreRound()
			return
		}
		r.startVoting()

	case timerSubmissionSettle:
		if r.phase != PhasePlaying {
			return
		}
		r.startVoting()

	case timerVoting, timerVotingSettle:
		if r.phase != PhaseVoting {
			return
		}
		r.scoreRound()

	case timerResults:
		if r.phase != PhaseResults {
			return
		}
		r.nextRound()

	case timerHostHandoff:
		if r.phase != PhaseFinished {
			return
		}
		r.handOffHost()
	}
}
