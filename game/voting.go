/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TextFields is the legacy structured meme: caption lines over a template.
type TextFields struct {
	TopText    string `json:"topText"`
	BottomText string `json:"bottomText"`
	Template   string `json:"template"`
}

// Payload is a submission body. Exactly one of ImageData or TextFields is set.
type Payload struct {
	ImageData string `json:"imageData,omitempty"`
	*TextFields
}

func (p Payload) IsImage() bool {
	return p.ImageData != ""
}

type rawPayload struct {
	ImageData  string  `json:"imageData"`
	TopText    *string `json:"topText"`
	BottomText *string `json:"bottomText"`
	Template   *string `json:"template"`
}

// ParsePayload decodes a submission. Image data wins when both forms are
// present. maxImage <= 0 disables the size check.
func ParsePayload(data json.RawMessage, maxImage int) (Payload, error) {
	var raw rawPayload
	if len(data) == 0 {
		return Payload{}, ErrInvalidSubmission
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, fmt.Errorf("decode submission: %w", ErrInvalidSubmission)
	}

	if raw.ImageData != "" {
		if maxImage > 0 && len(raw.ImageData) > maxImage {
			return Payload{}, fmt.Errorf("image is %d bytes, limit is %d: %w", len(raw.ImageData), maxImage, ErrInvalidSubmission)
		}
		return Payload{ImageData: raw.ImageData}, nil
	}

	if raw.TopText == nil || raw.BottomText == nil || raw.Template == nil {
		return Payload{}, ErrInvalidSubmission
	}

	return Payload{TextFields: &TextFields{
		TopText:    *raw.TopText,
		BottomText: *raw.BottomText,
		Template:   *raw.Template,
	}}, nil
}

type Submission struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	Votes       int       `json:"votes"`
	IsImage     bool      `json:"isImageMeme"`
	SubmittedAt time.Time `json:"submittedAt"`
	Payload
}

func newSubmission(p *Player, body Payload, now time.Time) *Submission {
	return &Submission{
		ID:          uuid.NewString(),
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		IsImage:     body.IsImage(),
		SubmittedAt: now,
		Payload:     body,
	}
}

// personalizedSet is a shuffled copy of subs without the voter's own entry.
func personalizedSet(subs []*Submission, voterID string) []*Submission {
	out := make([]*Submission, 0, len(subs))
	for _, s := range subs {
		if s.PlayerID != voterID {
			out = append(out, s)
		}
	}
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// anonymized strips authorship and tallies while voting is open.
func anonymized(subs []*Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, s := range subs {
		out[i] = Submission{
			ID:      s.ID,
			IsImage: s.IsImage,
			Payload: s.Payload,
		}
	}
	return out
}

func (r *Room) submissionByID(id string) *Submission {
	for _, s := range r.submissions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// castVote records voter's single vote for this round.
func (r *Room) castVote(voter *Player, submissionID string) error {
	if r.phase != PhaseVoting {
		return ErrInvalidPhase
	}
	if r.voted[voter.ID] {
		return ErrAlreadyVoted
	}

	target := r.submissionByID(submissionID)
	if target == nil || target.PlayerID == voter.ID {
		return ErrInvalidTarget
	}

	target.Votes++
	r.voted[voter.ID] = true

	return nil
}

// expectedVoters counts the players who have something to vote for.
func (r *Room) expectedVoters() int {
	n := 0
	for _, p := range r.players {
		for _, s := range r.submissions {
			if s.PlayerID != p.ID {
				n++
				break
			}
		}
	}
	return n
}

// tally adds each submission's votes to its author's cumulative score.
// Submissions whose author has left are ignored.
func (r *Room) tally() {
	for _, s := range r.submissions {
		p := r.playerByID(s.PlayerID)
		if p == nil {
			continue
		}
		r.setScore(p, p.Score+s.Votes)
	}
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// leaderboard orders players by score, highest first. Equal scores keep
// join order and share a rank.
func leaderboard(players []*Player) []Standing {
	out := make([]Standing, len(players))
	for i, p := range players {
		out[i] = Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}

	slices.SortStableFunc(out, func(a, b Standing) int {
		return b.Score - a.Score
	})

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

// byVotes returns the round's submissions, most voted first.
func byVotes(subs []*Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, s := range subs {
		out[i] = *s
	}
	slices.SortStableFunc(out, func(a, b Submission) int {
		return b.Votes - a.Votes
	})
	return out
}
