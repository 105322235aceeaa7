/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"time"
)

const (
	minRounds, maxRoundsLimit     = 3, 10
	minSubmitMinutes, maxSubmit   = 1, 5
	minVoteSeconds, maxVote       = 30, 180
	minPlayersLow, minPlayersHigh = 2, 6
	maxPlayersLow, maxPlayersHigh = 4, 8
)

// Settings are the host-tunable rules of a room.
type Settings struct {
	MaxRounds         int      `json:"maxRounds"`
	SubmissionMinutes int      `json:"submissionMinutes"`
	VotingSeconds     int      `json:"votingSeconds"`
	MinPlayers        int      `json:"minPlayers"`
	MaxPlayers        int      `json:"maxPlayers"`
	MinPlayersEnabled bool     `json:"minPlayersEnabled"`
	MaxPlayersEnabled bool     `json:"maxPlayersEnabled"`
	EnabledCategories []string `json:"enabledCategories"`
}

// SettingsUpdate is a partial change; nil fields are left alone.
type SettingsUpdate struct {
	MaxRounds         *int     `json:"maxRounds,omitempty"`
	SubmissionMinutes *int     `json:"submissionMinutes,omitempty"`
	VotingSeconds     *int     `json:"votingSeconds,omitempty"`
	MinPlayers        *int     `json:"minPlayers,omitempty"`
	MaxPlayers        *int     `json:"maxPlayers,omitempty"`
	MinPlayersEnabled *bool    `json:"minPlayersEnabled,omitempty"`
	MaxPlayersEnabled *bool    `json:"maxPlayersEnabled,omitempty"`
	EnabledCategories []string `json:"enabledCategories,omitempty"`
}

func DefaultSettings(c *Catalog) Settings {
	return Settings{
		MaxRounds:         5,
		SubmissionMinutes: 3,
		VotingSeconds:     60,
		MinPlayers:        3,
		MaxPlayers:        8,
		MinPlayersEnabled: true,
		MaxPlayersEnabled: true,
		EnabledCategories: c.Keys(),
	}
}

func (s Settings) SubmissionDuration() time.Duration {
	return time.Duration(s.SubmissionMinutes) * time.Minute
}

func (s Settings) VotingDuration() time.Duration {
	return time.Duration(s.VotingSeconds) * time.Second
}

func inRange(name string, v *int, lo, hi int) error {
	if v == nil || (*v >= lo && *v <= hi) {
		return nil
	}
	return fmt.Errorf("%s must be between %d and %d: %w", name, lo, hi, ErrInvalidSettings)
}

// Apply validates u against the fixed bounds and returns the merged settings.
// On error s is returned unchanged.
func (s Settings) Apply(u SettingsUpdate, c *Catalog) (Settings, error) {
	for _, err := range []error{
		inRange("maxRounds", u.MaxRounds, minRounds, maxRoundsLimit),
		inRange("submissionMinutes", u.SubmissionMinutes, minSubmitMinutes, maxSubmit),
		inRange("votingSeconds", u.VotingSeconds, minVoteSeconds, maxVote),
		inRange("minPlayers", u.MinPlayers, minPlayersLow, minPlayersHigh),
		inRange("maxPlayers", u.MaxPlayers, maxPlayersLow, maxPlayersHigh),
	} {
		if err != nil {
			return s, err
		}
	}

	next := s
	next.EnabledCategories = append([]string(nil), s.EnabledCategories...)

	if u.MaxRounds != nil {
		next.MaxRounds = *u.MaxRounds
	}
	if u.SubmissionMinutes != nil {
		next.SubmissionMinutes = *u.SubmissionMinutes
	}
	if u.VotingSeconds != nil {
		next.VotingSeconds = *u.VotingSeconds
	}
	if u.MinPlayers != nil {
		next.MinPlayers = *u.MinPlayers
	}
	if u.MaxPlayers != nil {
		next.MaxPlayers = *u.MaxPlayers
	}
	if u.MinPlayersEnabled != nil {
		next.MinPlayersEnabled = *u.MinPlayersEnabled
	}
	if u.MaxPlayersEnabled != nil {
		next.MaxPlayersEnabled = *u.MaxPlayersEnabled
	}

	if u.EnabledCategories != nil {
		if len(u.EnabledCategories) == 0 {
			return s, fmt.Errorf("at least one category must be enabled: %w", ErrInvalidSettings)
		}

		seen := make(map[string]bool, len(u.EnabledCategories))
		cats := make([]string, 0, len(u.EnabledCategories))
		for _, k := range u.EnabledCategories {
			if !c.Has(k) {
				return s, fmt.Errorf("unknown category %q: %w", k, ErrInvalidSettings)
			}
			if !seen[k] {
				seen[k] = true
				cats = append(cats, k)
			}
		}
		next.EnabledCategories = cats
	}

	if next.MinPlayersEnabled && next.MaxPlayersEnabled && next.MinPlayers > next.MaxPlayers {
		return s, fmt.Errorf("minPlayers cannot exceed maxPlayers: %w", ErrInvalidSettings)
	}

	return next, nil
}

// canStart reports whether n players satisfy the enabled bounds.
func (s Settings) canStart(n int) error {
	if s.MinPlayersEnabled && n < s.MinPlayers {
		return ErrNotEnoughPlayers
	}
	if s.MaxPlayersEnabled && n > s.MaxPlayers {
		return ErrTooManyPlayers
	}
	return nil
}

// hasRoom reports whether one more player fits, given a hard server cap.
func (s Settings) hasRoom(n, hardCap int) bool {
	if hardCap > 0 && n >= hardCap {
		return false
	}
	return !s.MaxPlayersEnabled || n < s.MaxPlayers
}
