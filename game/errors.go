/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

// Code is the machine-readable error code sent to clients.
type Code string

// Error is a game error carrying a wire code. Sentinels below are compared
// by identity, so wrap them with fmt.Errorf("...: %w", ErrX) to add context.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	ErrRoomNotFound      = newError("ROOM_NOT_FOUND", "That room does not exist.")
	ErrRoomFull          = newError("ROOM_FULL", "That room is full.")
	ErrGameInProgress    = newError("GAME_IN_PROGRESS", "A game is already in progress in that room.")
	ErrDuplicateName     = newError("DUPLICATE_NAME", "That name is already taken in this room.")
	ErrInvalidName       = newError("INVALID_NAME", "Names must be between 1 and 24 characters.")
	ErrAlreadySubmitted  = newError("ALREADY_SUBMITTED", "You have already submitted this round.")
	ErrAlreadyVoted      = newError("ALREADY_VOTED", "You have already voted this round.")
	ErrInvalidPhase      = newError("INVALID_PHASE", "That action is not allowed right now.")
	ErrPlayerNotFound    = newError("PLAYER_NOT_FOUND", "Your player could not be found. Please rejoin.")
	ErrInvalidTarget     = newError("INVALID_TARGET", "You cannot vote for that submission.")
	ErrInvalidSettings   = newError("INVALID_SETTINGS", "Those settings are out of range.")
	ErrInvalidSubmission = newError("INVALID_SUBMISSION", "Submissions need either image data or top text, bottom text and a template.")
	ErrInvalidMessage    = newError("INVALID_MESSAGE", "That message could not be understood.")
	ErrNotHost           = newError("NOT_HOST", "Only the host can do that.")
	ErrNotEnoughPlayers  = newError("NOT_ENOUGH_PLAYERS", "Not enough players to start.")
	ErrTooManyPlayers    = newError("TOO_MANY_PLAYERS", "Too many players to start.")
	ErrNoCards           = newError("NO_CARDS", "No prompt cards are available for the enabled categories.")
	ErrRateLimited       = newError("RATE_LIMITED", "Slow down.")
)

// CodeOf extracts the wire code from err, falling back to INVALID_MESSAGE.
// The message keeps any context added by wrapping.
func CodeOf(err error) (Code, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, err.Error()
	}
	return ErrInvalidMessage.Code, err.Error()
}
