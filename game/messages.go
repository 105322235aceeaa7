/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"time"
)

// Message is a client action: {"type": "...", "data": {...}}.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is anything sent to a client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client actions.
const (
	ActionCreateRoom     = "create-room"
	ActionJoinRoom       = "join-room"
	ActionRoomInfo       = "get-room-info"
	ActionStartGame      = "start-game"
	ActionSubmit         = "submit"
	ActionVote           = "vote"
	ActionUpdateSettings = "update-settings"
	ActionSendChat       = "send-chat"
	ActionReturnToLobby  = "return-to-lobby"
	ActionReturnToHome   = "return-to-home"
	ActionLeaveRoom      = "leave-room"
	ActionGetCards       = "get-cards"
)

// Server events.
const (
	EventRoomCreated      = "room-created"
	EventRoomJoined       = "room-joined"
	EventRoomInfo         = "room-info"
	EventRoomReset        = "room-reset"
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventPlayerStatus     = "player-status"
	EventGameStarted      = "game-started"
	EventRoundStarted     = "round-started"
	EventSubmitted        = "submission-accepted"
	EventSubmissionCount  = "submission-count"
	EventVotingStarted    = "voting-started"
	EventVoteAccepted     = "vote-accepted"
	EventVoteCount        = "vote-count"
	EventVotingEndedEarly = "voting-ended-early"
	EventRoundResults     = "round-results"
	EventGameFinished     = "game-finished"
	EventSettingsUpdated  = "settings-updated"
	EventChatMessage      = "chat-message"
	EventReturningToLobby = "player-returning-to-lobby"
	EventReturnedToLobby  = "returned-to-lobby"
	EventHostTransferred  = "host-transferred"
	EventCards            = "cards"
	EventError            = "error"
)

type nameData struct {
	Name string `json:"name"`
}

type joinData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type codeData struct {
	Code string `json:"code,omitempty"`
}

type roomInfoData struct {
	Code   string    `json:"code"`
	Player *nameData `json:"player,omitempty"`
}

type voteData struct {
	SubmissionID string `json:"submissionId"`
}

type settingsData struct {
	Code     string         `json:"code,omitempty"`
	Settings SettingsUpdate `json:"settings"`
}

type chatData struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
}

// Outbound payloads.

type ErrorData struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

type RoomCreatedData struct {
	Code    string   `json:"code"`
	Player  Player   `json:"player"`
	Players []Player `json:"players"`
}

type RoomJoinedData struct {
	Code      string        `json:"code"`
	Player    Player        `json:"player"`
	Players   []Player      `json:"players"`
	Phase     Phase         `json:"phase"`
	Round     int           `json:"round"`
	MaxRounds int           `json:"maxRounds"`
	ChatLog   []ChatMessage `json:"chatLog"`
	Settings  Settings      `json:"settings"`
}

type RoomInfoData struct {
	RoomJoinedData
	Card           *Card     `json:"card,omitempty"`
	RoundStartTime time.Time `json:"roundStartTime,omitzero"`
	Deadline       time.Time `json:"deadline,omitzero"`
	Submitted      int       `json:"submitted"`
	Voted          int       `json:"voted"`
}

type PlayersData struct {
	Players []Player `json:"players"`
	Player  Player   `json:"player"`
	Reason  string   `json:"reason,omitempty"`
}

type PlayerStatusData struct {
	Player Player `json:"player"`
}

type RoundStartedData struct {
	Round              int       `json:"round"`
	MaxRounds          int       `json:"maxRounds"`
	Card               Card      `json:"card"`
	SubmissionDeadline time.Time `json:"submissionDeadline"`
	RoundStartTime     time.Time `json:"roundStartTime"`
}

type GameStartedData struct {
	MaxRounds int      `json:"maxRounds"`
	Players   []Player `json:"players"`
	Settings  Settings `json:"settings"`
}

type CountData struct {
	Count    int `json:"count"`
	Expected int `json:"expected"`
}

type SubmittedData struct {
	SubmissionID string `json:"submissionId"`
}

type VotingStartedData struct {
	Submissions      []Submission `json:"submissions"`
	VotingDeadline   time.Time    `json:"votingDeadline"`
	TotalSubmissions int          `json:"totalSubmissions"`
}

type MessageData struct {
	Message string `json:"message"`
}

type RoundResultsData struct {
	Round       int            `json:"round"`
	Submissions []Submission   `json:"submissions"`
	Scores      map[string]int `json:"scores"`
	Leaderboard []Standing     `json:"leaderboard"`
}

type GameFinishedData struct {
	FinalScores []Standing `json:"finalScores"`
}

type SettingsData struct {
	Settings Settings `json:"settings"`
}

type HostTransferredData struct {
	NewHost Player `json:"newHost"`
	OldHost Player `json:"oldHost"`
	Reason  string `json:"reason"`
}

type ReturningData struct {
	Player    Player `json:"player"`
	Returning int    `json:"returning"`
	Total     int    `json:"total"`
}

type CardsData struct {
	Available   int      `json:"available"`
	Used        int      `json:"used"`
	CurrentCard *Card    `json:"currentCard,omitempty"`
	UsedCards   []Card   `json:"usedCards"`
	Categories  []string `json:"enabledCategories"`
}

func errorEvent(err error) Event {
	code, msg := CodeOf(err)
	return Event{Type: EventError, Data: ErrorData{Code: code, Message: msg}}
}
