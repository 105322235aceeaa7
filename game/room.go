/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseVoting   Phase = "voting"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
)

// Player is one member of a room. ID is the connection currently routed to
// this player and changes on reconnect; Name and RoomID do not.
type Player struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RoomID           string    `json:"roomId"`
	Score            int       `json:"score"`
	Online           bool      `json:"isOnline"`
	LastSeen         time.Time `json:"lastSeen"`
	IsHost           bool      `json:"isHost"`
	DisconnectReason string    `json:"disconnectReason,omitempty"`

	graceStop func() bool
}

func (p *Player) Identity() Identity {
	return Identity{Name: p.Name, Room: p.RoomID}
}

func (p *Player) stopGrace() {
	if p.graceStop != nil {
		p.graceStop()
		p.graceStop = nil
	}
}

type ChatMessage struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"playerName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// Room is a single game session. Everything below the inbox is owned by
// the goroutine running run, and by nothing else.
type Room struct {
	code string
	reg  *Registry
	log  zerolog.Logger

	inbox chan any
	done  chan struct{}
	once  sync.Once

	players     []*Player
	conns       map[string]*Client
	phase       Phase
	round       int
	maxRounds   int
	card        *Card
	submissions []*Submission
	scores      map[string]int
	settings    Settings
	voted       map[string]bool
	ballots     map[string][]string
	deck        Deck
	timer       *phaseTimer
	timerSeq    uint64
	roundStart  time.Time
	chat        []ChatMessage
	staying     []string
}

type joinEvent struct {
	client *Client
	name   string
	create bool
}

type infoEvent struct {
	client *Client
	hint   *nameData
}

type actionEvent struct {
	client   *Client
	identity Identity
	act      any
}

type departure struct {
	connID string
	abrupt bool
}

type pruneCheck struct {
	name   string
	connID string
}

type shutdown struct{}

type (
	startAction    struct{}
	submitAction   struct{ payload Payload }
	voteAction     struct{ submissionID string }
	settingsAction struct{ update SettingsUpdate }
	chatAction     struct{ text string }
	lobbyAction    struct{}
	homeAction     struct{}
	leaveAction    struct{}
	cardsAction    struct{}
)

func newRoom(reg *Registry, code string) *Room {
	settings := DefaultSettings(reg.opts.Catalog)

	return &Room{
		code:      code,
		reg:       reg,
		log:       reg.log.With().Str("room", code).Logger(),
		inbox:     make(chan any, 256),
		done:      make(chan struct{}),
		conns:     make(map[string]*Client),
		phase:     PhaseWaiting,
		maxRounds: settings.MaxRounds,
		scores:    make(map[string]int),
		settings:  settings,
		voted:     make(map[string]bool),
		ballots:   make(map[string][]string),
		deck:      newDeck(reg.opts.DeckSize),
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) now() time.Time {
	return r.reg.opts.Now()
}

func (r *Room) after(d time.Duration, f func()) func() bool {
	return r.reg.opts.After(d, f)
}

// post queues ev for the room goroutine. It reports false once the room
// has shut down.
func (r *Room) post(ev any) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) stop() {
	r.post(shutdown{})
}

func (r *Room) run() {
	for ev := range r.inbox {
		if _, ok := ev.(shutdown); ok {
			r.shutdown()
			return
		}
		r.handle(ev)
	}
}

func (r *Room) shutdown() {
	r.cancelTimer()
	for _, p := range r.players {
		p.stopGrace()
	}
	for _, c := range r.conns {
		c.Close()
	}
	r.once.Do(func() { close(r.done) })

	r.log.Info().Msg("room closed")
}

func (r *Room) handle(ev any) {
	switch ev := ev.(type) {
	case joinEvent:
		r.handleJoin(ev)
	case infoEvent:
		r.handleInfo(ev)
	case actionEvent:
		r.handleAction(ev)
	case timerFired:
		r.handleTimer(ev)
	case departure:
		r.handleDeparture(ev)
	case pruneCheck:
		r.handlePrune(ev)
	}
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByName(name string) *Player {
	for _, p := range r.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *Room) isHost(p *Player) bool {
	return len(r.players) > 0 && r.players[0] == p
}

func (r *Room) setScore(p *Player, score int) {
	p.Score = score
	r.scores[p.ID] = score
}

func (r *Room) zeroScores() {
	for _, p := range r.players {
		r.setScore(p, 0)
	}
}

// join admits name to the room under the rules in effect right now.
func (r *Room) join(c *Client, name string) (*Player, error) {
	if r.phase != PhaseWaiting && r.phase != PhaseFinished {
		return nil, ErrGameInProgress
	}
	if !r.settings.hasRoom(len(r.players), r.reg.opts.MaxRoomSize) {
		return nil, ErrRoomFull
	}
	if r.playerByName(name) != nil {
		return nil, ErrDuplicateName
	}
	if !r.reg.ids.claim(Identity{Name: name, Room: r.code}, c.ID) {
		return nil, ErrInvalidPhase
	}

	if r.phase == PhaseFinished {
		r.reset()
		r.broadcast(Event{Type: EventRoomReset, Data: GameStartedData{
			MaxRounds: r.maxRounds,
			Players:   r.roster(),
			Settings:  r.settings,
		}})
		r.log.Info().Str("player", name).Msg("late joiner reset finished room")
	}

	p := &Player{
		ID:       c.ID,
		Name:     name,
		RoomID:   r.code,
		Online:   true,
		LastSeen: r.now(),
	}
	r.players = append(r.players, p)
	r.conns[c.ID] = c
	r.setScore(p, 0)
	r.reg.occupied(r.code)

	r.log.Info().Str("player", name).Int("players", len(r.players)).Msg("player joined")

	return p, nil
}

func (r *Room) handleJoin(ev joinEvent) {
	p, err := r.join(ev.client, ev.name)
	if err != nil {
		r.log.Debug().Str("player", ev.name).Err(err).Msg("join rejected")
		ev.client.Deliver(errorEvent(err))
		return
	}

	view := r.view(p)
	if ev.create {
		ev.client.Deliver(Event{Type: EventRoomCreated, Data: RoomCreatedData{
			Code:    r.code,
			Player:  view,
			Players: r.roster(),
		}})
	} else {
		ev.client.Deliver(Event{Type: EventRoomJoined, Data: r.joinedData(view)})
	}

	r.broadcastExcept(p.ID, Event{Type: EventPlayerJoined, Data: PlayersData{
		Players: r.roster(),
		Player:  view,
	}})
}

// handleInfo answers get-room-info. With a name hint it also reclaims the
// named player for this connection, or joins them if they are unknown.
func (r *Room) handleInfo(ev infoEvent) {
	c := ev.client

	var p *Player
	if ev.hint != nil && ev.hint.Name != "" {
		if r.reg.ids.seated(c.ID, Identity{Name: ev.hint.Name, Room: r.code}) {
			c.Deliver(errorEvent(ErrInvalidPhase))
			return
		}

		p = r.playerByName(ev.hint.Name)
		if p != nil {
			r.rebind(p, c)
		} else {
			var err error
			p, err = r.join(c, ev.hint.Name)
			if err != nil {
				c.Deliver(errorEvent(err))
				return
			}
			r.broadcastExcept(p.ID, Event{Type: EventPlayerJoined, Data: PlayersData{
				Players: r.roster(),
				Player:  r.view(p),
			}})
		}
	}

	var view Player
	if p != nil {
		view = r.view(p)
	}

	c.Deliver(Event{Type: EventRoomInfo, Data: RoomInfoData{
		RoomJoinedData: r.joinedData(view),
		Card:           r.currentCard(),
		RoundStartTime: r.roundStart,
		Deadline:       r.deadline(),
		Submitted:      len(r.submissions),
		Voted:          len(r.voted),
	}})

	// A voter who reconnects mid-vote needs their ballot again.
	if p != nil && r.phase == PhaseVoting && !r.voted[p.ID] {
		r.sendBallot(p)
	}
}

func (r *Room) handleAction(ev actionEvent) {
	p := r.playerByName(ev.identity.Name)
	if p == nil {
		ev.client.Deliver(errorEvent(ErrPlayerNotFound))
		return
	}
	if p.ID != ev.client.ID {
		r.rebind(p, ev.client)
	}
	p.LastSeen = r.now()

	var err error
	switch a := ev.act.(type) {
	case startAction:
		err = r.startGame(p)
	case submitAction:
		err = r.submit(p, a.payload)
	case voteAction:
		err = r.vote(p, a.submissionID)
	case settingsAction:
		err = r.updateSettings(p, a.update)
	case chatAction:
		r.sendChat(p, a.text)
	case lobbyAction:
		err = r.returnToLobby(p)
	case homeAction:
		r.removePlayer(p, "returned-to-home")
	case leaveAction:
		r.removePlayer(p, "left")
	case cardsAction:
		r.sendCards(p)
	}

	if err != nil {
		code, _ := CodeOf(err)
		r.log.Debug().Str("player", p.Name).Str("code", string(code)).Msg("action rejected")
		ev.client.Deliver(errorEvent(err))
	}
}

// rebind moves p onto connection c in one step. Every table keyed by the
// old connection id is rewritten before any other event is handled.
func (r *Room) rebind(p *Player, c *Client) {
	old, next := p.ID, c.ID
	if old == next {
		return
	}

	delete(r.conns, old)
	r.conns[next] = c

	delete(r.scores, old)
	r.scores[next] = p.Score

	if r.voted[old] {
		delete(r.voted, old)
		r.voted[next] = true
	}
	if b, ok := r.ballots[old]; ok {
		delete(r.ballots, old)
		r.ballots[next] = b
	}
	for _, s := range r.submissions {
		if s.PlayerID == old {
			s.PlayerID = next
		}
	}
	for i, id := range r.staying {
		if id == old {
			r.staying[i] = next
		}
	}

	p.ID = next
	p.Online = true
	p.LastSeen = r.now()
	p.DisconnectReason = ""
	p.stopGrace()

	if evicted := r.reg.ids.bind(p.Identity(), next); evicted != "" && evicted != old {
		r.log.Warn().Str("player", p.Name).Str("conn", evicted).Msg("dropped stale route")
	}

	r.log.Info().Str("player", p.Name).Str("from", old).Str("to", next).Msg("player reconnected")

	r.broadcast(Event{Type: EventPlayerStatus, Data: PlayerStatusData{Player: r.view(p)}})
}

func (r *Room) handleDeparture(d departure) {
	p := r.playerByID(d.connID)
	if p == nil {
		return
	}
	delete(r.conns, d.connID)

	grace := r.reg.opts.Timing.OfflineGrace
	p.DisconnectReason = "client disconnect"
	if d.abrupt {
		grace = r.reg.opts.Timing.TransportGrace
		p.DisconnectReason = "transport error"
	}
	p.Online = false
	p.LastSeen = r.now()

	name, connID := p.Name, p.ID
	p.stopGrace()
	p.graceStop = r.after(grace, func() {
		r.post(pruneCheck{name: name, connID: connID})
	})

	r.log.Info().Str("player", p.Name).Str("reason", p.DisconnectReason).Dur("grace", grace).Msg("player offline")

	r.broadcast(Event{Type: EventPlayerStatus, Data: PlayerStatusData{Player: r.view(p)}})
}

func (r *Room) handlePrune(pc pruneCheck) {
	p := r.playerByName(pc.name)
	if p == nil || p.Online || p.ID != pc.connID {
		return
	}
	r.removePlayer(p, "timeout")
}

// removePlayer drops p from every table. The host role passes to whoever
// is next in line.
func (r *Room) removePlayer(p *Player, reason string) {
	i := slices.Index(r.players, p)
	if i < 0 {
		return
	}
	r.players = slices.Delete(r.players, i, i+1)

	p.stopGrace()

	delete(r.scores, p.ID)
	delete(r.voted, p.ID)
	delete(r.ballots, p.ID)
	delete(r.conns, p.ID)
	r.staying = slices.DeleteFunc(r.staying, func(id string) bool { return id == p.ID })

	if r.phase == PhasePlaying || r.phase == PhaseVoting {
		r.submissions = slices.DeleteFunc(r.submissions, func(s *Submission) bool { return s.PlayerID == p.ID })
	}

	r.reg.ids.unbind(p.Identity())

	r.log.Info().Str("player", p.Name).Str("reason", reason).Int("players", len(r.players)).Msg("player removed")

	view := *p
	view.Online = false
	r.broadcast(Event{Type: EventPlayerLeft, Data: PlayersData{
		Players: r.roster(),
		Player:  view,
		Reason:  reason,
	}})

	if len(r.players) == 0 {
		r.cancelTimer()
		r.reg.emptied(r.code, r.now())
		return
	}

	r.checkCompletion()
}

func (r *Room) sendChat(p *Player, text string) {
	msg := ChatMessage{
		ID:         uuid.NewString(),
		PlayerName: p.Name,
		Text:       text,
		Timestamp:  r.now(),
	}

	r.chat = append(r.chat, msg)
	if limit := r.reg.opts.ChatHistory; len(r.chat) > limit {
		r.chat = slices.Clone(r.chat[len(r.chat)-limit:])
	}

	r.broadcast(Event{Type: EventChatMessage, Data: msg})
}

func (r *Room) sendCards(p *Player) {
	r.sendTo(p, Event{Type: EventCards, Data: CardsData{
		Available:   len(r.deck.Available),
		Used:        len(r.deck.Used),
		CurrentCard: r.currentCard(),
		UsedCards:   slices.Clone(r.deck.Used),
		Categories:  slices.Clone(r.settings.EnabledCategories),
	}})
}

func (r *Room) currentCard() *Card {
	if r.card == nil {
		return nil
	}
	c := *r.card
	return &c
}
