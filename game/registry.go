/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	codeLength    = 6
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxNameLength = 24
	maxChatLength = 500
)

// Options configure a Registry. Zero values fall back to the defaults noted.
type Options struct {
	Catalog       *Catalog // DefaultCatalog()
	Logger        zerolog.Logger
	After         AfterFunc        // RealAfterFunc
	Now           func() time.Time // time.Now
	Timing        Timing           // DefaultTiming()
	DeckSize      int              // 3
	MaxRoomSize   int              // 16
	EmptyRoomTTL  time.Duration    // 5m
	MaxImageBytes int              // 8 MiB
	ChatHistory   int              // 100
}

func (o *Options) setDefaults() {
	if o.Catalog == nil {
		o.Catalog = DefaultCatalog()
	}
	if o.After == nil {
		o.After = RealAfterFunc
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Timing == (Timing{}) {
		o.Timing = DefaultTiming()
	}
	if o.DeckSize <= 0 {
		o.DeckSize = 3
	}
	if o.MaxRoomSize <= 0 {
		o.MaxRoomSize = 16
	}
	if o.EmptyRoomTTL <= 0 {
		o.EmptyRoomTTL = 5 * time.Minute
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 8 << 20
	}
	if o.ChatHistory <= 0 {
		o.ChatHistory = 100
	}
}

type roomEntry struct {
	room       *Room
	emptySince time.Time
}

// Registry owns the room table and the identity index. Room state itself is
// only touched by each room's own goroutine.
type Registry struct {
	opts Options
	log  zerolog.Logger
	ids  *identityIndex

	mu    sync.Mutex
	rooms map[string]*roomEntry
}

func NewRegistry(opts Options) *Registry {
	opts.setDefaults()

	return &Registry{
		opts:  opts,
		log:   opts.Logger,
		ids:   newIdentityIndex(),
		rooms: make(map[string]*roomEntry),
	}
}

func (reg *Registry) Catalog() *Catalog {
	return reg.opts.Catalog
}

// CreateRoom opens a room under a fresh code and starts its goroutine.
func (reg *Registry) CreateRoom() *Room {
	return reg.createRoom(true)
}

func (reg *Registry) createRoom(start bool) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.newCodeLocked()
	r := newRoom(reg, code)
	reg.rooms[code] = &roomEntry{room: r, emptySince: reg.opts.Now()}

	if start {
		go r.run()
	}

	reg.log.Info().Str("room", code).Int("rooms", len(reg.rooms)).Msg("room created")

	return r
}

// newCodeLocked generates a crypto-random room code that is not in use.
func (reg *Registry) newCodeLocked() string {
	buf := make([]byte, codeLength)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for i := range buf {
			buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(buf)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (reg *Registry) Room(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.rooms[normalizeCode(code)]
	if !ok {
		return nil, false
	}
	return e.room, true
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}

func (reg *Registry) occupied(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if e, ok := reg.rooms[code]; ok {
		e.emptySince = time.Time{}
	}
}

func (reg *Registry) emptied(code string, at time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if e, ok := reg.rooms[code]; ok {
		e.emptySince = at
	}
}

// Destroy removes a room and stops its goroutine.
func (reg *Registry) Destroy(code string) bool {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()

	if !ok {
		return false
	}

	reg.ids.dropRoom(code)
	e.room.stop()

	return true
}

// Reap destroys every room that has been empty for at least the TTL and
// returns how many went.
func (reg *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-reg.opts.EmptyRoomTTL)

	reg.mu.Lock()
	var dead []string
	for code, e := range reg.rooms {
		if !e.emptySince.IsZero() && !e.emptySince.After(cutoff) {
			dead = append(dead, code)
		}
	}
	reg.mu.Unlock()

	n := 0
	for _, code := range dead {
		if reg.Destroy(code) {
			n++
		}
	}
	return n
}

// Run reaps empty rooms until ctx is done, then closes every room.
func (reg *Registry) Run(ctx context.Context) {
	interval := max(reg.opts.EmptyRoomTTL/2, time.Second)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			reg.Close()
			return
		case now := <-ticker.C:
			if n := reg.Reap(now); n > 0 {
				reg.log.Info().Int("reaped", n).Int("rooms", reg.Len()).Msg("reaped empty rooms")
			}
		}
	}
}

func (reg *Registry) Close() {
	reg.mu.Lock()
	codes := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		codes = append(codes, code)
	}
	reg.mu.Unlock()

	for _, code := range codes {
		reg.Destroy(code)
	}
}

// resolve finds the room and identity behind a connection: first by
// connection id, then by scanning for the connection's name and room hint.
// A hint without a room resolves nothing.
func (reg *Registry) resolve(c *Client, code string) (*Room, Identity, error) {
	id, ok := reg.ids.connection(c.ID)
	if !ok {
		hint := c.Hint
		if code != "" {
			hint.Room = normalizeCode(code)
		}

		id, ok = reg.ids.scan(hint)
		if !ok {
			return nil, Identity{}, ErrPlayerNotFound
		}

		reg.log.Debug().Str("conn", c.ID).Str("player", id.Name).Str("room", id.Room).Msg("identity resolved by scan")
	}

	r, ok := reg.Room(id.Room)
	if !ok {
		return nil, Identity{}, ErrRoomNotFound
	}

	return r, id, nil
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%v: %w", err, ErrInvalidMessage)
	}
	return v, nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Dispatch validates msg and hands it to the room it belongs to. Errors go
// back to c alone.
func (reg *Registry) Dispatch(c *Client, msg Message) {
	if err := reg.dispatch(c, msg); err != nil {
		code, _ := CodeOf(err)
		reg.log.Debug().Str("conn", c.ID).Str("action", msg.Type).Str("code", string(code)).Msg("action rejected")
		c.Deliver(errorEvent(err))
	}
}

// seated reports whether c already holds a seat somewhere. Such a connection
// has to leave before it can create or join another room.
func (reg *Registry) seated(c *Client) bool {
	_, ok := reg.ids.connection(c.ID)
	return ok
}

func (reg *Registry) dispatch(c *Client, msg Message) error {
	switch msg.Type {
	case ActionCreateRoom:
		d, err := decode[nameData](msg.Data)
		if err != nil {
			return err
		}
		name, err := validName(d.Name)
		if err != nil {
			return err
		}
		if reg.seated(c) {
			return ErrInvalidPhase
		}

		r := reg.CreateRoom()
		if !r.post(joinEvent{client: c, name: name, create: true}) {
			return ErrRoomNotFound
		}
		return nil

	case ActionJoinRoom:
		d, err := decode[joinData](msg.Data)
		if err != nil {
			return err
		}
		name, err := validName(d.Name)
		if err != nil {
			return err
		}

		r, ok := reg.Room(d.Code)
		if !ok {
			return ErrRoomNotFound
		}
		if reg.seated(c) {
			return ErrInvalidPhase
		}
		if !r.post(joinEvent{client: c, name: name}) {
			return ErrRoomNotFound
		}
		return nil

	case ActionRoomInfo:
		d, err := decode[roomInfoData](msg.Data)
		if err != nil {
			return err
		}
		if d.Player != nil {
			if d.Player.Name, err = validName(d.Player.Name); err != nil {
				return err
			}
		}

		r, ok := reg.Room(d.Code)
		if !ok || !r.post(infoEvent{client: c, hint: d.Player}) {
			return ErrRoomNotFound
		}
		return nil
	}

	var (
		code string
		act  any
	)

	switch msg.Type {
	case ActionStartGame, ActionReturnToLobby, ActionReturnToHome, ActionLeaveRoom, ActionGetCards:
		d, err := decode[codeData](msg.Data)
		if err != nil {
			return err
		}
		code = d.Code

		switch msg.Type {
		case ActionStartGame:
			act = startAction{}
		case ActionReturnToLobby:
			act = lobbyAction{}
		case ActionReturnToHome:
			act = homeAction{}
		case ActionLeaveRoom:
			act = leaveAction{}
		case ActionGetCards:
			act = cardsAction{}
		}

	case ActionSubmit:
		d, err := decode[codeData](msg.Data)
		if err != nil {
			return err
		}
		body, err := ParsePayload(msg.Data, reg.opts.MaxImageBytes)
		if err != nil {
			return err
		}
		code, act = d.Code, submitAction{payload: body}

	case ActionVote:
		d, err := decode[voteData](msg.Data)
		if err != nil {
			return err
		}
		if d.SubmissionID == "" {
			return ErrInvalidTarget
		}
		act = voteAction{submissionID: d.SubmissionID}

	case ActionUpdateSettings:
		d, err := decode[settingsData](msg.Data)
		if err != nil {
			return err
		}
		code, act = d.Code, settingsAction{update: d.Settings}

	case ActionSendChat:
		d, err := decode[chatData](msg.Data)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(d.Text)
		if n := utf8.RuneCountInString(text); n == 0 || n > maxChatLength {
			return ErrInvalidMessage
		}
		code, act = d.Code, chatAction{text: text}

	default:
		return fmt.Errorf("unknown action %q: %w", msg.Type, ErrInvalidMessage)
	}

	r, id, err := reg.resolve(c, code)
	if err != nil {
		return err
	}

	if !r.post(actionEvent{client: c, identity: id, act: act}) {
		return ErrRoomNotFound
	}
	return nil
}

// Disconnect starts the grace countdown for whichever player c routed to.
func (reg *Registry) Disconnect(c *Client, abrupt bool) {
	id, ok := reg.ids.connection(c.ID)
	if !ok {
		return
	}

	r, ok := reg.Room(id.Room)
	if !ok {
		return
	}

	r.post(departure{connID: c.ID, abrupt: abrupt})
}
