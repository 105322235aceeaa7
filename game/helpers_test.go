/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// fakeClock stands in for both Options.Now and Options.After. Timers only
// fire when the test moves the clock forward.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	return fc.now
}

func (fc *fakeClock) After(d time.Duration, f func()) func() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	t := &fakeTimer{at: fc.now.Add(d), f: f}
	fc.timers = append(fc.timers, t)

	return func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()

		live := !t.stopped && !t.fired
		t.stopped = true
		return live
	}
}

// Advance moves the clock forward and fires every live timer that came due,
// earliest first.
func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	fc.now = fc.now.Add(d)

	var due []*fakeTimer
	for _, t := range fc.timers {
		if !t.stopped && !t.fired && !t.at.After(fc.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	fc.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// stopped returns the callbacks of every timer that was cancelled before it
// fired.
func (fc *fakeClock) stopped() []func() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var out []func()
	for _, t := range fc.timers {
		if t.stopped && !t.fired {
			out = append(out, t.f)
		}
	}
	return out
}

func newTestRegistry(t *testing.T, tweak ...func(*Options)) (*Registry, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	opts := Options{
		Logger: zerolog.Nop(),
		After:  clock.After,
		Now:    clock.Now,
	}
	for _, f := range tweak {
		f(&opts)
	}

	return NewRegistry(opts), clock
}

func newTestClient(id, name, room string) *Client {
	return newClient(id, nil, Identity{Name: name, Room: room}, nil, 1024)
}

// drain runs the room's queued events on the test goroutine.
func drain(r *Room) {
	for {
		select {
		case ev := <-r.inbox:
			if _, ok := ev.(shutdown); ok {
				r.shutdown()
				return
			}
			r.handle(ev)
		default:
			return
		}
	}
}

func send(t *testing.T, reg *Registry, c *Client, typ string, data any) {
	t.Helper()

	msg := Message{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		msg.Data = raw
	}

	reg.Dispatch(c, msg)
}

// events empties c's outbound queue.
func events(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofType(evs []Event, typ string) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func lastOf[T any](t *testing.T, evs []Event, typ string) T {
	t.Helper()

	matched := ofType(evs, typ)
	require.NotEmpty(t, matched, "no %s event", typ)

	data, ok := matched[len(matched)-1].Data.(T)
	require.True(t, ok, "%s carried %T", typ, matched[len(matched)-1].Data)

	return data
}

func errorCode(t *testing.T, evs []Event) Code {
	t.Helper()

	return lastOf[ErrorData](t, evs, EventError).Code
}

type table struct {
	reg     *Registry
	clock   *fakeClock
	room    *Room
	clients []*Client
}

// seat opens a room and joins names to it in order; the first is host.
// Every client's queue is empty on return.
func seat(t *testing.T, names ...string) *table {
	t.Helper()

	reg, clock := newTestRegistry(t)
	tb := &table{reg: reg, clock: clock, room: reg.createRoom(false)}

	for _, name := range names {
		tb.join(t, name)
	}
	tb.flush()

	return tb
}

func (tb *table) join(t *testing.T, name string) *Client {
	t.Helper()

	c := newTestClient("conn-"+name, name, "")
	send(t, tb.reg, c, ActionJoinRoom, map[string]string{"code": tb.room.code, "name": name})
	drain(tb.room)

	tb.clients = append(tb.clients, c)
	return c
}

func (tb *table) do(t *testing.T, c *Client, typ string, data any) {
	t.Helper()

	send(t, tb.reg, c, typ, data)
	drain(tb.room)
}

func (tb *table) advance(d time.Duration) {
	tb.clock.Advance(d)
	drain(tb.room)
}

func (tb *table) flush() {
	for _, c := range tb.clients {
		events(c)
	}
}

func (tb *table) code() map[string]string {
	return map[string]string{"code": tb.room.code}
}

func (tb *table) start(t *testing.T) {
	t.Helper()

	tb.do(t, tb.clients[0], ActionStartGame, tb.code())
	require.Equal(t, PhasePlaying, tb.room.phase)
}

func (tb *table) submitText(t *testing.T, c *Client, top string) {
	t.Helper()

	tb.do(t, c, ActionSubmit, map[string]string{
		"code":       tb.room.code,
		"topText":    top,
		"bottomText": "bottom",
		"template":   "drake",
	})
}

// submitAll has every client submit, then lets the settle delay run out.
func (tb *table) submitAll(t *testing.T) {
	t.Helper()

	for _, c := range tb.clients {
		tb.submitText(t, c, c.Hint.Name)
	}
	tb.advance(tb.reg.opts.Timing.SubmissionSettle)
	require.Equal(t, PhaseVoting, tb.room.phase)
}

// ballot returns the submissions c was last offered.
func (tb *table) ballot(t *testing.T, c *Client) []Submission {
	t.Helper()

	return lastOf[VotingStartedData](t, events(c), EventVotingStarted).Submissions
}
