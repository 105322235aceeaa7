/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"maps"
	"slices"
)

// Events leave the room goroutine by value, since the connection writers
// encode them later on their own goroutines.

func (r *Room) view(p *Player) Player {
	v := *p
	v.IsHost = r.isHost(p)
	v.graceStop = nil
	return v
}

func (r *Room) roster() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = r.view(p)
	}
	return out
}

func (r *Room) scoreboard() map[string]int {
	return maps.Clone(r.scores)
}

func (r *Room) joinedData(p Player) RoomJoinedData {
	return RoomJoinedData{
		Code:      r.code,
		Player:    p,
		Players:   r.roster(),
		Phase:     r.phase,
		Round:     r.round,
		MaxRounds: r.maxRounds,
		ChatLog:   slices.Clone(r.chat),
		Settings:  r.settings,
	}
}

// sendTo delivers ev to p's current connection, if it has one. A connection
// that cannot keep up is closed by Deliver and forgotten here; its reader
// reports the departure.
func (r *Room) sendTo(p *Player, ev Event) {
	c, ok := r.conns[p.ID]
	if !ok {
		return
	}
	if !c.Deliver(ev) {
		r.log.Warn().Str("player", p.Name).Str("event", ev.Type).Msg("dropped slow connection")
		delete(r.conns, p.ID)
	}
}

func (r *Room) broadcast(ev Event) {
	for _, p := range r.players {
		r.sendTo(p, ev)
	}
}

func (r *Room) broadcastExcept(id string, ev Event) {
	for _, p := range r.players {
		if p.ID != id {
			r.sendTo(p, ev)
		}
	}
}
