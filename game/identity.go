/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "sync"

// Identity is a player's durable key. It survives reconnects, while the
// connection id that currently routes to it does not.
type Identity struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

func (i Identity) valid() bool {
	return i.Name != "" && i.Room != ""
}

// matches reports whether i satisfies a connection hint. The same name in
// two rooms is two players, so a hint must carry both halves.
func (i Identity) matches(hint Identity) bool {
	return hint.valid() && i == hint
}

// identityIndex maps connection ids to identities and back. Room actors are
// the only writers; lookups happen from connection reader goroutines.
type identityIndex struct {
	mu         sync.RWMutex
	byConn     map[string]Identity
	byIdentity map[Identity]string
}

func newIdentityIndex() *identityIndex {
	return &identityIndex{
		byConn:     make(map[string]Identity),
		byIdentity: make(map[Identity]string),
	}
}

// connection is the fast path.
func (x *identityIndex) connection(connID string) (Identity, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	id, ok := x.byConn[connID]
	return id, ok
}

// scan is the slow path: a linear walk over every bound identity in every
// room, looking for one the hint describes.
func (x *identityIndex) scan(hint Identity) (Identity, bool) {
	if !hint.valid() {
		return Identity{}, false
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	for id := range x.byIdentity {
		if id.matches(hint) {
			return id, true
		}
	}
	return Identity{}, false
}

// seated reports whether connID routes to some identity other than id.
func (x *identityIndex) seated(connID string, id Identity) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	cur, ok := x.byConn[connID]
	return ok && cur != id
}

// claim binds a new identity to connID. It fails if connID already routes to
// another identity, so one connection never holds two seats. Rooms race for
// the same connection through here, and the lock picks the winner.
func (x *identityIndex) claim(id Identity, connID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if cur, ok := x.byConn[connID]; ok && cur != id {
		return false
	}
	x.bindLocked(id, connID)

	return true
}

// bind routes id to connID, evicting whichever connection held it before.
// It returns the evicted connection id, if any.
func (x *identityIndex) bind(id Identity, connID string) string {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.bindLocked(id, connID)
}

func (x *identityIndex) bindLocked(id Identity, connID string) string {
	old, had := x.byIdentity[id]
	if had && old != connID {
		delete(x.byConn, old)
	}

	x.byIdentity[id] = connID
	x.byConn[connID] = id

	if had && old != connID {
		return old
	}
	return ""
}

func (x *identityIndex) unbind(id Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if conn, ok := x.byIdentity[id]; ok {
		if x.byConn[conn] == id {
			delete(x.byConn, conn)
		}
		delete(x.byIdentity, id)
	}
}

// dropRoom forgets every identity bound to room.
func (x *identityIndex) dropRoom(room string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id, conn := range x.byIdentity {
		if id.Room != room {
			continue
		}
		if x.byConn[conn] == id {
			delete(x.byConn, conn)
		}
		delete(x.byIdentity, id)
	}
}

func (x *identityIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.byIdentity)
}
