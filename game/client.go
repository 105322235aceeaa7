/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Client is one live websocket connection. Its ID is the routing address
// for at most one player at a time.
type Client struct {
	ID   string
	Hint Identity

	conn    *websocket.Conn
	send    chan Event
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// NewClient wraps conn. hint is the name and room the client claimed when
// connecting; it is used to find the player again after a reconnect.
// A nil limiter disables rate limiting.
func NewClient(conn *websocket.Conn, hint Identity, limiter *rate.Limiter) *Client {
	return newClient(newConnID(), conn, hint, limiter, sendBuffer)
}

func newClient(id string, conn *websocket.Conn, hint Identity, limiter *rate.Limiter, buffer int) *Client {
	hint.Room = normalizeCode(hint.Room)

	return &Client{
		ID:      id,
		Hint:    hint,
		conn:    conn,
		send:    make(chan Event, buffer),
		done:    make(chan struct{}),
		limiter: limiter,
	}
}

// Deliver queues ev without blocking. A client whose queue is full is
// closed, and false is returned.
func (c *Client) Deliver(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.Close()
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump feeds actions into reg until the connection fails. A clean close
// from the browser counts as a normal disconnect; anything else is treated
// as a transport failure and gets the longer grace period.
func (c *Client) ReadPump(reg *Registry, maxMessage int64) {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			abrupt := !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			reg.Disconnect(c, abrupt)
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Deliver(errorEvent(ErrRateLimited))
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.Deliver(errorEvent(ErrInvalidMessage))
			continue
		}

		reg.Dispatch(c, msg)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
