/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strings"

	"github.com/Seednode/memeclash/game"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the request and runs the connection until it drops.
// The optional name and room query parameters let a reconnecting player
// be matched back to their seat before they send anything else.
func serveWS(cfg *Config, logger zerolog.Logger, reg *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug().Err(err).Str("remote", realIP(r)).Msg("SERVE: websocket upgrade failed")
			return
		}

		q := r.URL.Query()
		hint := game.Identity{
			Name: strings.TrimSpace(q.Get("name")),
			Room: q.Get("room"),
		}

		client := game.NewClient(conn, hint, rate.NewLimiter(rate.Limit(cfg.messageRate), cfg.messageBurst))

		logger.Debug().Str("conn", client.ID).Str("remote", realIP(r)).Msg("SERVE: websocket connected")

		go client.WritePump()
		client.ReadPump(reg, cfg.maxMessageSize)

		logger.Debug().Str("conn", client.ID).Msg("SERVE: websocket closed")
	}
}
