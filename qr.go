/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Seednode/memeclash/game"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// joinURL is where a phone lands after scanning a room's QR code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}
	return u.String()
}

func serveRoomQR(cfg *Config, logger zerolog.Logger, reg *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		room, ok := reg.Room(ps.ByName("code"))
		if !ok {
			writeError(cfg, w, http.StatusNotFound, game.ErrRoomNotFound.Message)
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, room.Code()), qrcode.Medium, qrSize)
		if err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "qr generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)
		_, _ = w.Write(png)

		logger.Debug().Msgf("SERVE: QR code for %s (%s) to %s in %s",
			room.Code(),
			formatBytes(int64(len(png))),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
