/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/memeclash/game"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveText(cfg *Config, logger zerolog.Logger, errs chan<- error, page, body string, cache bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		if cache {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(body))
		if err != nil {
			errs <- err

			return
		}

		logger.Debug().Msgf("SERVE: %s (%s) to %s in %s",
			page,
			formatBytes(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveCategories(cfg *Config, logger zerolog.Logger, catalog *game.Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		written, err := writeJSON(cfg, w, http.StatusOK, struct {
			Categories []game.CategorySummary `json:"categories"`
		}{catalog.Summaries()})
		if err != nil {
			errs <- err

			return
		}

		logger.Debug().Msgf("SERVE: Category list (%s) to %s in %s",
			formatBytes(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

const robots = `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

func newRouter(cfg *Config, logger zerolog.Logger, reg *game.Registry, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = panicHandler(cfg, logger)

	mux.GET(cfg.prefix+"/", serveText(cfg, logger, errs, "Home page", "memeclash v"+releaseVersion+"\nconnect to "+cfg.prefix+"/ws to play\n", false))

	mux.GET(cfg.prefix+"/healthz", serveText(cfg, logger, errs, "Health check", "Ok\n", false))

	mux.GET(cfg.prefix+"/robots.txt", serveText(cfg, logger, errs, "Robots", robots, true))

	mux.GET(cfg.prefix+"/version", serveText(cfg, logger, errs, "Version page", "memeclash v"+releaseVersion+"\n", false))

	mux.GET(cfg.prefix+"/categories", serveCategories(cfg, logger, reg.Catalog(), errs))

	mux.GET(cfg.prefix+"/rooms/:code/qr", serveRoomQR(cfg, logger, reg))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, logger, reg))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

func registryOptions(cfg *Config, logger zerolog.Logger) (game.Options, error) {
	catalog := game.DefaultCatalog()
	if cfg.cards != "" {
		var err error
		catalog, err = game.LoadCatalog(cfg.cards)
		if err != nil {
			return game.Options{}, err
		}
	}

	timing := game.DefaultTiming()
	timing.OfflineGrace = cfg.offlineGrace
	timing.TransportGrace = cfg.transportGrace

	return game.Options{
		Catalog:       catalog,
		Logger:        logger,
		Timing:        timing,
		DeckSize:      cfg.deckSize,
		MaxRoomSize:   cfg.maxRoomSize,
		EmptyRoomTTL:  cfg.emptyRoomTimeout,
		MaxImageBytes: cfg.maxImageSize,
	}, nil
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logger := newLogger(cfg, os.Stderr)

	logger.Info().Msgf("START: memeclash v%s", releaseVersion)

	opts, err := registryOptions(cfg, logger)
	if err != nil {
		return err
	}

	reg := game.NewRegistry(opts)
	go reg.Run(ctx)

	logger.Debug().
		Strs("categories", opts.Catalog.Keys()).
		Str("max_image", formatBytes(int64(cfg.maxImageSize))).
		Str("max_message", formatBytes(cfg.maxMessageSize)).
		Msg("START: game registry ready")

	errs := make(chan error, 64)
	go func() {
		for err := range errs {
			logger.Debug().Err(err).Msg("ERROR: response write failed")
		}
	}()

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, logger, reg, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
		ErrorLog:          log.New(logger, "", 0),
	}

	serveErr := make(chan error, 1)

	go func() {
		var err error

		logger.Info().Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
