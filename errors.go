/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return w.Write(data)
}

func writeError(cfg *Config, w http.ResponseWriter, status int, msg string) {
	_, _ = writeJSON(cfg, w, status, errorBody{Error: msg})
}

func panicHandler(cfg *Config, logger zerolog.Logger) func(http.ResponseWriter, *http.Request, any) {
	return func(w http.ResponseWriter, r *http.Request, i any) {
		logger.Error().Str("path", r.URL.Path).Interface("panic", i).Msg("ERROR: handler panicked")

		writeError(cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
	}
}
