/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"

	"github.com/rs/zerolog"
)

func newLogger(cfg *Config, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: logDate,
		NoColor:    true,
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
