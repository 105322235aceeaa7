/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	cards            string
	deckSize         int
	emptyRoomTimeout time.Duration
	maxImageSize     int
	maxMessageSize   int64
	maxRoomSize      int
	messageBurst     int
	messageRate      float64
	offlineGrace     time.Duration
	port             int
	prefix           string
	profile          bool
	tlsCert          string
	tlsKey           string
	transportGrace   time.Duration
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.offlineGrace <= 0 || c.transportGrace <= 0 || c.emptyRoomTimeout <= 0 {
		return errors.New("--offline-grace, --transport-grace and --empty-room-timeout must be positive")
	}
	if c.deckSize < 1 {
		return fmt.Errorf("invalid deck size (must be at least 1): %d", c.deckSize)
	}
	if c.maxRoomSize < 2 {
		return fmt.Errorf("invalid max room size (must be at least 2): %d", c.maxRoomSize)
	}
	if c.messageRate <= 0 || c.messageBurst < 1 {
		return errors.New("--message-rate must be positive and --message-burst at least 1")
	}
	if int64(c.maxImageSize) >= c.maxMessageSize {
		return fmt.Errorf("--max-image-size (%d) must be smaller than --max-message-size (%d)", c.maxImageSize, c.maxMessageSize)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MEMECLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "memeclash",
		Short:         "A multiplayer meme party game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MEMECLASH_BIND)")
	fs.StringVar(&cfg.cards, "cards", "", "path to a prompt card catalog (yaml, json or toml) (env: MEMECLASH_CARDS)")
	fs.IntVar(&cfg.deckSize, "deck-size", 3, "prompt cards dealt into each deck (env: MEMECLASH_DECK_SIZE)")
	fs.DurationVar(&cfg.emptyRoomTimeout, "empty-room-timeout", 5*time.Minute, "time before empty rooms are removed (env: MEMECLASH_EMPTY_ROOM_TIMEOUT)")
	fs.IntVar(&cfg.maxImageSize, "max-image-size", 8<<20, "largest accepted image submission, in bytes (env: MEMECLASH_MAX_IMAGE_SIZE)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 10<<20, "largest accepted websocket message, in bytes (env: MEMECLASH_MAX_MESSAGE_SIZE)")
	fs.IntVar(&cfg.maxRoomSize, "max-room-size", 16, "hard cap on players per room (env: MEMECLASH_MAX_ROOM_SIZE)")
	fs.IntVar(&cfg.messageBurst, "message-burst", 20, "messages a client may send in a burst (env: MEMECLASH_MESSAGE_BURST)")
	fs.Float64Var(&cfg.messageRate, "message-rate", 10, "sustained messages per second allowed per client (env: MEMECLASH_MESSAGE_RATE)")
	fs.DurationVar(&cfg.offlineGrace, "offline-grace", 30*time.Second, "time before disconnected players are removed (env: MEMECLASH_OFFLINE_GRACE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MEMECLASH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MEMECLASH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MEMECLASH_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MEMECLASH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MEMECLASH_TLS_KEY)")
	fs.DurationVar(&cfg.transportGrace, "transport-grace", 60*time.Second, "time before players lost to a network failure are removed (env: MEMECLASH_TRANSPORT_GRACE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MEMECLASH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MEMECLASH_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("memeclash v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
