package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"campaign-generator/internal/api"
	"campaign-generator/internal/cache"
	"campaign-generator/internal/config"
	"campaign-generator/internal/fallback"
	"campaign-generator/internal/listener"
	"campaign-generator/internal/pipeline"
	"campaign-generator/internal/platform"
	"campaign-generator/internal/rules"
	"campaign-generator/internal/variable"
)

const requestTimeout = 30 * time.Second

// Server owns the long-lived state shared by requests: the active limit
// table, compiled regexes and compiled templates.
type Server struct {
	cfg       config.Config
	limits    *cache.Snapshot[platform.LimitTable]
	regexes   *rules.RegexCache
	templates *variable.Cache
	handler   http.Handler
}

func New(cfg config.Config) (*Server, error) {
	table, err := cfg.LimitTable()
	if err != nil {
		return nil, fmt.Errorf("resolve limits: %w", err)
	}
	limits := &cache.Snapshot[platform.LimitTable]{}
	limits.Store(table)

	regexes, err := rules.NewRegexCache(cfg.Generation.RegexCache)
	if err != nil {
		return nil, fmt.Errorf("init regex cache: %w", err)
	}

	templates, err := variable.NewCache(cfg.Generation.Templates)
	if err != nil {
		regexes.Close()
		return nil, fmt.Errorf("init template cache: %w", err)
	}

	s := &Server{cfg: cfg, limits: limits, regexes: regexes, templates: templates}
	gen := pipeline.New(pipeline.Options{
		DefaultPlatform: platform.Parse(cfg.Generation.Platform),
		Strategy:        fallback.Strategy(cfg.Generation.Strategy),
		FallbackAd:      cfg.Generation.FallbackAd,
		Truncation:      cfg.Generation.Truncation,
		MaxRows:         cfg.Generation.MaxRows,
		Limits:          s.Limits,
		Regexes:         regexes,
		Templates:       templates,
		Logger:          log.Logger,
	})
	h := api.NewHandler(gen, rules.NewProcessor(regexes), s.Limits)
	s.handler = api.Router(h, requestTimeout)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Limits returns the table currently in effect.
func (s *Server) Limits() platform.LimitTable {
	t, ok := s.limits.Load()
	if !ok {
		return platform.DefaultLimits()
	}
	return t
}

// Reload re-decodes v and resolves a fresh limit table.
func Reload(v *viper.Viper) (platform.LimitTable, error) {
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	return cfg.LimitTable()
}

func (s *Server) Close() {
	s.regexes.Close()
	s.templates.Close()
}

func Run(cfg config.Config, v *viper.Viper) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init server")
	}
	defer s.Close()

	// Config watch; the listener debounces and swaps the limit table
	events := make(chan struct{}, 1)
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Debug().Str("file", e.Name).Str("op", e.Op.String()).Msg("config changed")
		select {
		case events <- struct{}{}:
		default:
		}
	})
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}
	go listener.ListenAndRefresh(rootCtx, events, func() (platform.LimitTable, error) { return Reload(v) }, s.limits, time.Second)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("platform", cfg.Generation.Platform).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
