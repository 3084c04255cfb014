package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau/config"
	"github.com/minaorangina/maumau/rules"
	"github.com/minaorangina/maumau/server"
	"github.com/minaorangina/maumau/store"
)

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scores, err := store.OpenSQLite(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer scores.Close()

	ro := cfg.RuleOptions()
	if cfg.RulesScript != "" {
		m, err := rules.LoadLuaMatcher(cfg.RulesScript)
		if err != nil {
			return err
		}
		defer m.Close()
		ro.Matcher = m
		log.Info("rules script loaded", zap.String("path", cfg.RulesScript))
	}

	s := server.New(server.Options{
		Humans:      cfg.Humans,
		AIPlayers:   cfg.AIPlayers,
		ReadTimeout: cfg.ReadTimeout,
	}, cfg.GameOptions(), ro, scores, log)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info("listening for players", zap.String("addr", cfg.ListenAddr))

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: s.Handler()}
	go func() {
		log.Info("listening for http", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	go func() {
		if err := s.Serve(ctx, ln); err != nil {
			log.Error("listener failed", zap.Error(err))
			stop()
		}
	}()

	err = s.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdown)

	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}
