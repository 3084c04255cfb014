package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/minaorangina/maumau"
	"github.com/minaorangina/maumau/config"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/rules"
	"github.com/minaorangina/maumau/server"
	"github.com/minaorangina/maumau/store"
)

func main() {
	rounds := flag.Int("rounds", 1, "number of rounds to play")
	name := flag.String("play", "", "take a seat at the table under this name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var logOpts []zap.Option
	if *name != "" {
		// the table talks to the terminal, keep the log out of the way
		logOpts = append(logOpts, zap.IncreaseLevel(zap.WarnLevel))
	}
	log, err := zap.NewDevelopment(logOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *name, *rounds, log); err != nil {
		log.Fatal("game failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, name string, rounds int, log *zap.Logger) error {
	seats := len(cfg.AIPlayers)
	if name != "" {
		seats++
	}
	if seats < 2 {
		return fmt.Errorf("%d players cannot play, configure more AI players", seats)
	}

	var (
		events maumau.Events = maumau.LogEvents{Log: log}
		table  *server.Broadcaster
		human  *console
	)
	if name != "" {
		table = server.NewBroadcaster(log)
		events = table
		human = newConsole(name, os.Stdin, os.Stdout)
		defer human.Close()
	}

	opts := cfg.GameOptions()
	if human == nil {
		opts.AIDelay = 0
	}
	scores := store.NewInMemoryStore()
	s := maumau.NewSession(opts, rules.NewStdRuleSet(cfg.RuleOptions(), events), events, scores, log)

	for i := 0; i < rounds; i++ {
		if human != nil {
			if err := s.AddPlayer(player.NewRemotePlayer("", name, human, 0)); err != nil {
				return err
			}
		}
		for _, n := range cfg.AIPlayers {
			if err := s.AddPlayer(player.NewAIPlayer(n)); err != nil {
				return fmt.Errorf("seat %s: %w", n, err)
			}
		}
		if table != nil {
			table.Seat(i+1, s.Players())
		}

		if err := s.Distribute(ctx); err != nil {
			return err
		}
		if err := s.Play(ctx); err != nil {
			return err
		}
		if table != nil {
			table.GameOver()
		}
		s.Reset()
	}

	ranking, err := scores.Scores(ctx, seats)
	if err != nil {
		return err
	}
	for i, sc := range ranking {
		fmt.Printf("%d. %-10s wins %d of %d, %d points\n", i+1, sc.Player, sc.Wins, sc.Games, sc.Points)
	}
	return nil
}
