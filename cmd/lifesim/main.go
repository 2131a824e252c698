// Command lifesim builds or loads an extended Game of Life, advances it,
// stores it, and optionally prints, watches, or serves it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/extended-life/internal/api"
	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/engine"
	"github.com/talgya/extended-life/internal/persistence"
	"github.com/talgya/extended-life/internal/tui"
	"github.com/talgya/extended-life/internal/world"
)

func main() {
	cfg := NewConfig()
	fs := flag.NewFlagSet("lifesim", flag.ExitOnError)
	cfg.Bind(fs)
	fs.Parse(os.Args[1:])

	// The viewer owns the terminal, so logs go to stderr while watching.
	out := os.Stdout
	if cfg.Watch {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("lifesim failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.DB != "" {
		if dir := filepath.Dir(cfg.DB); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
		}
		var err error
		db, err = persistence.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DB)
	}

	// ── Game ──────────────────────────────────────────────────────────
	var game *world.Game
	var err error
	if cfg.Load != "" {
		game, err = db.LoadGame(ctx, cfg.Load)
		if err != nil {
			return err
		}
		slog.Info("game loaded",
			"game", game.ID,
			"name", game.Name,
			"step", game.Latest().Step,
		)
	} else {
		game, err = buildGame(cfg)
		if err != nil {
			return err
		}
	}

	schedule, err := buildSchedule(cfg, game)
	if err != nil {
		return err
	}

	// ── Run ───────────────────────────────────────────────────────────
	startStep := game.Latest().Step
	var born, died int
	tally := engine.OnStep(func(s engine.StepSummary) {
		born += s.Born
		died += s.Died
	})

	if cfg.Watch {
		err = watch(ctx, cfg, game, schedule, tally)
	} else {
		_, err = engine.New(tally).RunSchedule(game, cfg.Steps, schedule)
	}
	if err != nil {
		return err
	}

	latest := game.Latest()
	attrs := []any{
		"game", game.ID,
		"name", game.Name,
		"generations", humanize.Comma(int64(latest.Step - startStep)),
		"reached", humanize.Ordinal(latest.Step) + " step",
		"alive", humanize.Comma(int64(game.Board.CountAlive(latest))),
		"born", humanize.Comma(int64(born)),
		"died", humanize.Comma(int64(died)),
	}
	if top := game.Board.HighestEnergy(latest); top != nil {
		attrs = append(attrs, "richest", top.String(), "energy", latest.Energy(top.ID))
	}
	slog.Info("run complete", attrs...)

	if db != nil {
		if err := db.SaveGame(ctx, game); err != nil {
			return err
		}
	}

	if cfg.Print {
		fmt.Println(world.Visualize(latest))
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Serve != "" {
		trusted, err := api.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			return err
		}
		srv := &api.Server{Store: db, Addr: cfg.Serve, RateLimit: cfg.RateLimit, TrustedProxies: trusted}
		srv.Start()
		fmt.Printf("API: http://localhost%s/api/v1/games/%s (Ctrl+C to stop)\n", cfg.Serve, game.ID)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

// buildGame creates a new seeded game from cfg.
func buildGame(cfg *Config) (*world.Game, error) {
	game, err := world.NewGame(cfg.Name, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	if game.Name == "" {
		game.Name = "game-" + game.ID[:8]
	}

	if cfg.Modifiers {
		mc := world.DefaultModifierConfig()
		mc.Seed = cfg.Seed
		if err := world.GenerateModifiers(game.Board, mc); err != nil {
			return nil, err
		}
		for m, n := range world.ModifierCounts(game.Board) {
			slog.Info("tile modifiers", "modifier", m, "tiles", n)
		}
	}

	weights, err := parseMix(cfg.Mix)
	if err != nil {
		return nil, err
	}
	gen, err := world.SeedInitial(game, world.SeedConfig{
		Seed:    cfg.Seed,
		Density: cfg.Density,
		Weights: weights,
	})
	if err != nil {
		return nil, err
	}

	// Social state is not part of a snapshot, so no re-capture is needed.
	predators := 0
	rng := rand.New(rand.NewSource(cfg.Seed + 3))
	for _, c := range gen.AliveCells() {
		if rng.Float64() < cfg.Predators {
			c.Social = cells.Predatory
			predators++
		}
	}

	slog.Info("game created",
		"game", game.ID,
		"name", game.Name,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"alive", humanize.Comma(int64(game.Board.CountAlive(gen))),
		"predators", predators,
	)
	for v, n := range game.Board.CountByVariant(gen) {
		slog.Info("population", "variant", v, "alive", n)
	}
	return game, nil
}

// buildSchedule combines generated seasonal events with the explicit -events
// schedule, which wins on conflicts. A loaded game keeps its stored schedule
// unless either is given.
func buildSchedule(cfg *Config, game *world.Game) (world.Schedule, error) {
	if cfg.Events == "" && cfg.Seasons == 0 {
		return game.Schedule, nil
	}

	schedule := make(world.Schedule)
	if cfg.Seasons > 0 {
		steps := cfg.Steps
		if steps == 0 {
			steps = 1000
		}
		climate := world.DefaultClimateConfig()
		climate.Seed = cfg.Seed
		climate.SeasonLength = cfg.Seasons
		seasonal, err := world.SeasonalSchedule(game.Latest().Step, steps, climate)
		if err != nil {
			return nil, err
		}
		for step, e := range seasonal {
			schedule[step] = e
		}
		slog.Info("seasonal events generated", "events", len(seasonal), "season_length", cfg.Seasons)
	}

	explicit, err := world.ParseSchedule(cfg.Events)
	if err != nil {
		return nil, err
	}
	for step, e := range explicit {
		schedule[step] = e
	}
	return schedule, nil
}

// watch plays the game at cfg.Interval in a terminal viewer until the steps
// run out and the user quits, or the user quits early.
func watch(ctx context.Context, cfg *Config, game *world.Game, schedule world.Schedule, tally engine.Option) error {
	viewer, err := tui.Open(game)
	if err != nil {
		return err
	}
	defer viewer.Close()

	eng := engine.New(tally, engine.OnStep(viewer.Observe))
	eng.Interval = cfg.Interval

	latest := game.Latest()
	viewer.Observe(engine.StepSummary{Step: latest.Step, Alive: game.Board.CountAlive(latest)})

	// Quitting the viewer cancels playback, even before Play has started.
	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go viewer.Run(ctx)
	go func() {
		select {
		case <-viewer.Done():
			cancel()
		case <-playCtx.Done():
		}
	}()

	if err := eng.Play(playCtx, game, schedule, cfg.Steps); err != nil {
		return err
	}
	select {
	case <-viewer.Done():
	case <-ctx.Done():
	}
	return nil
}
