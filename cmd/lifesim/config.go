package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/extended-life/internal/api"
	"github.com/talgya/extended-life/internal/cells"
)

// Config holds the command-line parameters. Defaults come from the
// environment where a variable exists, flags override them.
type Config struct {
	DB        string
	Name      string
	Load      string
	Width     int
	Height    int
	Steps     int
	Events    string
	Seasons   int
	Seed      int64
	Density   float64
	Mix       string
	Predators float64
	Modifiers bool
	Print     bool
	Watch     bool
	Interval  time.Duration
	Serve     string
	RateLimit int

	// Comma-separated proxy addresses or CIDRs trusted for X-Forwarded-For.
	TrustedProxies string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		DB:        envOrDefault("LIFESIM_DB", "data/lifesim.db"),
		Width:     40,
		Height:    20,
		Steps:     50,
		Seed:      42,
		Density:   0.35,
		Mix:       "standard=1",
		Interval:  200 * time.Millisecond,
		Serve:     os.Getenv("LIFESIM_ADDR"),
		RateLimit: envIntOrDefault("LIFESIM_RATE_LIMIT", 120),

		TrustedProxies: os.Getenv("LIFESIM_TRUSTED_PROXIES"),
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.DB, "db", c.DB, "SQLite database path (empty disables saving)")
	fs.StringVar(&c.Name, "name", c.Name, "name for a new game")
	fs.StringVar(&c.Load, "load", c.Load, "ID of a stored game to continue")
	fs.IntVar(&c.Width, "width", c.Width, "board width")
	fs.IntVar(&c.Height, "height", c.Height, "board height")
	fs.IntVar(&c.Steps, "steps", c.Steps, "number of generations to advance (0 with -watch plays until quit)")
	fs.StringVar(&c.Events, "events", c.Events, `event schedule, e.g. "0:famine,3:bloom"`)
	fs.IntVar(&c.Seasons, "seasons", c.Seasons, "season length in steps for generated seasonal events (0 disables)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for the initial population and tile modifiers")
	fs.Float64Var(&c.Density, "density", c.Density, "fraction of tiles seeded alive")
	fs.StringVar(&c.Mix, "mix", c.Mix, `variant weights, e.g. "standard=2,resilient=1"`)
	fs.Float64Var(&c.Predators, "predators", c.Predators, "fraction of seeded cells that start predatory")
	fs.BoolVar(&c.Modifiers, "modifiers", c.Modifiers, "generate tile modifiers from noise")
	fs.BoolVar(&c.Print, "print", c.Print, "print the final board")
	fs.BoolVar(&c.Watch, "watch", c.Watch, "watch the run in the terminal")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "delay between generations when watching")
	fs.StringVar(&c.Serve, "serve", c.Serve, "serve the read-only API on this address, e.g. :8080")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "API requests per minute per client (0 disables)")
	fs.StringVar(&c.TrustedProxies, "trusted-proxies", c.TrustedProxies, `proxies whose X-Forwarded-For is honoured, e.g. "127.0.0.1,10.0.0.0/8"`)
}

// Validate checks values flag parsing cannot.
func (c *Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	}
	if c.Load == "" && (c.Width < 1 || c.Height < 1) {
		return fmt.Errorf("board size %dx%d: dimensions must be positive", c.Width, c.Height)
	}
	if c.Seasons < 0 {
		return fmt.Errorf("seasons must not be negative, got %d", c.Seasons)
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("density %.2f outside [0,1]", c.Density)
	}
	if c.Predators < 0 || c.Predators > 1 {
		return fmt.Errorf("predators %.2f outside [0,1]", c.Predators)
	}
	if c.Load != "" && c.DB == "" {
		return fmt.Errorf("-load requires -db")
	}
	if c.Serve != "" && c.DB == "" {
		return fmt.Errorf("-serve requires -db")
	}
	if _, err := api.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	_, err := parseMix(c.Mix)
	return err
}

// parseMix parses "variant=weight" pairs separated by commas.
func parseMix(s string) (map[cells.Variant]float64, error) {
	weights := make(map[cells.Variant]float64)
	if strings.TrimSpace(s) == "" {
		return weights, nil
	}
	for _, part := range strings.Split(s, ",") {
		name, w, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("mix entry %q: want variant=weight", part)
		}
		v, err := cells.ParseVariant(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("mix entry %q: %w", part, err)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("mix entry %q: invalid weight", part)
		}
		weights[v] = weight
	}
	return weights, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
