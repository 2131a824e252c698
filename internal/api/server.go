// Package api provides a read-only HTTP API over stored games.
// Every endpoint is a public GET; games are created and advanced by the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/persistence"
	"github.com/talgya/extended-life/internal/world"
)

// Store is the subset of persistence the API reads from.
type Store interface {
	ListGames(ctx context.Context) ([]persistence.GameSummary, error)
	LoadGame(ctx context.Context, id string) (*world.Game, error)
}

// Server serves stored games over HTTP.
type Server struct {
	Store     Store
	Addr      string
	RateLimit int // Requests per minute per client. Zero disables limiting.

	// Proxies whose X-Forwarded-For header identifies the client.
	TrustedProxies []netip.Prefix

	srv *http.Server
}

// Handler builds the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/games", s.handleGames)
	mux.HandleFunc("/api/v1/games/", s.handleGameRoutes)

	var handler http.Handler = mux
	if s.RateLimit > 0 {
		handler = NewLimiter(s.RateLimit, time.Minute, s.TrustedProxies).Middleware(mux)
	}
	return corsMiddleware(handler)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "rate_limit", s.RateLimit)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleGames lists stored games.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	games, err := s.Store.ListGames(r.Context())
	if err != nil {
		slog.Error("list games failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []persistence.GameSummary{}
	}
	writeJSON(w, map[string]any{"games": games})
}

// handleGameRoutes dispatches /api/v1/games/:id[/generations/:step | /stats].
func (s *Server) handleGameRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/games/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	game, ok := s.loadGame(w, r, parts[0])
	if !ok {
		return
	}

	switch {
	case len(parts) == 1:
		s.handleGameDetail(w, game)
	case len(parts) == 3 && parts[1] == "generations":
		s.handleGeneration(w, game, parts[2])
	case len(parts) == 2 && parts[1] == "stats":
		s.handleStats(w, r, game)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) loadGame(w http.ResponseWriter, r *http.Request, id string) (*world.Game, bool) {
	game, err := s.Store.LoadGame(r.Context(), id)
	if errors.Is(err, persistence.ErrGameNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("load game failed", "game", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return game, true
}

type gameDetail struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	CreatedAt   time.Time             `json:"created_at"`
	Generations int                   `json:"generations"`
	LatestStep  int                   `json:"latest_step"`
	Alive       int                   `json:"alive"`
	ByVariant   map[cells.Variant]int `json:"by_variant"`
	Predators   int                   `json:"predators"`
	Infected    int                   `json:"infected"`
	Schedule    world.Schedule        `json:"schedule"`
	Modifiers   map[int]int           `json:"modifiers"` // modifier value → tile count
}

func (s *Server) handleGameDetail(w http.ResponseWriter, game *world.Game) {
	latest := game.Latest()
	d := gameDetail{
		ID:          game.ID,
		Name:        game.Name,
		Width:       game.Board.Width,
		Height:      game.Board.Height,
		CreatedAt:   game.CreatedAt,
		Generations: len(game.Generations),
		Schedule:    game.Schedule,
		Modifiers:   world.ModifierCounts(game.Board),
	}
	if latest != nil {
		d.LatestStep = latest.Step
		d.Alive = game.Board.CountAlive(latest)
		d.ByVariant = game.Board.CountByVariant(latest)
	}
	// Social state is not part of the history; the live cells hold the latest.
	for _, c := range game.Board.Cells() {
		if c.Predatory() {
			d.Predators++
		}
		if c.Infected {
			d.Infected++
		}
	}
	writeJSON(w, d)
}

type cellEntry struct {
	X       int           `json:"x"`
	Y       int           `json:"y"`
	Variant cells.Variant `json:"variant"`
	Energy  int           `json:"energy"`
}

type generationDetail struct {
	Step      int                   `json:"step"`
	Event     world.EventType       `json:"event"`
	Board     string                `json:"board"`
	Alive     int                   `json:"alive"`
	ByVariant map[cells.Variant]int `json:"by_variant"`
	ByEnergy  map[int]int           `json:"by_energy"` // energy → living cell count
	Highest   *cellEntry            `json:"highest,omitempty"`
	Cells     []cellEntry           `json:"cells"` // Living cells, row-major
}

func (s *Server) handleGeneration(w http.ResponseWriter, game *world.Game, stepStr string) {
	step, err := strconv.Atoi(stepStr)
	if err != nil {
		http.Error(w, "invalid step", http.StatusBadRequest)
		return
	}
	gen, err := game.Generation(step)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	b := game.Board
	d := generationDetail{
		Step:      gen.Step,
		Event:     game.Schedule.At(gen.Step),
		Board:     world.Visualize(gen),
		Alive:     b.CountAlive(gen),
		ByVariant: b.CountByVariant(gen),
		ByEnergy:  make(map[int]int),
		Cells:     []cellEntry{},
	}
	for energy, group := range b.GroupByEnergy(gen) {
		d.ByEnergy[energy] = len(group)
	}
	if top := b.HighestEnergy(gen); top != nil {
		d.Highest = &cellEntry{X: top.X, Y: top.Y, Variant: top.Variant, Energy: gen.Energy(top.ID)}
	}
	for _, c := range gen.AliveCells() {
		d.Cells = append(d.Cells, cellEntry{X: c.X, Y: c.Y, Variant: c.Variant, Energy: gen.Energy(c.ID)})
	}
	writeJSON(w, d)
}

type statsEntry struct {
	Step int `json:"step"`
	world.EnergyStats
}

// handleStats returns per-step energy statistics; from/to default to the
// whole history.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, game *world.Game) {
	from, to := 0, len(game.Generations)-1
	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
	}

	series, err := game.TimeSeries(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := make([]statsEntry, 0, len(series))
	for step, st := range series {
		out = append(out, statsEntry{Step: step, EnergyStats: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })

	writeJSON(w, map[string]any{
		"game":  game.ID,
		"from":  from,
		"to":    to,
		"steps": out,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}
