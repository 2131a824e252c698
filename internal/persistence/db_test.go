package persistence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/engine"
	"github.com/talgya/extended-life/internal/world"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "life.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietEngine() *engine.Engine {
	return engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// seededGame builds a mixed-variant game with modifiers and one predator.
func seededGame(t *testing.T, name string) *world.Game {
	t.Helper()
	g, err := world.NewGame(name, 12, 10)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := world.GenerateModifiers(g.Board, world.ModifierConfig{Seed: 7, Min: -1, Max: 2, Frequency: 0.2, Octaves: 2}); err != nil {
		t.Fatalf("GenerateModifiers: %v", err)
	}
	_, err = world.SeedInitial(g, world.SeedConfig{
		Seed:    11,
		Density: 0.45,
		Weights: map[cells.Variant]float64{
			cells.Standard:    2,
			cells.Territorial: 1,
			cells.Gregarious:  1,
			cells.Resilient:   1,
		},
	})
	if err != nil {
		t.Fatalf("SeedInitial: %v", err)
	}
	if err := g.Board.SetSocial(cells.Predatory, world.Coord{X: 5, Y: 5}); err != nil {
		t.Fatalf("SetSocial: %v", err)
	}
	return g
}

var schedule = world.Schedule{0: world.Famine, 1: world.Bloom, 3: world.Sanctuary, 4: world.Cataclysm}

func assertSameHistory(t *testing.T, want, got *world.Game) {
	t.Helper()
	if len(got.Generations) != len(want.Generations) {
		t.Fatalf("generations = %d, want %d", len(got.Generations), len(want.Generations))
	}
	for i, wg := range want.Generations {
		gg := got.Generations[i]
		if gg.Step != wg.Step {
			t.Fatalf("generation %d step = %d, want %d", i, gg.Step, wg.Step)
		}
		if world.Visualize(gg) != world.Visualize(wg) {
			t.Fatalf("step %d board:\n%s\nwant:\n%s", wg.Step, world.Visualize(gg), world.Visualize(wg))
		}
		we, ge := wg.EnergyStates(), gg.EnergyStates()
		for id := range we {
			if we[id] != ge[id] {
				t.Fatalf("step %d cell %d energy = %d, want %d", wg.Step, id, ge[id], we[id])
			}
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	g := seededGame(t, "roundtrip")
	if _, err := quietEngine().RunSchedule(g, 5, schedule); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	got, err := db.LoadGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if got.ID != g.ID || got.Name != g.Name {
		t.Fatalf("loaded %s/%s, want %s/%s", got.ID, got.Name, g.ID, g.Name)
	}
	if !got.CreatedAt.Equal(g.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, g.CreatedAt)
	}
	if got.Schedule.String() != g.Schedule.String() {
		t.Fatalf("schedule = %q, want %q", got.Schedule, g.Schedule)
	}
	assertSameHistory(t, g, got)

	for _, c := range g.Board.Cells() {
		lc := got.Board.Cell(world.Coord{X: c.X, Y: c.Y})
		if *lc != *c {
			t.Fatalf("cell %s = %+v, want %+v", c, *lc, *c)
		}
		if lt, wt := got.Board.Tile(world.Coord{X: c.X, Y: c.Y}), g.Board.Tile(world.Coord{X: c.X, Y: c.Y}); lt.Modifier != wt.Modifier {
			t.Fatalf("tile %s modifier = %d, want %d", wt.Coord, lt.Modifier, wt.Modifier)
		}
	}
}

func TestLoadedGameContinuesIdentically(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	straight := seededGame(t, "straight")
	if _, err := quietEngine().RunSchedule(straight, 6, schedule); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	split := seededGame(t, "split")
	if _, err := quietEngine().RunSchedule(split, 3, schedule); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}
	if err := db.SaveGame(ctx, split); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	loaded, err := db.LoadGame(ctx, split.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if _, err := quietEngine().RunSchedule(loaded, 3, schedule); err != nil {
		t.Fatalf("RunSchedule loaded: %v", err)
	}

	assertSameHistory(t, straight, loaded)
}

func TestSaveGameReplaces(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	g := seededGame(t, "replace")
	e := quietEngine()
	if _, err := e.Run(g, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if _, err := e.Run(g, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame again: %v", err)
	}

	list, err := db.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListGames = %d games, want 1", len(list))
	}
	if list[0].Generations != 6 || list[0].Width != 12 || list[0].Height != 10 {
		t.Fatalf("summary = %+v, want 6 generations on 12x10", list[0])
	}
}

func TestFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	first := seededGame(t, "taken")
	if err := db.SaveGame(ctx, first); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	// Same name under a new ID violates the unique name constraint.
	second := seededGame(t, "taken")
	if err := db.SaveGame(ctx, second); err == nil {
		t.Fatal("expected duplicate name to fail")
	}

	if _, err := db.LoadGame(ctx, second.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("LoadGame after failed save: err = %v, want ErrGameNotFound", err)
	}
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM cells WHERE game_id = ?", second.ID); err != nil {
		t.Fatalf("count cells: %v", err)
	}
	if n != 0 {
		t.Fatalf("failed save left %d cell rows", n)
	}
}

func TestDeleteGame(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	g := seededGame(t, "doomed")
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if err := db.DeleteGame(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if _, err := db.LoadGame(ctx, g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("LoadGame after delete: err = %v, want ErrGameNotFound", err)
	}
	if err := db.DeleteGame(ctx, g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("second DeleteGame: err = %v, want ErrGameNotFound", err)
	}
}

func TestSaveGameRejectsIncomplete(t *testing.T) {
	db := openTemp(t)
	if err := db.SaveGame(context.Background(), &world.Game{Name: "no-board"}); err == nil {
		t.Fatal("expected error for game without board")
	}
}

func TestLoadRejectsCorruptKinds(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  int
	}{
		{"unknown variant", "variant", 9},
		{"variant wrapping to standard", "variant", 256},
		{"negative variant", "variant", -1},
		{"unknown social state", "social", 2},
		{"social wrapping to ordinary", "social", 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := openTemp(t)

			g := seededGame(t, "corrupt")
			if err := db.SaveGame(ctx, g); err != nil {
				t.Fatalf("SaveGame: %v", err)
			}
			if _, err := db.conn.ExecContext(ctx,
				"UPDATE cells SET "+tt.column+" = ? WHERE game_id = ? AND x = 0 AND y = 0", tt.value, g.ID); err != nil {
				t.Fatalf("corrupt row: %v", err)
			}
			if _, err := db.LoadGame(ctx, g.ID); !errors.Is(err, ErrCorruptGame) {
				t.Fatalf("LoadGame err = %v, want ErrCorruptGame", err)
			}
		})
	}
}
