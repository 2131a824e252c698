// Package persistence provides SQLite-based game storage.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/world"
)

var (
	// ErrGameNotFound is returned when no game has the requested ID.
	ErrGameNotFound = errors.New("game not found")
	// ErrCorruptGame is returned when stored rows hold values no game can have.
	ErrCorruptGame = errors.New("corrupt game data")
)

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY churn.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tiles (
		game_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		modifier INTEGER NOT NULL,
		PRIMARY KEY (game_id, x, y)
	);

	CREATE TABLE IF NOT EXISTS cells (
		game_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		variant INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		energy INTEGER NOT NULL,
		social INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		grace INTEGER NOT NULL,
		PRIMARY KEY (game_id, x, y)
	);

	CREATE TABLE IF NOT EXISTS generations (
		game_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		PRIMARY KEY (game_id, step)
	);

	CREATE TABLE IF NOT EXISTS generation_cells (
		game_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		energy INTEGER NOT NULL,
		PRIMARY KEY (game_id, step, x, y)
	);

	CREATE TABLE IF NOT EXISTS events (
		game_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		event TEXT NOT NULL,
		PRIMARY KEY (game_id, step)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Row types for sqlx scanning.

type gameRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Width     int    `db:"width"`
	Height    int    `db:"height"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type tileRow struct {
	X        int `db:"x"`
	Y        int `db:"y"`
	Modifier int `db:"modifier"`
}

type cellRow struct {
	X        int  `db:"x"`
	Y        int  `db:"y"`
	Variant  int  `db:"variant"`
	Alive    bool `db:"alive"`
	Energy   int  `db:"energy"`
	Social   int  `db:"social"`
	Infected bool `db:"infected"`
	Grace    int  `db:"grace"`
}

type stateRow struct {
	Step   int  `db:"step"`
	X      int  `db:"x"`
	Y      int  `db:"y"`
	Alive  bool `db:"alive"`
	Energy int  `db:"energy"`
}

type eventRow struct {
	Step  int    `db:"step"`
	Event string `db:"event"`
}

// GameSummary describes a stored game without loading it.
type GameSummary struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Width       int    `db:"width" json:"width"`
	Height      int    `db:"height" json:"height"`
	Generations int    `db:"generations" json:"generations"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveGame writes the whole aggregate in one transaction, replacing any
// previous copy of the same game. Nothing is visible unless everything is.
func (db *DB) SaveGame(ctx context.Context, game *world.Game) error {
	if game == nil || game.Board == nil {
		return errors.New("save game: game and board are required")
	}
	if game.ID == "" {
		return errors.New("save game: game has no id")
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := game.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO games (id, name, width, height, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		game.ID, game.Name, game.Board.Width, game.Board.Height,
		created.Format(time.RFC3339Nano), now,
	)
	if err != nil {
		return fmt.Errorf("upsert game %s: %w", game.ID, err)
	}

	for _, table := range []string{"tiles", "cells", "generations", "generation_cells", "events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE game_id = ?", game.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveBoard(ctx, tx, game); err != nil {
		return err
	}
	if err := saveGenerations(ctx, tx, game); err != nil {
		return err
	}

	for _, step := range game.Schedule.Steps() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO events (game_id, step, event) VALUES (?, ?, ?)",
			game.ID, step, game.Schedule[step].String(),
		)
		if err != nil {
			return fmt.Errorf("insert event at step %d: %w", step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game %s: %w", game.ID, err)
	}

	slog.Info("game saved",
		"game", game.ID,
		"name", game.Name,
		"generations", len(game.Generations),
	)
	return nil
}

func saveBoard(ctx context.Context, tx *sqlx.Tx, game *world.Game) error {
	tileStmt, err := tx.PreparexContext(ctx,
		"INSERT INTO tiles (game_id, x, y, modifier) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer tileStmt.Close()

	cellStmt, err := tx.PreparexContext(ctx, `INSERT INTO cells
		(game_id, x, y, variant, alive, energy, social, infected, grace)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()

	b := game.Board
	for _, t := range b.Tiles() {
		if _, err := tileStmt.ExecContext(ctx, game.ID, t.Coord.X, t.Coord.Y, t.Modifier); err != nil {
			return fmt.Errorf("insert tile %s: %w", t.Coord, err)
		}
		c, err := b.Occupant(t)
		if err != nil {
			return err
		}
		_, err = cellStmt.ExecContext(ctx,
			game.ID, c.X, c.Y, int(c.Variant), boolInt(c.Alive), c.Energy,
			int(c.Social), boolInt(c.Infected), c.Grace,
		)
		if err != nil {
			return fmt.Errorf("insert cell %s: %w", c, err)
		}
	}
	return nil
}

func saveGenerations(ctx context.Context, tx *sqlx.Tx, game *world.Game) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO generation_cells
		(game_id, step, x, y, alive, energy) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	cellList := game.Board.Cells()
	for _, gen := range game.Generations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO generations (game_id, step) VALUES (?, ?)", game.ID, gen.Step); err != nil {
			return fmt.Errorf("insert generation %d: %w", gen.Step, err)
		}
		for _, c := range cellList {
			_, err := stmt.ExecContext(ctx,
				game.ID, gen.Step, c.X, c.Y, boolInt(gen.Alive(c.ID)), gen.Energy(c.ID))
			if err != nil {
				return fmt.Errorf("insert generation %d cell %s: %w", gen.Step, c, err)
			}
		}
	}
	return nil
}

// LoadGame rebuilds a stored game with its board, cells, full generation
// history, and event schedule.
func (db *DB) LoadGame(ctx context.Context, id string) (*world.Game, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var gr gameRow
	err = tx.GetContext(ctx, &gr, "SELECT id, name, width, height, created_at, updated_at FROM games WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}

	board, err := loadBoard(ctx, tx, gr)
	if err != nil {
		return nil, fmt.Errorf("load %s board: %w", id, err)
	}

	game := &world.Game{
		ID:       gr.ID,
		Name:     gr.Name,
		Board:    board,
		Schedule: make(world.Schedule),
	}
	if t, err := time.Parse(time.RFC3339Nano, gr.CreatedAt); err == nil {
		game.CreatedAt = t
	}

	if err := loadGenerations(ctx, tx, game); err != nil {
		return nil, fmt.Errorf("load %s generations: %w", id, err)
	}

	var events []eventRow
	if err := tx.SelectContext(ctx, &events,
		"SELECT step, event FROM events WHERE game_id = ? ORDER BY step", id); err != nil {
		return nil, fmt.Errorf("load %s events: %w", id, err)
	}
	for _, e := range events {
		et, err := world.ParseEventType(e.Event)
		if err != nil {
			return nil, fmt.Errorf("load %s events: %w", id, err)
		}
		game.Schedule[e.Step] = et
	}

	return game, tx.Commit()
}

func loadBoard(ctx context.Context, tx *sqlx.Tx, gr gameRow) (*world.Board, error) {
	board, err := world.NewEmptyBoard(gr.Width, gr.Height)
	if err != nil {
		return nil, err
	}

	var cellRows []cellRow
	if err := tx.SelectContext(ctx, &cellRows, `SELECT x, y, variant, alive, energy, social, infected, grace
		FROM cells WHERE game_id = ? ORDER BY y, x`, gr.ID); err != nil {
		return nil, err
	}
	for _, r := range cellRows {
		variant, social, err := decodeKinds(r)
		if err != nil {
			return nil, err
		}
		c := &cells.Cell{
			X:        r.X,
			Y:        r.Y,
			Variant:  variant,
			Alive:    r.Alive,
			Energy:   r.Energy,
			Social:   social,
			Infected: r.Infected,
			Grace:    r.Grace,
		}
		if err := board.Place(c); err != nil {
			return nil, err
		}
	}

	var tileRows []tileRow
	if err := tx.SelectContext(ctx, &tileRows,
		"SELECT x, y, modifier FROM tiles WHERE game_id = ?", gr.ID); err != nil {
		return nil, err
	}
	for _, r := range tileRows {
		if err := board.SetModifier(world.Coord{X: r.X, Y: r.Y}, r.Modifier); err != nil {
			return nil, err
		}
	}

	return board, board.Validate()
}

// decodeKinds converts the stored enum columns of a cell row. Values are
// range checked as ints so that large numbers cannot wrap into valid ones.
func decodeKinds(r cellRow) (cells.Variant, cells.SocialState, error) {
	if r.Variant < 0 || r.Variant > math.MaxUint8 || !cells.Variant(r.Variant).Valid() {
		return 0, 0, fmt.Errorf("cell (%d,%d) variant %d: %w", r.X, r.Y, r.Variant, ErrCorruptGame)
	}
	if r.Social < 0 || r.Social > math.MaxUint8 || !cells.SocialState(r.Social).Valid() {
		return 0, 0, fmt.Errorf("cell (%d,%d) social state %d: %w", r.X, r.Y, r.Social, ErrCorruptGame)
	}
	return cells.Variant(r.Variant), cells.SocialState(r.Social), nil
}

func loadGenerations(ctx context.Context, tx *sqlx.Tx, game *world.Game) error {
	var steps []int
	if err := tx.SelectContext(ctx, &steps,
		"SELECT step FROM generations WHERE game_id = ? ORDER BY step", game.ID); err != nil {
		return err
	}

	var states []stateRow
	if err := tx.SelectContext(ctx, &states, `SELECT step, x, y, alive, energy
		FROM generation_cells WHERE game_id = ? ORDER BY step, y, x`, game.ID); err != nil {
		return err
	}

	b := game.Board
	n := b.Len()
	byStep := make(map[int][]stateRow, len(steps))
	for _, s := range states {
		byStep[s.Step] = append(byStep[s.Step], s)
	}

	for _, step := range steps {
		alive := make([]bool, n)
		energy := make([]int, n)
		for _, s := range byStep[step] {
			c := b.Cell(world.Coord{X: s.X, Y: s.Y})
			if c == nil {
				return fmt.Errorf("generation %d: %w at (%d,%d)", step, world.ErrOutOfBounds, s.X, s.Y)
			}
			alive[c.ID] = s.Alive
			energy[c.ID] = s.Energy
		}
		gen, err := world.RestoreGeneration(game, step, alive, energy)
		if err != nil {
			return err
		}
		if err := game.AddGeneration(gen); err != nil {
			return err
		}
	}
	return nil
}

// ListGames returns a summary of every stored game, newest first.
func (db *DB) ListGames(ctx context.Context) ([]GameSummary, error) {
	var out []GameSummary
	err := db.conn.SelectContext(ctx, &out, `SELECT g.id, g.name, g.width, g.height,
		g.created_at, g.updated_at,
		(SELECT COUNT(*) FROM generations gen WHERE gen.game_id = g.id) AS generations
		FROM games g ORDER BY g.updated_at DESC`)
	return out, err
}

// DeleteGame removes a stored game. Deleting a missing game returns ErrGameNotFound.
func (db *DB) DeleteGame(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrGameNotFound)
	}
	for _, table := range []string{"tiles", "cells", "generations", "generation_cells", "events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE game_id = ?", id); err != nil {
			return fmt.Errorf("delete %s from %s: %w", id, table, err)
		}
	}
	return tx.Commit()
}
