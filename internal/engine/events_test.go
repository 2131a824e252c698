package engine

import (
	"testing"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/world"
)

var block = []world.Coord{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}

func TestFamineThenBloom(t *testing.T) {
	g := newGame(t, 6, 6, block...)
	weak := world.Coord{X: 1, Y: 2}
	setModifier(t, g, weak, -1)
	setEnergy(t, g, world.Coord{X: 2, Y: 2}, 3)
	setEnergy(t, g, world.Coord{X: 1, Y: 1}, 3)
	setEnergy(t, g, world.Coord{X: 2, Y: 1}, 3)

	schedule := world.Schedule{0: world.Famine, 1: world.Bloom}
	if _, err := quietEngine().RunSchedule(g, 2, schedule); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	afterFamine := gen(t, g, 1)
	if e := energyAt(g, afterFamine, weak); e != -1 {
		t.Fatalf("after famine energy = %d, want -1", e)
	}
	if aliveAt(g, afterFamine, weak) {
		t.Fatal("after famine the weak cell should be dead")
	}

	// Respawn during Bloom starts from zero, with no Bloom bonus.
	afterBloom := gen(t, g, 2)
	if !aliveAt(g, afterBloom, weak) {
		t.Fatal("after bloom the weak cell should be alive again")
	}
	if e := energyAt(g, afterBloom, weak); e != 0 {
		t.Fatalf("after bloom energy = %d, want 0", e)
	}

	if got := g.Schedule.String(); got != "0:famine,1:bloom" {
		t.Fatalf("stored schedule = %q", got)
	}
}

func TestBloomDoesNotAffectDead(t *testing.T) {
	g := newGame(t, 6, 6, block...)
	setEnergy(t, g, world.Coord{X: 2, Y: 2}, 3)
	setEnergy(t, g, world.Coord{X: 1, Y: 1}, 3)
	setEnergy(t, g, world.Coord{X: 2, Y: 1}, 3)

	if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: world.Bloom}); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	next := gen(t, g, 1)
	if e := energyAt(g, next, world.Coord{X: 1, Y: 2}); e != 3 {
		t.Fatalf("surviving cell energy = %d, want 3", e)
	}
	corner := world.Coord{X: 0, Y: 0}
	if e := energyAt(g, next, corner); e != 0 {
		t.Fatalf("dead cell energy = %d, want 0", e)
	}
	if aliveAt(g, next, corner) {
		t.Fatal("dead cell revived")
	}
}

func TestBloomStatistics(t *testing.T) {
	g := newGame(t, 3, 3, block...)
	setEnergy(t, g, world.Coord{X: 1, Y: 1}, 2)
	setEnergy(t, g, world.Coord{X: 2, Y: 1}, 1)

	if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: world.Bloom}); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	next := gen(t, g, 1)
	byEnergy := g.Board.GroupByEnergy(next)
	for energy, n := range map[int]int{3: 2, 4: 1, 5: 1} {
		if len(byEnergy[energy]) != n {
			t.Fatalf("cells at energy %d = %d, want %d", energy, len(byEnergy[energy]), n)
		}
	}
	highest := g.Board.HighestEnergy(next)
	if highest == nil || highest.X != 1 || highest.Y != 1 {
		t.Fatalf("highest = %v, want (1,1)", highest)
	}
}

func TestCataclysmLevelsEnergy(t *testing.T) {
	g := newGame(t, 3, 3, block...)
	setEnergy(t, g, world.Coord{X: 1, Y: 1}, 2)
	setEnergy(t, g, world.Coord{X: 2, Y: 1}, 1)

	if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: world.Cataclysm}); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	next := gen(t, g, 1)
	byEnergy := g.Board.GroupByEnergy(next)
	if _, ok := byEnergy[2]; ok {
		t.Fatal("a cell kept energy 2 through the cataclysm")
	}
	if n := len(byEnergy[1]); n != 4 {
		t.Fatalf("cells at energy 1 = %d, want 4", n)
	}
	highest := g.Board.HighestEnergy(next)
	if highest == nil || highest.X != 1 || highest.Y != 1 {
		t.Fatalf("highest = %v, want (1,1)", highest)
	}
}

func TestCataclysmIsNotEager(t *testing.T) {
	g := newGame(t, 3, 3, block...)
	setEnergy(t, g, world.Coord{X: 1, Y: 1}, 4)

	if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: world.Cataclysm}); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}
	// Generation 0 still shows the pre-cataclysm state.
	if e := energyAt(g, g.Start(), world.Coord{X: 1, Y: 1}); e != 4 {
		t.Fatalf("generation 0 energy = %d, want 4", e)
	}
}

func TestPredatorDrainInfectsOnce(t *testing.T) {
	center := world.Coord{X: 1, Y: 1}
	g := newGame(t, 3, 3,
		world.Coord{X: 0, Y: 1}, center, world.Coord{X: 1, Y: 0}, world.Coord{X: 2, Y: 1})
	if err := g.Board.SetSocial(cells.Predatory,
		world.Coord{X: 0, Y: 1}, world.Coord{X: 1, Y: 0}, world.Coord{X: 2, Y: 1}); err != nil {
		t.Fatalf("SetSocial: %v", err)
	}
	setEnergy(t, g, center, 5)

	e := quietEngine()
	if _, err := e.Run(g, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := g.Board.Cell(center)
	if c.Social != cells.Ordinary || !c.Infected {
		t.Fatalf("center social=%s infected=%v, want ordinary and infected", c.Social, c.Infected)
	}

	// Only the first predator in row-major order collects the victim's energy.
	next := gen(t, g, 1)
	if got := energyAt(g, next, world.Coord{X: 1, Y: 0}); got != 5 {
		t.Fatalf("(1,0) energy = %d, want 5", got)
	}
	for _, p := range []world.Coord{{X: 0, Y: 1}, {X: 2, Y: 1}} {
		if got := energyAt(g, next, p); got != 0 {
			t.Fatalf("%s energy = %d, want 0", p, got)
		}
	}

	// The infection matures a full tick later.
	if _, err := e.Run(g, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Social != cells.Predatory || c.Infected {
		t.Fatalf("center social=%s infected=%v, want predatory and clean", c.Social, c.Infected)
	}
}

// trap is a block-like T of four cells with three predators around (1,1).
var trap = []world.Coord{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 2, Y: 1}}

func newTrap(t *testing.T) *world.Game {
	t.Helper()
	g := newGame(t, 3, 3, trap...)
	if err := g.Board.SetSocial(cells.Predatory,
		world.Coord{X: 0, Y: 1}, world.Coord{X: 1, Y: 0}, world.Coord{X: 2, Y: 1}); err != nil {
		t.Fatalf("SetSocial: %v", err)
	}
	return g
}

func TestInfectedCenterMaturesAmongPredators(t *testing.T) {
	center := world.Coord{X: 1, Y: 1}
	g := newTrap(t)
	setEnergy(t, g, center, 5)
	g.Board.Cell(center).Infected = true

	if _, err := quietEngine().Run(g, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := g.Board.Cell(center)
	if c.Social != cells.Predatory || c.Infected {
		t.Fatalf("center social=%s infected=%v, want predatory and clean", c.Social, c.Infected)
	}
	// It matured before the drain pass, so no neighbor took its energy and it
	// has no ordinary neighbor of its own to drain.
	next := gen(t, g, 1)
	if !aliveAt(g, next, center) {
		t.Fatal("center died")
	}
	if got := energyAt(g, next, center); got != 5 {
		t.Fatalf("center energy = %d, want 5", got)
	}
	for _, p := range []world.Coord{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 2, Y: 1}} {
		if got := energyAt(g, next, p); got != 0 {
			t.Fatalf("%s energy = %d, want 0", p, got)
		}
	}
}

// contagion infects the living ordinary partner of a living predator.
func contagion(c, n *cells.Cell) {
	if !c.Alive || !n.Alive {
		return
	}
	switch {
	case c.Predatory() && n.Social == cells.Ordinary:
		n.Infected = true
	case n.Predatory() && c.Social == cells.Ordinary:
		c.Infected = true
	}
}

func TestInteractionInfectsSameTick(t *testing.T) {
	center := world.Coord{X: 1, Y: 1}
	g := newTrap(t)

	if _, err := quietEngine(WithInteraction(contagion)).Run(g, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Infected in phase 1 and matured in phase 2 of the same tick.
	c := g.Board.Cell(center)
	if c.Social != cells.Predatory || c.Infected {
		t.Fatalf("center social=%s infected=%v, want predatory and clean", c.Social, c.Infected)
	}
	if got := energyAt(g, gen(t, g, 1), center); got != 0 {
		t.Fatalf("center energy = %d, want 0", got)
	}
}

func TestBloodMoonCures(t *testing.T) {
	for _, tt := range []struct {
		event    world.EventType
		infected bool
	}{
		{world.NoEvent, true},
		{world.BloodMoon, false},
	} {
		t.Run(tt.event.String(), func(t *testing.T) {
			g := newGame(t, 4, 4, block...)
			predator := world.Coord{X: 1, Y: 1}
			g.Board.SetSocial(cells.Predatory, predator)
			for _, c := range block[1:] {
				setEnergy(t, g, c, 2)
			}

			if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: tt.event}); err != nil {
				t.Fatalf("RunSchedule: %v", err)
			}

			if e := energyAt(g, gen(t, g, 1), predator); e != 6 {
				t.Fatalf("predator energy = %d, want 6", e)
			}
			for _, c := range block[1:] {
				if got := g.Board.Cell(c).Infected; got != tt.infected {
					t.Fatalf("%s infected = %v, want %v", c, got, tt.infected)
				}
			}
		})
	}
}

func TestSanctuaryRevertsPredators(t *testing.T) {
	g := newGame(t, 4, 4, block...)
	predator := world.Coord{X: 1, Y: 1}
	g.Board.SetSocial(cells.Predatory, predator)
	setEnergy(t, g, predator, 2)
	for _, c := range block[1:] {
		setEnergy(t, g, c, 1)
	}

	if _, err := quietEngine().RunSchedule(g, 1, world.Schedule{0: world.Sanctuary}); err != nil {
		t.Fatalf("RunSchedule: %v", err)
	}

	// Eager: predator +3, others +1. Tick: predator keeps its energy, others +1.
	next := gen(t, g, 1)
	if e := energyAt(g, next, predator); e != 5 {
		t.Fatalf("predator energy = %d, want 5", e)
	}
	if s := g.Board.Cell(predator).Social; s != cells.Ordinary {
		t.Fatalf("predator social = %s, want ordinary", s)
	}
	for _, c := range block[1:] {
		if e := energyAt(g, next, c); e != 3 {
			t.Fatalf("%s energy = %d, want 3", c, e)
		}
		if g.Board.Cell(c).Infected {
			t.Fatalf("%s infected during sanctuary", c)
		}
	}
}

func TestTerritorialPredatorDrift(t *testing.T) {
	g, err := world.NewGame("drift", 3, 3)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	hunter, prey := world.Coord{X: 0, Y: 0}, world.Coord{X: 1, Y: 0}
	world.NewInitialMixed(g, map[world.Coord]cells.Variant{
		hunter: cells.Territorial,
		prey:   cells.Standard,
	})
	g.Board.SetSocial(cells.Predatory, hunter)
	setEnergy(t, g, hunter, 2)
	setEnergy(t, g, prey, 4)

	if _, err := quietEngine().Run(g, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Own energy 2, +1 for surviving with one neighbor, +4 drained.
	next := gen(t, g, 1)
	if e := energyAt(g, next, hunter); e != 7 {
		t.Fatalf("hunter energy = %d, want 7", e)
	}
	if !aliveAt(g, next, hunter) {
		t.Fatal("territorial hunter with one neighbor should survive")
	}
}

func TestTimeSeriesAfterRun(t *testing.T) {
	g := newGame(t, 6, 6, world.Coord{X: 1, Y: 1})
	if _, err := quietEngine().Run(g, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}

	series, err := g.TimeSeries(0, 0)
	if err != nil || len(series) != 1 {
		t.Fatalf("TimeSeries(0,0) = %v, %v", series, err)
	}
	series, err = g.TimeSeries(0, 1)
	if err != nil || len(series) != 2 {
		t.Fatalf("TimeSeries(0,1) = %v, %v", series, err)
	}
	if s := series[1]; s.Count != 0 || s.Mean != 0 {
		t.Fatalf("step 1 stats = %+v, want empty", s)
	}
}

func TestResilientSurvivesIsolation(t *testing.T) {
	g, _ := world.NewGame("resilient", 5, 5)
	lone := world.Coord{X: 2, Y: 2}
	world.NewInitialMixed(g, map[world.Coord]cells.Variant{lone: cells.Resilient})
	setEnergy(t, g, lone, 10)

	if _, err := quietEngine().Run(g, 4); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for step := 1; step <= 3; step++ {
		if !aliveAt(g, gen(t, g, step), lone) {
			t.Fatalf("resilient cell dead at step %d", step)
		}
	}
	if aliveAt(g, gen(t, g, 4), lone) {
		t.Fatal("resilient cell alive after its fourth isolated tick")
	}
}
