package engine

import (
	"log/slog"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/world"
)

// applyEager mutates the live board for events that act before the tick that
// observes them. The caller re-captures the current generation afterwards.
func applyEager(board *world.Board, event world.EventType) error {
	switch event {
	case world.Famine:
		for _, t := range board.Tiles() {
			c, err := board.Occupant(t)
			if err != nil {
				return err
			}
			c.Energy--
			if c.Energy < 0 {
				c.Alive = false
			}
		}

	case world.Sanctuary:
		for _, t := range board.Tiles() {
			c, err := board.Occupant(t)
			if err != nil {
				return err
			}
			if !c.Alive {
				continue
			}
			if c.Social == cells.Predatory {
				c.Energy += 3
			} else {
				c.Energy++
			}
		}

	case world.Bloom, world.BloodMoon:
		// No eager effect: Bloom pays out during the tick and Blood Moon only
		// flips predator drains from infecting to curing.

	case world.Cataclysm:
		// Never eager; the tick zeroes the energy baseline of living cells.

	default:
		slog.Debug("no eager effect for event", "event", event)
	}
	return nil
}
