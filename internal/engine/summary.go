package engine

import (
	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/world"
)

// StepSummary tracks aggregate statistics for one committed tick.
type StepSummary struct {
	Step        int             `json:"step"`
	Event       world.EventType `json:"event"`
	Alive       int             `json:"alive"`
	Born        int             `json:"born"`
	Died        int             `json:"died"`
	Infected    int             `json:"infected"`
	Predators   int             `json:"predators"`
	TotalEnergy int             `json:"total_energy"` // Sum over living cells
}

// Summarize compares two consecutive generations. Social and infection counts
// come from the live cells, which reflect next right after it is committed.
func Summarize(prev, next *world.Generation, event world.EventType) StepSummary {
	s := StepSummary{Step: next.Step, Event: event}
	for _, c := range next.Board.Cells() {
		was, is := prev.Alive(c.ID), next.Alive(c.ID)
		switch {
		case is && !was:
			s.Born++
		case was && !is:
			s.Died++
		}
		if is {
			s.Alive++
			s.TotalEnergy += next.Energy(c.ID)
		}
		if c.Infected {
			s.Infected++
		}
		if c.Social == cells.Predatory {
			s.Predators++
		}
	}
	return s
}
