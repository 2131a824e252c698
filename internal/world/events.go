package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EventType is a global perturbation of the board's energy economy.
type EventType uint8

const (
	NoEvent   EventType = iota
	Bloom               // Survivors +3, deaths -1, dead cells capped at 0
	Famine              // Every cell -1 before the tick; no tile bonus
	Cataclysm           // Living cells lose their energy baseline
	Sanctuary           // Living cells +1 (+3 predators); predators revert
	BloodMoon           // Predator drains cure instead of infect
)

// EventTypes lists every real event in declaration order.
var EventTypes = [...]EventType{Bloom, Famine, Cataclysm, Sanctuary, BloodMoon}

// String returns the lowercase event name.
func (e EventType) String() string {
	switch e {
	case NoEvent:
		return "none"
	case Bloom:
		return "bloom"
	case Famine:
		return "famine"
	case Cataclysm:
		return "cataclysm"
	case Sanctuary:
		return "sanctuary"
	case BloodMoon:
		return "blood_moon"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// ParseEventType converts an event name back to an EventType.
// Hyphens and underscores are interchangeable.
func ParseEventType(s string) (EventType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if norm == "bloodmoon" {
		norm = "blood_moon"
	}
	for _, e := range EventTypes {
		if norm == e.String() {
			return e, nil
		}
	}
	return NoEvent, fmt.Errorf("unknown event %q", s)
}

// MarshalText encodes the event by name.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Schedule maps a step index to the event active during that step.
type Schedule map[int]EventType

// At returns the event scheduled for step, or NoEvent.
func (s Schedule) At(step int) EventType {
	if s == nil {
		return NoEvent
	}
	return s[step]
}

// Steps returns the scheduled step indices in ascending order.
func (s Schedule) Steps() []int {
	steps := make([]int, 0, len(s))
	for step := range s {
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps
}

// Clone returns an independent copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String formats the schedule as "0:famine,1:bloom".
func (s Schedule) String() string {
	parts := make([]string, 0, len(s))
	for _, step := range s.Steps() {
		parts = append(parts, fmt.Sprintf("%d:%s", step, s[step]))
	}
	return strings.Join(parts, ",")
}

// ParseSchedule parses "step:event" pairs separated by commas.
func ParseSchedule(spec string) (Schedule, error) {
	s := make(Schedule)
	if strings.TrimSpace(spec) == "" {
		return s, nil
	}
	for _, part := range strings.Split(spec, ",") {
		stepStr, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("schedule entry %q: want step:event", part)
		}
		step, err := strconv.Atoi(strings.TrimSpace(stepStr))
		if err != nil || step < 0 {
			return nil, fmt.Errorf("schedule entry %q: invalid step", part)
		}
		e, err := ParseEventType(name)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", part, err)
		}
		s[step] = e
	}
	return s, nil
}
