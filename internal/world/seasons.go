// Seasonal event schedules.
package world

import (
	"fmt"
	"math/rand"
)

// Season is one quarter of the climate cycle.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

// String returns the lowercase season name.
func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Autumn:
		return "autumn"
	case Winter:
		return "winter"
	default:
		return fmt.Sprintf("season(%d)", uint8(s))
	}
}

// Event returns the event a season tends to bring.
func (s Season) Event() EventType {
	switch s {
	case Spring:
		return Bloom
	case Summer:
		return Sanctuary
	case Autumn:
		return BloodMoon
	case Winter:
		return Famine
	default:
		return NoEvent
	}
}

// SeasonAt returns the season in effect at step for seasons of length steps.
func SeasonAt(step, length int) Season {
	if length < 1 {
		length = 1
	}
	return Season((step / length) % 4)
}

// ClimateConfig holds seasonal schedule parameters.
type ClimateConfig struct {
	Seed         int64
	SeasonLength int     // Steps per season
	Chance       float64 // Per-step probability of the season's event
	Cataclysm    float64 // Per-step probability of a cataclysm, checked first
}

// DefaultClimateConfig returns ten-step seasons with occasional events.
func DefaultClimateConfig() ClimateConfig {
	return ClimateConfig{
		SeasonLength: 10,
		Chance:       0.2,
		Cataclysm:    0.01,
	}
}

// SeasonalSchedule generates events for steps [from, from+steps) from the
// seasonal cycle. The result is deterministic for a seed and start step.
func SeasonalSchedule(from, steps int, cfg ClimateConfig) (Schedule, error) {
	if cfg.SeasonLength < 1 {
		return nil, fmt.Errorf("season length %d: must be positive", cfg.SeasonLength)
	}
	if cfg.Chance < 0 || cfg.Chance > 1 || cfg.Cataclysm < 0 || cfg.Cataclysm > 1 {
		return nil, fmt.Errorf("event chances %.3f/%.3f outside [0,1]", cfg.Chance, cfg.Cataclysm)
	}

	rng := rand.New(rand.NewSource(cfg.Seed + int64(from)))
	s := make(Schedule)
	for step := from; step < from+steps; step++ {
		roll := rng.Float64()
		switch {
		case roll < cfg.Cataclysm:
			s[step] = Cataclysm
		case roll < cfg.Cataclysm+cfg.Chance:
			s[step] = SeasonAt(step, cfg.SeasonLength).Event()
		}
	}
	return s, nil
}
