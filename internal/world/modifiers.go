// Tile modifier fields and initial populations from layered simplex noise.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/extended-life/internal/cells"
)

// ModifierConfig holds tile modifier generation parameters.
type ModifierConfig struct {
	Seed      int64   // Noise seed (0 = random)
	Min       int     // Lowest modifier (harshest tile)
	Max       int     // Highest modifier (richest tile)
	Frequency float64 // Base noise frequency; smaller gives broader regions
	Octaves   int
}

// DefaultModifierConfig returns a mild field of -1..+1 modifiers.
func DefaultModifierConfig() ModifierConfig {
	return ModifierConfig{
		Seed:      0,
		Min:       -1,
		Max:       1,
		Frequency: 0.12,
		Octaves:   3,
	}
}

// GenerateModifiers fills every tile's modifier from a normalized noise field
// quantized into [cfg.Min, cfg.Max]. The result is deterministic for a seed.
func GenerateModifiers(b *Board, cfg ModifierConfig) error {
	if cfg.Max < cfg.Min {
		return fmt.Errorf("modifier range [%d,%d] is inverted", cfg.Min, cfg.Max)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	octaves := cfg.Octaves
	if octaves < 1 {
		octaves = 1
	}

	noise := opensimplex.NewNormalized(seed)
	span := float64(cfg.Max - cfg.Min + 1)

	for _, t := range b.tiles {
		v := octaveNoise(noise, float64(t.Coord.X), float64(t.Coord.Y), octaves, cfg.Frequency, 0.5)
		level := int(math.Floor(v * span))
		if level >= int(span) {
			level = int(span) - 1
		}
		if level < 0 {
			level = 0
		}
		t.Modifier = cfg.Min + level
	}
	return nil
}

// SeedConfig holds initial population parameters.
type SeedConfig struct {
	Seed    int64
	Density float64 // Fraction of tiles seeded alive, 0.0–1.0

	// Relative weights for the variant of each seeded cell.
	// All zero means every seeded cell is Standard.
	Weights map[cells.Variant]float64
}

// SeedInitial resets game to a generation 0 populated from noise: tiles whose
// noise sample falls under cfg.Density are seeded alive, and their variant is
// drawn from cfg.Weights.
func SeedInitial(game *Game, cfg SeedConfig) (*Generation, error) {
	if game == nil || game.Board == nil {
		return nil, ErrNoBoard
	}
	if cfg.Density < 0 || cfg.Density > 1 {
		return nil, fmt.Errorf("seed density %.3f outside [0,1]", cfg.Density)
	}

	// Fine-grained noise so the population looks scattered, not blobby.
	noise := opensimplex.NewNormalized(cfg.Seed + 1)
	rng := rand.New(rand.NewSource(cfg.Seed + 2))

	total := 0.0
	for _, w := range cfg.Weights {
		total += w
	}

	types := make(map[Coord]cells.Variant)
	for _, t := range game.Board.tiles {
		v := noise.Eval2(float64(t.Coord.X)*0.9, float64(t.Coord.Y)*0.9)
		// Normalized simplex clusters around 0.5; mix with uniform noise for coverage.
		if (v+rng.Float64())/2 >= cfg.Density {
			continue
		}
		types[t.Coord] = pickVariant(rng, cfg.Weights, total)
	}
	return NewInitialMixed(game, types)
}

func pickVariant(rng *rand.Rand, weights map[cells.Variant]float64, total float64) cells.Variant {
	if total <= 0 {
		return cells.Standard
	}
	r := rng.Float64() * total
	// Iterate in declaration order so the draw is deterministic.
	for _, v := range cells.Variants {
		r -= weights[v]
		if r < 0 {
			return v
		}
	}
	return cells.Standard
}

// ModifierCounts returns how many tiles carry each modifier value.
func ModifierCounts(b *Board) map[int]int {
	counts := make(map[int]int)
	for _, t := range b.tiles {
		counts[t.Modifier]++
	}
	return counts
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
