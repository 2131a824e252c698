package world

import "strings"

// Glyphs used by Visualize.
const (
	AliveGlyph = 'C'
	DeadGlyph  = '0'
)

// Visualize renders gen as one glyph per tile, rows separated by newlines.
func Visualize(gen *Generation) string {
	if gen == nil || gen.Board == nil {
		return ""
	}
	b := gen.Board
	var sb strings.Builder
	sb.Grow(b.Len() + b.Height)
	for y := 0; y < b.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < b.Width; x++ {
			if gen.Alive(b.tiles[b.index(x, y)].occupant) {
				sb.WriteByte(AliveGlyph)
			} else {
				sb.WriteByte(DeadGlyph)
			}
		}
	}
	return sb.String()
}
