// Package cells provides the cell entity, its behavioral variants, and the
// per-variant survival rules.
package cells

import (
	"fmt"
	"strings"
)

// CellID is the arena handle of a cell: the row-major index of the tile it occupies.
type CellID int

// Variant is the fixed behavioral type of a cell.
type Variant uint8

const (
	Standard    Variant = iota // Classic B3/S23
	Territorial                // Dies when crowded past 3 or fully isolated
	Gregarious                 // Tolerates any crowding, needs 2 neighbors
	Resilient                  // Standard rule with a 3-tick grace period before death
)

// Variants lists every variant in declaration order.
var Variants = [...]Variant{Standard, Territorial, Gregarious, Resilient}

// String returns the lowercase variant name.
func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case Territorial:
		return "territorial"
	case Gregarious:
		return "gregarious"
	case Resilient:
		return "resilient"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	return v <= Resilient
}

// ParseVariant converts a variant name back to a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return Standard, fmt.Errorf("unknown variant %q", s)
}

// MarshalText encodes the variant by name.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a variant name.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SocialState is the predation role of a cell.
type SocialState uint8

const (
	Ordinary  SocialState = iota
	Predatory             // Drains energy from ordinary living neighbors
)

// String returns the lowercase state name.
func (s SocialState) String() string {
	switch s {
	case Ordinary:
		return "ordinary"
	case Predatory:
		return "predatory"
	default:
		return fmt.Sprintf("social(%d)", uint8(s))
	}
}

// Valid reports whether s is a declared social state.
func (s SocialState) Valid() bool {
	return s == Ordinary || s == Predatory
}

func (s SocialState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cell is one occupant of a board tile. Identity persists for the whole game;
// generations only record its state at each step.
type Cell struct {
	ID      CellID  `json:"id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Variant Variant `json:"variant"`

	Alive    bool        `json:"alive"`
	Energy   int         `json:"energy"` // Life points, may be negative
	Social   SocialState `json:"social"`
	Infected bool        `json:"infected"`

	// Consecutive overridden deaths (Resilient only).
	Grace int `json:"grace"`
}

// New creates a dead Standard cell at (x, y).
func New(id CellID, x, y int) *Cell {
	return &Cell{ID: id, X: x, Y: y, Variant: Standard}
}

// Predatory reports whether the cell is in the predatory social state.
func (c *Cell) Predatory() bool {
	return c.Social == Predatory
}

// String returns a short description for logs.
func (c *Cell) String() string {
	return fmt.Sprintf("%s(%d,%d)", c.Variant, c.X, c.Y)
}
