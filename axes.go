package machinectl

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// AxisConfig describes the machine's axes: their order and inclusive
// coordinate bounds. It is immutable once built.
type AxisConfig struct {
	ids []string
	min []int
	max []int
}

// NewAxisConfig returns an AxisConfig for ids with the given bounds. Every
// problem found is reported, not just the first.
func NewAxisConfig(ids []string, min, max []int) (*AxisConfig, error) {
	var err error
	if len(ids) == 0 {
		err = multierr.Append(err, fmt.Errorf("no axes configured"))
	}
	if len(min) != len(ids) || len(max) != len(ids) {
		err = multierr.Append(err, fmt.Errorf("%d axes but %d min and %d max bounds", len(ids), len(min), len(max)))
	}

	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if id == "" {
			err = multierr.Append(err, fmt.Errorf("axis %d has an empty name", i))
		}
		if seen[id] {
			err = multierr.Append(err, fmt.Errorf("axis %q is listed twice", id))
		}
		seen[id] = true
		if i < len(min) && i < len(max) && min[i] > max[i] {
			err = multierr.Append(err, fmt.Errorf("axis %q: min %d is greater than max %d", id, min[i], max[i]))
		}
	}
	if err != nil {
		return nil, err
	}

	return &AxisConfig{
		ids: append([]string(nil), ids...),
		min: append([]int(nil), min...),
		max: append([]int(nil), max...),
	}, nil
}

// CleanAxisIDs strips prefix (e.g. "AXIS_") from each raw axis name.
func CleanAxisIDs(raw []string, prefix string) []string {
	ids := make([]string, len(raw))
	for i, r := range raw {
		ids[i] = strings.TrimPrefix(r, prefix)
	}
	return ids
}

// Len returns the number of axes.
func (c *AxisConfig) Len() int {
	return len(c.ids)
}

// IDs returns the axis names in order.
func (c *AxisConfig) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Bounds returns the inclusive min and max of axis i.
func (c *AxisConfig) Bounds(i int) (min, max int) {
	return c.min[i], c.max[i]
}

// MinBounds returns the lower bound of every axis.
func (c *AxisConfig) MinBounds() Position {
	return append(Position(nil), c.min...)
}

// MaxBounds returns the upper bound of every axis.
func (c *AxisConfig) MaxBounds() Position {
	return append(Position(nil), c.max...)
}

func (c *AxisConfig) String() string {
	return fmt.Sprintf("%v", c.ids)
}

// Position is an absolute coordinate, one integer per axis in AxisConfig
// order.
type Position []int

// MoveRequest is an absolute target for a single move.
type MoveRequest []int

// Displacement is the signed per-axis difference between a target and the
// current position.
type Displacement []int

// Clone returns a copy of p.
func (p Position) Clone() Position {
	return append(Position(nil), p...)
}

// Equal reports whether p and o have the same coordinates.
func (p Position) Equal(o Position) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Position) String() string {
	return formatTuple(p)
}

func (r MoveRequest) String() string {
	return formatTuple(r)
}

func (d Displacement) String() string {
	return formatTuple(d)
}

func formatTuple(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
