package machinectl

import "fmt"

// Validate checks target against cfg: it must have one coordinate per axis
// and every coordinate must lie within that axis's inclusive bounds.
func Validate(target MoveRequest, cfg *AxisConfig) error {
	if len(target) != cfg.Len() {
		return &AxisCountError{Target: target, Got: len(target), Want: cfg.Len()}
	}

	for i, v := range target {
		min, max := cfg.Bounds(i)
		switch {
		case v < min:
			return &OutOfBoundsError{Axis: i, AxisID: cfg.ids[i], Value: v, Bound: min, Min: min, Max: max}
		case v > max:
			return &OutOfBoundsError{Axis: i, AxisID: cfg.ids[i], Value: v, Bound: max, Min: min, Max: max}
		}
	}
	return nil
}

// Displace returns target - current for every axis, keeping axis order.
func Displace(target MoveRequest, current Position) (Displacement, error) {
	if len(target) != len(current) {
		return nil, fmt.Errorf("target has %d axes, position has %d", len(target), len(current))
	}

	d := make(Displacement, len(target))
	for i := range target {
		d[i] = target[i] - current[i]
	}
	return d, nil
}
