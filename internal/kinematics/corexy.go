package kinematics

import (
	"fmt"

	"github.com/kerinin/machinectl"
)

// CoreXY drives the x and y axes with two crossed belts. The stage
// configured on axis "x" is motor A and the one on "y" is motor B:
//
//	A = (dx + dy) * steps_per_unit
//	B = (dx - dy) * steps_per_unit
//
// Stages on any other axis move linearly.
type CoreXY struct {
	linear   *Linear
	x, y     int
	a, b     int
	maxSteps int
}

// NewCoreXY returns a CoreXY solver. axes must contain "x" and "y" and
// exactly one stage must be configured on each.
func NewCoreXY(axes []string, stages []Stage, maxSteps int) (*CoreXY, error) {
	linear, err := NewLinear(axes, stages, 0)
	if err != nil {
		return nil, err
	}

	byName := axisIndex(axes)
	k := &CoreXY{linear: linear, a: -1, b: -1, maxSteps: maxSteps}
	var ok bool
	if k.x, ok = byName["x"]; !ok {
		return nil, fmt.Errorf("corexy needs an x axis (axes are %v)", axes)
	}
	if k.y, ok = byName["y"]; !ok {
		return nil, fmt.Errorf("corexy needs a y axis (axes are %v)", axes)
	}

	for i, s := range stages {
		switch s.Axis {
		case "x":
			if k.a >= 0 {
				return nil, fmt.Errorf("corexy allows one stage on x, got %q and %q", stages[k.a].Name, s.Name)
			}
			k.a = i
		case "y":
			if k.b >= 0 {
				return nil, fmt.Errorf("corexy allows one stage on y, got %q and %q", stages[k.b].Name, s.Name)
			}
			k.b = i
		}
	}
	if k.a < 0 || k.b < 0 {
		return nil, fmt.Errorf("corexy needs one stage on x and one on y")
	}
	return k, nil
}

// Solve implements machinectl.Solver.
func (k *CoreXY) Solve(d machinectl.Displacement) (machinectl.StepPlan, error) {
	plan, err := k.linear.Solve(d)
	if err != nil {
		return nil, err
	}

	dx, dy := float64(d[k.x]), float64(d[k.y])
	a, b := k.linear.stages[k.a], k.linear.stages[k.b]
	plan[stepKey(a.Name)] = toSteps(dx+dy, a.StepsPerUnit)
	plan[stepKey(b.Name)] = toSteps(dx-dy, b.StepsPerUnit)

	if err := checkReach(plan, k.maxSteps); err != nil {
		return nil, err
	}
	return plan, nil
}
