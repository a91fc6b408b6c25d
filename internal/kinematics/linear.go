package kinematics

import (
	"errors"
	"fmt"

	"github.com/kerinin/machinectl"
)

// Linear maps each stage 1:1 onto its axis, scaled by StepsPerUnit.
type Linear struct {
	axes     []string
	stages   []Stage
	index    []int
	maxSteps int
}

// NewLinear returns a Linear solver. Every stage must name a known axis.
func NewLinear(axes []string, stages []Stage, maxSteps int) (*Linear, error) {
	if len(stages) == 0 {
		return nil, errors.New("no stages configured")
	}

	byName := axisIndex(axes)
	index := make([]int, len(stages))
	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("stage %q is listed twice", s.Name)
		}
		seen[s.Name] = true

		idx, ok := byName[s.Axis]
		if !ok {
			return nil, fmt.Errorf("stage %q moves along unknown axis %q (axes are %v)", s.Name, s.Axis, axes)
		}
		if s.StepsPerUnit == 0 {
			return nil, fmt.Errorf("stage %q has zero steps_per_unit", s.Name)
		}
		index[i] = idx
	}

	return &Linear{
		axes:     append([]string(nil), axes...),
		stages:   append([]Stage(nil), stages...),
		index:    index,
		maxSteps: maxSteps,
	}, nil
}

// Solve implements machinectl.Solver.
func (k *Linear) Solve(d machinectl.Displacement) (machinectl.StepPlan, error) {
	if err := checkLength(d, k.axes); err != nil {
		return nil, err
	}

	plan := make(machinectl.StepPlan, len(k.stages))
	for i, s := range k.stages {
		plan[stepKey(s.Name)] = toSteps(float64(d[k.index[i]]), s.StepsPerUnit)
	}

	if err := checkReach(plan, k.maxSteps); err != nil {
		return nil, err
	}
	return plan, nil
}
