// Package kinematics provides IK solvers that turn a relative displacement
// into per-stage step counts.
package kinematics

import (
	"fmt"
	"math"

	"github.com/kerinin/machinectl"
)

// Kinematics types.
const (
	TypeLinear = "linear"
	TypeCoreXY = "corexy"
)

// Stage is one motor-driven stage of the machine.
type Stage struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Axis is the axis the stage moves along. A gantry has several stages
	// on one axis.
	Axis string `mapstructure:"axis" yaml:"axis"`
	// StepsPerUnit converts one coordinate unit into motor steps. Negative
	// values invert the direction.
	StepsPerUnit float64 `mapstructure:"steps_per_unit" yaml:"steps_per_unit"`
}

// Config selects and parameterises a solver.
type Config struct {
	Type   string  `mapstructure:"type" yaml:"type"`
	Stages []Stage `mapstructure:"stages" yaml:"stages"`
	// MaxSteps rejects any plan in which a stage would move further than
	// this in one move. Zero disables the check.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

// New returns the solver named by cfg.Type for the given axes.
func New(cfg Config, axes []string) (machinectl.Solver, error) {
	switch cfg.Type {
	case "", TypeLinear:
		return NewLinear(axes, cfg.Stages, cfg.MaxSteps)
	case TypeCoreXY:
		return NewCoreXY(axes, cfg.Stages, cfg.MaxSteps)
	default:
		return nil, fmt.Errorf("unknown kinematics %q", cfg.Type)
	}
}

func axisIndex(axes []string) map[string]int {
	idx := make(map[string]int, len(axes))
	for i, a := range axes {
		idx[a] = i
	}
	return idx
}

func toSteps(units float64, spu float64) int {
	return int(math.Round(units * spu))
}

func checkLength(d machinectl.Displacement, axes []string) error {
	if len(d) != len(axes) {
		return fmt.Errorf("%w: displacement %v has %d axes, kinematics has %d",
			machinectl.ErrIKUnsolvable, d, len(d), len(axes))
	}
	return nil
}

func checkReach(plan machinectl.StepPlan, maxSteps int) error {
	if maxSteps <= 0 {
		return nil
	}
	for stage, n := range plan {
		if n > maxSteps || n < -maxSteps {
			return fmt.Errorf("%w: %s needs %d steps, limit is %d",
				machinectl.ErrIKUnsolvable, stage, n, maxSteps)
		}
	}
	return nil
}

func stepKey(stage string) string {
	return stage + machinectl.StepSuffix
}
