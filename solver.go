package machinectl

import (
	"fmt"
	"sort"
	"strings"
)

// StepSuffix marks a solver output key as a step count; it is removed before
// the key is sent to the hardware.
const StepSuffix = "_steps"

// StepPlan maps a stage (optionally suffixed with StepSuffix) to a signed
// step count. The sign is the direction.
type StepPlan map[string]int

// Solver turns a relative displacement into per-stage step counts. It knows
// nothing about absolute position, motors, or the hardware channel.
// Implementations return an error wrapping ErrIKUnsolvable when no plan
// exists for the displacement.
type Solver interface {
	Solve(d Displacement) (StepPlan, error)
}

// SolverFunc adapts a plain function to Solver.
type SolverFunc func(d Displacement) (StepPlan, error)

// Solve calls f(d).
func (f SolverFunc) Solve(d Displacement) (StepPlan, error) {
	return f(d)
}

// Stages returns the plan keyed by bare stage name. Two keys that name the
// same stage once StepSuffix is removed are an error.
func (p StepPlan) Stages() (map[string]int, error) {
	stages := make(map[string]int, len(p))
	keys := make(map[string]string, len(p))
	for key, steps := range p {
		stage := strings.TrimSuffix(key, StepSuffix)
		if other, ok := keys[stage]; ok {
			return nil, fmt.Errorf("plan keys %q and %q both name stage %q", other, key, stage)
		}
		keys[stage] = key
		stages[stage] = steps
	}
	return stages, nil
}

func (p StepPlan) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, p[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}
