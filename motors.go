package machinectl

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// MotorMap maps a logical stage name to a physical motor id.
type MotorMap map[string]string

// Clone returns a copy of m.
func (m MotorMap) Clone() MotorMap {
	if m == nil {
		return nil
	}
	c := make(MotorMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Asker asks the operator one question and returns the answer.
type Asker interface {
	Ask(question string) (string, error)
}

// AskerFunc adapts a plain function to Asker.
type AskerFunc func(question string) (string, error)

// Ask calls f(question).
func (f AskerFunc) Ask(question string) (string, error) {
	return f(question)
}

// RemapMotors asks which physical motor drives each stage and returns the
// resulting map. Answers are recorded as given (trimmed); one that is not in
// available only produces a warning.
func RemapMotors(stages, available []string, asker Asker) (MotorMap, error) {
	known := make(map[string]bool, len(available))
	for _, id := range available {
		known[id] = true
	}

	m := make(MotorMap, len(stages))
	for _, stage := range stages {
		q := fmt.Sprintf("Which one is: %s?\n-> %v\n ? ", stage, available)
		answer, err := asker.Ask(q)
		if err != nil {
			return nil, fmt.Errorf("asking for stage %s: %w", stage, err)
		}
		answer = strings.TrimSpace(answer)
		if len(available) > 0 && !known[answer] {
			log.Warnf("stage %s mapped to %q, which is not one of %v", stage, answer, available)
		}
		m[stage] = answer
	}
	return m, nil
}
