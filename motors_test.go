package machinectl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAsker answers questions from a fixed list and records them.
type scriptedAsker struct {
	answers   []string
	questions []string
}

func (a *scriptedAsker) Ask(q string) (string, error) {
	a.questions = append(a.questions, q)
	if len(a.answers) == 0 {
		return "", errors.New("no more answers")
	}
	ans := a.answers[0]
	a.answers = a.answers[1:]
	return ans, nil
}

func TestRemapMotors(t *testing.T) {
	asker := &scriptedAsker{answers: []string{"PHYS_X\n", " PHYS_Z", "PHYS_Y"}}

	m, err := RemapMotors([]string{"y", "x2", "x1"}, []string{"PHYS_X", "PHYS_Y", "PHYS_Z"}, asker)

	require.NoError(t, err)
	assert.Equal(t, MotorMap{"y": "PHYS_X", "x2": "PHYS_Z", "x1": "PHYS_Y"}, m)
	require.Len(t, asker.questions, 3)
	assert.Contains(t, asker.questions[0], "Which one is: y?")
	assert.Contains(t, asker.questions[0], "[PHYS_X PHYS_Y PHYS_Z]")
}

func TestRemapMotors_TrustsOperator(t *testing.T) {
	asker := &scriptedAsker{answers: []string{"PHYS_Q"}}

	m, err := RemapMotors([]string{"y"}, []string{"PHYS_X"}, asker)

	require.NoError(t, err)
	assert.Equal(t, MotorMap{"y": "PHYS_Q"}, m)
}

func TestRemapMotors_AskFails(t *testing.T) {
	asker := &scriptedAsker{answers: []string{"PHYS_X"}}

	_, err := RemapMotors([]string{"y", "x1"}, nil, asker)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "asking for stage x1")
}

func TestMotorMap_Clone(t *testing.T) {
	var nilMap MotorMap
	assert.Nil(t, nilMap.Clone())

	m := MotorMap{"a": "1"}
	c := m.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", m["a"])
}

func TestStepPlan_Stages(t *testing.T) {
	stages, err := StepPlan{"x1_steps": 3, "y": -4}.Stages()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x1": 3, "y": -4}, stages)

	_, err = StepPlan{"y": 1, "y_steps": 1}.Stages()
	assert.Error(t, err)

	assert.Equal(t, "{x1_steps:3 y:-4}", StepPlan{"y": -4, "x1_steps": 3}.String())
}
