package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestData_MergeDoesNotMutate(t *testing.T) {
	base := Data{"a": "1"}
	merged := base.Merge(Data{"b": "2", "a": "x"})

	assert.Equal(t, Data{"a": "1"}, base)
	assert.Equal(t, Data{"a": "x", "b": "2"}, merged)
}

func TestData_CloneNil(t *testing.T) {
	var d Data
	c := d.Clone()
	assert.NotNil(t, c)
	assert.Empty(t, c)
}

func TestApplyStep_IdleClears(t *testing.T) {
	got := ApplyStep(Data{"a": "1", "b": "2"}, Idle, nil)
	assert.Empty(t, got)
}

func TestApplyStep_IdleWithMergeKeepsPayload(t *testing.T) {
	got := ApplyStep(Data{"a": "1"}, Idle, Data{"c": "3"})
	assert.Equal(t, Data{"a": "1", "c": "3"}, got)

	empty := ApplyStep(Data{"a": "1"}, Idle, Data{})
	assert.Equal(t, Data{"a": "1"}, empty)
}

func TestApplyStep_NonIdleAccumulates(t *testing.T) {
	got := ApplyStep(Data{"a": "1"}, StepID("next"), Data{"b": "2"})
	assert.Equal(t, Data{"a": "1", "b": "2"}, got)

	unchanged := ApplyStep(Data{"a": "1"}, StepID("next"), nil)
	assert.Equal(t, Data{"a": "1"}, unchanged)
}

func TestStepID_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "envelope_mentor", StepID("envelope_mentor").String())
	assert.True(t, Idle.IsIdle())
}

func TestProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Gómez", Profile{FirstName: "Ana", LastName: "Gómez"}.DisplayName())
	assert.Equal(t, "Ana", Profile{FirstName: "Ana"}.DisplayName())
	assert.Equal(t, "", Profile{}.DisplayName())
}
