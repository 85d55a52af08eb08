package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineHappyPath(t *testing.T) {
	m := newMachine(StateIdle)
	for _, evt := range []Event{EventDecoded, EventStandardDone, EventQuantumDone, EventBranch, EventComposited, EventSigned, EventFinish} {
		require.NoError(t, m.send(evt))
	}
	assert.True(t, m.terminal())
	assert.Equal(t, StateDone, m.current)
	assert.Error(t, m.send(EventFail))
}

func TestMachineRejectsOutOfOrderEvents(t *testing.T) {
	m := newMachine(StateDecoded)
	assert.Error(t, m.send(EventQuantumDone))
	assert.Equal(t, StateDecoded, m.current)
	assert.Equal(t, []State{StateDecoded}, m.Trace())
}

func TestMachineFailsFromAnyState(t *testing.T) {
	for _, from := range []State{StateIdle, StateDecoded, StateQuantumReady, StateComposited, StateSigned} {
		m := newMachine(from)
		require.NoError(t, m.send(EventFail), from.String())
		assert.Equal(t, []State{from, StateFailed}, m.Trace())
		assert.Error(t, m.send(EventFail))
	}
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "ModeBranch", StateModeBranch.String())
	assert.Equal(t, "Failed", StateFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeMirror, ParseMode("mirror"))
	assert.Equal(t, ModeMutual, ParseMode(" MUTUAL "))
	assert.Equal(t, ModeDirect, ParseMode("direct"))
	assert.Equal(t, ModeDirect, ParseMode("sideways"))
	assert.Equal(t, ModeDirect, ParseMode(""))

	assert.Equal(t, "Mirrored Reflection", ModeMirror.Display())
	assert.Equal(t, "TENET_COMPOSITE_DIRECT", ModeDirect.DefaultDescriptor())
}
