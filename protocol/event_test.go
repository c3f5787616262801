package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_PopulatesIdentity(t *testing.T) {
	ev := NewEvent(EventInfo, "s1")
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventInfo, ev.Type)
	assert.Equal(t, "s1", ev.SessionID)
	assert.False(t, ev.Timestamp.IsZero())

	other := NewEvent(EventInfo, "s1")
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestEvent_IsTerminal(t *testing.T) {
	assert.True(t, NewDoneEvent("s1").IsTerminal())
	assert.False(t, NewInfoEvent("s1", "x").IsTerminal())
	assert.False(t, NewErrorEvent("s1", "boom").IsTerminal())
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(NewDoneEvent("s1"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "agent")
	assert.NotContains(t, decoded, "content")
	assert.NotContains(t, decoded, "data")
	assert.Equal(t, "done", decoded["type"])
}

func TestClientMessage_Validate(t *testing.T) {
	assert.ErrorIs(t, ClientMessage{}.Validate(), ErrMissingSessionID)
	assert.ErrorIs(t, ClientMessage{Prompt: "hi"}.Validate(), ErrMissingSessionID)
	assert.NoError(t, ClientMessage{SessionID: "s1"}.Validate())
}

func TestClientMessage_IsRegistration(t *testing.T) {
	assert.True(t, ClientMessage{SessionID: "s1"}.IsRegistration())
	assert.False(t, ClientMessage{SessionID: "s1", Prompt: "hi"}.IsRegistration())
}
