package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackStatus_Action(t *testing.T) {
	// Only the two "ready to persist" statuses commit a version.
	assert.Equal(t, ActionPersist, StatusReadyToSave.Action())
	assert.Equal(t, ActionPersist, StatusSavingWhileEditing.Action())

	assert.Equal(t, ActionIgnore, StatusNone.Action())
	assert.Equal(t, ActionIgnore, StatusEditing.Action())
	assert.Equal(t, ActionIgnore, StatusClosedNoChanges.Action())

	assert.Equal(t, ActionErrorAck, StatusSaveError.Action())
	assert.Equal(t, ActionErrorAck, StatusForceSaveError.Action())

	// Statuses outside the provider vocabulary are acknowledged, not failed.
	assert.Equal(t, ActionUnknownAck, CallbackStatus(5).Action())
	assert.Equal(t, ActionUnknownAck, CallbackStatus(42).Action())
	assert.Equal(t, ActionUnknownAck, CallbackStatus(-1).Action())
}

func TestCallbackStatus_String(t *testing.T) {
	assert.Equal(t, "readyToSave", StatusReadyToSave.String())
	assert.Equal(t, "closedNoChanges", StatusClosedNoChanges.String())
	assert.Equal(t, "savingWhileEditing", StatusSavingWhileEditing.String())
	assert.Equal(t, "unknown", CallbackStatus(99).String())
}
