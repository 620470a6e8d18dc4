package editor

// CallbackStatus is the document server's session-lifecycle status code,
// translated at the boundary so nothing downstream branches on raw integers.
type CallbackStatus int

const (
	StatusNone               CallbackStatus = 0
	StatusEditing            CallbackStatus = 1
	StatusReadyToSave        CallbackStatus = 2
	StatusSaveError          CallbackStatus = 3
	StatusClosedNoChanges    CallbackStatus = 4
	StatusSavingWhileEditing CallbackStatus = 6
	StatusForceSaveError     CallbackStatus = 7
)

// Action is what the callback handler does with a status.
type Action int

const (
	// ActionPersist commits the edited bytes as a new version.
	ActionPersist Action = iota
	// ActionIgnore acknowledges without side effects.
	ActionIgnore
	// ActionErrorAck logs the server-reported error and acknowledges;
	// the document server handles its own retries.
	ActionErrorAck
	// ActionUnknownAck acknowledges statuses outside the known vocabulary.
	ActionUnknownAck
)

func (s CallbackStatus) Action() Action {
	switch s {
	case StatusReadyToSave, StatusSavingWhileEditing:
		return ActionPersist
	case StatusEditing, StatusClosedNoChanges, StatusNone:
		return ActionIgnore
	case StatusSaveError, StatusForceSaveError:
		return ActionErrorAck
	default:
		return ActionUnknownAck
	}
}

func (s CallbackStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusEditing:
		return "editing"
	case StatusReadyToSave:
		return "readyToSave"
	case StatusSaveError:
		return "saveError"
	case StatusClosedNoChanges:
		return "closedNoChanges"
	case StatusSavingWhileEditing:
		return "savingWhileEditing"
	case StatusForceSaveError:
		return "forceSaveError"
	default:
		return "unknown"
	}
}
