package handler

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"

	paramMeetingID = "id"

	queryFilePath   = "file_path"
	queryMode       = "mode"
	queryGobackURL  = "goback_url"
	queryResourceID = "resource_id"

	headerGoogChannelID     = "X-Goog-Channel-Id"
	headerGoogResourceID    = "X-Goog-Resource-Id"
	headerGoogResourceState = "X-Goog-Resource-State"

	resourceStateSync = "sync"
)

const (
	msgContentTypeJSONRequired = "Content-Type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgFilePathRequired        = "file_path required"
	msgVersionNotFound         = "document version not found"
	msgResourceAccessDenied    = "resource belongs to another organization"
	msgResourceNotFound        = "resource not found"
	msgContentURLMintFail      = "failed to generate document content URL"
	msgCapabilitySignFail      = "failed to sign editing capability"
	msgInvalidCallbackToken    = "invalid callback token"
	msgMissingActingUser       = "callback carries no acting user"
	msgResourceIDRequired      = "resource_id required"
	msgInvalidResourceID       = "invalid resource_id"
	msgSaveFailed              = "failed to persist document version"
	msgMissingWebhookHeaders   = "missing required notification headers"
	msgSyncAcknowledged        = "Sync acknowledged"
	msgNotificationAccepted    = "notification accepted"
	msgNoCalendarConnection    = "no calendar connection"
	msgWatchRegistered         = "calendar watch registered"
	msgConnectionRemoved       = "calendar connection removed"
	msgWatchTeardownWarning    = "calendar connection removed; watch channel teardown failed"
	msgInvalidMeetingID        = "invalid meeting id"
	msgMeetingNotFound         = "meeting not found"
	msgNotParticipant          = "not a participant of this meeting"
	msgNotOrganizer            = "only the organizer can reschedule"
	msgInvalidTimeWindow       = "end_time must be after start_time"
	msgInvalidResponseStatus   = "invalid response status"
	msgResponseSynced          = "response updated and synced to calendar"
	msgResponseLocalOnly       = "updated local status only (no calendar connection)"
	msgMeetingRescheduled      = "meeting rescheduled; participant responses reset"
	msgSecretsNotConfigured    = "document signing secret not configured"
)
