package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	errResourceNotFound   = "resource not found"
	errVersionNotFound    = "document version not found"
	errConnectionNotFound = "calendar connection not found"
	errMeetingNotFound    = "meeting not found"

	errDuplicateVersionContent = "a version with identical content already exists"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedAcquireConnectionFmt    = "failed to acquire connection: %w"
	errFailedAcquireResourceLockFmt  = "failed to acquire resource lock: %w"

	errFailedGetResourceFmt        = "failed to get resource: %w"
	errFailedSetCurrentVersionFmt  = "failed to set current version: %w"
	errCurrentVersionChangedFmt    = "current version changed concurrently for resource %s"
	errFailedCreateVersionFmt      = "failed to create document version: %w"
	errFailedGetVersionFmt         = "failed to get document version: %w"
	errFailedFinalizeVersionFmt    = "failed to finalize document version: %w"
	errFailedSupersedeVersionsFmt  = "failed to supersede versions: %w"
	errFailedDeleteVersionFmt      = "failed to delete document version: %w"
	errFailedEncodeMetadataFmt     = "failed to encode version metadata: %w"
	errFailedDecodeMetadataFmt     = "failed to decode version metadata: %w"
	errFailedGetConnectionFmt      = "failed to get calendar connection: %w"
	errFailedListConnectionsFmt    = "failed to list calendar connections: %w"
	errFailedScanConnectionFmt     = "failed to scan calendar connection: %w"
	errFailedUpdateWatchFmt        = "failed to update watch fields: %w"
	errFailedClearWatchFmt         = "failed to clear watch fields: %w"
	errFailedUpdateTokensFmt       = "failed to update connection tokens: %w"
	errFailedDeleteConnectionFmt   = "failed to delete calendar connection: %w"
	errFailedDecodeCalendarListFmt = "failed to decode calendar list: %w"
	errFailedGetMeetingFmt         = "failed to get meeting: %w"
	errFailedListMeetingsFmt       = "failed to list meetings: %w"
	errFailedScanMeetingFmt        = "failed to scan meeting: %w"
	errFailedDecodeEventRefsFmt    = "failed to decode calendar event ids: %w"
	errFailedGetParticipantsFmt    = "failed to get meeting participants: %w"
	errFailedScanParticipantFmt    = "failed to scan meeting participant: %w"
	errFailedUpdateResponseFmt     = "failed to update participant response: %w"
	errFailedResetResponsesFmt     = "failed to reset participant responses: %w"
	errFailedRescheduleMeetingFmt  = "failed to reschedule meeting: %w"
	errFailedListRemindersFmt      = "failed to list reminder candidates: %w"
	errFailedScanReminderFmt       = "failed to scan reminder candidate: %w"
	errFailedMarkReminderFmt       = "failed to mark reminder sent: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedAcquireConnection    = func(err error) error { return fmt.Errorf(errFailedAcquireConnectionFmt, err) }
	errFailedAcquireResourceLock  = func(err error) error { return fmt.Errorf(errFailedAcquireResourceLockFmt, err) }

	errFailedGetResource       = func(err error) error { return fmt.Errorf(errFailedGetResourceFmt, err) }
	errFailedSetCurrentVersion = func(err error) error { return fmt.Errorf(errFailedSetCurrentVersionFmt, err) }
	errFailedCreateVersion     = func(err error) error { return fmt.Errorf(errFailedCreateVersionFmt, err) }
	errFailedGetVersion        = func(err error) error { return fmt.Errorf(errFailedGetVersionFmt, err) }
	errFailedFinalizeVersion   = func(err error) error { return fmt.Errorf(errFailedFinalizeVersionFmt, err) }
	errFailedSupersedeVersions = func(err error) error { return fmt.Errorf(errFailedSupersedeVersionsFmt, err) }
	errFailedDeleteVersion     = func(err error) error { return fmt.Errorf(errFailedDeleteVersionFmt, err) }
	errFailedEncodeMetadata    = func(err error) error { return fmt.Errorf(errFailedEncodeMetadataFmt, err) }
	errFailedDecodeMetadata    = func(err error) error { return fmt.Errorf(errFailedDecodeMetadataFmt, err) }

	errFailedGetConnection      = func(err error) error { return fmt.Errorf(errFailedGetConnectionFmt, err) }
	errFailedListConnections    = func(err error) error { return fmt.Errorf(errFailedListConnectionsFmt, err) }
	errFailedScanConnection     = func(err error) error { return fmt.Errorf(errFailedScanConnectionFmt, err) }
	errFailedUpdateWatch        = func(err error) error { return fmt.Errorf(errFailedUpdateWatchFmt, err) }
	errFailedClearWatch         = func(err error) error { return fmt.Errorf(errFailedClearWatchFmt, err) }
	errFailedUpdateTokens       = func(err error) error { return fmt.Errorf(errFailedUpdateTokensFmt, err) }
	errFailedDeleteConnection   = func(err error) error { return fmt.Errorf(errFailedDeleteConnectionFmt, err) }
	errFailedDecodeCalendarList = func(err error) error { return fmt.Errorf(errFailedDecodeCalendarListFmt, err) }

	errFailedGetMeeting        = func(err error) error { return fmt.Errorf(errFailedGetMeetingFmt, err) }
	errFailedListMeetings      = func(err error) error { return fmt.Errorf(errFailedListMeetingsFmt, err) }
	errFailedScanMeeting       = func(err error) error { return fmt.Errorf(errFailedScanMeetingFmt, err) }
	errFailedDecodeEventRefs   = func(err error) error { return fmt.Errorf(errFailedDecodeEventRefsFmt, err) }
	errFailedGetParticipants   = func(err error) error { return fmt.Errorf(errFailedGetParticipantsFmt, err) }
	errFailedScanParticipant   = func(err error) error { return fmt.Errorf(errFailedScanParticipantFmt, err) }
	errFailedUpdateResponse    = func(err error) error { return fmt.Errorf(errFailedUpdateResponseFmt, err) }
	errFailedResetResponses    = func(err error) error { return fmt.Errorf(errFailedResetResponsesFmt, err) }
	errFailedRescheduleMeeting = func(err error) error { return fmt.Errorf(errFailedRescheduleMeetingFmt, err) }
	errFailedListReminders     = func(err error) error { return fmt.Errorf(errFailedListRemindersFmt, err) }
	errFailedScanReminder      = func(err error) error { return fmt.Errorf(errFailedScanReminderFmt, err) }
	errFailedMarkReminder      = func(err error) error { return fmt.Errorf(errFailedMarkReminderFmt, err) }
)
