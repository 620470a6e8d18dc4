package reminder

import (
	"fmt"
	"time"

	"deal-service/pkg/mailer"
)

type reminderContext struct {
	RecipientName string
	MeetingTitle  string
	StartTime     string
	MinutesBefore int
}

const reminderHTML = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Meeting Reminder</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Upcoming meeting</h2>
		<p>{{if .RecipientName}}Hi {{.RecipientName}},{{else}}Hi there,{{end}}</p>
		<p><strong>{{.MeetingTitle}}</strong> starts in about {{.MinutesBefore}} minutes, at {{.StartTime}}.</p>
		<p>See you there.</p>
	</div>
</body>
</html>
`

const reminderText = `
Upcoming meeting

{{if .RecipientName}}Hi {{.RecipientName}},{{else}}Hi there,{{end}}

{{.MeetingTitle}} starts in about {{.MinutesBefore}} minutes, at {{.StartTime}}.

See you there.
`

func newReminderTemplate() (*mailer.Template[reminderContext], error) {
	return mailer.NewTemplate[reminderContext]("meeting_reminder", reminderHTML, reminderText)
}

func reminderSubject(title string, startTime time.Time) string {
	return fmt.Sprintf("Reminder: %s at %s", title, startTime.Format("15:04 MST"))
}
