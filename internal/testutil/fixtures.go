package testutil

import (
	"time"

	"github.com/cassiomorais/reminders/internal/event"
)

// NewReminderDueEnvelope builds a reminder.due envelope for tests.
func NewReminderDueEnvelope(reminderID, userID int64) event.Envelope {
	due := time.Now().Add(time.Hour).Truncate(time.Second)
	return event.NewEnvelope(
		event.ReminderDue(event.ReminderData{
			ReminderID:       reminderID,
			UserID:           userID,
			Title:            "quarterly tax filing",
			NotificationType: "EMAIL",
			ReminderDate:     &due,
		}),
		event.WithUserID(userID),
	)
}

// NewNotificationScheduledEnvelope builds a notification.scheduled envelope
// for tests.
func NewNotificationScheduledEnvelope(notificationID, reminderID, userID int64, channel string) event.Envelope {
	return event.NewEnvelope(
		event.NotificationScheduled(event.NotificationData{
			NotificationID:   notificationID,
			ReminderID:       reminderID,
			UserID:           userID,
			NotificationType: channel,
			Status:           "PENDING",
		}),
		event.WithUserID(userID),
	)
}

// NewUserCreatedEnvelope builds a user.created envelope for tests.
func NewUserCreatedEnvelope(userID int64, username string) event.Envelope {
	return event.NewEnvelope(
		event.UserCreated(event.UserData{
			UserID:   userID,
			Username: username,
			Email:    username + "@example.com",
			IsActive: true,
		}),
		event.WithUserID(userID),
	)
}
