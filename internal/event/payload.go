package event

import "time"

// Event type tags. Dot-namespaced, one namespace per domain aggregate.
const (
	KindReminderCreated = "reminder.created"
	KindReminderUpdated = "reminder.updated"
	KindReminderDeleted = "reminder.deleted"
	KindReminderDue     = "reminder.due"

	KindNotificationScheduled = "notification.scheduled"
	KindNotificationSent      = "notification.sent"
	KindNotificationFailed    = "notification.failed"
	KindNotificationCancelled = "notification.cancelled"

	KindClientCreated             = "client.created"
	KindClientUpdated             = "client.updated"
	KindClientDeleted             = "client.deleted"
	KindClientAddedToReminder     = "client.added_to_reminder"
	KindClientRemovedFromReminder = "client.removed_from_reminder"

	KindUserCreated       = "user.created"
	KindUserUpdated       = "user.updated"
	KindUserDeleted       = "user.deleted"
	KindUserLoggedIn      = "user.logged_in"
	KindUserLoggedOut     = "user.logged_out"
	KindUserPasswordReset = "user.password_reset"

	KindSenderIdentityCreated    = "sender_identity.created"
	KindSenderIdentityUpdated    = "sender_identity.updated"
	KindSenderIdentityDeleted    = "sender_identity.deleted"
	KindSenderIdentityVerified   = "sender_identity.verified"
	KindSenderIdentityDefaultSet = "sender_identity.default_set"

	KindEmailConfigurationCreated    = "email_configuration.created"
	KindEmailConfigurationUpdated    = "email_configuration.updated"
	KindEmailConfigurationDeleted    = "email_configuration.deleted"
	KindEmailConfigurationSetDefault = "email_configuration.set_default"
)

// Payload is the closed set of event payloads. Each concrete payload carries
// its event type tag, so decoding can dispatch exhaustively and adding a new
// domain means adding a variant here plus a codec branch.
type Payload interface {
	Kind() string
	isPayload()
}

// ReminderData is the payload body for reminder.* events.
type ReminderData struct {
	ReminderID        int64      `json:"reminder_id"`
	UserID            int64      `json:"user_id"`
	Title             string     `json:"title,omitempty"`
	ReminderType      string     `json:"reminder_type,omitempty"`
	NotificationType  string     `json:"notification_type,omitempty"`
	ReminderDate      *time.Time `json:"reminder_date,omitempty"`
	IsRecurring       bool       `json:"is_recurring,omitempty"`
	RecurrencePattern string     `json:"recurrence_pattern,omitempty"`
}

// ReminderPayload tags ReminderData with one of the reminder.* kinds.
type ReminderPayload struct {
	kind string
	ReminderData
}

func (p ReminderPayload) Kind() string { return p.kind }
func (ReminderPayload) isPayload()     {}

func ReminderCreated(data ReminderData) ReminderPayload {
	return ReminderPayload{kind: KindReminderCreated, ReminderData: data}
}

func ReminderUpdated(data ReminderData) ReminderPayload {
	return ReminderPayload{kind: KindReminderUpdated, ReminderData: data}
}

func ReminderDeleted(data ReminderData) ReminderPayload {
	return ReminderPayload{kind: KindReminderDeleted, ReminderData: data}
}

func ReminderDue(data ReminderData) ReminderPayload {
	return ReminderPayload{kind: KindReminderDue, ReminderData: data}
}

// NotificationData is the payload body for notification.* events.
type NotificationData struct {
	NotificationID   int64      `json:"notification_id"`
	UserID           int64      `json:"user_id"`
	ReminderID       int64      `json:"reminder_id"`
	ClientID         int64      `json:"client_id,omitempty"`
	NotificationType string     `json:"notification_type,omitempty"` // EMAIL, SMS, WHATSAPP
	Status           string     `json:"status,omitempty"`            // PENDING, SENT, FAILED, CANCELLED
	SentAt           *time.Time `json:"sent_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	Message          string     `json:"message,omitempty"`
}

// NotificationPayload tags NotificationData with one of the notification.* kinds.
type NotificationPayload struct {
	kind string
	NotificationData
}

func (p NotificationPayload) Kind() string { return p.kind }
func (NotificationPayload) isPayload()     {}

func NotificationScheduled(data NotificationData) NotificationPayload {
	return NotificationPayload{kind: KindNotificationScheduled, NotificationData: data}
}

func NotificationSent(data NotificationData) NotificationPayload {
	return NotificationPayload{kind: KindNotificationSent, NotificationData: data}
}

func NotificationFailed(data NotificationData) NotificationPayload {
	return NotificationPayload{kind: KindNotificationFailed, NotificationData: data}
}

func NotificationCancelled(data NotificationData) NotificationPayload {
	return NotificationPayload{kind: KindNotificationCancelled, NotificationData: data}
}

// ClientData is the payload body for client lifecycle events.
type ClientData struct {
	ClientID    int64  `json:"client_id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
}

// ClientPayload tags ClientData with one of the client lifecycle kinds.
type ClientPayload struct {
	kind string
	ClientData
}

func (p ClientPayload) Kind() string { return p.kind }
func (ClientPayload) isPayload()     {}

func ClientCreated(data ClientData) ClientPayload {
	return ClientPayload{kind: KindClientCreated, ClientData: data}
}

func ClientUpdated(data ClientData) ClientPayload {
	return ClientPayload{kind: KindClientUpdated, ClientData: data}
}

func ClientDeleted(data ClientData) ClientPayload {
	return ClientPayload{kind: KindClientDeleted, ClientData: data}
}

// ClientReminderData is the payload body for client/reminder association events.
type ClientReminderData struct {
	ClientID      int64  `json:"client_id"`
	ReminderID    int64  `json:"reminder_id"`
	UserID        int64  `json:"user_id"`
	ClientName    string `json:"client_name,omitempty"`
	ReminderTitle string `json:"reminder_title,omitempty"`
}

// ClientReminderPayload tags ClientReminderData with an association kind.
type ClientReminderPayload struct {
	kind string
	ClientReminderData
}

func (p ClientReminderPayload) Kind() string { return p.kind }
func (ClientReminderPayload) isPayload()     {}

func ClientAddedToReminder(data ClientReminderData) ClientReminderPayload {
	return ClientReminderPayload{kind: KindClientAddedToReminder, ClientReminderData: data}
}

func ClientRemovedFromReminder(data ClientReminderData) ClientReminderPayload {
	return ClientReminderPayload{kind: KindClientRemovedFromReminder, ClientReminderData: data}
}

// UserData is the payload body for user lifecycle events.
type UserData struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	IsActive     bool   `json:"is_active,omitempty"`
	IsSuperuser  bool   `json:"is_superuser,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
}

// UserPayload tags UserData with one of the user lifecycle kinds.
type UserPayload struct {
	kind string
	UserData
}

func (p UserPayload) Kind() string { return p.kind }
func (UserPayload) isPayload()     {}

func UserCreated(data UserData) UserPayload {
	return UserPayload{kind: KindUserCreated, UserData: data}
}

func UserUpdated(data UserData) UserPayload {
	return UserPayload{kind: KindUserUpdated, UserData: data}
}

func UserDeleted(data UserData) UserPayload {
	return UserPayload{kind: KindUserDeleted, UserData: data}
}

// AuthData is the payload body for authentication events.
type AuthData struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Success   bool   `json:"success"`
}

// AuthPayload tags AuthData with one of the authentication kinds.
type AuthPayload struct {
	kind string
	AuthData
}

func (p AuthPayload) Kind() string { return p.kind }
func (AuthPayload) isPayload()     {}

func UserLoggedIn(data AuthData) AuthPayload {
	return AuthPayload{kind: KindUserLoggedIn, AuthData: data}
}

func UserLoggedOut(data AuthData) AuthPayload {
	return AuthPayload{kind: KindUserLoggedOut, AuthData: data}
}

func UserPasswordReset(data AuthData) AuthPayload {
	return AuthPayload{kind: KindUserPasswordReset, AuthData: data}
}

// SenderIdentityData is the payload body for sender_identity.* events.
type SenderIdentityData struct {
	IdentityID   int64  `json:"identity_id"`
	UserID       int64  `json:"user_id"`
	IdentityType string `json:"identity_type"` // EMAIL, PHONE
	Value        string `json:"value"`
	DisplayName  string `json:"display_name,omitempty"`
	IsVerified   bool   `json:"is_verified,omitempty"`
	IsDefault    bool   `json:"is_default,omitempty"`
}

// SenderIdentityPayload tags SenderIdentityData with a sender_identity.* kind.
type SenderIdentityPayload struct {
	kind string
	SenderIdentityData
}

func (p SenderIdentityPayload) Kind() string { return p.kind }
func (SenderIdentityPayload) isPayload()     {}

func SenderIdentityCreated(data SenderIdentityData) SenderIdentityPayload {
	return SenderIdentityPayload{kind: KindSenderIdentityCreated, SenderIdentityData: data}
}

func SenderIdentityUpdated(data SenderIdentityData) SenderIdentityPayload {
	return SenderIdentityPayload{kind: KindSenderIdentityUpdated, SenderIdentityData: data}
}

func SenderIdentityDeleted(data SenderIdentityData) SenderIdentityPayload {
	return SenderIdentityPayload{kind: KindSenderIdentityDeleted, SenderIdentityData: data}
}

func SenderIdentityVerified(data SenderIdentityData) SenderIdentityPayload {
	return SenderIdentityPayload{kind: KindSenderIdentityVerified, SenderIdentityData: data}
}

func SenderIdentityDefaultSet(data SenderIdentityData) SenderIdentityPayload {
	return SenderIdentityPayload{kind: KindSenderIdentityDefaultSet, SenderIdentityData: data}
}

// EmailConfigurationData is the payload body for email_configuration.* events.
type EmailConfigurationData struct {
	ConfigurationID int64  `json:"configuration_id"`
	UserID          int64  `json:"user_id"`
	Name            string `json:"name,omitempty"`
	FromEmail       string `json:"from_email,omitempty"`
	SMTPHost        string `json:"smtp_host,omitempty"`
	IsDefault       bool   `json:"is_default,omitempty"`
}

// EmailConfigurationPayload tags EmailConfigurationData with a configuration kind.
type EmailConfigurationPayload struct {
	kind string
	EmailConfigurationData
}

func (p EmailConfigurationPayload) Kind() string { return p.kind }
func (EmailConfigurationPayload) isPayload()     {}

func EmailConfigurationCreated(data EmailConfigurationData) EmailConfigurationPayload {
	return EmailConfigurationPayload{kind: KindEmailConfigurationCreated, EmailConfigurationData: data}
}

func EmailConfigurationUpdated(data EmailConfigurationData) EmailConfigurationPayload {
	return EmailConfigurationPayload{kind: KindEmailConfigurationUpdated, EmailConfigurationData: data}
}

func EmailConfigurationDeleted(data EmailConfigurationData) EmailConfigurationPayload {
	return EmailConfigurationPayload{kind: KindEmailConfigurationDeleted, EmailConfigurationData: data}
}

func EmailConfigurationSetDefault(data EmailConfigurationData) EmailConfigurationPayload {
	return EmailConfigurationPayload{kind: KindEmailConfigurationSetDefault, EmailConfigurationData: data}
}
