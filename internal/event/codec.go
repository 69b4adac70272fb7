package event

import (
	"encoding/json"
	"fmt"
)

// EncodePayload serializes a payload body to JSON. The event type tag is not
// part of the body; it is stored alongside in the event_log row.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, &SerializationError{EventType: p.Kind(), Err: err}
	}
	return data, nil
}

// EncodeMetadata serializes envelope metadata to JSON.
func EncodeMetadata(kind string, md Metadata) ([]byte, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return nil, &SerializationError{EventType: kind, Err: err}
	}
	return data, nil
}

// DecodePayload reconstructs a typed payload from its stored form. The switch
// is exhaustive over the closed payload set; an unknown event type is a
// deserialization error, never a silent fallthrough.
func DecodePayload(kind string, data []byte) (Payload, error) {
	switch kind {
	case KindReminderCreated, KindReminderUpdated, KindReminderDeleted, KindReminderDue:
		var d ReminderData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return ReminderPayload{kind: kind, ReminderData: d}, nil

	case KindNotificationScheduled, KindNotificationSent, KindNotificationFailed, KindNotificationCancelled:
		var d NotificationData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return NotificationPayload{kind: kind, NotificationData: d}, nil

	case KindClientCreated, KindClientUpdated, KindClientDeleted:
		var d ClientData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return ClientPayload{kind: kind, ClientData: d}, nil

	case KindClientAddedToReminder, KindClientRemovedFromReminder:
		var d ClientReminderData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return ClientReminderPayload{kind: kind, ClientReminderData: d}, nil

	case KindUserCreated, KindUserUpdated, KindUserDeleted:
		var d UserData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return UserPayload{kind: kind, UserData: d}, nil

	case KindUserLoggedIn, KindUserLoggedOut, KindUserPasswordReset:
		var d AuthData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return AuthPayload{kind: kind, AuthData: d}, nil

	case KindSenderIdentityCreated, KindSenderIdentityUpdated, KindSenderIdentityDeleted,
		KindSenderIdentityVerified, KindSenderIdentityDefaultSet:
		var d SenderIdentityData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return SenderIdentityPayload{kind: kind, SenderIdentityData: d}, nil

	case KindEmailConfigurationCreated, KindEmailConfigurationUpdated,
		KindEmailConfigurationDeleted, KindEmailConfigurationSetDefault:
		var d EmailConfigurationData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DeserializationError{EventType: kind, Err: err}
		}
		return EmailConfigurationPayload{kind: kind, EmailConfigurationData: d}, nil

	default:
		return nil, &DeserializationError{EventType: kind, Err: fmt.Errorf("unknown event type: %s", kind)}
	}
}

// DecodeEnvelope rebuilds a full envelope from a stored event record.
func DecodeEnvelope(rec StoredEvent) (Envelope, error) {
	var md Metadata
	if err := json.Unmarshal(rec.Metadata, &md); err != nil {
		return Envelope{}, &DeserializationError{EventType: rec.EventType, Err: err}
	}
	payload, err := DecodePayload(rec.EventType, rec.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: rec.EventType, Metadata: md, Payload: payload}, nil
}
