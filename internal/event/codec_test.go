package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_PayloadRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	original := ReminderDue(ReminderData{
		ReminderID:       42,
		UserID:           7,
		Title:            "renew contract",
		NotificationType: "EMAIL",
		ReminderDate:     &due,
		IsRecurring:      true,
	})

	data, err := EncodePayload(original)
	require.NoError(t, err)

	decoded, err := DecodePayload(KindReminderDue, data)
	require.NoError(t, err)

	rp, ok := decoded.(ReminderPayload)
	require.True(t, ok)
	assert.Equal(t, KindReminderDue, rp.Kind())
	assert.Equal(t, original.ReminderData, rp.ReminderData)
}

func TestCodec_UnknownEventType(t *testing.T) {
	_, err := DecodePayload("invoice.created", []byte(`{}`))

	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
	assert.Equal(t, "invoice.created", desErr.EventType)
}

func TestCodec_MalformedPayload(t *testing.T) {
	_, err := DecodePayload(KindUserCreated, []byte(`{"user_id": "not-a-number"}`))

	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
}

func TestDecodeEnvelope_RoundTrip(t *testing.T) {
	env := NewEnvelope(
		NotificationScheduled(NotificationData{
			NotificationID:   9,
			ReminderID:       42,
			UserID:           7,
			NotificationType: "SMS",
			Status:           "PENDING",
		}),
		WithUserID(7),
		WithCorrelationID("corr-1"),
	)

	payload, err := EncodePayload(env.Payload)
	require.NoError(t, err)
	metadata, err := EncodeMetadata(env.Type, env.Metadata)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(StoredEvent{
		EventID:   env.Metadata.EventID,
		EventType: env.Type,
		Timestamp: env.Metadata.Timestamp,
		Payload:   payload,
		Metadata:  metadata,
	})
	require.NoError(t, err)

	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Metadata.EventID, decoded.Metadata.EventID)
	assert.Equal(t, env.Metadata.CorrelationID, decoded.Metadata.CorrelationID)
	assert.Equal(t, env.Payload, decoded.Payload)
}

func TestDecodeEnvelope_BadMetadata(t *testing.T) {
	_, err := DecodeEnvelope(StoredEvent{
		EventType: KindUserCreated,
		Payload:   []byte(`{}`),
		Metadata:  []byte(`not json`),
	})

	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
}
