// Package events publishes attendance events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// DefaultTopic is the topic attendance events are published to.
const DefaultTopic = "attendance/events"

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Recorder writes attendance events to the store.
type Recorder interface {
	RecordAttendance(ctx context.Context, identityID, displayName string, ts time.Time) (database.RecordStatus, error)
}

// AttendanceEvent is the payload published for every newly stored attendance.
type AttendanceEvent struct {
	EventID     string    `json:"event_id"`
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishingRecorder records attendance and announces each new record.
// Publish failures are logged and never fail the write.
type PublishingRecorder struct {
	next      Recorder
	publisher Publisher
	topic     string
}

// NewPublishingRecorder wraps next. An empty topic selects DefaultTopic.
func NewPublishingRecorder(next Recorder, publisher Publisher, topic string) *PublishingRecorder {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PublishingRecorder{next: next, publisher: publisher, topic: topic}
}

// RecordAttendance implements Recorder.
func (r *PublishingRecorder) RecordAttendance(
	ctx context.Context, identityID, displayName string, ts time.Time,
) (database.RecordStatus, error) {
	status, err := r.next.RecordAttendance(ctx, identityID, displayName, ts)
	if err != nil || status != database.StatusRecorded {
		return status, err
	}

	payload, err := json.Marshal(AttendanceEvent{
		EventID:     uuid.NewString(),
		IdentityID:  identityID,
		DisplayName: displayName,
		Date:        database.AttendanceDate(ts),
		Timestamp:   ts,
	})
	if err != nil {
		log.Printf("[events] marshal attendance event for %s: %v", identityID, err)
		return status, nil
	}
	if err := r.publisher.Publish(r.topic, payload); err != nil {
		log.Printf("[events] publish attendance event for %s: %v", identityID, err)
	}
	return status, nil
}
