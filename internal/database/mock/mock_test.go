package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestMockAttendanceStore_OncePerDay(t *testing.T) {
	ctx := context.Background()
	store := NewMockAttendanceStore()
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		id   string
		ts   time.Time
		want database.RecordStatus
	}{
		{"first event", "A001", day, database.StatusRecorded},
		{"same day later", "A001", day.Add(5 * time.Hour), database.StatusAlreadyRecorded},
		{"other identity", "B002", day, database.StatusRecorded},
		{"next day", "A001", day.Add(24 * time.Hour), database.StatusRecorded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.RecordAttendance(ctx, tt.id, tt.id, tt.ts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	recs, err := store.ListAttendance(ctx, "2025-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 records on 2025-03-10, got %d", len(recs))
	}
	if store.Calls() != 4 {
		t.Errorf("expected 4 calls, got %d", store.Calls())
	}
}

func TestMockAttendanceStore_ErrorInjection(t *testing.T) {
	store := NewMockAttendanceStore()
	store.RecordError = errors.New("db down")
	if _, err := store.RecordAttendance(context.Background(), "A001", "Alice", time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.Records()) != 0 {
		t.Error("failed write must not store a record")
	}
}

func TestMockEnrollmentStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMockEnrollmentStore()
	store.AddEmbedding("A001", "Alice", "front", []float32{1, 0})
	store.AddEmbedding("A001", "Alice", "left", []float32{0, 1})
	store.AddEmbedding("B002", "Bob", "front", []float32{1, 1})

	err := store.SaveEnrollment(ctx, "A001", "Alice Smith", []database.EnrollmentRow{
		{Angle: "up", Embedding: database.EncodeEmbedding([]float32{0.5, 0.5})},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, err := store.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(ids))
	}
	if ids[0].IdentityID != "A001" || ids[0].DisplayName != "Alice Smith" {
		t.Errorf("unexpected first identity: %+v", ids[0])
	}
	if len(ids[0].Angles) != 1 || ids[0].Angles[0] != "up" {
		t.Errorf("expected angles [up], got %v", ids[0].Angles)
	}

	deleted, err := store.DeleteIdentity(ctx, "B002")
	if err != nil || !deleted {
		t.Fatalf("expected B002 to be deleted, got %v, %v", deleted, err)
	}
	deleted, _ = store.DeleteIdentity(ctx, "B002")
	if deleted {
		t.Error("second delete should report false")
	}
}

func TestMockEnrollmentStore_RejectsBadEmbedding(t *testing.T) {
	store := NewMockEnrollmentStore()
	err := store.SaveEnrollment(context.Background(), "A001", "Alice", []database.EnrollmentRow{
		{Angle: "front", Embedding: []byte{1, 2, 3}},
	})
	if !errors.Is(err, database.ErrInvalidEmbedding) {
		t.Errorf("expected ErrInvalidEmbedding, got %v", err)
	}
}
