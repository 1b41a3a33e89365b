package recognition

import (
	"errors"
	"testing"
)

func TestMatchLocal(t *testing.T) {
	idx, err := BuildIndex([]EnrolledEmbedding{
		emb("A001", "Alice", AngleFront, 1, 0, 0),
		emb("A001", "Alice", AngleLeft, 0.7, 0.7, 0),
		emb("B002", "Bob", AngleFront, 0, 1, 0),
		emb("C003", "Carol", AngleUp, 0, 0, 1),
	})
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	tests := []struct {
		name      string
		query     []float32
		wantID    string
		wantAngle string
	}{
		{"exact front", []float32{2, 0, 0}, "A001", "front"},
		{"closer to left", []float32{0.6, 0.8, 0}, "A001", "left"},
		{"bob", []float32{0.1, 1, 0}, "B002", "front"},
		{"carol up", []float32{0, 0.2, 1}, "C003", "up"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok, err := MatchLocal(tc.query, idx)
			if err != nil || !ok {
				t.Fatalf("MatchLocal = %v, %v", ok, err)
			}
			if m.IdentityID != tc.wantID || m.Angle != tc.wantAngle || m.Source != SourceLocal {
				t.Errorf("got %+v, want %s/%s", m, tc.wantID, tc.wantAngle)
			}
		})
	}
}

func TestMatchLocal_SelfSimilarity(t *testing.T) {
	idx, _ := BuildIndex([]EnrolledEmbedding{emb("A001", "Alice", AngleFront, 0.3, -0.4, 0.5)})
	m, ok, err := MatchLocal([]float32{0.3, -0.4, 0.5}, idx)
	if err != nil || !ok {
		t.Fatalf("MatchLocal = %v, %v", ok, err)
	}
	if m.Score < 0.999999 {
		t.Errorf("self similarity = %v, want ~1", m.Score)
	}
}

func TestMatchLocal_EmptyIndex(t *testing.T) {
	idx, _ := BuildIndex(nil)
	_, ok, err := MatchLocal([]float32{1, 0}, idx)
	if ok || err != nil {
		t.Errorf("expected no match without error, got %v, %v", ok, err)
	}
}

func TestMatchLocal_MalformedQuery(t *testing.T) {
	idx, _ := BuildIndex([]EnrolledEmbedding{emb("A001", "Alice", AngleFront, 1, 0, 0)})

	if _, _, err := MatchLocal([]float32{1, 0}, idx); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, _, err := MatchLocal([]float32{0, 0, 0}, idx); !errors.Is(err, ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector, got %v", err)
	}
}

func TestMatchLocal_TiesKeepFirstAngleAndPosition(t *testing.T) {
	idx, _ := BuildIndex([]EnrolledEmbedding{
		emb("B002", "Bob", AngleLeft, 1, 0),
		emb("A001", "Alice", AngleFront, 1, 0),
		emb("C003", "Carol", AngleFront, 1, 0),
	})
	for range 5 {
		m, _, _ := MatchLocal([]float32{1, 0}, idx)
		if m.IdentityID != "A001" || m.Angle != "front" {
			t.Fatalf("expected A001/front on tie, got %s/%s", m.IdentityID, m.Angle)
		}
	}
}
