package recognition

import (
	"testing"
	"time"
)

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	cooldown := 20 * time.Second

	if !d.ShouldRecord("A001", base, cooldown) {
		t.Fatal("first record must be allowed")
	}
	d.MarkRecorded("A001", base)

	tests := []struct {
		name string
		id   string
		at   time.Duration
		want bool
	}{
		{"inside cooldown", "A001", 5 * time.Second, false},
		{"exactly at cooldown", "A001", 20 * time.Second, false},
		{"after cooldown", "A001", 21 * time.Second, true},
		{"other identity", "B002", time.Second, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.ShouldRecord(tc.id, base.Add(tc.at), cooldown); got != tc.want {
				t.Errorf("ShouldRecord = %v, want %v", got, tc.want)
			}
		})
	}

	last, ok := d.LastRecorded("A001")
	if !ok || !last.Equal(base) {
		t.Errorf("LastRecorded = %v, %v", last, ok)
	}
	if _, ok := d.LastRecorded("B002"); ok {
		t.Error("B002 was never marked")
	}
}
