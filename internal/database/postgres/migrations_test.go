package postgres

import (
	"errors"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	all, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(all) == 0 || all[0].version != "001_initial" {
		t.Fatalf("unexpected migrations %+v", all)
	}
	for _, m := range all {
		if len(m.checksum) != 64 || m.sql == "" {
			t.Errorf("migration %s: checksum %q, %d bytes", m.version, m.checksum, len(m.sql))
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []migration{
		{version: "001_initial", checksum: "aaa"},
		{version: "002_indexes", checksum: "bbb"},
	}

	tests := []struct {
		name    string
		applied map[string]string
		want    []string
		wantErr error
	}{
		{"fresh database", map[string]string{}, []string{"001_initial", "002_indexes"}, nil},
		{"partially applied", map[string]string{"001_initial": "aaa"}, []string{"002_indexes"}, nil},
		{"up to date", map[string]string{"001_initial": "aaa", "002_indexes": "bbb"}, nil, nil},
		{"edited after apply", map[string]string{"001_initial": "zzz"}, nil, ErrMigrationChanged},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pendingMigrations(all, tc.applied)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d pending, want %d", len(got), len(tc.want))
			}
			for i, m := range got {
				if m.version != tc.want[i] {
					t.Errorf("pending[%d] = %s, want %s", i, m.version, tc.want[i])
				}
			}
		})
	}
}
