// Package attendance builds the per-day attendance sheet from the store.
package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Row is one line of the attendance sheet.
type Row struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	Time        time.Time `json:"time,omitzero"`
}

// Sheet lists every enrolled identity as present or absent on date.
// Identities that attended but are no longer enrolled are appended as present.
func Sheet(
	ctx context.Context, identities database.EnrollmentReader, store database.AttendanceStore, date string,
) ([]Row, error) {
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	enrolled, err := identities.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	records, err := store.ListAttendance(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	first := make(map[string]database.AttendanceRecord, len(records))
	for _, rec := range records {
		if prev, ok := first[rec.IdentityID]; !ok || rec.Timestamp.Before(prev.Timestamp) {
			first[rec.IdentityID] = rec
		}
	}

	rows := make([]Row, 0, len(enrolled))
	for _, id := range enrolled {
		row := Row{IdentityID: id.IdentityID, DisplayName: id.DisplayName, Status: StatusAbsent}
		if rec, ok := first[id.IdentityID]; ok {
			row.Status = StatusPresent
			row.Time = rec.Timestamp
			delete(first, id.IdentityID)
		}
		rows = append(rows, row)
	}

	var leftover []Row
	for _, rec := range first {
		leftover = append(leftover, Row{
			IdentityID:  rec.IdentityID,
			DisplayName: rec.DisplayName,
			Status:      StatusPresent,
			Time:        rec.Timestamp,
		})
	}
	sort.Slice(leftover, func(i, j int) bool { return leftover[i].IdentityID < leftover[j].IdentityID })

	return append(rows, leftover...), nil
}

// WriteCSV writes the sheet with a header row. Absent rows have an empty time.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"identity_id", "name", "status", "time"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		ts := ""
		if !r.Time.IsZero() {
			ts = r.Time.Format(time.TimeOnly)
		}
		if err := cw.Write([]string{r.IdentityID, r.DisplayName, r.Status, ts}); err != nil {
			return fmt.Errorf("write row %s: %w", r.IdentityID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
