package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Attendance sheet commands",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show who was present on a day",
	RunE:  runAttendanceList,
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the attendance sheet of a day as CSV",
	Long: `Export the attendance sheet of a day as CSV. Every enrolled identity is
listed as Present with the time of the first record, or Absent.

Examples:
  face-attendance attendance export --date 2026-10-19 --output attendance.csv`,
	RunE: runAttendanceExport,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceExportCmd)

	for _, c := range []*cobra.Command{attendanceListCmd, attendanceExportCmd} {
		c.Flags().String("date", "", "Day in YYYY-MM-DD format (defaults to today)")
	}
	attendanceListCmd.Flags().Bool("json", false, "Output as JSON")
	attendanceExportCmd.Flags().StringP("output", "o", "", "Output file (defaults to stdout)")
}

// loadSheet builds the attendance sheet of the --date day.
func loadSheet(cmd *cobra.Command) (string, []attendance.Row, func(), error) {
	date := mustGetString(cmd, "date")
	if date == "" {
		date = database.AttendanceDate(time.Now())
	}

	cfg := config.Load()
	closeStorage, err := initStorage(cfg)
	if err != nil {
		return "", nil, nil, err
	}

	ctx := context.Background()
	enrollments, err := database.GetEnrollmentStore(ctx)
	if err != nil {
		closeStorage()
		return "", nil, nil, err //nolint:wrapcheck // provider error is descriptive
	}
	store, err := database.GetAttendanceStore(ctx)
	if err != nil {
		closeStorage()
		return "", nil, nil, err //nolint:wrapcheck // provider error is descriptive
	}
	rows, err := attendance.Sheet(ctx, enrollments, store, date)
	if err != nil {
		closeStorage()
		return "", nil, nil, err //nolint:wrapcheck // descriptive
	}
	return date, rows, closeStorage, nil
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	date, rows, closeStorage, err := loadSheet(cmd)
	if err != nil {
		return err
	}
	defer closeStorage()

	if jsonOutput {
		return outputJSON(rows)
	}

	present := 0
	fmt.Printf("Attendance for %s\n\n", date)
	for _, row := range rows {
		at := ""
		if row.Status == attendance.StatusPresent {
			present++
			at = row.Time.Format(time.TimeOnly)
		}
		fmt.Printf("  %-12s %-30s %-8s %s\n", row.IdentityID, row.DisplayName, row.Status, at)
	}
	fmt.Printf("\n%d of %d present\n", present, len(rows))
	return nil
}

func runAttendanceExport(cmd *cobra.Command, args []string) error {
	output := mustGetString(cmd, "output")
	date, rows, closeStorage, err := loadSheet(cmd)
	if err != nil {
		return err
	}
	defer closeStorage()

	if output == "" {
		return attendance.WriteCSV(os.Stdout, rows) //nolint:wrapcheck // descriptive
	}

	f, err := os.Create(output) //nolint:gosec // user supplied output path
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := attendance.WriteCSV(f, rows); err != nil {
		f.Close()
		return err //nolint:wrapcheck // descriptive
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", output, err)
	}
	fmt.Printf("Exported %d rows for %s to %s\n", len(rows), date, output)
	return nil
}
