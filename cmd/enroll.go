package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll identities from face images",
	Long: `Enroll an identity from one image per angle (front, left, right, up, down).
Every image must contain exactly one face large enough to be used as a
reference. The embeddings replace any earlier enrollment of the identity and
the face crops are saved as reference images for the Face++ fallback.

Examples:
  # Enroll one identity
  face-attendance enroll --id A001 --name "Alice Smith" --front alice.jpg --left alice_l.jpg

  # Bulk import a directory laid out as <id>_<name>/<angle>.jpg
  face-attendance enroll --dir ./people`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Identity ID (e.g. registration number)")
	enrollCmd.Flags().String("name", "", "Display name")
	enrollCmd.Flags().String("dir", "", "Bulk import directory laid out as <id>_<name>/<angle>.jpg")
	for _, angle := range recognition.Angles {
		enrollCmd.Flags().String(angle.String(), "", fmt.Sprintf("Image of the %s angle", angle))
	}
}

func runEnroll(cmd *cobra.Command, args []string) error {
	dir := mustGetString(cmd, "dir")
	id := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")

	paths := make(map[recognition.Angle]string)
	for _, angle := range recognition.Angles {
		if p := mustGetString(cmd, angle.String()); p != "" {
			paths[angle] = p
		}
	}
	if dir == "" && (id == "" || len(paths) == 0) {
		return errors.New("either --dir or --id with at least one angle image is required")
	}

	cfg := config.Load()
	closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := context.Background()
	store, err := database.GetEnrollmentStore(ctx)
	if err != nil {
		return err //nolint:wrapcheck // provider error is descriptive
	}
	refs, err := newReferenceStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening reference images: %w", err)
	}
	enroller := enrollment.New(newEmbedder(cfg), store, refs)

	if dir == "" {
		if name == "" {
			name = id
		}
		images, err := enrollment.ReadImages(paths)
		if err != nil {
			return err //nolint:wrapcheck // descriptive
		}
		if err := enroller.Enroll(ctx, id, name, images); err != nil {
			return fmt.Errorf("enrolling %s: %w", id, err)
		}
		fmt.Printf("Enrolled %s (%s) with %d angle(s)\n", id, name, len(images))
		return nil
	}

	return enrollDir(ctx, enroller, dir)
}

// enrollDir enrolls every identity folder below dir, continuing past failures.
func enrollDir(ctx context.Context, enroller *enrollment.Enroller, dir string) error {
	candidates, err := enrollment.ScanDir(dir)
	if err != nil {
		return err //nolint:wrapcheck // descriptive
	}
	if len(candidates) == 0 {
		fmt.Println("No identity folders found")
		return nil
	}

	bar := progressbar.NewOptions(len(candidates),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("identities"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var failures []string
	for _, c := range candidates {
		images, err := enrollment.ReadImages(c.Images)
		if err == nil {
			err = enroller.Enroll(ctx, c.IdentityID, c.DisplayName, images)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", c.IdentityID, err))
		}
		bar.Add(1)
	}

	fmt.Printf("\nEnrolled %d of %d identities\n", len(candidates)-len(failures), len(candidates))
	for _, f := range failures {
		fmt.Printf("  failed %s\n", f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d identities failed to enroll", len(failures))
	}
	return nil
}
