package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>...",
	Short: "Run recognition over a sequence of frames",
	Long: `Process image files as consecutive camera frames, one at a time, and print
the outcome of every detected face. Confirmation counts carry over from one
frame to the next, so a burst of frames of the same person confirms them.

Examples:
  # Confirm from a burst of frames
  face-attendance recognize frame1.jpg frame2.jpg frame3.jpg

  # JSON output
  face-attendance recognize --json frames/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// FrameResult is the JSON output of one processed frame.
type FrameResult struct {
	File     string                    `json:"file"`
	Error    string                    `json:"error,omitempty"`
	Outcomes []recognition.FaceOutcome `json:"outcomes"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	cfg := config.Load()

	closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := context.Background()
	refs, err := newReferenceStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening reference images: %w", err)
	}

	orch, closeRecorder, err := newOrchestrator(ctx, cfg, refs)
	if err != nil {
		return err
	}
	defer closeRecorder()

	detector := newEmbedder(cfg)
	results := make([]FrameResult, 0, len(args))
	for _, path := range args {
		result := FrameResult{File: path}
		outcomes, err := recognizeFile(ctx, detector, orch, path)
		if err != nil {
			result.Error = err.Error()
		}
		result.Outcomes = outcomes
		results = append(results, result)

		if !jsonOutput {
			printFrameResult(result)
		}
	}

	if jsonOutput {
		return outputJSON(results)
	}
	return nil
}

// recognizeFile decodes one frame, detects its faces and runs them through
// the orchestrator.
func recognizeFile(
	ctx context.Context, detector handlers.FaceDetector, orch *recognition.Orchestrator, path string,
) ([]recognition.FaceOutcome, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied frame path
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	img, err := faceimage.Decode(data)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by Decode
	}
	resp, err := detector.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	return orch.ProcessFrame(ctx, recognition.Frame{
		Image: img,
		Faces: resp.Detections(),
		Time:  time.Now(),
	}), nil
}

func printFrameResult(r FrameResult) {
	if r.Error != "" {
		fmt.Printf("%s: error: %s\n", r.File, r.Error)
		return
	}
	if len(r.Outcomes) == 0 {
		fmt.Printf("%s: no faces\n", r.File)
		return
	}
	fmt.Printf("%s: %d face(s)\n", r.File, len(r.Outcomes))
	for _, out := range r.Outcomes {
		line := fmt.Sprintf("  [%d,%d %dx%d] %s", int(out.BBox.X1), int(out.BBox.Y1), out.BBox.Width(), out.BBox.Height(), out.Label())
		switch {
		case out.Recorded:
			line += " - attendance recorded"
		case out.AlreadyRecorded:
			line += " - already recorded today"
		case out.RecordError != "":
			line += " - record failed: " + out.RecordError
		}
		fmt.Println(line)
	}
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
