package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// fakeDetector returns a fixed detection response
type fakeDetector struct {
	resp *embedder.FaceResponse
	err  error
}

func (d *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*embedder.FaceResponse, error) {
	return d.resp, d.err
}

// setupStores registers fresh in-memory stores with one enrolled identity
func setupStores(t *testing.T) (*mock.MockEnrollmentStore, *mock.MockAttendanceStore) {
	t.Helper()
	enrollments, attendance := mock.Register()
	enrollments.AddEmbedding("A001", "Alice", "front", []float32{1, 0, 0})
	enrollments.AddEmbedding("B002", "Bob", "front", []float32{0, 1, 0})
	return enrollments, attendance
}

// newTestOrchestrator builds an orchestrator over the given stores
func newTestOrchestrator(
	t *testing.T, enrollments *mock.MockEnrollmentStore, attendance *mock.MockAttendanceStore, confirm int,
) *recognition.Orchestrator {
	t.Helper()
	idx, err := recognition.LoadIndex(context.Background(), enrollments)
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	orch, err := recognition.NewOrchestrator(recognition.OrchestratorConfig{
		Index:    recognition.NewIndexHolder(idx),
		Tracker:  recognition.NewTracker(confirm, recognition.PolicyAccumulate, 0),
		Recorder: attendance,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return orch
}

// pngFrame encodes a plain test frame
func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding frame: %v", err)
	}
	return buf.Bytes()
}
