package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// maxFrameBytes bounds uploaded frames.
const maxFrameBytes = 20 << 20

// FaceDetector detects faces and computes their embeddings.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*embedder.FaceResponse, error)
}

// FramesHandler runs uploaded frames through the recognition pipeline.
type FramesHandler struct {
	detector     FaceDetector
	orchestrator *recognition.Orchestrator
}

// NewFramesHandler creates a new frames handler
func NewFramesHandler(detector FaceDetector, orchestrator *recognition.Orchestrator) *FramesHandler {
	return &FramesHandler{detector: detector, orchestrator: orchestrator}
}

type faceOutcomeResponse struct {
	recognition.FaceOutcome
	Label string `json:"label"`
}

type frameResponse struct {
	FacesCount int                   `json:"faces_count"`
	Faces      []faceOutcomeResponse `json:"faces"`
}

// Process accepts an image as multipart "file" field or as the raw body.
func (h *FramesHandler) Process(w http.ResponseWriter, r *http.Request) {
	data, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty image")
		return
	}

	img, err := faceimage.Decode(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	faces, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		log.Printf("[frames] face detection failed: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	outcomes := h.orchestrator.ProcessFrame(r.Context(), recognition.Frame{
		Image: img,
		Faces: faces.Detections(),
		Time:  time.Now(),
	})

	resp := frameResponse{FacesCount: len(outcomes), Faces: make([]faceOutcomeResponse, 0, len(outcomes))}
	for _, out := range outcomes {
		resp.Faces = append(resp.Faces, faceOutcomeResponse{FaceOutcome: out, Label: out.Label()})
	}
	respondJSON(w, http.StatusOK, resp)
}

func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}
