// Package embedder is a client for the face embedding service, which detects
// faces in an image and returns one embedding per face.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

const defaultEmbeddingURL = "http://localhost:8000"

var (
	// ErrNoFace is returned when an enrollment image contains no face.
	ErrNoFace = errors.New("no face detected")
	// ErrMultipleFaces is returned when an enrollment image contains more than one face.
	ErrMultipleFaces = errors.New("more than one face detected")
	// ErrEmptyEmbedding marks a detected face the service could not embed.
	ErrEmptyEmbedding = errors.New("empty embedding returned")
)

// Client computes face embeddings using the embedding server
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedding client. A zero timeout disables it.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// DetectFaces detects faces in an encoded image and computes their embeddings
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// postMultipartImage posts the image as the "file" form field with a
// Content-Type detected from its magic bytes.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Detections converts the service response into recognition detections,
// one per reported face. A face with a malformed box carries
// recognition.ErrInvalidBBox; a face without an embedding carries
// ErrEmptyEmbedding.
func (r *FaceResponse) Detections() []recognition.Detection {
	result := make([]recognition.Detection, 0, len(r.Faces))
	for _, f := range r.Faces {
		var det recognition.Detection
		bbox, err := faceimage.BBoxFromSlice(f.BBox)
		switch {
		case err != nil:
			det.Err = fmt.Errorf("face %d: %w: %v", f.FaceIndex, recognition.ErrInvalidBBox, err)
		case len(f.Embedding) == 0:
			det.BBox = bbox
			det.Err = fmt.Errorf("face %d: %w", f.FaceIndex, ErrEmptyEmbedding)
		default:
			det.BBox = bbox
			det.Embedding = f.Embedding
		}
		result = append(result, det)
	}
	return result
}

// SingleFace returns the only face of an enrollment image.
func (r *FaceResponse) SingleFace() (FaceDetection, error) {
	switch len(r.Faces) {
	case 0:
		return FaceDetection{}, ErrNoFace
	case 1:
	default:
		return FaceDetection{}, fmt.Errorf("%w: %d faces", ErrMultipleFaces, len(r.Faces))
	}
	face := r.Faces[0]
	if len(face.Embedding) == 0 {
		return FaceDetection{}, ErrEmptyEmbedding
	}
	if len(face.BBox) != 4 {
		return FaceDetection{}, fmt.Errorf("bbox must have 4 values, got %d", len(face.BBox))
	}
	return face, nil
}
