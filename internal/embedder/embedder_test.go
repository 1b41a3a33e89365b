package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

func TestDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if len(data) != len(jpegHeader) {
			t.Errorf("expected %d bytes, got %d", len(jpegHeader), len(data))
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg, got %s", ct)
		}
		json.NewEncoder(w).Encode(FaceResponse{
			FacesCount: 2,
			Faces: []FaceDetection{
				{FaceIndex: 0, Dim: 2, Embedding: []float32{0.6, 0.8}, BBox: []float64{10, 20, 110, 140}, DetScore: 0.9},
				{FaceIndex: 1, BBox: []float64{200, 20, 230, 50}, DetScore: 0.7},
			},
			Model: "buffalo_l",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", 5*time.Second)
	resp, err := client.DetectFaces(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if resp.FacesCount != 2 || resp.Model != "buffalo_l" {
		t.Errorf("unexpected response %+v", resp)
	}

	dets := resp.Detections()
	if len(dets) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(dets))
	}
	if dets[0].Err != nil || dets[0].BBox.Width() != 100 || dets[0].BBox.Height() != 120 {
		t.Errorf("unexpected first detection %+v", dets[0])
	}
	if !errors.Is(dets[1].Err, ErrEmptyEmbedding) {
		t.Errorf("expected ErrEmptyEmbedding, got %v", dets[1].Err)
	}
}

func TestDetections_MalformedBoxKept(t *testing.T) {
	resp := &FaceResponse{Faces: []FaceDetection{
		{FaceIndex: 0, BBox: []float64{10, 10, 110, 130}, Embedding: []float32{1, 0}},
		{FaceIndex: 1, BBox: []float64{10, 10}, Embedding: []float32{0, 1}},
		{FaceIndex: 2, BBox: []float64{50, 50, 40, 40}, Embedding: []float32{0, 1}},
	}}

	dets := resp.Detections()
	if len(dets) != 3 {
		t.Fatalf("expected every face to be reported, got %d", len(dets))
	}
	if dets[0].Err != nil {
		t.Errorf("unexpected error on valid face: %v", dets[0].Err)
	}
	for _, i := range []int{1, 2} {
		if !errors.Is(dets[i].Err, recognition.ErrInvalidBBox) {
			t.Errorf("face %d: expected ErrInvalidBBox, got %v", i, dets[i].Err)
		}
		if dets[i].Embedding != nil {
			t.Errorf("face %d: malformed detection must not carry an embedding", i)
		}
	}
}

func TestDetectFaces_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).DetectFaces(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestSingleFace(t *testing.T) {
	face := FaceDetection{Embedding: []float32{1}, BBox: []float64{0, 0, 64, 64}}
	tests := []struct {
		name    string
		faces   []FaceDetection
		wantErr error
	}{
		{"no face", nil, ErrNoFace},
		{"one face", []FaceDetection{face}, nil},
		{"two faces", []FaceDetection{face, face}, ErrMultipleFaces},
		{"no embedding", []FaceDetection{{BBox: face.BBox}}, ErrEmptyEmbedding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &FaceResponse{Faces: tt.faces}
			_, err := resp.SingleFace()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"bmp", []byte{0x42, 0x4D, 0, 0, 0, 0, 0, 0}, "image/bmp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
