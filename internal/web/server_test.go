package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

type noFaces struct{}

func (noFaces) DetectFaces(ctx context.Context, imageData []byte) (*embedder.FaceResponse, error) {
	return &embedder.FaceResponse{}, nil
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	enrollments, attendance := mock.Register()
	enrollments.AddEmbedding("A001", "Alice", "front", []float32{1, 0})

	idx, err := recognition.LoadIndex(context.Background(), enrollments)
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	orch, err := recognition.NewOrchestrator(recognition.OrchestratorConfig{
		Index:    recognition.NewIndexHolder(idx),
		Recorder: attendance,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return NewServer(0, "127.0.0.1", token, noFaces{}, orch, nil)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, "secret")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"health without token", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"metrics without token", http.MethodGet, "/metrics", "", http.StatusOK},
		{"identities requires token", http.MethodGet, "/api/v1/identities", "", http.StatusUnauthorized},
		{"identities with token", http.MethodGet, "/api/v1/identities", "secret", http.StatusOK},
		{"attendance with token", http.MethodGet, "/api/v1/attendance?date=2025-03-10", "secret", http.StatusOK},
		{"rebuild with token", http.MethodPost, "/api/v1/index/rebuild", "secret", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/photos", "secret", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestMetricsExposeRecognitionCollectors(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "attendance_indexed_embeddings") {
		t.Error("expected indexed embeddings gauge in metrics output")
	}
}
