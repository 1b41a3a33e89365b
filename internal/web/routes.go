package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	framesHandler := handlers.NewFramesHandler(s.detector, s.orchestrator)
	identitiesHandler := handlers.NewIdentitiesHandler(s.orchestrator.Index(), s.refs)
	attendanceHandler := handlers.NewAttendanceHandler()

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.apiToken))

		// Recognition
		r.Post("/frames", framesHandler.Process)

		// Enrollment
		r.Get("/identities", identitiesHandler.List)
		r.Delete("/identities/{id}", identitiesHandler.Delete)
		r.Post("/index/rebuild", identitiesHandler.RebuildIndex)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
	})
}
