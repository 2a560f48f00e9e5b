package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Analyzer registry
	mux.HandleFunc("/api/analyzers", s.app.AnalyzerHandler.ListAnalyzersHandler)
	mux.HandleFunc("/api/analyzers/", s.handleAnalyzerRoutes) // GET /{id}, POST /{id}/jobs

	// API routes - Jobs
	mux.HandleFunc("/api/jobs/stats", s.app.JobHandler.GetJobStatsHandler)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // GET/DELETE /{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return mux
}

// handleAnalyzerRoutes routes analyzer-related requests by path shape
func (s *Server) handleAnalyzerRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/analyzers/")
	parts := strings.Split(path, "/")

	// POST /api/analyzers/{id}/jobs
	if len(parts) == 2 && parts[1] == "jobs" {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.SubmitHandler(w, r, parts[0])
		return
	}

	// GET /api/analyzers/{id}
	if len(parts) == 1 && parts[0] != "" {
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.AnalyzerHandler.GetAnalyzerHandler(w, r, parts[0])
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

// handleJobRoutes routes job-related requests by path shape
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")

	if len(parts) == 2 && parts[0] != "" {
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "report":
			s.app.JobHandler.GetReportHandler(w, r, parts[0])
		case "artifacts":
			s.app.JobHandler.ListArtifactsHandler(w, r, parts[0])
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
		return
	}

	if len(parts) == 1 && parts[0] != "" {
		switch r.Method {
		case "GET":
			s.app.JobHandler.GetJobHandler(w, r, parts[0])
		case "DELETE":
			s.app.JobHandler.DeleteJobHandler(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
