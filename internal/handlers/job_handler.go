package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/jobs"
)

// maxAttachmentMemory bounds the in-memory part of multipart parsing;
// larger uploads spill to disk.
const maxAttachmentMemory = 32 << 20

// JobHandler handles job submission and job lifecycle requests
type JobHandler struct {
	service     *jobs.Service
	facade      *jobs.Facade
	attachments interfaces.AttachmentStore
	logger      arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(service *jobs.Service, facade *jobs.Facade, attachments interfaces.AttachmentStore, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service:     service,
		facade:      facade,
		attachments: attachments,
		logger:      logger,
	}
}

// SubmitHandler handles POST /api/analyzers/{id}/jobs.
//
// Two request encodings are accepted: a JSON body, and multipart form
// data with a "_json" field plus an "attachment" file part for file
// observables. The uploaded file is stored first and referenced from the
// submission document.
func (h *JobHandler) SubmitHandler(w http.ResponseWriter, r *http.Request, analyzerID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	raw, err := h.decodeSubmission(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.service.Submit(r.Context(), user, analyzerID, raw)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// decodeSubmission parses the request body into a raw submission document
func (h *JobHandler) decodeSubmission(r *http.Request) (map[string]interface{}, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.decodeMultipart(r)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return raw, nil
}

// decodeMultipart stores the uploaded file and splices the resulting
// attachment reference into the submission document.
func (h *JobHandler) decodeMultipart(r *http.Request) (map[string]interface{}, error) {
	if err := r.ParseMultipartForm(maxAttachmentMemory); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	raw := map[string]interface{}{}
	if jsonField := r.FormValue("_json"); jsonField != "" {
		if err := json.Unmarshal([]byte(jsonField), &raw); err != nil {
			return nil, fmt.Errorf("invalid _json field: %w", err)
		}
	}

	file, header, err := r.FormFile("attachment")
	if err != nil {
		if err == http.ErrMissingFile {
			return raw, nil
		}
		return nil, fmt.Errorf("invalid attachment part: %w", err)
	}
	defer file.Close()

	attachment, err := h.attachments.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	h.logger.Debug().
		Str("attachment_id", attachment.ID).
		Str("filename", attachment.Name).
		Msg("Attachment uploaded")

	encoded, err := json.Marshal(attachment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachment: %w", err)
	}
	var ref map[string]interface{}
	if err := json.Unmarshal(encoded, &ref); err != nil {
		return nil, fmt.Errorf("failed to encode attachment: %w", err)
	}

	raw["attachment"] = ref
	return raw, nil
}

// ListJobsHandler handles GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	query := r.URL.Query()
	opts := &jobs.ListOptions{
		DataTypeFilter: query.Get("dataTypeFilter"),
		DataFilter:     query.Get("dataFilter"),
		AnalyzerFilter: query.Get("analyzerFilter"),
		Range:          query.Get("range"),
	}

	list, err := h.facade.ListForUser(r.Context(), user, opts)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	job, err := h.facade.GetForUser(r.Context(), user, jobID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetReportHandler handles GET /api/jobs/{id}/report.
// An atMost query parameter ("30s", "1m") waits for the job to finish.
func (h *JobHandler) GetReportHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if atMost := r.URL.Query().Get("atMost"); atMost != "" {
		wait, err := time.ParseDuration(atMost)
		if err != nil || wait < 0 {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid atMost %q", atMost))
			return
		}
		job, report, err := h.facade.WaitReport(r.Context(), user, jobID, wait)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job":    job,
			"report": report,
		})
		return
	}

	report, err := h.facade.GetReport(r.Context(), user, jobID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// ListArtifactsHandler handles GET /api/jobs/{id}/artifacts
func (h *JobHandler) ListArtifactsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	artifacts, err := h.facade.ListArtifacts(r.Context(), user, jobID, r.URL.Query().Get("range"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, artifacts)
}

// DeleteJobHandler handles DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.service.Delete(r.Context(), jobID, user.Organization); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"id":     jobID,
	})
}

// GetJobStatsHandler handles GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	stats, err := h.facade.Stats(r.Context(), user)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
