package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"github.com/ternarybob/meeple/internal/services/importer"
)

// maxUploadBytes bounds the accepted upload size (32 MB)
const maxUploadBytes = 32 << 20

var validate = validator.New()

// importParams are the caller-supplied options accompanying an upload
type importParams struct {
	Filename            string `validate:"required,max=255"`
	Enrich              bool
	UpdateExistingPlays bool
	Stream              bool
}

// ImportHandler accepts collection uploads and exposes the import stream.
type ImportHandler struct {
	importerService *importer.Service
	logger          arbor.ILogger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importerService *importer.Service, logger arbor.ILogger) *ImportHandler {
	return &ImportHandler{
		importerService: importerService,
		logger:          logger,
	}
}

// HandleImport handles POST /api/import. The upload is a multipart form with
// a "file" part, or a raw body with a filename query parameter. With
// stream=true the response is a chunked NDJSON event stream; otherwise the
// job snapshot is returned immediately and progress is available via the
// job endpoints or the websocket.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	content, params, err := h.readUpload(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(params); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid import request: %v", err))
		return
	}

	job, err := h.importerService.StartImport(r.Context(), &importer.ImportRequest{
		Content:             content,
		Filename:            params.Filename,
		Enrich:              params.Enrich,
		UpdateExistingPlays: params.UpdateExistingPlays,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.Stream {
		h.streamProgress(w, r, job)
		return
	}
	WriteJSON(w, http.StatusAccepted, job)
}

// readUpload extracts the file content and options from the request
func (h *ImportHandler) readUpload(r *http.Request) ([]byte, *importParams, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	params := &importParams{
		Enrich:              QueryBool(r, "enrich"),
		UpdateExistingPlays: QueryBool(r, "update_existing_plays"),
		Stream:              QueryBool(r, "stream"),
	}

	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, nil, fmt.Errorf("missing file part: %w", err)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read upload: %w", err)
		}
		params.Filename = header.Filename
		if v := r.FormValue("enrich"); v != "" {
			params.Enrich = v == "true"
		}
		if v := r.FormValue("update_existing_plays"); v != "" {
			params.UpdateExistingPlays = v == "true"
		}
		return content, params, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	params.Filename = r.URL.Query().Get("filename")
	return content, params, nil
}

// streamProgress writes NDJSON progress frames until the job completes or
// the client goes away. A disconnect only stops the stream; the job keeps
// running and its progress stays queryable.
func (h *ImportHandler) streamProgress(w http.ResponseWriter, r *http.Request, job *models.ImportJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteJSON(w, http.StatusAccepted, job)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	writeFrame := func(frame models.ProgressFrame) bool {
		if err := encoder.Encode(frame); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeFrame(models.StartFrame(job.ID, job.TotalItems)) {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().
				Str("job_id", job.ID).
				Msg("Stream client disconnected - job continues")
			return
		case <-ticker.C:
		}

		snapshot, err := h.importerService.GetJob(context.Background(), job.ID)
		if err != nil {
			h.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Stream snapshot fetch failed")
			continue
		}

		if !writeFrame(models.ProgressFrameFromJob(snapshot)) {
			return
		}
		if snapshot.IsTerminal() {
			writeFrame(models.CompleteFrame(snapshot.ID, snapshot.Result))
			return
		}
	}
}

// HandleJob handles GET /api/jobs/{id}
func (h *ImportHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.importerService.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// HandleListJobs handles GET /api/jobs
func (h *ImportHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.JobListOptions{
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Limit:  QueryInt(r, "limit", 50),
		Offset: QueryInt(r, "offset", 0),
	}

	jobs, err := h.importerService.ListJobs(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
