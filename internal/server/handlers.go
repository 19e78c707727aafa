package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Yahya-Abdulselam/Nabrah/internal/analysis"
	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/features"
	"github.com/Yahya-Abdulselam/Nabrah/internal/queue"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

const defaultLanguage = "en"

// badRequest is a client error whose text is returned verbatim.
type badRequest string

func (e badRequest) Error() string { return string(e) }

type analyzeResponse struct {
	Status string `json:"status"`
	*analysis.Result
}

type whisperResponse struct {
	Status string `json:"status"`
	*transcription.Result
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	var (
		validation   *audio.ValidationError
		insufficient *features.InsufficientAudioError
		bad          badRequest
	)
	switch {
	case isTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &bad),
		errors.As(err, &validation),
		errors.As(err, &insufficient),
		errors.Is(err, transcription.ErrUnsupportedLanguage),
		errors.Is(err, queue.ErrInvalidStatus),
		errors.Is(err, queue.ErrInvalidIntake):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transcription.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func notFoundDetail(err error) string {
	if errors.Is(err, queue.ErrNotFound) {
		return "Patient not found"
	}
	return ""
}

// fail logs err and writes the mapped error response
func (h *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error, detail string) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else {
		h.logger.Debug("Request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	if detail == "" {
		detail = err.Error()
	}
	switch status {
	case http.StatusRequestEntityTooLarge:
		detail = fmt.Sprintf("File exceeds the %d MB upload limit", h.config.MaxUploadMB)
	case http.StatusInternalServerError:
		detail = "Internal server error: " + detail
	}
	writeError(w, status, detail)
}

// readUpload extracts the multipart "file" field, bounded by the upload limit
func (h *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.GetMaxUploadBytes())

	file, _, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, badRequest("No file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, badRequest("Empty file provided")
	}
	return data, nil
}

// handleAnalyze implements POST /analyze
func (h *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mode := h.deps.Analyzer.DefaultMode()
	if v := r.URL.Query().Get("correction"); v != "" {
		parsed, err := correction.ParseMode(v)
		if err != nil {
			h.fail(w, r, badRequest(err.Error()), "")
			return
		}
		mode = parsed
	}

	data, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.AnalysisTimeout)
	defer cancel()

	result, err := h.deps.Analyzer.AnalyzeWithMode(ctx, data, mode)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Status: "success", Result: result})
}

// handleWhisper implements POST /analyze/whisper
func (h *HTTPServer) handleWhisper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		language = defaultLanguage
	}
	if err := transcription.ValidateLanguage(language); err != nil {
		h.fail(w, r, err, "")
		return
	}

	data, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	result, err := h.deps.Transcriber.Transcribe(r.Context(), data, language)
	if err != nil {
		detail := ""
		if errors.Is(err, transcription.ErrProviderUnavailable) {
			detail = "Whisper model not available"
		}
		h.fail(w, r, err, detail)
		return
	}

	writeJSON(w, http.StatusOK, whisperResponse{Status: "success", Result: result})
}

// handleQueue implements GET and POST /queue
func (h *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cases, err := h.deps.Queue.List(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		stats, err := h.deps.Queue.Stats(r.Context())
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		if cases == nil {
			cases = []queue.Case{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "success",
			"patients": cases,
			"stats":    stats,
			"count":    len(cases),
		})

	case http.MethodPost:
		body, err := h.readBody(w, r)
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		var in queue.Intake
		if err := json.Unmarshal(body, &in); err != nil {
			h.fail(w, r, badRequest("Invalid request body: "+err.Error()), "")
			return
		}
		c, err := h.deps.Queue.Add(r.Context(), &in)
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "success",
			"patient_id": c.ID,
			"priority":   c.Priority,
			"message":    fmt.Sprintf("Patient %s added to queue", c.ID),
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type statusUpdateRequest struct {
	Status     string  `json:"status"`
	Notes      *string `json:"notes"`
	ReviewedBy *string `json:"reviewed_by"`
	ReferredTo *string `json:"referred_to"`
}

// handlePatient implements GET, PATCH and DELETE /queue/{id}
func (h *HTTPServer) handlePatient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		c, err := h.deps.Queue.Get(r.Context(), id)
		if err != nil {
			h.fail(w, r, err, notFoundDetail(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"patient": c,
		})

	case http.MethodPatch:
		body, err := h.readBody(w, r)
		if err != nil {
			h.fail(w, r, err, "")
			return
		}
		var req statusUpdateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			h.fail(w, r, badRequest("Invalid request body: "+err.Error()), "")
			return
		}
		c, err := h.deps.Queue.UpdateStatus(r.Context(), id, req.Status, req.Notes, req.ReviewedBy, req.ReferredTo)
		if err != nil {
			h.fail(w, r, err, notFoundDetail(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": fmt.Sprintf("Patient %s updated to '%s'", id, c.Status),
			"patient": c,
		})

	case http.MethodDelete:
		if err := h.deps.Queue.Delete(r.Context(), id); err != nil {
			h.fail(w, r, err, notFoundDetail(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "success",
			"message": fmt.Sprintf("Patient %s deleted", id),
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleQueueStats implements GET /queue/stats/summary
func (h *HTTPServer) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.deps.Queue.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"stats":  stats,
	})
}

// handleExportCSV implements GET /queue/export/csv
func (h *HTTPServer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := h.deps.Queue.Export(r.Context(), &buf); err != nil {
		h.fail(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=nabrah_queue.csv")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
