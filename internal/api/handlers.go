package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/extract"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

// maxJSONBody bounds /api/llm_output bodies; the text limit itself is
// enforced by the pipeline.
const maxJSONBody = 1 << 20

type llmRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type failedResponse struct {
	orchestrator.Envelope
	Error string `json:"error"`
}

func (s *Server) handleLLMOutput(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req llmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mode, err := internal.ParseMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := s.pipeline.Run(r.Context(), orchestrator.Request{Text: req.Text, Mode: mode})
	if err != nil {
		code := orchestrator.HTTPStatus(err)
		if outcome == nil {
			jsonError(w, err.Error(), code)
			return
		}
		writeJSON(w, code, failedResponse{Envelope: outcome.Envelope(), Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, outcome.Envelope())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, extract.ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if _, err := extract.FileType(filename); err != nil {
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	s.log.Info("processing upload", "filename", filename, "bytes", len(data))

	doc, err := extract.Extract(filename, data, s.cfg.MaxUploadBytes)
	if err != nil {
		code := uploadStatus(err)
		if code == http.StatusUnprocessableEntity {
			s.log.Warn("text extraction failed", "filename", filename, "error", err)
		}
		jsonError(w, err.Error(), code)
		return
	}

	s.log.Info("upload extracted", "filename", filename, "chars", doc.CharCount)
	writeJSON(w, http.StatusOK, doc)
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnreadable), errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
