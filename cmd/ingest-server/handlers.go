package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/chatrecall/chatrecall/pkg/chatparse"
	"github.com/chatrecall/chatrecall/pkg/pipeline"
	"github.com/chatrecall/chatrecall/pkg/sessionstore"
	"github.com/chatrecall/chatrecall/pkg/vectordb"
)

// maxUploadBytes caps the export size; large exports are rare and a runaway
// body would hold a worker for the whole run.
const maxUploadBytes = 64 << 20

type handlers struct {
	runner   *pipeline.Runner
	tracker  *pipeline.Tracker
	embedder *vectordb.EmbeddingClient
	sessions *sessionstore.Store
}

type uploadJSON struct {
	Content         string `json:"content"`
	ParticipantName string `json:"participantName"`
	DisplayName     string `json:"displayName"`
	OwnerID         string `json:"ownerId"`
}

// createUpload handles POST /api/uploads. Accepts either a multipart form
// (file + participantName fields) or a JSON body.
func (h *handlers) createUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	req, err := parseUploadRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runner.Start(req)
	if err != nil {
		var emptyErr pipeline.EmptyFileError
		if errors.As(err, &emptyErr) {
			writeError(w, http.StatusBadRequest, emptyErr.Error())
			return
		}
		if strings.Contains(err.Error(), "participant") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to start upload processing")
		writeError(w, http.StatusServiceUnavailable, "processing could not be scheduled")
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

func parseUploadRequest(r *http.Request) (pipeline.StartRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return pipeline.StartRequest{}, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return pipeline.StartRequest{}, errors.New("missing file field")
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			return pipeline.StartRequest{}, errors.New("failed to read uploaded file")
		}

		return pipeline.StartRequest{
			RawContent:  string(raw),
			Participant: r.FormValue("participantName"),
			DisplayName: r.FormValue("displayName"),
			OwnerID:     r.FormValue("ownerId"),
		}, nil
	}

	var body uploadJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.StartRequest{}, errors.New("invalid JSON body")
	}
	return pipeline.StartRequest{
		RawContent:  body.Content,
		Participant: body.ParticipantName,
		DisplayName: body.DisplayName,
		OwnerID:     body.OwnerID,
	}, nil
}

// getProgress handles GET /api/uploads/{uploadID}/progress
func (h *handlers) getProgress(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	progress, ok := h.tracker.Get(uploadID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown upload id")
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// validateUpload handles POST /api/uploads/validate: a cheap pre-flight
// check of the export format without running the pipeline.
func (h *handlers) validateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	req, err := parseUploadRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatparse.ValidateExport(req.RawContent))
}

// health handles GET /health
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	embeddingUp := h.embedder.IsAvailable(ctx)
	dbUp := h.sessions.Ping(ctx) == nil

	status := "ok"
	code := http.StatusOK
	if !embeddingUp || !dbUp {
		status = "degraded"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"embedding": embeddingUp,
		"database":  dbUp,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
