package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/daikw/protoeval/internal/capture"
	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/daikw/protoeval/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) *ComponentResponse {
	ctrl := controllerFrom(r)
	return &ComponentResponse{
		Component: Page(PageData{
			View:          ctrl.View(),
			Profiles:      s.catalog.Profiles(),
			PreviewWidth:  s.previewWidth,
			PreviewHeight: s.previewHeight,
			Narration:     s.narrator != nil,
		}),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.registry.Len(),
	})
}

func backToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	controllerFrom(r).SetCredential(r.PostForm.Get("api_key"))
	backToIndex(w, r)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, ok := evaluation.ParseMode(r.FormValue("mode"))
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode: %q", r.FormValue("mode")), http.StatusBadRequest)
		return
	}
	controllerFrom(r).SetMode(mode)
	backToIndex(w, r)
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	method, err := session.ParseUploadMethod(r.FormValue("method"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	controllerFrom(r).SetMethod(method)
	backToIndex(w, r)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := controllerFrom(r).SelectPersonas(r.PostForm["persona"]); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	backToIndex(w, r)
}

func slotParam(r *http.Request) (session.Slot, error) {
	return session.ParseSlot(chi.URLParam(r, "slot"))
}

// handleUpload stores a multipart file. Decode failures are recorded on the
// slot and shown on the page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read upload: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read upload: %v", err), http.StatusBadRequest)
		return
	}

	if _, err := controllerFrom(r).Upload(slot, data); err != nil {
		log.Warn().Err(err).Str("slot", string(slot)).Msg("Upload rejected")
	}
	backToIndex(w, r)
}

type pasteError struct {
	Error string            `json:"error"`
	State session.Readiness `json:"state"`
}

// handlePaste accepts a JSON payload from the paste widget and answers with
// the slot's readiness after the image has been stored
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	var payload capture.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUploadBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid payload: %v", err)})
		return
	}

	state, err := controllerFrom(r).Capture(slot, payload)
	if err != nil {
		log.Warn().Err(err).Str("slot", string(slot)).Msg("Paste rejected")
		writeJSON(w, http.StatusUnprocessableEntity, pasteError{Error: err.Error(), State: state})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if _, err := controllerFrom(r).Clear(slot); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	backToIndex(w, r)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	img := controllerFrom(r).Image(slot)
	if img == nil {
		http.NotFound(w, r)
		return
	}

	data, err := imagesource.Thumbnail(img, s.previewWidth, s.previewHeight)
	if err != nil {
		log.Error().Err(err).Str("slot", string(slot)).Msg("Failed to render preview")
		http.Error(w, "failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// handleEvaluate runs the batch to completion even if the browser goes away
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	_, err := controllerFrom(r).Evaluate(ctx)
	switch {
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Error().Err(err).Msg("Evaluation failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	backToIndex(w, r)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		http.Error(w, "narration is disabled", http.StatusNotFound)
		return
	}

	results := controllerFrom(r).Results()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(results) {
		http.NotFound(w, r)
		return
	}
	result := results[index]
	if result.Failed {
		http.Error(w, "failed evaluations are not narrated", http.StatusConflict)
		return
	}

	profile, err := s.catalog.Lookup(result.PersonaName)
	if err != nil {
		profile = persona.Profile{Name: result.PersonaName}
	}

	audio, err := s.narrator.Narrate(r.Context(), result, profile)
	if err != nil {
		log.Error().Err(err).Str("persona", result.PersonaName).Msg("Narration failed")
		http.Error(w, "narration failed", http.StatusBadGateway)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", s.narrator.ContentType())
	if _, err := io.Copy(w, audio); err != nil {
		log.Warn().Err(err).Msg("Failed to stream narration")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}
