// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
	"github.com/tomtom215/appscope/internal/validation"
)

// respondJSON writes v as the JSON response body.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("response encoding failed")
	}
}

// respondError writes the uniform error payload.
func respondError(w http.ResponseWriter, status int, message string, details interface{}) {
	respondJSON(w, status, models.ErrorResponse{Error: message, Details: details})
}

// decodeRequest decodes and validates a JSON request body into dst.
// It answers the error response itself and reports whether the handler
// should proceed. Oversize bodies map to 413 per the body-cap contract.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _ = r.Body.Close() }()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Message(), verr.Details())
		return false
	}
	return true
}

// sseStream writes the `data: <json>\n\n` frame sequence.
type sseStream struct {
	w http.ResponseWriter
	f http.Flusher
}

// newSSEStream commits the response as an SSE stream. It fails when the
// underlying writer cannot flush, which no production chi stack hits.
func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseStream{w: w, f: f}, nil
}

// send writes one event frame and flushes it to the client.
func (s *sseStream) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("event encoding failed")
		return
	}
	if _, err := s.w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		return
	}
	s.f.Flush()
}
