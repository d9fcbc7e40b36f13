package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/thinkwright/hl7v/internal/hl7"
	"github.com/thinkwright/hl7v/internal/reference"
	"github.com/thinkwright/hl7v/internal/store"
)

const maxMessageBytes = 1 << 20

type splitRequest struct {
	Message string `json:"message"`
}

type splitResponse struct {
	Segments  []hl7.Segment `json:"segments"`
	Count     int           `json:"count"`
	HistoryID int64         `json:"history_id,omitempty"`
}

type segmentInfo struct {
	reference.Entry
	DocURL string `json:"doc_url"`
}

type historyItem struct {
	ID           int64  `json:"id"`
	MessageType  string `json:"message_type"`
	ControlID    string `json:"control_id"`
	Source       string `json:"source"`
	SegmentCount int    `json:"segment_count"`
	CreatedAt    string `json:"created_at"`
	Raw          string `json:"raw"`
}

// handleSplit splits a message sent as plain text or as {"message": "..."}.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	message := string(body)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req splitRequest
		if err := json.Unmarshal(body, &req); err != nil {
			jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		message = req.Message
	}

	segments, err := hl7.Split(message)
	if errors.Is(err, hl7.ErrEmptyInput) {
		jsonError(w, "message is empty", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := splitResponse{Segments: segments, Count: len(segments)}
	if s.history != nil {
		entry, err := s.history.Save(message, store.SourceAPI)
		if err != nil {
			s.log.Warn("history save failed", "error", err)
		} else {
			resp.HistoryID = entry.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	entries := s.catalog.Filter(r.URL.Query().Get("q"))
	out := make([]segmentInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, segmentInfo{Entry: e, DocURL: s.cfg.DocURL(e.Code)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"segments": out, "count": len(out)})
}

func (s *Server) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	e, ok := s.catalog.Lookup(code)
	if !ok {
		jsonError(w, "unknown segment code: "+code, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, segmentInfo{Entry: e, DocURL: s.cfg.DocURL(e.Code)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.history.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		jsonError(w, "history search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyItem{
			ID:           e.ID,
			MessageType:  e.MessageType,
			ControlID:    e.ControlID,
			Source:       e.Source,
			SegmentCount: e.SegmentCount,
			CreatedAt:    e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Raw:          e.Raw,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out, "count": len(out)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
