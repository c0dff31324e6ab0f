package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"markestedt/snapkeys/binds"
	"markestedt/snapkeys/keyset"
)

type bindingInfo struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

// handleBindings lists bound letters with their image sizes
func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	sizes := s.store.Sizes()
	keys := s.store.Keys()

	list := make([]bindingInfo, 0, len(keys))
	for _, k := range keys {
		list = append(list, bindingInfo{
			Key:  k.String(),
			Size: sizes[k],
			URL:  "/api/bindings/" + k.String(),
		})
	}

	writeJSON(w, map[string]any{
		"bindings": list,
		"total":    len(list),
	})
}

// handleBindingImage serves the raw bytes bound to one letter
func (s *Server) handleBindingImage(w http.ResponseWriter, r *http.Request) {
	key, err := keyset.ParseLetter(r.PathValue("letter"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := s.store.Lookup(key)
	if errors.Is(err, binds.ErrNotBound) {
		http.Error(w, "Letter not bound", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Failed to look up binding", "key", key, "error", err)
		http.Error(w, "Failed to read binding", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Write(img)
}

// handleHistory returns paginated combo history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	offset := 0

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	attempts, err := s.db.GetAttempts(limit, offset)
	if err != nil {
		logger.Error("Failed to get attempts", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetAttemptCount()
	if err != nil {
		logger.Error("Failed to get attempt count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"attempts": attempts,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusServiceUnavailable)
		return
	}

	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		logger.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	keys, err := s.db.GetKeyStats()
	if err != nil {
		logger.Error("Failed to get key stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"days":    days,
		"overall": overall,
		"keys":    keys,
	})
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := "idle"
	if s.status != nil && s.status.Armed() {
		status = "armed"
	}

	writeJSON(w, map[string]any{
		"status":   status,
		"bindings": s.store.Len(),
		"history":  s.db != nil,
	})
}
