package server

import (
	"errors"
	"net/http"

	"github.com/claude/splitlog/internal/ingest"
)

const maxImportBytes = 32 << 20

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	result, err := s.alpha.Ingest(r.Context(), body, userIDFromContext(r))
	if errors.Is(err, ingest.ErrActiveSession) {
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		return
	}
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
