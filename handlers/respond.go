package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"levelQuestAPI/internal/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithAppError maps the core error taxonomy to HTTP status
// codes. The core itself never chooses response codes.
func respondWithAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		respondWithError(w, http.StatusBadRequest, err.Error())
	case apperr.KindConflict:
		respondWithError(w, http.StatusConflict, err.Error())
	case apperr.KindNotFound:
		respondWithError(w, http.StatusNotFound, err.Error())
	case apperr.KindExternal:
		respondWithError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("Handler: internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
