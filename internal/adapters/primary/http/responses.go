package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// Enveloppe JSON : {data} ou {error:{kind,message}}. L'UI ne reçoit jamais
// d'objet store brut ni d'erreur technique non classifiée.

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Kind: kind, Message: message}})
}

// writeDomainError mappe la taxonomie du domaine vers HTTP.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.KindAlreadyExists:
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case domain.KindConflict:
		writeError(w, http.StatusConflict, "transaction_conflict", "operation conflicted, retry")
	case domain.KindUnauthorized:
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case domain.KindInvalid:
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
	case domain.KindUnavailable:
		writeError(w, http.StatusServiceUnavailable, "unavailable", "backend unavailable")
	default:
		slog.Error("unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
