package domain

import (
	"context"
	"errors"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrPostNotFound  = errors.New("post not found")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrSelfFollow    = errors.New("cannot follow yourself")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrTxConflict : la transaction a été retentée jusqu'à la limite interne
	// du store sans réussir à commiter (verrous/serialization).
	ErrTxConflict = errors.New("transaction conflict")

	// ErrUnavailable : l'infrastructure est injoignable (réseau).
	// Pas de retry automatique à ce niveau, c'est au caller de décider.
	ErrUnavailable = errors.New("backend unavailable")
)

// Kind est la taxonomie exposée aux adapters primaires (HTTP).
// Chaque opération publique renvoie (valeur, error) ; le Kind permet au
// caller de mapper vers un code de statut sans inspecter les messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindConflict
	KindUnauthorized
	KindUnavailable
	KindInvalid
)

// KindOf classifie une erreur (wrappée ou non) dans la taxonomie.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrPostNotFound), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrTxConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, ErrSelfFollow), errors.Is(err, ErrInvalidInput):
		return KindInvalid
	default:
		return KindUnknown
	}
}
