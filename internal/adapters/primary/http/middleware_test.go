package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// stubVerifier mappe token -> uid sans crypto (la vraie vérification RSA
// est testée dans l'adapter security).
type stubVerifier struct{ uids map[string]string }

func (v stubVerifier) Validate(token string) (string, error) {
	uid, ok := v.uids[token]
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return uid, nil
}

func echoUID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"uid": ForContext(r.Context())})
}

func newAuthedHandler() http.Handler {
	verifier := stubVerifier{uids: map[string]string{"good-token": "alice"}}
	return AuthMiddleware(verifier)(http.HandlerFunc(echoUID))
}

func TestAuthMiddleware_InjectsUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	newAuthedHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "alice", body.Data["uid"])
}

func TestAuthMiddleware_NoHeaderIsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	// Sans header, la requête passe en anonyme (endpoints publics).
	newAuthedHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Data["uid"])
}

func TestAuthMiddleware_RejectsBadToken(t *testing.T) {
	for _, header := range []string{"Bearer bad-token", "NotBearer good-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		newAuthedHandler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRequireUser(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := RequireUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"uid": uid})
	})
	authed := AuthMiddleware(stubVerifier{uids: map[string]string{"good-token": "alice"}})(handler)

	// Anonyme : 401.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	authed.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authentifié : passe.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec = httptest.NewRecorder()
	authed.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteDomainError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrPostNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{domain.ErrTxConflict, http.StatusConflict, "transaction_conflict"},
		{domain.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{domain.ErrSelfFollow, http.StatusBadRequest, "invalid"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "invalid"},
		{domain.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body struct {
			Error errorBody `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.kind, body.Error.Kind, tc.err.Error())
	}
}

func TestWriteDomainError_WrappedErrorsKeepKind(t *testing.T) {
	// Les repos wrappent leurs erreurs : la classification doit traverser.
	wrapped := errors.Join(errors.New("toggle follow a -> b"), domain.ErrUserNotFound)
	rec := httptest.NewRecorder()
	writeDomainError(rec, wrapped)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
