package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/wordle-league/internal/apperr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to a status code. Internal causes are
// logged and never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.Internal {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
		return
	}
	status := http.StatusInternalServerError
	code := "internal_error"
	switch ae.Kind {
	case apperr.NotFound:
		status, code = http.StatusNotFound, "not_found"
	case apperr.InvalidWord:
		status, code = http.StatusBadRequest, "invalid_word"
	case apperr.Invalid:
		status, code = http.StatusBadRequest, "invalid_request"
	case apperr.GameFinished:
		status, code = http.StatusConflict, "game_finished"
	case apperr.Conflict:
		status, code = http.StatusConflict, "conflict"
	case apperr.Unauthorized:
		status, code = http.StatusUnauthorized, "unauthorized"
	}
	writeJSON(w, status, errorBody{Error: code, Message: ae.Msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.New(apperr.Invalid, "invalid json: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.New(apperr.Invalid, "%s must be an integer", name)
	}
	return n, nil
}

// parseID parses a numeric path parameter.
func parseID(v, name string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.Invalid, "%s must be an integer", name)
	}
	return n, nil
}
