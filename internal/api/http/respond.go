package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"

	"github.com/gorilla/mux"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error *domain.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError renders err as the JSON error envelope. Persistence details
// are logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := domain.AsError(err)
	status := statusFor(appErr)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "code", appErr.Code, "error", err)
		appErr = domain.NewPersistenceError(nil)
	}
	writeJSON(w, status, errorBody{Error: appErr})
}

func statusFor(e *domain.Error) int {
	switch e.Kind {
	case domain.ErrorKindValidation:
		if e.Code == codeBadRequest {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case domain.ErrorKindConflict:
		return http.StatusConflict
	case domain.ErrorKindForbidden:
		return http.StatusForbidden
	case domain.ErrorKindUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

const codeBadRequest = "BAD_REQUEST"

func badRequest(message string) *domain.Error {
	return domain.NewValidationError(codeBadRequest, message, nil)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// queryInt64 parses an optional positive id from the query string.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, domain.NewFieldError(name, name+" must be a positive integer")
	}
	return &v, nil
}

// pageRequest reads page and page_size; out of range values are clamped by
// PageRequest.Normalize.
func pageRequest(r *http.Request) (domain.PageRequest, error) {
	var p domain.PageRequest
	q := r.URL.Query()
	for name, target := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, domain.NewFieldError(name, name+" must be an integer")
		}
		*target = v
	}
	return p.Normalize(), nil
}

var (
	domainErrNoRoute = domain.Error{Kind: domain.ErrorKindNotFound, Code: "NOT_FOUND", Message: "no such endpoint"}
	domainErrMethod  = domain.Error{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"}
)
