package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// maxRequestBody caps POST bodies accepted by the API.
const maxRequestBody = 1 << 20

type errorResponse struct {
	Error    string                `json:"error"`
	Message  string                `json:"message,omitempty"`
	TextCode string                `json:"text_code,omitempty"`
	Issues   []goerrors.FieldError `json:"issues,omitempty"`
}

func joinPath(base, suffix string) string {
	trimmedBase := strings.TrimSpace(base)
	trimmedSuffix := strings.TrimSpace(suffix)
	if trimmedBase == "" || trimmedBase == "/" {
		if trimmedSuffix == "" {
			return "/"
		}
		return "/" + strings.Trim(trimmedSuffix, "/")
	}
	baseClean := "/" + strings.Trim(trimmedBase, "/")
	if trimmedSuffix == "" {
		return baseClean
	}
	return baseClean + "/" + strings.Trim(trimmedSuffix, "/")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	writeJSON(w, status, payload)
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}

	response := errorResponse{Message: err.Error()}
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		response.Message = typed.Message
		response.TextCode = typed.TextCode
		response.Issues = typed.ValidationErrors
	}

	switch {
	case goerrors.HasCategory(err, goerrors.CategoryNotFound):
		response.Error = "not_found"
		return http.StatusNotFound, response
	case goerrors.HasCategory(err, goerrors.CategoryValidation),
		goerrors.HasCategory(err, goerrors.CategoryBadInput):
		response.Error = "bad_request"
		return http.StatusBadRequest, response
	}

	response.Error = "internal_error"
	return http.StatusInternalServerError, response
}

func badRequest(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, message).WithTextCode("BAD_REQUEST")
}
