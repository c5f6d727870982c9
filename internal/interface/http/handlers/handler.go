package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/pkg/errors"
)

// OperatorTokenHeader carries the operator authority on admin requests.
const OperatorTokenHeader = "X-Operator-Token"

// Handler serves the REST surface over the orchestrator and admin services.
type Handler struct {
	version  string
	svc      application.Service
	adminSvc application.AdminService
}

func NewHandler(
	version string, svc application.Service, adminSvc application.AdminService,
) *Handler {
	return &Handler{
		version:  version,
		svc:      svc,
		adminSvc: adminSvc,
	}
}

type errorResponse struct {
	Code     uint16            `json:"code"`
	Name     string            `json:"name"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WriteJSON renders v with the given status. By the time encoding can fail
// the status line is already on the wire, so failures are only logged.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// WriteError renders a structured error with its mapped HTTP status.
func WriteError(w http.ResponseWriter, err errors.Error) {
	err.Log().Debug("request failed")
	WriteJSON(w, err.HTTPStatus(), errorResponse{
		Code:     err.Code(),
		Name:     err.CodeName(),
		Message:  err.Error(),
		Metadata: err.Metadata(),
	})
}

func decodeJSON(r *http.Request, v interface{}) errors.Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.INVALID_REQUEST.New("invalid request body: %s", err)
	}
	return nil
}

func parseUintParam(r *http.Request, name string) (uint64, errors.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.INVALID_REQUEST.New("missing query parameter %s", name)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.INVALID_REQUEST.New("invalid query parameter %s: %s", name, err)
	}
	return value, nil
}

// parseIntParam returns 0 when the parameter is absent, callers treat zero
// as unset.
func parseIntParam(r *http.Request, name string) (int64, errors.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.INVALID_REQUEST.New("invalid query parameter %s: %s", name, err)
	}
	return value, nil
}

func parseStringParam(r *http.Request, name string) (string, errors.Error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", errors.INVALID_REQUEST.New("missing query parameter %s", name)
	}
	return raw, nil
}
