package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/registry"
	"corrector-proxy/internal/validation"
	"corrector-proxy/pkg/logging/logging"
)

type registerRequest struct {
	InstallID string  `json:"install_id" validate:"required,install_id"`
	Version   *string `json:"version"`
}

type registerResponse struct {
	InstallToken string `json:"install_token"`
}

// RegisterHandler holds dependencies for the /v1/register endpoint.
type RegisterHandler struct {
	Registry *registry.Registry
}

func NewRegisterHandler(reg *registry.Registry) *RegisterHandler {
	return &RegisterHandler{Registry: reg}
}

// Register handles POST /v1/register.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	var typeErrField string
	if err := decodeBody(r, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			writeError(w, r, err)
			return
		}
		typeErrField = typeErr.Field
	}

	if typeErrField == "install_id" || validation.Struct(req) != nil {
		writeError(w, r, apierr.New(apierr.InvalidRequest, "Invalid install_id"))
		return
	}
	if typeErrField != "" {
		writeError(w, r, apierr.New(apierr.InvalidRequest, "Invalid version"))
		return
	}

	version := ""
	if req.Version != nil {
		version = *req.Version
	}

	token, err := h.Registry.Register(ctx, req.InstallID, version)
	if err != nil {
		logging.L(ctx).Error("register failed", zap.Error(err))
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{InstallToken: token})
}
