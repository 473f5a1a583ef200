package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/ownership"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeOwnershipError translates resolver errors into API responses. The
// resolver keeps "missing" and "not yours" distinct so this mapping can
// answer 404 vs 403.
func writeOwnershipError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, ownership.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: resource + " not found"})
	case errors.Is(err, ownership.ErrNotOwned),
		errors.Is(err, ownership.ErrDependentNotOwned):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "You do not have access to this " + resource})
	case errors.Is(err, ownership.ErrNotOrgOwner):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Organization owner role required"})
	case errors.Is(err, ownership.ErrNotOrgMember):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Organization membership required"})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal error"})
	}
}

// writeDeviceError translates device interaction failures. Each failure mode
// gets a distinct status: the caller must be able to tell "device down"
// (503) from "device credentials rejected" (401) from "cannot reach device"
// (502) from "device answered garbage" (424).
func writeDeviceError(w http.ResponseWriter, err error) {
	var netErr *camera.NetworkError
	var devErr *camera.DeviceError
	var respErr *camera.InvalidResponseError

	switch {
	case errors.Is(err, camera.ErrDeviceOffline):
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Device is offline"})
	case errors.Is(err, camera.ErrDeviceUnauthorized):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Device rejected stored credentials"})
	case errors.Is(err, camera.ErrDeviceUnreachable), errors.As(err, &netErr):
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Device is unreachable"})
	case errors.As(err, &respErr):
		writeJSON(w, http.StatusFailedDependency, dto.ErrorResponse{Error: "Device returned a malformed response"})
	case errors.As(err, &devErr):
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: devErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal error"})
	}
}

func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
