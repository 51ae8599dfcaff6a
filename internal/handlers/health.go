package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"scriba/internal/version"
)

// StorageChecker verifies the object store is reachable.
type StorageChecker interface {
	Check(ctx context.Context) error
}

// HealthHandler serves the unauthenticated liveness endpoint.
type HealthHandler struct {
	storage StorageChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(storage StorageChecker) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// Check reports service health. Storage trouble degrades the response but
// the endpoint itself stays 200 so orchestrators do not kill the process.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	storageStatus := "ok"
	if err := h.storage.Check(ctx); err != nil {
		storageStatus = "unavailable"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"storage": storageStatus,
	})
}
