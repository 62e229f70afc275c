package api

import "exoplanet-backend/internal/core"

type WelcomeResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status      string          `json:"status"`
	ModelLoaded bool            `json:"model_loaded"`
	Model       *core.ModelInfo `json:"model,omitempty"`
}
