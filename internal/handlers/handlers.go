package handlers

import (
	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health *HealthHandler
	Auth   *AuthHandler
	API    *APIHandler
	Report *ReportHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, cfg *config.Config, worker WorkerStats) *Handlers {
	RegisterValidators()

	return &Handlers{
		Health: NewHealthHandler(worker),
		Auth:   NewAuthHandler(svcs.Auth, cfg),
		API:    NewAPIHandler(svcs),
		Report: NewReportHandler(svcs.Export, svcs.Report),
	}
}
