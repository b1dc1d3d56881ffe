// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"lotshoppr_backend/internal/events"
	apphttp "lotshoppr_backend/internal/http"
	"lotshoppr_backend/internal/leads/handler"
	"lotshoppr_backend/internal/leads/management"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/logger"
	"lotshoppr_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	store      repository.Store
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(store repository.Store, engine *negotiation.Engine, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	mgmtSvc := management.New(store, engine, eventBus, log, management.Options{
		DefaultDealerEmails: cfg.GetDealerEmails(),
		PhoneRegion:         cfg.PhoneRegion,
		DuplicateWindow:     cfg.GetDuplicateWindow(),
	})

	return &Module{
		handler:    handler.New(mgmtSvc, val),
		management: mgmtSvc,
		store:      store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Store returns the lead store shared with other modules.
func (m *Module) Store() repository.Store {
	return m.store
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
