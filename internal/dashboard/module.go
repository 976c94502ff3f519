// Package dashboard provides the read-only dashboard bounded context module.
package dashboard

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"dentalcrm_backend/internal/dashboard/handler"
	"dentalcrm_backend/internal/dashboard/repository"
	"dentalcrm_backend/internal/dashboard/service"
	apphttp "dentalcrm_backend/internal/http"
)

// Module is the dashboard bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the dashboard module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{handler: handler.New(service.New(repo))}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// RegisterRoutes mounts dashboard routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
