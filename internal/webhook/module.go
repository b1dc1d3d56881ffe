package webhook

import (
	"lotshoppr_backend/internal/adapters/storage"
	apphttp "lotshoppr_backend/internal/http"
	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/httpkit"
	"lotshoppr_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
	limiter *httpkit.IPRateLimiter
}

// Dependencies groups what the webhook module needs from the rest of the app.
type Dependencies struct {
	Repo          Repository
	Intake        LeadIntake
	Replies       ReplyHandler
	Storage       storage.StorageService
	StorageBucket string
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(deps Dependencies, cfg config.WebhookConfig, log *logger.Logger) *Module {
	repo := deps.Repo
	if repo == nil {
		repo = NewMemoryRepository()
	}
	service := NewService(repo, deps.Intake, deps.Replies, deps.Storage, deps.StorageBucket, log)

	limit := rate.Limit(cfg.GetWebhookRateLimit())
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.GetWebhookRateBurst()
	if burst < 1 {
		burst = 1
	}

	if cfg.GetWebhookSecret() == "" {
		log.Warn("webhook: no shared secret configured, provider requests are not authenticated")
	}

	return &Module{
		handler: NewHandler(service),
		cfg:     cfg,
		limiter: httpkit.NewIPRateLimiter(limit, burst, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(m.limiter.RateLimit(), SecretAuthMiddleware(m.cfg.GetWebhookSecret()))
	group.POST("/tally", m.handler.HandleTally)
	group.POST("/email-inbound", m.handler.HandleInboundEmail)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
